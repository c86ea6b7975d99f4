// Package catalog defines the static fallback tool catalog:
// the browser-automation descriptor set the broker advertises when a target
// page exposes no WebMCP tools of its own. Descriptors are built once at
// process start and are immutable thereafter.
package catalog

// Descriptor is the metadata record advertised for a callable primitive.
type Descriptor struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema,omitempty"`
	Category     string                 `json:"category"`
	RequiresAuth bool                   `json:"requiresAuth,omitempty"`
}

func obj(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func num(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": desc}
}

func boolean(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": desc}
}

func anyObj(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "object", "description": desc}
}

// selectorProps are the CSS-selector-or-semantic-locator input fields every
// element-addressing primitive accepts.
func selectorProps(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"selector":    str("raw CSS selector"),
		"text":        str("semantic locator: visible text"),
		"role":        str("semantic locator: ARIA role"),
		"name":        str("semantic locator: accessible name, paired with role"),
		"label":       str("semantic locator: associated <label> text"),
		"placeholder": str("semantic locator: placeholder attribute"),
		"testId":      str("semantic locator: data-testid attribute"),
		"ref":         str("reuse the element ref returned by a prior call on this session instead of repeating its locator"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// d is a terse constructor used throughout BuildCatalog to keep the
// descriptor literals readable.
func d(name, desc, category string, props map[string]interface{}, required ...string) Descriptor {
	return Descriptor{
		Name:        name,
		Description: desc,
		Category:    category,
		InputSchema: obj(props, required...),
	}
}

// BuildCatalog returns the static fallback catalog, grouped by category.
func BuildCatalog() []Descriptor {
	var c []Descriptor

	// navigation
	c = append(c,
		d("browser_navigate", "Navigate the page to a URL.", "navigation",
			map[string]interface{}{"url": str("destination URL")}, "url"),
		d("browser_go_back", "Navigate back in browser history.", "navigation", nil),
		d("browser_go_forward", "Navigate forward in browser history.", "navigation", nil),
		d("browser_reload", "Reload the current page.", "navigation", nil),
		d("browser_stop_loading", "Stop the current page load.", "navigation", nil),
	)

	// interaction (basic + semantic locators)
	c = append(c,
		d("browser_click", "Click an element.", "interaction", selectorProps(nil)),
		d("browser_double_click", "Double-click an element.", "interaction", selectorProps(nil)),
		d("browser_right_click", "Right-click an element to open a context menu.", "interaction", selectorProps(nil)),
		d("browser_hover", "Hover the pointer over an element.", "interaction", selectorProps(nil)),
		d("browser_focus", "Move keyboard focus to an element.", "interaction", selectorProps(nil)),
		d("browser_type", "Type text into the element addressed by a locator; there is no mode that types into the focused element without one.", "interaction",
			selectorProps(map[string]interface{}{"text": str("text to type")})),
		d("browser_press_key", "Press a single keyboard key.", "interaction",
			map[string]interface{}{"key": str("key name, e.g. Enter, Tab, Escape")}, "key"),
		d("browser_select_option", "Select an option in a <select> element.", "interaction",
			selectorProps(map[string]interface{}{"value": str("option value to select")})),
		d("browser_check", "Check a checkbox or radio input.", "interaction", selectorProps(nil)),
		d("browser_uncheck", "Uncheck a checkbox.", "interaction", selectorProps(nil)),
	)

	// forms
	c = append(c,
		d("browser_fill_form", "Fill multiple form fields in one call.", "forms",
			map[string]interface{}{"fields": anyObj("map of selector -> value")}, "fields"),
		d("browser_submit_form", "Submit the form containing an element.", "forms", selectorProps(nil)),
		d("browser_clear_field", "Clear a text input or textarea.", "forms", selectorProps(nil)),
		d("browser_upload_file", "Attach a file to a file input.", "forms",
			selectorProps(map[string]interface{}{"path": str("local file path to upload")})),
	)

	// capture
	c = append(c,
		d("browser_screenshot", "Capture a screenshot of the page or an element.", "capture",
			selectorProps(map[string]interface{}{"fullPage": boolean("capture the full scrollable page")})),
		d("browser_pdf", "Render the page to PDF.", "capture", nil),
	)

	// extraction
	c = append(c,
		d("browser_get_text", "Get the rendered text content of the page or an element.", "extraction", selectorProps(nil)),
		d("browser_get_html", "Get the HTML of the page or an element.", "extraction", selectorProps(nil)),
		d("browser_get_attribute", "Get an attribute value from an element.", "extraction",
			selectorProps(map[string]interface{}{"attribute": str("attribute name")}), "attribute"),
		d("browser_get_table", "Extract a <table> element into rows of cell text.", "extraction", selectorProps(nil)),
		d("browser_get_links", "Extract all anchor hrefs and text on the page.", "extraction", nil),
		d("browser_get_url", "Get the page's current URL.", "extraction", nil),
		d("browser_get_title", "Get the page's document title.", "extraction", nil),
		d("browser_count_elements", "Count elements matching a CSS selector.", "extraction",
			map[string]interface{}{"selector": str("raw CSS selector")}, "selector"),
		d("browser_is_visible", "Report whether an element exists and is visible.", "extraction", selectorProps(nil)),
	)

	// waiting
	c = append(c,
		d("browser_wait_for_selector", "Wait until an element matching the locator is present.", "waiting",
			selectorProps(map[string]interface{}{"timeoutMs": num("timeout in milliseconds, default 30000")})),
		d("browser_wait_for_navigation", "Wait for the current navigation to settle.", "waiting",
			map[string]interface{}{"timeoutMs": num("timeout in milliseconds, default 30000")}),
		d("browser_wait_for_text", "Wait until the page contains given text.", "waiting",
			map[string]interface{}{"text": str("text to wait for"), "timeoutMs": num("timeout in milliseconds")}, "text"),
		d("browser_wait", "Wait a fixed number of milliseconds.", "waiting",
			map[string]interface{}{"ms": num("milliseconds to wait")}, "ms"),
	)

	// scrolling
	c = append(c,
		d("browser_scroll_into_view", "Scroll an element into view.", "scrolling", selectorProps(nil)),
		d("browser_scroll_by", "Scroll the page by a pixel offset.", "scrolling",
			map[string]interface{}{"dx": num("horizontal pixels"), "dy": num("vertical pixels")}),
		d("browser_scroll_to_top", "Scroll the page to the top.", "scrolling", nil),
		d("browser_scroll_to_bottom", "Scroll the page to the bottom.", "scrolling", nil),
	)

	// evaluation
	c = append(c,
		d("browser_evaluate", "Run a caller-supplied JavaScript expression in the page context.", "evaluation",
			map[string]interface{}{"script": str("JavaScript expression to evaluate")}, "script"),
		d("browser_evaluate_on_element", "Run a caller-supplied JavaScript expression bound to an element.", "evaluation",
			selectorProps(map[string]interface{}{"script": str("JavaScript expression; the bound element is available as `el`")}), "script"),
	)

	// dialogs
	c = append(c,
		d("browser_handle_dialog", "Accept or dismiss the next JavaScript dialog (alert/confirm/prompt).", "dialogs",
			map[string]interface{}{"accept": boolean("accept (true) or dismiss (false)"), "promptText": str("text to enter for a prompt() dialog")}, "accept"),
	)

	// downloads
	c = append(c,
		d("browser_wait_for_download", "Wait for a triggered download to complete and return its suggested file name and download guid.", "downloads",
			map[string]interface{}{"timeoutMs": num("timeout in milliseconds")}),
	)

	// cookies
	c = append(c,
		d("browser_get_cookies", "List cookies visible to the current page.", "cookies", nil),
		d("browser_set_cookie", "Set a cookie.", "cookies",
			map[string]interface{}{"name": str("cookie name"), "value": str("cookie value"), "domain": str("cookie domain")}, "name", "value"),
		d("browser_clear_cookies", "Clear all cookies for the current context.", "cookies", nil),
	)

	// accessibility
	c = append(c,
		d("browser_get_accessibility_tree", "Return the page's accessibility tree snapshot.", "accessibility", nil),
		d("browser_get_interactive_elements", "List interactive elements (links, buttons, inputs) with locators.", "accessibility", nil),
	)

	// network
	c = append(c,
		d("browser_start_network_log", "Start capturing a bounded network request/response log.", "network", nil),
		d("browser_get_network_log", "Retrieve the captured network log.", "network", nil),
		d("browser_block_urls", "Abort page requests matching a URL pattern.", "network",
			map[string]interface{}{"urlPattern": str("URL pattern to abort")}, "urlPattern"),
		d("browser_mock_response", "Mock a network response for requests matching a URL pattern.", "network",
			map[string]interface{}{"urlPattern": str("URL pattern to match"), "status": num("HTTP status to respond with"), "body": str("response body")}, "urlPattern"),
	)

	// device emulation
	c = append(c,
		d("browser_set_viewport", "Resize the emulated viewport.", "device",
			map[string]interface{}{"width": num("viewport width"), "height": num("viewport height")}, "width", "height"),
		d("browser_emulate_device", "Emulate a named device profile.", "device",
			map[string]interface{}{"device": str("device name: iPhone X or iPad")}, "device"),
		d("browser_get_viewport", "Report the current viewport dimensions and pixel ratio.", "device", nil),
	)

	// storage
	c = append(c,
		d("browser_get_local_storage", "Read all localStorage entries.", "storage", nil),
		d("browser_set_local_storage", "Set a localStorage entry.", "storage",
			map[string]interface{}{"key": str("key"), "value": str("value")}, "key", "value"),
		d("browser_get_session_storage", "Read all sessionStorage entries.", "storage", nil),
		d("browser_set_session_storage", "Set a sessionStorage entry.", "storage",
			map[string]interface{}{"key": str("key"), "value": str("value")}, "key", "value"),
		d("browser_clear_local_storage", "Clear all localStorage entries.", "storage", nil),
		d("browser_get_indexed_db", "List IndexedDB database names.", "storage", nil),
	)

	// multi-tab
	c = append(c,
		d("browser_new_tab", "Open a new tab under this session, optionally navigating it.", "tabs",
			map[string]interface{}{"url": str("optional URL to open in the new tab")}),
		d("browser_list_tabs", "List tabs registered under this session.", "tabs", nil),
		d("browser_switch_tab", "Switch the active tab by index.", "tabs",
			map[string]interface{}{"index": num("0-based tab index; 0 is the primary page")}, "index"),
		d("browser_close_tab", "Close a tab by index.", "tabs",
			map[string]interface{}{"index": num("0-based tab index")}, "index"),
	)

	// console / errors
	c = append(c,
		d("browser_get_console_logs", "Retrieve captured console.log/warn/error output.", "console", nil),
		d("browser_get_page_errors", "Retrieve uncaught page exceptions.", "console", nil),
	)

	// media
	c = append(c,
		d("browser_grant_media_permissions", "Grant camera/microphone permission to the page.", "media", nil),
	)

	// drag and drop
	c = append(c,
		d("browser_drag_and_drop", "Drag an element and drop it onto another.", "drag_drop",
			map[string]interface{}{"sourceSelector": str("CSS selector of the source element"), "targetSelector": str("CSS selector of the drop target")},
			"sourceSelector", "targetSelector"),
	)

	// rich text
	c = append(c,
		d("browser_set_rich_text", "Set the HTML content of a contenteditable region.", "rich_text",
			selectorProps(map[string]interface{}{"html": str("HTML to set")}), "html"),
	)

	// shadow DOM: `host >> inner` selectors, resolved by descending shadow roots
	c = append(c,
		d("browser_pierce_shadow", "Address an element inside a shadow root using a `host >> inner` selector.", "shadow_dom",
			map[string]interface{}{"selector": str("selector of the form 'host-selector >> inner-selector'")}, "selector"),
	)

	// performance
	c = append(c,
		d("browser_get_performance_metrics", "Retrieve navigation/paint timing metrics.", "performance", nil),
	)

	// visual
	c = append(c,
		d("browser_compare_visual", "Compare the current render against a previously captured screenshot.", "visual",
			map[string]interface{}{"baselineBase64": str("base64 PNG to compare against")}, "baselineBase64"),
	)

	// permissions
	c = append(c,
		d("browser_set_permission", "Grant a browser permission (geolocation, notifications, etc) to the current origin, or reset all permission overrides; a single permission is not denied on its own.", "permissions",
			map[string]interface{}{"name": str("permission name"), "allow": boolean("grant the named permission (true) or reset every permission override (false)")}, "name", "allow"),
	)

	// clipboard
	c = append(c,
		d("browser_read_clipboard", "Read the current clipboard text.", "clipboard", nil),
		d("browser_write_clipboard", "Write text to the clipboard.", "clipboard",
			map[string]interface{}{"text": str("text to write")}, "text"),
	)

	// frames
	c = append(c,
		d("browser_list_frames", "List iframes on the page.", "frames", nil),
		d("browser_switch_frame", "Scope subsequent selectors to a named/indexed iframe.", "frames",
			map[string]interface{}{"frame": str("iframe name or 0-based index")}, "frame"),
	)

	// high-level composites
	c = append(c,
		d("browser_login", "Fill and submit a login form, trying caller selectors then common defaults.", "composite",
			map[string]interface{}{"username": str("username/email"), "password": str("password"),
				"usernameSelector": str("optional explicit username field selector"), "passwordSelector": str("optional explicit password field selector"),
				"submitSelector": str("optional explicit submit control selector")}, "username", "password"),
		d("browser_fill_form_composite", "Fill a multi-field form by semantic field names, inferring inputs.", "composite",
			map[string]interface{}{"fields": anyObj("map of logical field name -> value")}, "fields"),
		d("browser_search", "Locate a search box and submit a query.", "composite",
			map[string]interface{}{"query": str("search query"), "selector": str("optional explicit search box selector")}, "query"),
		d("browser_checkout", "Drive a common checkout flow to the payment step.", "composite",
			map[string]interface{}{"fields": anyObj("map of logical checkout field name -> value")}, "fields"),
	)

	// error recovery
	c = append(c,
		d("browser_safe_click", "Click an element, retrying with scroll-into-view and visibility waits.", "recovery",
			selectorProps(map[string]interface{}{"retries": num("max attempts, default 3")})),
		d("browser_safe_fill", "Fill a field, retrying with scroll-into-view and visibility waits.", "recovery",
			selectorProps(map[string]interface{}{"text": str("text to fill"), "retries": num("max attempts, default 3")}), "text"),
		d("browser_wait_and_click", "Wait for an element then click it, retrying on transient failure.", "recovery",
			selectorProps(map[string]interface{}{"timeoutMs": num("wait timeout"), "retries": num("max attempts, default 3")})),
	)

	// recording
	c = append(c,
		d("browser_set_recording", "Enable or disable action recording for this session.", "recording",
			map[string]interface{}{"enabled": boolean("turn recording on or off")}, "enabled"),
		d("browser_get_recording", "Retrieve the session's recorded actions.", "recording", nil),
	)

	// egress control
	c = append(c,
		d("browser_get_egress_policy", "Report the current URL allow/block lists and egress-control state.", "egress", nil),
		d("browser_block_domains", "Add domains to the runtime egress block list.", "egress",
			map[string]interface{}{"domains": map[string]interface{}{
				"type": "array", "items": map[string]interface{}{"type": "string"},
				"description": "host names to block (dot-boundary suffix match)",
			}}, "domains"),
	)

	return c
}
