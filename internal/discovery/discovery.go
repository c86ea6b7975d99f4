// Package discovery implements capability discovery: probing
// a page for a WebMCP surface (navigator.modelContext) and falling back to
// the static catalog when the page declares no tools of its own.
package discovery

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"

	"webmcp-discovery-broker/internal/catalog"
)

// WebMCPTool is one tool descriptor as declared by a page's own
// navigator.modelContext surface.
type WebMCPTool struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema,omitempty"`
}

// Result is the outcome of one discovery pass over a page.
type Result struct {
	HasWebMCP bool
	Tools     []WebMCPTool // page-declared tools when HasWebMCP; nil otherwise
}

// probeScript evaluates whether the page exposes navigator.modelContext and,
// if so, serializes its declared tool list. Mirrors the shape a real WebMCP
// polyfill exposes: a provideContext()-populated tools array.
const probeScript = `() => {
	if (typeof navigator === 'undefined' || !navigator.modelContext) {
		return JSON.stringify({ hasWebMCP: false, tools: [] });
	}
	const ctx = navigator.modelContext;
	let tools = [];
	try {
		if (typeof ctx.getTools === 'function') {
			tools = ctx.getTools();
		} else if (Array.isArray(ctx.tools)) {
			tools = ctx.tools;
		}
	} catch (e) {
		tools = [];
	}
	const serializable = tools.map(t => ({
		name: t.name,
		description: t.description || '',
		inputSchema: t.inputSchema || { type: 'object', properties: {} },
		outputSchema: t.outputSchema,
	}));
	return JSON.stringify({ hasWebMCP: true, tools: serializable });
}`

// Discover probes page for a WebMCP surface. A probe error (e.g. the page
// throwing, or navigator being unavailable in a detached context) is treated
// as "no WebMCP" rather than propagated, since discovery must never prevent
// falling back to the static catalog.
func Discover(page *rod.Page) Result {
	raw, err := page.Eval(probeScript)
	if err != nil {
		return Result{HasWebMCP: false}
	}

	var parsed struct {
		HasWebMCP bool         `json:"hasWebMCP"`
		Tools     []WebMCPTool `json:"tools"`
	}
	var payload string
	if err := raw.Value.Unmarshal(&payload); err != nil {
		return Result{HasWebMCP: false}
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return Result{HasWebMCP: false}
	}
	if !parsed.HasWebMCP || len(parsed.Tools) == 0 {
		return Result{HasWebMCP: false}
	}
	return Result{HasWebMCP: true, Tools: parsed.Tools}
}

// EffectiveCatalog returns the tool set to advertise for a discovery result:
// the page's own declared tools when present, otherwise the static fallback
// catalog.
func EffectiveCatalog(res Result) []catalog.Descriptor {
	if !res.HasWebMCP {
		return catalog.BuildCatalog()
	}
	out := make([]catalog.Descriptor, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema := t.InputSchema
		if schema == nil {
			schema = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}
		out = append(out, catalog.Descriptor{
			Name:         t.Name,
			Description:  t.Description,
			InputSchema:  schema,
			OutputSchema: t.OutputSchema,
			Category:     "page",
		})
	}
	return out
}

// FindWebMCPTool looks up a page-declared tool by name in a discovery
// result, used by the executor to dispatch a call through the page's own
// surface instead of a fallback primitive.
func FindWebMCPTool(res Result, name string) (WebMCPTool, bool) {
	for _, t := range res.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return WebMCPTool{}, false
}

// CallOnPage invokes a page-declared WebMCP tool by name with args, via
// navigator.modelContext.callTool, so page-declared tools are invoked
// through the page's own implementation.
func CallOnPage(page *rod.Page, name string, args map[string]interface{}) (interface{}, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}
	raw, err := page.Eval(`(name, argsJSON) => {
		const ctx = navigator.modelContext;
		const args = JSON.parse(argsJSON);
		if (!ctx || typeof ctx.callTool !== 'function') {
			throw new Error('page does not expose callTool');
		}
		return Promise.resolve(ctx.callTool(name, args)).then(r => JSON.stringify(r));
	}`, name, string(argsJSON))
	if err != nil {
		return nil, err
	}
	var payload string
	if err := raw.Value.Unmarshal(&payload); err != nil {
		return nil, err
	}
	var result interface{}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, err
	}
	return result, nil
}
