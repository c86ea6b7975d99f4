package catalog

import "testing"

func TestCatalogNamesAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for _, d := range BuildCatalog() {
		if _, dup := seen[d.Name]; dup {
			t.Errorf("duplicate tool name %q", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
}

func TestCatalogDescriptorsAreWellFormed(t *testing.T) {
	for _, d := range BuildCatalog() {
		if d.Name == "" || d.Description == "" || d.Category == "" {
			t.Errorf("descriptor missing name/description/category: %+v", d)
			continue
		}
		schema := d.InputSchema
		if schema == nil {
			t.Errorf("%s: nil input schema", d.Name)
			continue
		}
		if schema["type"] != "object" {
			t.Errorf("%s: input schema type must be object, got %v", d.Name, schema["type"])
		}
		required, _ := schema["required"].([]string)
		props, _ := schema["properties"].(map[string]interface{})
		for _, r := range required {
			if _, ok := props[r]; !ok {
				t.Errorf("%s: required field %q not present in properties", d.Name, r)
			}
		}
	}
}

func TestCatalogCoversAllCategories(t *testing.T) {
	want := []string{
		"navigation", "interaction", "forms", "capture", "extraction",
		"waiting", "scrolling", "evaluation", "dialogs", "downloads",
		"cookies", "accessibility", "network", "device", "storage", "tabs",
		"console", "media", "drag_drop", "rich_text", "shadow_dom",
		"performance", "visual", "permissions", "clipboard", "frames",
		"composite", "recovery", "recording", "egress",
	}
	have := make(map[string]struct{})
	for _, d := range BuildCatalog() {
		have[d.Category] = struct{}{}
	}
	for _, c := range want {
		if _, ok := have[c]; !ok {
			t.Errorf("no tool in category %q", c)
		}
	}
}
