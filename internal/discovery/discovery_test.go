package discovery

import "testing"

func TestEffectiveCatalogFallsBackWithoutWebMCP(t *testing.T) {
	got := EffectiveCatalog(Result{HasWebMCP: false})
	if len(got) == 0 {
		t.Fatal("expected non-empty fallback catalog")
	}
}

func TestEffectiveCatalogUsesPageTools(t *testing.T) {
	res := Result{
		HasWebMCP: true,
		Tools: []WebMCPTool{
			{Name: "add_to_cart", Description: "add an item to the cart"},
		},
	}
	got := EffectiveCatalog(res)
	if len(got) != 1 {
		t.Fatalf("expected exactly the page's declared tools, got %d", len(got))
	}
	if got[0].Name != "add_to_cart" {
		t.Errorf("unexpected tool name: %s", got[0].Name)
	}
	if got[0].Category != "page" {
		t.Errorf("expected page-declared category, got %s", got[0].Category)
	}
	if got[0].InputSchema == nil {
		t.Error("expected a default input schema to be filled in when missing")
	}
}

func TestFindWebMCPTool(t *testing.T) {
	res := Result{Tools: []WebMCPTool{{Name: "checkout"}}}
	if _, ok := FindWebMCPTool(res, "checkout"); !ok {
		t.Fatal("expected to find declared tool")
	}
	if _, ok := FindWebMCPTool(res, "missing"); ok {
		t.Fatal("expected not to find undeclared tool")
	}
}
