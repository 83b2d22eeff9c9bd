package catalog

import (
	"context"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"oil-&-gas-pump":           "oil-gas-pump",
		"Oil & Gas Pump":           "oil-gas-pump",
		"a@b.c":                    "abc",
		"Dropper Bottle  Supplier": "dropper-bottle-supplier",
		"pet_food--bowl":           "pet_food-bowl",
		"&&":                       "",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveSlugWithAmpersand(t *testing.T) {
	up := &fakeUpstream{
		searches: map[string][]map[string]any{
			"oil-&-gas-pump": {
				{"product_slug": "oil-and-gas-pump", "product_id": "p-wrong"},
				{"product_slug": "oil-gas-pump", "product_id": "p-1"},
			},
		},
	}
	r := NewResolver(up, 0, 0)

	id, err := r.Resolve(context.Background(), "oil-&-gas-pump")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id != "p-1" {
		t.Errorf("id = %q", id)
	}
}
