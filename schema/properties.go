package schema

import (
	"strings"
)

type labelledField struct {
	key   string
	label string
}

var simpleFields = []labelledField{
	{"hs_code", "HS Code"},
	{"uses", "Uses"},
	{"best_suited_for", "Best suited for"},
	{"primary_uses_title", "Primary uses title"},
	{"other_uses_title", "Other uses title"},
	{"origin_country", "Country of origin"},
	{"dispatch_time", "Dispatch time (days)"},
}

var listFields = []labelledField{
	{"primary_uses_industries", "Primary uses – industries"},
	{"other_uses_bullets", "Other uses"},
	{"import_required_documents", "Import – required documents"},
	{"import_available_documents", "Import – available documents"},
	{"export_required_documents", "Export – required documents"},
	{"export_available_documents", "Export – available documents"},
}

var badgeFields = []labelledField{
	{"badge_lead_time", "Lead time (days)"},
	{"badge_port", "Port of loading"},
	{"badge_year_export", "Year of export start"},
	{"badge_country", "Export country"},
	{"badge_region", "Export region"},
}

func propertyValue(name, value string) *Node {
	n := NewNode("PropertyValue", "")
	n.Set("name", name)
	n.Set("value", value)
	return n
}

// additionalProperties flattens the structured attributes of p into
// PropertyValue entries.
func additionalProperties(p Product) []*Node {
	var props []*Node
	add := func(name, value string) {
		props = append(props, propertyValue(name, value))
	}

	for _, d := range p.Objects("technical_details") {
		name, value := d.Str("name"), d.Str("description")
		if name != "" && value != "" {
			add(name, value)
		}
	}

	addScalars := func(fields []labelledField) {
		for _, f := range fields {
			if _, ok := p.Scalar(f.key); !ok {
				continue
			}
			if v := p.Str(f.key); v != "" {
				add(f.label, v)
			}
		}
	}
	addScalars(simpleFields)

	for _, v := range p.Objects("variations") {
		name := v.Str("name")
		if name == "" {
			continue
		}
		var values []string
		for _, opt := range v.List("values") {
			var s string
			if m, ok := opt.(map[string]any); ok {
				s = NewProduct(m).Str("value")
			} else {
				s = toString(opt)
			}
			if s != "" {
				values = append(values, s)
			}
		}
		if len(values) > 0 {
			add(name, strings.Join(values, ", "))
		}
	}

	for _, f := range listFields {
		if values := p.Strings(f.key); len(values) > 0 {
			add(f.label, strings.Join(values, ", "))
		}
	}

	for _, opt := range p.Objects("import_shipping_options") {
		name := opt.Str("name")
		if name == "" {
			continue
		}
		if img := opt.Str("image"); img != "" {
			name = name + " (" + img + ")"
		}
		add("Import shipping option", name)
	}

	for _, pkg := range p.Objects("packaging_details") {
		ptype := pkg.Str("type")
		var parts []string
		for _, k := range []string{"unit", "material", "notes"} {
			if v := pkg.Str(k); v != "" {
				parts = append(parts, v)
			}
		}
		if ptype == "" && len(parts) == 0 {
			continue
		}
		if ptype == "" {
			ptype = "Option"
		}
		add("Packaging – "+ptype, strings.Join(parts, ", "))
	}

	for _, c := range p.Objects("important_compliance") {
		desc := c.Str("description")
		if desc == "" {
			continue
		}
		title := c.Str("title")
		if title == "" {
			title = "Important compliance"
		}
		add(title, desc)
	}

	addScalars(badgeFields)
	return props
}

// awards maps certification names to the Product award field: a single
// string for one certification, a list for several.
func awards(p Product) any {
	var names []string
	seen := make(map[string]struct{})
	for _, c := range p.Objects("certifications") {
		name := c.Str("name")
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	switch len(names) {
	case 0:
		return nil
	case 1:
		return names[0]
	default:
		return names
	}
}
