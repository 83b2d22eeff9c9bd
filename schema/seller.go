package schema

func sellerNode(site Site, p Product) *Node {
	user := p.Object("user")
	name := firstNonEmpty(p.Str("organization"), user.Str("name"))
	if name == "" {
		return nil
	}

	n := NewNode("Organization", site.fragment("seller"))
	n.Set("name", name)

	street := p.Str("address")
	city := p.Str("city")
	country := p.FirstStr("origin_country", "badge_country")
	if street != "" || city != "" || country != "" {
		addr := NewNode("PostalAddress", "")
		addr.SetString("streetAddress", street)
		addr.SetString("addressLocality", city)
		addr.SetString("addressCountry", country)
		n.Set("address", addr)
	}

	phone := firstNonEmpty(p.Str("contact_number"), user.Str("phone"))
	email := firstNonEmpty(p.Str("email"), user.Str("email"))
	if phone != "" || email != "" {
		cp := NewNode("ContactPoint", "")
		cp.Set("contactType", "sales")
		cp.SetString("telephone", phone)
		cp.SetString("email", email)
		n.Set("contactPoint", cp)
	}

	n.SetString("url", ExternalURL(p.Str("website_url")))

	var sameAs []string
	for _, k := range []string{"social_media_facebook", "social_media_twitter", "social_media_instagram"} {
		u := ExternalURL(p.Str(k))
		if u == "" || contains(sameAs, u) {
			continue
		}
		sameAs = append(sameAs, u)
	}
	if len(sameAs) > 0 {
		n.Set("sameAs", sameAs)
	}

	n.SetString("taxID", p.Str("gst_details"))

	if owner := p.Str("owner_name"); owner != "" {
		founder := NewNode("Person", "")
		founder.Set("name", owner)
		n.Set("founder", founder)
	}

	if year := p.Str("badge_year_export"); isYear(year) {
		n.Set("foundingDate", year+"-01-01")
	}
	return n
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
