// Package schema builds the schema.org JSON-LD graph embedded in product
// pages from an upstream product record.
package schema

import "strings"

// Site carries the request-scoped URLs the builder resolves against.
type Site struct {
	// PageURL is the canonical absolute URL of the product page.
	PageURL string
	// Origin is scheme://host of the current request.
	Origin string
	// MediaBase prefixes relative upstream asset paths.
	MediaBase string
	// BlogURL returns the on-site path of a product's blog post. It may be
	// nil or fail, in which case blog postings point at PageURL.
	BlogURL func(productID string, index int) (string, error)
}

func (s Site) fragment(name string) string {
	return s.PageURL + "#" + name
}

func (s Site) media(v string) string {
	return MediaURL(s.MediaBase, v)
}

// Build assembles the graph for p. It never fails: fields that are absent
// or malformed are left out of the output.
func Build(site Site, p Product) *Graph {
	g := NewGraph()

	product := productNode(site, p)
	productRef := g.Append(product)

	var offer *Node
	if o := offerNode(site, p); o != nil {
		offer = o
		product.SetRef("offers", g.Append(offer))
	}

	if props := additionalProperties(p); len(props) > 0 {
		product.Set("additionalProperty", props)
	}
	if award := awards(p); award != nil {
		product.Set("award", award)
	}

	if org := sellerNode(site, p); org != nil {
		sellerRef := g.Append(org)
		product.SetDefault("brand", sellerRef)
		product.SetDefault("manufacturer", sellerRef)
		if offer != nil {
			offer.SetRef("seller", sellerRef)
		}
	}

	if rating := ratingNode(site, p, productRef); rating != nil {
		product.SetRef("aggregateRating", g.Append(rating))
	}

	for _, v := range videoNodes(site, p) {
		g.Append(v)
	}
	if faq := faqNode(site, p); faq != nil {
		g.Append(faq)
	}
	if howTo := howToNode(site, p); howTo != nil {
		g.Append(howTo)
	}
	for _, post := range blogNodes(site, p) {
		g.Append(post)
	}
	g.Append(breadcrumbNode(site, productName(p)))

	return g
}

func productName(p Product) string {
	return p.FirstStr("product_title", "product_name", "name")
}

func productNode(site Site, p Product) *Node {
	n := NewNode("Product", site.fragment("product"))
	if name := productName(p); name != "" {
		n.Set("name", name)
	} else {
		n.Set("name", nil)
	}
	n.Set("description", p.FirstStr("short_description", "description"))
	n.Set("url", site.PageURL)

	if images := collectImages(site, p); len(images) > 0 {
		n.Set("image", images)
	}

	var keywords []string
	for _, k := range []string{"focus_keywords", "alt_keyword_1", "alt_keyword_2"} {
		if v := p.Str(k); v != "" {
			keywords = append(keywords, v)
		}
	}
	if len(keywords) > 0 {
		n.Set("keywords", strings.Join(keywords, ", "))
	}

	if origin := p.Str("origin_country"); origin != "" {
		country := NewNode("Country", "")
		country.Set("name", origin)
		n.Set("countryOfOrigin", country)
	}
	return n
}

// collectImages gathers image URLs from the single-image fields, the images
// list and the numbered slots, keeping first-seen order.
func collectImages(site Site, p Product) []string {
	var images []string
	seen := make(map[string]struct{})
	add := func(raw string) {
		u := site.media(raw)
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		images = append(images, u)
	}

	for _, k := range []string{"image", "image_url", "thumbnail", "cover_image"} {
		add(p.Str(k))
	}
	for _, img := range p.Objects("images") {
		add(img.FirstStr("image", "url"))
	}
	for _, k := range []string{"product_image_1", "product_image_2", "product_image_3", "product_image_4", "product_image_5"} {
		add(p.Str(k))
	}
	return images
}

func offerNode(site Site, p Product) *Node {
	price, ok := p.Scalar("price")
	if !ok {
		return nil
	}
	n := NewNode("Offer", site.fragment("offer"))
	n.Set("url", site.PageURL)
	currency := p.Str("currency")
	if currency == "" {
		currency = "INR"
	}
	n.Set("priceCurrency", currency)
	n.Set("price", price)
	n.Set("availability", "https://schema.org/InStock")
	n.Set("itemCondition", "https://schema.org/NewCondition")
	n.SetString("unitCode", p.Str("price_unit"))

	if _, set := p.Scalar("dispatch_time"); set {
		if days, ok := p.Int("dispatch_time"); ok && days > 0 {
			lead := NewNode("QuantitativeValue", "")
			lead.Set("value", days)
			lead.Set("unitCode", "DAY")
			n.Set("deliveryLeadTime", lead)
		}
	}

	if moq, ok := p.Scalar("moq"); ok {
		qty := NewNode("QuantitativeValue", "")
		qty.Set("minValue", moq)
		n.Set("eligibleQuantity", qty)
	}
	return n
}

func breadcrumbNode(site Site, name string) *Node {
	home := &Node{}
	home.Set("@id", SiteURL(site.Origin, "/"))
	home.Set("name", "Home")

	current := &Node{}
	current.Set("@id", site.PageURL)
	if name != "" {
		current.Set("name", name)
	} else {
		current.Set("name", nil)
	}

	n := NewNode("BreadcrumbList", site.fragment("breadcrumbs"))
	n.Set("itemListElement", []*Node{
		listItem(1, home),
		listItem(2, current),
	})
	return n
}

func listItem(pos int, item *Node) *Node {
	n := NewNode("ListItem", "")
	n.Set("position", pos)
	n.Set("item", item)
	return n
}
