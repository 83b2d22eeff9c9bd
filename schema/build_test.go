package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
)

const pageURL = "https://site/dropper-bottle/"

func testSite() Site {
	return Site{
		PageURL:   pageURL,
		Origin:    "https://site",
		MediaBase: "https://media.example",
		BlogURL: func(productID string, index int) (string, error) {
			return "/products/" + productID + "/blog/" + strconv.Itoa(index) + "/", nil
		},
	}
}

func mustProduct(t *testing.T, raw string) Product {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	return NewProduct(m)
}

// render marshals the graph and decodes it back into generic JSON.
func render(t *testing.T, g *Graph) (raw []byte, doc map[string]any, nodes []map[string]any) {
	t.Helper()
	raw, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal graph: %v", err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal graph: %v", err)
	}
	for _, n := range doc["@graph"].([]any) {
		nodes = append(nodes, n.(map[string]any))
	}
	return raw, doc, nodes
}

func nodesOfType(nodes []map[string]any, typ string) []map[string]any {
	var out []map[string]any
	for _, n := range nodes {
		if n["@type"] == typ {
			out = append(out, n)
		}
	}
	return out
}

const richProduct = `{
	"product_id": "0f8fad5b-d9cb-469f-a165-70867728950e",
	"product_title": "Amber Dropper Bottle",
	"short_description": "30ml amber glass bottle",
	"image": "/media/bottle.jpg",
	"images": [{"image": "/media/bottle.jpg"}, {"url": "https://cdn.example/side.jpg"}, "bogus"],
	"product_image_1": "media/top.jpg",
	"focus_keywords": "dropper bottle",
	"alt_keyword_1": "amber bottle",
	"origin_country": "India",
	"price": 12.5,
	"currency": "USD",
	"price_unit": "piece",
	"dispatch_time": "7",
	"moq": 500,
	"hs_code": "7010",
	"uses": "",
	"technical_details": [{"name": "Material", "description": "Glass"}, {"name": "Cap"}],
	"variations": [{"name": "Size", "values": [{"value": "30ml"}, "50ml", {"value": ""}]}],
	"primary_uses_industries": ["Pharma", " ", "Cosmetics"],
	"import_shipping_options": [{"name": "Sea", "image": "ship.png"}, {"name": "Air"}],
	"packaging_details": [{"type": "Carton", "unit": "100 pcs", "notes": "bubble wrap"}, {"material": "Plastic"}, {}],
	"important_compliance": [{"description": "FDA approved"}],
	"badge_year_export": "2012",
	"badge_port": "Mundra",
	"certifications": [{"name": "ISO 9001"}, {"name": "ISO 9001"}, {"name": "CE"}],
	"organization": "Acme Glass",
	"address": "1 Main Road",
	"city": "Mumbai",
	"contact_number": "+91 12345",
	"website_url": "acme.example",
	"social_media_facebook": "https://facebook.com/acme",
	"social_media_twitter": "acme",
	"social_media_instagram": "https://facebook.com/acme",
	"gst_details": "27AAAAA0000A1Z5",
	"owner_name": "R. Shah",
	"reviews_data": {
		"avg_rating": "4.5",
		"total_count": 12,
		"latest_reviews": [
			{"content": "Great bottles", "title": "Good", "name": "Asha", "rating": 5},
			{"content": ""},
			{"content": "Fine", "rating": "nope"}
		]
	},
	"product_video_1": "/media/v1.mp4",
	"video_url_1": "https://youtube.com/watch?v=1",
	"product_video_1_thumb": "/media/v1.jpg",
	"video_url_3": "https://youtube.com/watch?v=3",
	"videos": [
		{"video_url": "/media/v1.mp4"},
		{"video_url": "/media/v4.mp4", "thumbnail_url": "/media/v4.jpg", "index": 1},
		{}
	],
	"faqs_formatted": [{"question": "Is it glass?", "answer": "Yes"}, {"question": "Empty"}],
	"how_to_import_steps": [{"description": "Get IEC"}, {"title": "Skip"}, {"title": "Ship", "description": "Book freight"}],
	"blog_posts": [{"title": "Choosing bottles", "image": "/media/b1.jpg", "summary": "A guide"}, {"title": ""}, {"title": "Third"}, {"title": "Fourth"}]
}`

func TestBuildDropperBottle(t *testing.T) {
	p := mustProduct(t, `{"product_name":"Dropper Bottle","price":"10","currency":"USD","technical_details":[{"name":"Material","description":"Glass"}]}`)

	_, doc, nodes := render(t, Build(testSite(), p))

	if doc["@context"] != "https://schema.org" {
		t.Fatalf("unexpected @context %v", doc["@context"])
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d: %v", len(nodes), nodes)
	}

	product := nodes[0]
	if product["@type"] != "Product" || product["name"] != "Dropper Bottle" {
		t.Fatalf("unexpected product node: %v", product)
	}
	props, _ := product["additionalProperty"].([]any)
	if len(props) != 1 {
		t.Fatalf("expected one additionalProperty, got %v", product["additionalProperty"])
	}
	prop := props[0].(map[string]any)
	if prop["name"] != "Material" || prop["value"] != "Glass" {
		t.Errorf("unexpected property %v", prop)
	}

	offer := nodes[1]
	if offer["@type"] != "Offer" || offer["price"] != "10" || offer["priceCurrency"] != "USD" {
		t.Errorf("unexpected offer %v", offer)
	}
	if ref, _ := product["offers"].(map[string]any); ref["@id"] != pageURL+"#offer" {
		t.Errorf("product does not reference the offer: %v", product["offers"])
	}

	crumbs := nodes[2]
	if crumbs["@type"] != "BreadcrumbList" {
		t.Fatalf("expected breadcrumbs last, got %v", crumbs["@type"])
	}
	items := crumbs["itemListElement"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 breadcrumb items, got %d", len(items))
	}
	home := items[0].(map[string]any)["item"].(map[string]any)
	if home["@id"] != "https://site/" || home["name"] != "Home" {
		t.Errorf("unexpected home crumb %v", home)
	}
	current := items[1].(map[string]any)["item"].(map[string]any)
	if current["@id"] != pageURL || current["name"] != "Dropper Bottle" {
		t.Errorf("unexpected product crumb %v", current)
	}

	for _, typ := range []string{"Organization", "AggregateRating", "VideoObject", "FAQPage", "HowTo", "BlogPosting"} {
		if got := nodesOfType(nodes, typ); len(got) != 0 {
			t.Errorf("unexpected %s node", typ)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	p := mustProduct(t, richProduct)
	first, _, _ := render(t, Build(testSite(), p))
	second, _, _ := render(t, Build(testSite(), p))
	if !bytes.Equal(first, second) {
		t.Fatalf("graph output differs between runs:\n%s\n%s", first, second)
	}
}

func collectRefs(v any, out *[]string) {
	switch t := v.(type) {
	case map[string]any:
		if id, ok := t["@id"].(string); ok && len(t) == 1 {
			*out = append(*out, id)
			return
		}
		for _, child := range t {
			collectRefs(child, out)
		}
	case []any:
		for _, child := range t {
			collectRefs(child, out)
		}
	}
}

func TestBuildReferenceIntegrity(t *testing.T) {
	_, _, nodes := render(t, Build(testSite(), mustProduct(t, richProduct)))

	ids := make(map[string]int)
	for _, n := range nodes {
		if id, ok := n["@id"].(string); ok {
			ids[id]++
		}
	}
	for id, count := range ids {
		if count != 1 {
			t.Errorf("@id %s appears %d times", id, count)
		}
	}

	var refs []string
	for _, n := range nodes {
		for k, v := range n {
			if k == "@id" {
				continue
			}
			collectRefs(v, &refs)
		}
	}
	if len(refs) == 0 {
		t.Fatal("expected references in a rich graph")
	}
	for _, ref := range refs {
		if ids[ref] != 1 {
			t.Errorf("reference %s does not resolve to exactly one node", ref)
		}
	}
}

func TestBuildRichProduct(t *testing.T) {
	_, _, nodes := render(t, Build(testSite(), mustProduct(t, richProduct)))
	product := nodes[0]

	images := product["image"].([]any)
	wantImages := []string{
		"https://media.example/media/bottle.jpg",
		"https://cdn.example/side.jpg",
		"https://media.example/media/top.jpg",
	}
	if len(images) != len(wantImages) {
		t.Fatalf("images = %v, want %v", images, wantImages)
	}
	for i, want := range wantImages {
		if images[i] != want {
			t.Errorf("image[%d] = %v, want %s", i, images[i], want)
		}
	}

	if product["keywords"] != "dropper bottle, amber bottle" {
		t.Errorf("unexpected keywords %v", product["keywords"])
	}
	if origin := product["countryOfOrigin"].(map[string]any); origin["name"] != "India" {
		t.Errorf("unexpected countryOfOrigin %v", origin)
	}

	award := product["award"].([]any)
	if len(award) != 2 || award[0] != "ISO 9001" || award[1] != "CE" {
		t.Errorf("unexpected award %v", award)
	}

	got := map[string]string{}
	var order []string
	for _, raw := range product["additionalProperty"].([]any) {
		prop := raw.(map[string]any)
		name := prop["name"].(string)
		got[name] = prop["value"].(string)
		order = append(order, name)
	}
	want := map[string]string{
		"Material":                  "Glass",
		"HS Code":                   "7010",
		"Country of origin":         "India",
		"Dispatch time (days)":      "7",
		"Size":                      "30ml, 50ml",
		"Primary uses – industries": "Pharma, Cosmetics",
		"Packaging – Carton":        "100 pcs, bubble wrap",
		"Packaging – Option":        "Plastic",
		"Important compliance":      "FDA approved",
		"Port of loading":           "Mundra",
		"Year of export start":      "2012",
	}
	for name, value := range want {
		if got[name] != value {
			t.Errorf("property %q = %q, want %q", name, got[name], value)
		}
	}
	if _, ok := got["Uses"]; ok {
		t.Error("empty uses should be omitted")
	}
	if order[0] != "Material" || order[len(order)-1] != "Year of export start" {
		t.Errorf("unexpected property order %v", order)
	}

	offer := nodesOfType(nodes, "Offer")[0]
	lead := offer["deliveryLeadTime"].(map[string]any)
	if lead["value"] != float64(7) || lead["unitCode"] != "DAY" {
		t.Errorf("unexpected deliveryLeadTime %v", lead)
	}
	if qty := offer["eligibleQuantity"].(map[string]any); qty["minValue"] != float64(500) {
		t.Errorf("unexpected eligibleQuantity %v", qty)
	}
	if offer["unitCode"] != "piece" || offer["price"] != 12.5 {
		t.Errorf("unexpected offer %v", offer)
	}
}

func TestBuildSellerOrganization(t *testing.T) {
	_, _, nodes := render(t, Build(testSite(), mustProduct(t, richProduct)))

	orgs := nodesOfType(nodes, "Organization")
	if len(orgs) != 1 {
		t.Fatalf("expected one Organization, got %d", len(orgs))
	}
	org := orgs[0]
	if org["@id"] != pageURL+"#seller" || org["name"] != "Acme Glass" {
		t.Fatalf("unexpected organization %v", org)
	}
	if _, ok := org["url"]; ok {
		t.Error("non-absolute website should be dropped")
	}
	sameAs := org["sameAs"].([]any)
	if len(sameAs) != 1 || sameAs[0] != "https://facebook.com/acme" {
		t.Errorf("unexpected sameAs %v", sameAs)
	}
	if org["foundingDate"] != "2012-01-01" || org["taxID"] != "27AAAAA0000A1Z5" {
		t.Errorf("unexpected organization details %v", org)
	}
	addr := org["address"].(map[string]any)
	if addr["streetAddress"] != "1 Main Road" || addr["addressLocality"] != "Mumbai" || addr["addressCountry"] != "India" {
		t.Errorf("unexpected address %v", addr)
	}
	contact := org["contactPoint"].(map[string]any)
	if contact["telephone"] != "+91 12345" || contact["contactType"] != "sales" {
		t.Errorf("unexpected contactPoint %v", contact)
	}

	product := nodes[0]
	for _, key := range []string{"brand", "manufacturer"} {
		if ref := product[key].(map[string]any); ref["@id"] != pageURL+"#seller" {
			t.Errorf("product %s = %v", key, ref)
		}
	}
	offer := nodesOfType(nodes, "Offer")[0]
	if ref := offer["seller"].(map[string]any); ref["@id"] != pageURL+"#seller" {
		t.Errorf("offer seller = %v", ref)
	}
}

func TestBuildSellerFromUser(t *testing.T) {
	p := mustProduct(t, `{"name": "Jar", "user": {"name": "Jar Co", "email": "sales@jar.example"}}`)
	_, _, nodes := render(t, Build(testSite(), p))

	org := nodesOfType(nodes, "Organization")
	if len(org) != 1 || org[0]["name"] != "Jar Co" {
		t.Fatalf("expected organization from user, got %v", org)
	}
	if _, ok := org[0]["address"]; ok {
		t.Error("address should be omitted when all parts are empty")
	}
	if contact := org[0]["contactPoint"].(map[string]any); contact["email"] != "sales@jar.example" {
		t.Errorf("unexpected contact %v", contact)
	}
	if _, ok := nodes[0]["offers"]; ok {
		t.Error("no price means no offer")
	}
}

func TestBuildReviews(t *testing.T) {
	_, _, nodes := render(t, Build(testSite(), mustProduct(t, richProduct)))

	ratings := nodesOfType(nodes, "AggregateRating")
	if len(ratings) != 1 {
		t.Fatalf("expected one AggregateRating, got %d", len(ratings))
	}
	rating := ratings[0]
	if rating["ratingValue"] != 4.5 || rating["reviewCount"] != float64(12) {
		t.Errorf("unexpected summary %v", rating)
	}
	reviews := rating["review"].([]any)
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews with content, got %d", len(reviews))
	}
	first := reviews[0].(map[string]any)
	if first["reviewBody"] != "Great bottles" || first["name"] != "Good" {
		t.Errorf("unexpected review %v", first)
	}
	stars := first["reviewRating"].(map[string]any)
	if stars["ratingValue"] != float64(5) || stars["bestRating"] != float64(5) || stars["worstRating"] != float64(1) {
		t.Errorf("unexpected rating %v", stars)
	}
	if _, ok := reviews[1].(map[string]any)["reviewRating"]; ok {
		t.Error("non-numeric rating should be dropped")
	}
	if ref := nodes[0]["aggregateRating"].(map[string]any); ref["@id"] != pageURL+"#aggregate-rating" {
		t.Errorf("product aggregateRating = %v", ref)
	}
}

func TestBuildReviewsWithoutUsableData(t *testing.T) {
	p := mustProduct(t, `{"name": "Jar", "reviews_data": {"avg_rating": "n/a", "latest_reviews": [{"title": "no body"}]}}`)
	_, _, nodes := render(t, Build(testSite(), p))
	if got := nodesOfType(nodes, "AggregateRating"); len(got) != 0 {
		t.Fatalf("expected no AggregateRating, got %v", got)
	}
	if _, ok := nodes[0]["aggregateRating"]; ok {
		t.Error("product should not reference a missing rating")
	}
}

func TestBuildReviewsCapped(t *testing.T) {
	var reviews []string
	for i := 0; i < 8; i++ {
		reviews = append(reviews, `{"content": "ok"}`)
	}
	p := mustProduct(t, `{"name": "Jar", "reviews_data": {"latest_reviews": [`+strings.Join(reviews, ",")+`]}}`)
	_, _, nodes := render(t, Build(testSite(), p))
	rating := nodesOfType(nodes, "AggregateRating")[0]
	if got := len(rating["review"].([]any)); got != 5 {
		t.Errorf("expected 5 reviews, got %d", got)
	}
}

func TestBuildReviewRatingOutOfRange(t *testing.T) {
	p := mustProduct(t, `{"name": "Jar", "reviews_data": {"latest_reviews": [
		{"content": "too high", "rating": 6},
		{"content": "zero", "rating": 0},
		{"content": "edge", "rating": 1}
	]}}`)
	_, _, nodes := render(t, Build(testSite(), p))
	reviews := nodesOfType(nodes, "AggregateRating")[0]["review"].([]any)
	if len(reviews) != 3 {
		t.Fatalf("expected every review kept, got %d", len(reviews))
	}
	for i, want := range []bool{false, false, true} {
		_, ok := reviews[i].(map[string]any)["reviewRating"]
		if ok != want {
			t.Errorf("review %d: reviewRating present = %v, want %v", i, ok, want)
		}
	}
}

func TestBuildVideos(t *testing.T) {
	_, _, nodes := render(t, Build(testSite(), mustProduct(t, richProduct)))

	videos := nodesOfType(nodes, "VideoObject")
	if len(videos) != 3 {
		t.Fatalf("expected 3 videos, got %d: %v", len(videos), videos)
	}
	wantIDs := []string{pageURL + "#video-1", pageURL + "#video-3", pageURL + "#video-4"}
	for i, want := range wantIDs {
		if videos[i]["@id"] != want {
			t.Errorf("video[%d] id = %v, want %s", i, videos[i]["@id"], want)
		}
	}

	first := videos[0]
	if first["name"] != "Amber Dropper Bottle – Video 1" {
		t.Errorf("unexpected name %v", first["name"])
	}
	if first["contentUrl"] != "https://media.example/media/v1.mp4" ||
		first["embedUrl"] != "https://youtube.com/watch?v=1" ||
		first["url"] != "https://youtube.com/watch?v=1" ||
		first["thumbnailUrl"] != "https://media.example/media/v1.jpg" {
		t.Errorf("unexpected legacy video %v", first)
	}

	third := videos[1]
	if _, ok := third["contentUrl"]; ok {
		t.Errorf("external-only slot should have no contentUrl: %v", third)
	}

	structured := videos[2]
	if structured["contentUrl"] != "https://media.example/media/v4.mp4" || structured["thumbnailUrl"] != "https://media.example/media/v4.jpg" {
		t.Errorf("unexpected structured video %v", structured)
	}
}

func TestBuildFAQAndHowTo(t *testing.T) {
	_, _, nodes := render(t, Build(testSite(), mustProduct(t, richProduct)))

	faq := nodesOfType(nodes, "FAQPage")
	if len(faq) != 1 {
		t.Fatalf("expected FAQPage, got %d", len(faq))
	}
	questions := faq[0]["mainEntity"].([]any)
	if len(questions) != 1 {
		t.Fatalf("expected one complete question, got %d", len(questions))
	}
	q := questions[0].(map[string]any)
	if q["name"] != "Is it glass?" || q["acceptedAnswer"].(map[string]any)["text"] != "Yes" {
		t.Errorf("unexpected question %v", q)
	}

	howTo := nodesOfType(nodes, "HowTo")
	if len(howTo) != 1 {
		t.Fatalf("expected HowTo, got %d", len(howTo))
	}
	if howTo[0]["name"] != "How to import Amber Dropper Bottle" {
		t.Errorf("unexpected HowTo name %v", howTo[0]["name"])
	}
	steps := howTo[0]["step"].([]any)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	first := steps[0].(map[string]any)
	if first["position"] != float64(1) || first["name"] != "Step 1" || first["text"] != "Get IEC" {
		t.Errorf("unexpected first step %v", first)
	}
	last := steps[1].(map[string]any)
	if last["position"] != float64(3) || last["name"] != "Ship" {
		t.Errorf("unexpected last step %v", last)
	}
}

func TestBuildBlogPostings(t *testing.T) {
	_, _, nodes := render(t, Build(testSite(), mustProduct(t, richProduct)))

	posts := nodesOfType(nodes, "BlogPosting")
	if len(posts) != 2 {
		t.Fatalf("expected 2 blog postings from the first three entries, got %d", len(posts))
	}
	wantURL := "https://site/products/0f8fad5b-d9cb-469f-a165-70867728950e/blog/1/"
	if posts[0]["url"] != wantURL || posts[0]["@id"] != wantURL+"#blog-1" {
		t.Errorf("unexpected first posting %v", posts[0])
	}
	if posts[0]["image"] != "https://media.example/media/b1.jpg" || posts[0]["description"] != "A guide" {
		t.Errorf("unexpected first posting details %v", posts[0])
	}
	if posts[1]["headline"] != "Third" {
		t.Errorf("unexpected second posting %v", posts[1])
	}
}

func TestBuildBlogFallsBackToPageURL(t *testing.T) {
	p := mustProduct(t, `{"id": "abc", "name": "Jar", "blog_posts": [{"title": "One"}, {"title": "Two"}]}`)

	site := testSite()
	site.BlogURL = func(string, int) (string, error) { return "", errors.New("no route") }
	_, _, nodes := render(t, Build(site, p))
	posts := nodesOfType(nodes, "BlogPosting")
	if len(posts) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(posts))
	}
	if posts[0]["url"] != pageURL || posts[0]["@id"] != pageURL+"#blog-1" || posts[1]["@id"] != pageURL+"#blog-2" {
		t.Errorf("unexpected fallback postings %v", posts)
	}

	site.BlogURL = func(string, int) (string, error) { panic("broken router") }
	_, _, nodes = render(t, Build(site, p))
	if posts := nodesOfType(nodes, "BlogPosting"); posts[0]["url"] != pageURL {
		t.Errorf("panicking route builder should fall back, got %v", posts[0]["url"])
	}
}

func TestBuildToleratesMissingAndMalformedFields(t *testing.T) {
	_, _, nodes := render(t, Build(testSite(), NewProduct(nil)))
	if len(nodes) != 2 || nodes[0]["@type"] != "Product" || nodes[1]["@type"] != "BreadcrumbList" {
		t.Fatalf("empty product should yield Product + BreadcrumbList, got %v", nodes)
	}

	malformed := mustProduct(t, `{
		"price": {"amount": 5},
		"images": "not-a-list",
		"technical_details": {"name": "x"},
		"variations": [{"name": "Size", "values": "S"}],
		"reviews_data": ["x"],
		"videos": {"video_url": "x"},
		"faqs_formatted": "nope",
		"how_to_import_steps": [1, 2],
		"blog_posts": [null],
		"user": "someone",
		"dispatch_time": "soon",
		"certifications": [{"name": 5}]
	}`)
	_, _, nodes = render(t, Build(testSite(), malformed))
	for _, typ := range []string{"Organization", "AggregateRating", "VideoObject", "FAQPage", "HowTo", "BlogPosting"} {
		if got := nodesOfType(nodes, typ); len(got) != 0 {
			t.Errorf("malformed input produced %s node", typ)
		}
	}
	if offers := nodesOfType(nodes, "Offer"); len(offers) != 1 {
		t.Errorf("non-empty price should still produce an offer, got %d", len(offers))
	} else if _, ok := offers[0]["deliveryLeadTime"]; ok {
		t.Error("non-numeric dispatch_time should not produce deliveryLeadTime")
	}
}

func TestBuildOmitsDependentsOfEachField(t *testing.T) {
	base := mustProduct(t, richProduct)
	for key := range base.Map() {
		trimmed := make(map[string]any, len(base.Map()))
		for k, v := range base.Map() {
			if k != key {
				trimmed[k] = v
			}
		}
		t.Run(key, func(t *testing.T) {
			_, _, nodes := render(t, Build(testSite(), NewProduct(trimmed)))
			if nodes[0]["@type"] != "Product" || nodes[len(nodes)-1]["@type"] != "BreadcrumbList" {
				t.Fatalf("graph must start with Product and end with BreadcrumbList")
			}
		})
	}
}

func TestBuildZeroPriceHasNoOffer(t *testing.T) {
	for _, price := range []string{`0`, `"0"`, `""`, `null`} {
		p := mustProduct(t, `{"name": "Jar", "price": `+price+`}`)
		_, _, nodes := render(t, Build(testSite(), p))
		if got := nodesOfType(nodes, "Offer"); len(got) != 0 {
			t.Errorf("price %s produced an offer", price)
		}
	}
}
