package schema

import "strconv"

const maxBlogPostings = 3

func faqNode(site Site, p Product) *Node {
	var questions []*Node
	for _, item := range p.Objects("faqs_formatted") {
		q, a := item.Str("question"), item.Str("answer")
		if q == "" || a == "" {
			continue
		}
		answer := NewNode("Answer", "")
		answer.Set("text", a)
		question := NewNode("Question", "")
		question.Set("name", q)
		question.Set("acceptedAnswer", answer)
		questions = append(questions, question)
	}
	if len(questions) == 0 {
		return nil
	}
	n := NewNode("FAQPage", site.fragment("faqs"))
	n.Set("mainEntity", questions)
	return n
}

func howToNode(site Site, p Product) *Node {
	var steps []*Node
	for i, s := range p.Objects("how_to_import_steps") {
		pos := i + 1
		text := s.Str("description")
		if text == "" {
			continue
		}
		name := s.Str("title")
		if name == "" {
			name = "Step " + strconv.Itoa(pos)
		}
		step := NewNode("HowToStep", "")
		step.Set("position", pos)
		step.Set("name", name)
		step.Set("text", text)
		steps = append(steps, step)
	}
	if len(steps) == 0 {
		return nil
	}

	subject := p.FirstStr("product_title", "product_name")
	if subject == "" {
		subject = "this product"
	}
	n := NewNode("HowTo", site.fragment("how-to-import"))
	n.Set("name", "How to import "+subject)
	n.Set("description", "Step-by-step guidance for importing this product, based on trade documentation and logistics information.")
	n.Set("step", steps)
	return n
}

func blogNodes(site Site, p Product) []*Node {
	posts := p.Objects("blog_posts")
	if len(posts) > maxBlogPostings {
		posts = posts[:maxBlogPostings]
	}
	productID := p.FirstStr("product_id", "id")

	var nodes []*Node
	for i, post := range posts {
		idx := i + 1
		title := post.Str("title")
		if title == "" {
			continue
		}
		url := blogURL(site, productID, idx)

		n := NewNode("BlogPosting", url+"#blog-"+strconv.Itoa(idx))
		n.Set("headline", title)
		n.Set("url", url)
		n.SetString("image", site.media(post.Str("image")))
		n.SetString("description", post.FirstStr("summary", "description"))
		nodes = append(nodes, n)
	}
	return nodes
}

// blogURL resolves the on-site URL of a blog post, falling back to the
// product page when the route is unavailable or the route builder fails.
func blogURL(site Site, productID string, idx int) (url string) {
	if productID == "" || site.BlogURL == nil {
		return site.PageURL
	}
	defer func() {
		if recover() != nil {
			url = site.PageURL
		}
	}()
	path, err := site.BlogURL(productID, idx)
	if err != nil {
		return site.PageURL
	}
	if u := SiteURL(site.Origin, path); u != "" {
		return u
	}
	return site.PageURL
}
