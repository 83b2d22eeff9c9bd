package schema

const maxReviews = 5

// ratingNode builds the AggregateRating node with up to maxReviews inline
// reviews. It returns nil when there is neither a usable summary number nor
// a review.
func ratingNode(site Site, p Product, product Ref) *Node {
	data := p.Object("reviews_data")
	if data.IsZero() {
		return nil
	}

	n := NewNode("AggregateRating", site.fragment("aggregate-rating"))
	n.SetRef("itemReviewed", product)

	hasNumbers := false
	if avg, ok := data.Float("avg_rating"); ok {
		n.Set("ratingValue", avg)
		hasNumbers = true
	}
	if count, ok := data.Int("total_count"); ok {
		n.Set("reviewCount", count)
		hasNumbers = true
	}

	var reviews []*Node
	latest := data.Objects("latest_reviews")
	if len(latest) > maxReviews {
		latest = latest[:maxReviews]
	}
	for _, r := range latest {
		body := r.Str("content")
		if body == "" {
			continue
		}
		review := NewNode("Review", "")
		review.Set("reviewBody", body)
		review.SetString("name", r.Str("title"))
		if author := r.Str("name"); author != "" {
			person := NewNode("Person", "")
			person.Set("name", author)
			review.Set("author", person)
		}
		if stars, ok := r.Float("rating"); ok && stars >= 1 && stars <= 5 {
			rating := NewNode("Rating", "")
			rating.Set("ratingValue", stars)
			rating.Set("bestRating", 5)
			rating.Set("worstRating", 1)
			review.Set("reviewRating", rating)
		}
		reviews = append(reviews, review)
	}
	if len(reviews) > 0 {
		n.Set("review", reviews)
	}

	if !hasNumbers && len(reviews) == 0 {
		return nil
	}
	return n
}
