package schema

import "strconv"

const legacyVideoSlots = 3

// videoNodes builds VideoObjects from the numbered legacy slots followed by
// the structured videos list. Structured entries whose URL was already
// emitted are skipped, and numbering continues after the highest slot used
// so every @id stays unique.
func videoNodes(site Site, p Product) []*Node {
	title := p.FirstStr("product_title", "product_name")
	if title == "" {
		title = "Product"
	}
	description := p.FirstStr("short_description", "description")

	newVideo := func(idx int) *Node {
		n := NewNode("VideoObject", site.fragment("video-"+strconv.Itoa(idx)))
		n.Set("name", title+" – Video "+strconv.Itoa(idx))
		n.Set("description", description)
		return n
	}

	var videos []*Node
	seen := make(map[string]struct{})
	last := 0

	for i := 1; i <= legacyVideoSlots; i++ {
		n := strconv.Itoa(i)
		file := p.Str("product_video_" + n)
		external := p.Str("video_url_" + n)
		if file == "" && external == "" {
			continue
		}
		content := site.media(file)
		embed := firstNonEmpty(external, content)

		v := newVideo(i)
		v.Set("url", firstNonEmpty(embed, content, site.PageURL))
		v.SetString("thumbnailUrl", site.media(p.Str("product_video_"+n+"_thumb")))
		v.SetString("contentUrl", content)
		if isAbsolute(embed) {
			v.Set("embedUrl", embed)
		}
		for _, k := range []string{"contentUrl", "embedUrl", "url"} {
			if u, ok := v.Get(k); ok {
				if s, _ := u.(string); s != "" {
					seen[s] = struct{}{}
				}
			}
		}
		videos = append(videos, v)
		last = i
	}

	for _, item := range p.Objects("videos") {
		videoURL := item.Str("video_url")
		thumb := item.Str("thumbnail_url")
		if videoURL == "" && thumb == "" {
			continue
		}
		content := site.media(videoURL)
		if content != "" {
			if _, dup := seen[content]; dup {
				continue
			}
			seen[content] = struct{}{}
		}

		last++
		v := newVideo(last)
		v.Set("url", firstNonEmpty(content, site.PageURL))
		v.SetString("thumbnailUrl", site.media(thumb))
		v.SetString("contentUrl", content)
		videos = append(videos, v)
	}
	return videos
}
