package models

type SearchSuggestion struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Country string `json:"country"`
	Image   string `json:"image"`
}
