package core

// Embed is a Discord rich embed as accepted by the webhook API.
// Only fields the relay actually produces are modeled; the webhook
// payload marshals straight from this struct.
type Embed struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Color       int            `json:"color,omitempty"`
	Footer      *EmbedFooter   `json:"footer,omitempty"`
	Image       *EmbedMedia    `json:"image,omitempty"`
	Thumbnail   *EmbedMedia    `json:"thumbnail,omitempty"`
	Video       *EmbedMedia    `json:"video,omitempty"`
	Provider    *EmbedProvider `json:"provider,omitempty"`
	Author      *EmbedAuthor   `json:"author,omitempty"`
	Fields      []EmbedField   `json:"fields,omitempty"`
}

type EmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedMedia struct {
	URL string `json:"url"`
}

type EmbedProvider struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

type EmbedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Valid reports whether the embed carries at least one field Discord
// recognizes. Empty embeds are rejected by the API with a 400.
func (e Embed) Valid() bool {
	return e.Title != "" ||
		e.Description != "" ||
		e.URL != "" ||
		e.Timestamp != "" ||
		e.Color != 0 ||
		e.Footer != nil ||
		e.Image != nil ||
		e.Thumbnail != nil ||
		e.Video != nil ||
		e.Provider != nil ||
		e.Author != nil ||
		len(e.Fields) > 0
}
