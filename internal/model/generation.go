package model

// GenerationRequest asks the content-generation service for one piece of content.
type GenerationRequest struct {
	Kind     ContentKind `json:"kind"`
	Platform string      `json:"platform"`
	Topic    string      `json:"topic,omitempty"`
}

// GeneratedContent is the generation service's answer.
type GeneratedContent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
