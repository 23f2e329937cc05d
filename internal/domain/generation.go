package domain

import "strings"

// GenerationRequest is the prompt sent to the generation service. Both fields
// are required; presence is enforced by the caller before the request is built.
type GenerationRequest struct {
	Prompt      string `json:"prompt"`
	ContentType string `json:"contentType"`
}

func (r GenerationRequest) Valid() bool {
	return strings.TrimSpace(r.Prompt) != "" && strings.TrimSpace(r.ContentType) != ""
}

// GenerationResult holds one generated piece of text. Results are transient
// and never persisted.
type GenerationResult struct {
	Text      string `json:"text"`
	WordCount int    `json:"wordCount"`
}

// NewGenerationResult derives the word count by splitting on runs of
// whitespace, so consecutive spaces do not inflate the count.
func NewGenerationResult(text string) GenerationResult {
	return GenerationResult{Text: text, WordCount: len(strings.Fields(text))}
}

// ClipboardText returns the text with literal <br> sequences replaced by
// newlines, the form suitable for copy-to-clipboard.
func (r GenerationResult) ClipboardText() string {
	return strings.ReplaceAll(r.Text, "<br>", "\n")
}
