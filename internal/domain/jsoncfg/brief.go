// Package jsoncfg defines the generation brief: the structured form of a
// generation request that normalizes into the free-text prompt sent upstream.
package jsoncfg

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ExtrasConfig struct {
	Locale string `json:"locale"`
}

// BriefJSON is a structured description of the content to generate. It is
// what clients persist and edit; BuildPrompt flattens it for the upstream
// service, which only accepts free text plus a content type.
type BriefJSON struct {
	Version     string       `json:"version"`
	Topic       string       `json:"topic"`
	ContentType string       `json:"content_type"`
	Tone        string       `json:"tone"`
	Audience    string       `json:"audience"`
	Keywords    []string     `json:"keywords"`
	Extras      ExtrasConfig `json:"extras"`
}

var allowedContentTypes = map[string]struct{}{
	"blog":    {},
	"social":  {},
	"email":   {},
	"seo":     {},
	"product": {},
}

const (
	// DefaultBriefVersion represents the schema version persisted for briefs.
	DefaultBriefVersion = "2024-01"
	// DefaultContentType is used when the request omits the content type.
	DefaultContentType = "blog"
	// MaxKeywords caps the keyword list folded into the prompt.
	MaxKeywords = 5
	// DefaultExtrasLocale is applied when no locale preference is provided.
	DefaultExtrasLocale = "en"
)

// Normalize ensures the brief respects defaults and limits.
func (b *BriefJSON) Normalize() {
	if b == nil {
		return
	}
	if b.Version == "" {
		b.Version = DefaultBriefVersion
	}
	b.Topic = strings.TrimSpace(b.Topic)
	b.ContentType = strings.ToLower(strings.TrimSpace(b.ContentType))
	if b.ContentType == "" {
		b.ContentType = DefaultContentType
	}
	b.Tone = strings.TrimSpace(b.Tone)
	b.Audience = strings.TrimSpace(b.Audience)
	if len(b.Keywords) > MaxKeywords {
		b.Keywords = b.Keywords[:MaxKeywords]
	}
	kept := b.Keywords[:0]
	for _, kw := range b.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			kept = append(kept, kw)
		}
	}
	b.Keywords = kept
	if b.Extras.Locale == "" {
		b.Extras.Locale = DefaultExtrasLocale
	}
}

// Validate reports whether a normalized brief can be turned into a prompt.
func (b *BriefJSON) Validate() error {
	if b == nil {
		return fmt.Errorf("brief is required")
	}
	if b.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if _, ok := allowedContentTypes[b.ContentType]; !ok {
		return fmt.Errorf("unsupported content type %q", b.ContentType)
	}
	return nil
}

// AllowedContentType reports whether t is a known content type.
func AllowedContentType(t string) bool {
	_, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(t))]
	return ok
}

// BuildPrompt flattens the brief into the free-text prompt sent upstream.
func (b *BriefJSON) BuildPrompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write %s content about %s.", b.ContentType, b.Topic)
	if b.Tone != "" {
		fmt.Fprintf(&sb, " Use a %s tone.", b.Tone)
	}
	if b.Audience != "" {
		fmt.Fprintf(&sb, " The target audience is %s.", b.Audience)
	}
	if len(b.Keywords) > 0 {
		fmt.Fprintf(&sb, " Include the keywords: %s.", strings.Join(b.Keywords, ", "))
	}
	return sb.String()
}

// Decode parses and normalizes a brief from its JSON form.
func Decode(raw []byte) (*BriefJSON, error) {
	var b BriefJSON
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decode brief: %w", err)
	}
	b.Normalize()
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
