// Package translate wraps machine translation providers.
package translate

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"migrantconnect/services"
)

// ServiceName labels metrics and spans.
const ServiceName = "translate"

// DefaultTarget is used when a request names no target language.
var DefaultTarget = language.Hindi

// Translator translates text. An undetermined source means auto-detect.
type Translator interface {
	Translate(ctx context.Context, text string, source, target language.Tag) (string, error)
}

// ParseLanguage parses a BCP 47 tag, returning def for blank input.
func ParseLanguage(s string, def language.Tag) (language.Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return def, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("invalid language %q", s)
	}
	return tag, nil
}

// Code returns the two- or three-letter base language code providers expect.
func Code(tag language.Tag) string {
	if tag == language.Und {
		return "auto"
	}
	base, _ := tag.Base()
	return base.String()
}

// Name returns the English display name of tag, e.g. "Hindi".
func Name(tag language.Tag) string {
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

// Placeholder echoes the request when no provider is configured.
type Placeholder struct{}

func (Placeholder) Translate(_ context.Context, text string, _, target language.Tag) (string, error) {
	return fmt.Sprintf("Translated '%s' to %s (dummy response)", text, Name(target)), nil
}

// LibreTranslate calls a LibreTranslate-compatible POST /translate endpoint.
type LibreTranslate struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewLibreTranslate(baseURL, apiKey string, client *http.Client) *LibreTranslate {
	return &LibreTranslate{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
}

func (l *LibreTranslate) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	in := libreRequest{
		Q:      text,
		Source: Code(source),
		Target: Code(target),
		Format: "text",
		APIKey: l.apiKey,
	}
	var out libreResponse
	if err := services.PostJSON(ctx, l.client, ServiceName, l.baseURL+"/translate", "", in, &out); err != nil {
		return "", err
	}
	return out.TranslatedText, nil
}

// New returns the HTTP provider when baseURL is set, otherwise the placeholder.
func New(baseURL, apiKey string, client *http.Client) Translator {
	if strings.TrimSpace(baseURL) == "" {
		return Placeholder{}
	}
	return NewLibreTranslate(baseURL, apiKey, client)
}
