// Package speech wraps speech-to-text and text-to-speech providers.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"migrantconnect/services"
	"migrantconnect/services/translate"
)

// Service names label metrics and spans.
const (
	RecognizerService  = "speech_to_text"
	SynthesizerService = "text_to_speech"
)

// Placeholder transcript returned when no recognizer is configured.
const PlaceholderTranscript = "Dummy original speech-to-text."

// PlaceholderTranslation is the voice-translation reply when no speech or
// translation provider is configured.
const PlaceholderTranslation = "Dummy translated speech."

// Recognizer turns recorded audio into text. An undetermined lang means auto-detect.
type Recognizer interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string, lang language.Tag) (string, error)
}

// Audio is synthesized speech. Empty Data means nothing was produced.
type Audio struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Synthesizer turns text into speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang language.Tag) (Audio, error)
}

// PlaceholderRecognizer ignores the audio and returns PlaceholderTranscript.
type PlaceholderRecognizer struct{}

func (PlaceholderRecognizer) Transcribe(_ context.Context, audio io.Reader, _ string, _ language.Tag) (string, error) {
	_, _ = io.Copy(io.Discard, audio)
	return PlaceholderTranscript, nil
}

// Silent produces no audio.
type Silent struct{}

func (Silent) Synthesize(context.Context, string, language.Tag) (Audio, error) {
	return Audio{}, nil
}

// OpenAI talks to an OpenAI-compatible audio API (/v1/audio/transcriptions
// and /v1/audio/speech), e.g. a self-hosted Whisper or TTS server.
type OpenAI struct {
	baseURL  string
	apiKey   string
	sttModel string
	ttsModel string
	voice    string
	client   *http.Client
}

type OpenAIConfig struct {
	BaseURL  string
	APIKey   string
	STTModel string
	TTSModel string
	Voice    string
}

func NewOpenAI(cfg OpenAIConfig, client *http.Client) *OpenAI {
	return &OpenAI{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		sttModel: cfg.STTModel,
		ttsModel: cfg.TTSModel,
		voice:    cfg.Voice,
		client:   client,
	}
}

func (o *OpenAI) Transcribe(ctx context.Context, audio io.Reader, filename string, lang language.Tag) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", o.sttModel); err != nil {
		return "", err
	}
	if lang != language.Und {
		if err := mw.WriteField("language", translate.Code(lang)); err != nil {
			return "", err
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("%s: copy audio: %w", RecognizerService, err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", RecognizerService, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	o.authorize(req)

	raw, _, err := services.Do(o.client, RecognizerService, req)
	if err != nil {
		return "", err
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: %s: decode response: %v", services.ErrUnavailable, RecognizerService, err)
	}
	return strings.TrimSpace(out.Text), nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
	Language       string `json:"language,omitempty"`
}

func (o *OpenAI) Synthesize(ctx context.Context, text string, lang language.Tag) (Audio, error) {
	payload, err := json.Marshal(speechRequest{
		Model:          o.ttsModel,
		Input:          text,
		Voice:          o.voice,
		ResponseFormat: "mp3",
		Language:       translate.Code(lang),
	})
	if err != nil {
		return Audio{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return Audio{}, fmt.Errorf("%s: build request: %w", SynthesizerService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	o.authorize(req)

	data, header, err := services.Do(o.client, SynthesizerService, req)
	if err != nil {
		return Audio{}, err
	}
	contentType := header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return Audio{Data: data, ContentType: contentType, Ext: ".mp3"}, nil
}

func (o *OpenAI) authorize(req *http.Request) {
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}
}

// New returns the HTTP recognizer and synthesizer when cfg.BaseURL is set,
// otherwise the placeholders.
func New(cfg OpenAIConfig, client *http.Client) (Recognizer, Synthesizer) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return PlaceholderRecognizer{}, Silent{}
	}
	o := NewOpenAI(cfg, client)
	return o, o
}
