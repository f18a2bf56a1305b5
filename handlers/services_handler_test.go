package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"golang.org/x/text/language"

	"migrantconnect/services"
	"migrantconnect/services/places"
	"migrantconnect/services/speech"
)

type failingTranslator struct{}

func (failingTranslator) Translate(context.Context, string, language.Tag, language.Tag) (string, error) {
	return "", fmt.Errorf("%w: translate: connection refused", services.ErrUnavailable)
}

type upperTranslator struct{}

func (upperTranslator) Translate(_ context.Context, text string, _, target language.Tag) (string, error) {
	return strings.ToUpper(text) + " [" + target.String() + "]", nil
}

type fixedRecognizer struct{ text string }

func (f fixedRecognizer) Transcribe(_ context.Context, audio io.Reader, _ string, _ language.Tag) (string, error) {
	_, _ = io.Copy(io.Discard, audio)
	return f.text, nil
}

type beepSynthesizer struct{}

func (beepSynthesizer) Synthesize(context.Context, string, language.Tag) (speech.Audio, error) {
	return speech.Audio{Data: []byte("beep"), ContentType: "audio/mpeg", Ext: ".mp3"}, nil
}

type recordingFinder struct{ got places.Query }

func (f *recordingFinder) Nearby(_ context.Context, q places.Query) ([]places.Place, error) {
	f.got = q
	return []places.Place{{ID: 7, Name: "City Hospital", Amenity: q.Amenity, Lat: q.Lat, Lng: q.Lng}}, nil
}

func TestTranslatePlaceholder(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.postJSON(t, "/api/translate", map[string]any{"text": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	want := "{\"translated_text\":\"Translated 'hello' to Hindi (dummy response)\",\"speech_url\":null}\n"
	if rec.Body.String() != want {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestTranslateRejects(t *testing.T) {
	s := newTestServer(t, nil)

	tests := map[string]struct {
		body map[string]any
		want string
	}{
		"blank text":      {map[string]any{"text": "  "}, "Text is required"},
		"bad target":      {map[string]any{"text": "hi", "target": "not a language"}, "Invalid target language"},
		"bad source":      {map[string]any{"text": "hi", "source": "??"}, "Invalid source language"},
		"wrong json type": {map[string]any{"text": 5}, "Invalid JSON body"},
	}
	for name, tt := range tests {
		rec := s.postJSON(t, "/api/translate", tt.body)
		if rec.Code != http.StatusBadRequest || errorMessage(t, rec) != tt.want {
			t.Fatalf("%s: status = %d body = %s", name, rec.Code, rec.Body.String())
		}
	}
}

func TestTranslateUpstreamFailure(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Translator = failingTranslator{} })

	rec := s.postJSON(t, "/api/translate", map[string]any{"text": "hello"})
	if rec.Code != http.StatusBadGateway || errorMessage(t, rec) != "translate unavailable" {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestTranslateSpeak(t *testing.T) {
	s := newTestServer(t, func(d *Deps) {
		d.Translator = upperTranslator{}
		d.Synthesizer = beepSynthesizer{}
	})

	rec := s.postJSON(t, "/api/translate", map[string]any{"text": "hello", "target": "ta", "speak": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var out translateResponse
	decode(t, rec, &out)
	if out.TranslatedText != "HELLO [ta]" {
		t.Fatalf("translated = %q", out.TranslatedText)
	}
	if out.SpeechURL == nil || !strings.HasPrefix(*out.SpeechURL, "/uploads/") {
		t.Fatalf("speech_url = %v", out.SpeechURL)
	}
	audio := s.get(*out.SpeechURL)
	if audio.Code != http.StatusOK || audio.Body.String() != "beep" {
		t.Fatalf("audio = %d %q", audio.Code, audio.Body.String())
	}
}

func TestVoiceTranslatePlaceholder(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(multipartRequest(t, "/api/voice-translate", nil, part{"audio", "note.wav", "RIFF"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var out voiceTranslateResponse
	decode(t, rec, &out)
	if out.OriginalText != "Dummy original speech-to-text." {
		t.Fatalf("original = %q", out.OriginalText)
	}
	if out.TranslatedText != "Dummy translated speech." {
		t.Fatalf("translated = %q", out.TranslatedText)
	}
	if out.SpeechURL != nil {
		t.Fatalf("speech_url = %v", *out.SpeechURL)
	}
}

func TestVoiceTranslateConfiguredTranslator(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.Translator = upperTranslator{} })

	rec := s.do(multipartRequest(t, "/api/voice-translate", nil, part{"audio", "note.ogg", "OggS"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var out voiceTranslateResponse
	decode(t, rec, &out)
	if out.TranslatedText != "DUMMY ORIGINAL SPEECH-TO-TEXT. [hi]" {
		t.Fatalf("translated = %q", out.TranslatedText)
	}
}

func TestVoiceTranslateChain(t *testing.T) {
	s := newTestServer(t, func(d *Deps) {
		d.Recognizer = fixedRecognizer{text: "where is the clinic"}
		d.Translator = upperTranslator{}
		d.Synthesizer = beepSynthesizer{}
	})

	rec := s.do(multipartRequest(t, "/api/voice-translate",
		map[string]string{"source": "en", "target": "bn"},
		part{"audio", "question.mp3", "ID3"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var out voiceTranslateResponse
	decode(t, rec, &out)
	if out.OriginalText != "where is the clinic" || out.TranslatedText != "WHERE IS THE CLINIC [bn]" {
		t.Fatalf("out = %+v", out)
	}
	if out.SpeechURL == nil {
		t.Fatal("speech_url is null")
	}
}

func TestVoiceTranslateRejects(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(multipartRequest(t, "/api/voice-translate", map[string]string{"target": "hi"}))
	if rec.Code != http.StatusBadRequest || errorMessage(t, rec) != "Missing audio" {
		t.Fatalf("missing audio: status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = s.do(multipartRequest(t, "/api/voice-translate", nil, part{"audio", "note.txt", "x"}))
	if rec.Code != http.StatusBadRequest || errorMessage(t, rec) != "Invalid file type" {
		t.Fatalf("bad extension: status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestVerifyDigiLocker(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		doc      string
		verified bool
		message  string
	}{
		{"1234567890", true, "Document verified successfully via DigiLocker (dummy)"},
		{"0000000000", false, "Document not found in DigiLocker (dummy)"},
	}
	for _, tt := range tests {
		rec := s.postJSON(t, "/api/verify-digilocker", map[string]string{"doc_number": tt.doc})
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.doc, rec.Code)
		}
		var out struct {
			Verified bool   `json:"verified"`
			Message  string `json:"message"`
		}
		decode(t, rec, &out)
		if out.Verified != tt.verified || out.Message != tt.message {
			t.Fatalf("%s: got %+v", tt.doc, out)
		}
	}

	rec := s.postJSON(t, "/api/verify-digilocker", map[string]string{})
	if rec.Code != http.StatusBadRequest || errorMessage(t, rec) != "Document number is required" {
		t.Fatalf("blank: status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestNearby(t *testing.T) {
	finder := &recordingFinder{}
	s := newTestServer(t, func(d *Deps) { d.Places = finder })

	rec := s.get("/api/nearby?lat=12.97&lng=77.59")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if finder.got.Amenity != "hospital" || finder.got.Radius != places.DefaultRadius {
		t.Fatalf("query = %+v", finder.got)
	}
	var out struct {
		Places []places.Place `json:"places"`
	}
	decode(t, rec, &out)
	if len(out.Places) != 1 || out.Places[0].Name != "City Hospital" {
		t.Fatalf("places = %+v", out.Places)
	}

	rec = s.get("/api/nearby?lat=12.97&lng=77.59&amenity=Pharmacy&radius=500")
	if rec.Code != http.StatusOK || finder.got.Amenity != "pharmacy" || finder.got.Radius != 500 {
		t.Fatalf("status = %d query = %+v", rec.Code, finder.got)
	}
}

func TestNearbyRejects(t *testing.T) {
	s := newTestServer(t, nil)

	for _, q := range []string{
		"lat=12.97",
		"lat=north&lng=77.59",
		"lat=12.97&lng=77.59&radius=far",
		"lat=12.97&lng=77.59&radius=50000",
		"lat=95&lng=77.59",
		"lat=NaN&lng=NaN",
		"lat=12.97&lng=Inf",
	} {
		if rec := s.get("/api/nearby?" + q); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d body = %s", q, rec.Code, rec.Body.String())
		}
	}

	rec := s.get("/api/nearby?lat=12.97&lng=77.59")
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"places\":[]}\n" {
		t.Fatalf("empty finder: %d %q", rec.Code, rec.Body.String())
	}
}
