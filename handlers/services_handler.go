package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"migrantconnect/blobs"
	"migrantconnect/legal"
	"migrantconnect/services"
	"migrantconnect/services/digilocker"
	"migrantconnect/services/places"
	"migrantconnect/services/speech"
	"migrantconnect/services/translate"
)

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
	Speak  bool   `json:"speak"`
}

type translateResponse struct {
	TranslatedText string  `json:"translated_text"`
	SpeechURL      *string `json:"speech_url"`
}

type voiceTranslateResponse struct {
	OriginalText   string  `json:"original_text"`
	TranslatedText string  `json:"translated_text"`
	SpeechURL      *string `json:"speech_url"`
}

// handleTranslate translates text and optionally speaks the result
func (h *Handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var in translateRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}
	source, target, ok := parseLanguages(w, in.Source, in.Target)
	if !ok {
		return
	}

	translated, err := h.Translator.Translate(r.Context(), text, source, target)
	h.Metrics.ExternalCall(translate.ServiceName, err)
	if err != nil {
		h.upstreamError(w, r, translate.ServiceName, err)
		return
	}

	resp := translateResponse{TranslatedText: translated}
	if in.Speak {
		url, err := h.speak(r, translated, target)
		if err != nil {
			h.upstreamError(w, r, speech.SynthesizerService, err)
			return
		}
		resp.SpeechURL = url
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleVoiceTranslate chains speech recognition, translation and synthesis
func (h *Handler) handleVoiceTranslate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Blobs.MaxSize()+multipartOverhead)
	if err := r.ParseMultipartForm(h.Blobs.MaxSize()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Missing audio")
		return
	}
	defer r.MultipartForm.RemoveAll()

	audio, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing audio")
		return
	}
	defer audio.Close()

	name := blobs.SanitizeName(header.Filename)
	if !blobs.AudioExtensions[strings.ToLower(filepath.Ext(name))] {
		writeError(w, http.StatusBadRequest, "Invalid file type")
		return
	}
	source, target, ok := parseLanguages(w, r.FormValue("source"), r.FormValue("target"))
	if !ok {
		return
	}

	original, err := h.Recognizer.Transcribe(r.Context(), audio, name, source)
	h.Metrics.ExternalCall(speech.RecognizerService, err)
	if err != nil {
		h.upstreamError(w, r, speech.RecognizerService, err)
		return
	}

	resp := voiceTranslateResponse{OriginalText: original}
	if strings.TrimSpace(original) == "" {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if h.placeholderVoice() {
		resp.TranslatedText = speech.PlaceholderTranslation
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.TranslatedText, err = h.Translator.Translate(r.Context(), original, source, target)
	h.Metrics.ExternalCall(translate.ServiceName, err)
	if err != nil {
		h.upstreamError(w, r, translate.ServiceName, err)
		return
	}

	resp.SpeechURL, err = h.speak(r, resp.TranslatedText, target)
	if err != nil {
		h.upstreamError(w, r, speech.SynthesizerService, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// placeholderVoice reports whether voice translation runs without any
// configured provider, in which case the fixed demo reply is returned.
func (h *Handler) placeholderVoice() bool {
	_, recognizer := h.Recognizer.(speech.PlaceholderRecognizer)
	_, translator := h.Translator.(translate.Placeholder)
	_, synthesizer := h.Synthesizer.(speech.Silent)
	return recognizer && translator && synthesizer
}

// speak synthesizes text and stores the audio, returning its URL or nil
// when the synthesizer produced nothing.
func (h *Handler) speak(r *http.Request, text string, lang language.Tag) (*string, error) {
	audio, err := h.Synthesizer.Synthesize(r.Context(), text, lang)
	h.Metrics.ExternalCall(speech.SynthesizerService, err)
	if err != nil {
		return nil, err
	}
	if len(audio.Data) == 0 {
		return nil, nil
	}
	ext := audio.Ext
	if ext == "" {
		ext = ".mp3"
	}
	stored, err := h.Blobs.Save("speech"+ext, bytes.NewReader(audio.Data), blobs.AudioExtensions)
	if err != nil {
		return nil, err
	}
	url := "/uploads/" + stored.Filename
	return &url, nil
}

type verifyRequest struct {
	DocNumber string `json:"doc_number"`
}

// handleVerifyDigiLocker checks a document number against DigiLocker
func (h *Handler) handleVerifyDigiLocker(w http.ResponseWriter, r *http.Request) {
	var in verifyRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	docNumber := strings.TrimSpace(in.DocNumber)
	if docNumber == "" {
		writeError(w, http.StatusBadRequest, "Document number is required")
		return
	}

	res, err := h.Verifier.Verify(r.Context(), docNumber)
	h.Metrics.ExternalCall(digilocker.ServiceName, err)
	if err != nil {
		h.upstreamError(w, r, digilocker.ServiceName, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleNearby lists amenities around a coordinate
func (h *Handler) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	latStr, lngStr := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lng"))
	if latStr == "" || lngStr == "" {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	lat, errLat := strconv.ParseFloat(latStr, 64)
	lng, errLng := strconv.ParseFloat(lngStr, 64)
	if errLat != nil || errLng != nil {
		writeError(w, http.StatusBadRequest, "lat and lng must be numbers")
		return
	}

	query := places.Query{Lat: lat, Lng: lng, Amenity: q.Get("amenity")}
	if v := strings.TrimSpace(q.Get("radius")); v != "" {
		radius, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "radius must be an integer")
			return
		}
		query.Radius = radius
	}
	query, err := query.Normalize()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	found, err := h.Places.Nearby(r.Context(), query)
	h.Metrics.ExternalCall(places.ServiceName, err)
	if err != nil {
		if errors.Is(err, places.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.upstreamError(w, r, places.ServiceName, err)
		return
	}
	if found == nil {
		found = []places.Place{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"places": found})
}

// handleLegalInfo returns the legal information link for a state
func (h *Handler) handleLegalInfo(w http.ResponseWriter, r *http.Request) {
	info := legal.NoInfo
	if h.Legal != nil {
		info = h.Legal.Lookup(r.PathValue("state"))
	}
	writeJSON(w, http.StatusOK, map[string]string{"legal_info": info})
}

// parseLanguages resolves the optional source (auto-detect by default) and
// target (Hindi by default) languages.
func parseLanguages(w http.ResponseWriter, source, target string) (language.Tag, language.Tag, bool) {
	src, err := translate.ParseLanguage(source, language.Und)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid source language")
		return language.Und, language.Und, false
	}
	dst, err := translate.ParseLanguage(target, translate.DefaultTarget)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid target language")
		return language.Und, language.Und, false
	}
	return src, dst, true
}

// upstreamError answers 502 for provider failures and 500 for anything else.
func (h *Handler) upstreamError(w http.ResponseWriter, r *http.Request, service string, err error) {
	if errors.Is(err, services.ErrUnavailable) {
		h.Log.WarnContext(r.Context(), "provider call failed", "service", service, "err", err)
		writeError(w, http.StatusBadGateway, service+" unavailable")
		return
	}
	h.internalError(w, r, service+" call", err)
}
