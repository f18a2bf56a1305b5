package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"migrantconnect/auth"
	"migrantconnect/blobs"
	"migrantconnect/legal"
	"migrantconnect/logging"
	"migrantconnect/metrics"
	"migrantconnect/models"
	"migrantconnect/services/digilocker"
	"migrantconnect/services/places"
	"migrantconnect/services/speech"
	"migrantconnect/services/translate"
	"migrantconnect/store"
)

// maxJSONBody limits JSON request bodies.
const maxJSONBody = 1 << 20

// Deps are the collaborators shared by every handler.
type Deps struct {
	Log     *slog.Logger
	Store   store.Store
	Blobs   *blobs.Dir
	Tokens  *auth.Tokens
	Metrics *metrics.Metrics

	// RequireToken makes profile, upload and buddy lookups require a
	// bearer token for the addressed user.
	RequireToken bool
	// AdminAPIKey enables GET /api/users when set.
	AdminAPIKey string

	Translator  translate.Translator
	Recognizer  speech.Recognizer
	Synthesizer speech.Synthesizer
	Verifier    digilocker.Verifier
	Places      places.Finder
	Legal       *legal.Catalog

	Now func() time.Time
}

// Handler serves the HTTP API.
type Handler struct {
	Deps
}

// New fills defaults for optional collaborators.
func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Translator == nil {
		d.Translator = translate.Placeholder{}
	}
	if d.Recognizer == nil {
		d.Recognizer = speech.PlaceholderRecognizer{}
	}
	if d.Synthesizer == nil {
		d.Synthesizer = speech.Silent{}
	}
	if d.Verifier == nil {
		d.Verifier = digilocker.Placeholder{}
	}
	if d.Places == nil {
		d.Places = places.Empty{}
	}
	if d.Legal == nil {
		if c, err := legal.Default(); err == nil {
			d.Legal = c
		}
	}
	return &Handler{Deps: d}
}

// SetupRoutes sets up HTTP routes and handlers
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	// Health check endpoints
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /api/health", h.handleHealth)

	mux.HandleFunc("POST /api/register", h.handleRegister)
	mux.HandleFunc("POST /api/login", h.handleLogin)
	mux.HandleFunc("GET /api/user/{id}", h.handleGetProfile)
	mux.HandleFunc("GET /api/buddyconnect/{id}", h.handleBuddyConnect)
	mux.HandleFunc("GET /api/users", h.handleGetAllUsers)

	mux.HandleFunc("POST /api/upload", h.handleUpload)
	mux.HandleFunc("GET /uploads/{filename}", h.handleGetDocument)

	mux.HandleFunc("POST /api/translate", h.handleTranslate)
	mux.HandleFunc("POST /api/voice-translate", h.handleVoiceTranslate)
	mux.HandleFunc("POST /api/verify-digilocker", h.handleVerifyDigiLocker)
	mux.HandleFunc("GET /api/nearby", h.handleNearby)
	mux.HandleFunc("GET /api/legal-info/{state}", h.handleLegalInfo)

	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics.Handler())
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		h.Log.Warn("storage ping failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authorize enforces bearer tokens for userID when RequireToken is set.
// It writes the error response and returns false on failure.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, userID string) bool {
	if !h.RequireToken {
		return true
	}
	token, err := auth.BearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	claims, err := h.Tokens.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	if claims.Subject != userID {
		writeError(w, http.StatusForbidden, "Forbidden")
		return false
	}
	return true
}

func (h *Handler) adminAllowed(r *http.Request) bool {
	if h.AdminAPIKey == "" {
		return false
	}
	got := strings.TrimSpace(r.Header.Get("X-API-Key"))
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.AdminAPIKey)) == 1
}

// internalError logs err and answers 500 without leaking details.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.Log.ErrorContext(r.Context(), msg, "err", err, "path", r.URL.Path)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &models.ValidationError{Message: "Request body is required"}
		}
		return &models.ValidationError{Message: "Invalid JSON body"}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
