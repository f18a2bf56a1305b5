package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"migrantconnect/auth"
	"migrantconnect/models"
	"migrantconnect/store"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

var duplicateMessages = map[string]string{
	store.FieldPhone:                 "Phone already registered",
	store.FieldEmail:                 "Email already registered",
	store.FieldIDNumber:              "ID number already registered",
	store.FieldOrgRegistrationNumber: "Organization registration number already registered",
}

// handleRegister validates and persists a new migrant or organization account
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in = in.Normalize()
	if in.Name == "" || in.Phone == "" || in.Password == "" {
		writeValidation(w, models.ErrMissingRequired)
		return
	}

	// Duplicate checks come before type and dob validation; the unique
	// indexes still catch races between concurrent registrations
	if _, err := h.Store.GetUserByPhone(r.Context(), in.Phone); err == nil {
		writeError(w, http.StatusBadRequest, duplicateMessages[store.FieldPhone])
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.internalError(w, r, "lookup phone", err)
		return
	}
	if in.Email != "" {
		if _, err := h.Store.GetUserByEmail(r.Context(), in.Email); err == nil {
			writeError(w, http.StatusBadRequest, duplicateMessages[store.FieldEmail])
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			h.internalError(w, r, "lookup email", err)
			return
		}
	}

	// Validate before hashing so bad input never pays the bcrypt cost
	user, err := models.NewUser(in, "", h.Now())
	if err != nil {
		writeValidation(w, err)
		return
	}
	if user.PasswordHash, err = auth.HashPassword(in.Password); err != nil {
		h.internalError(w, r, "hash password", err)
		return
	}

	if err := h.Store.CreateUser(r.Context(), &user); err != nil {
		var dup *store.DuplicateError
		if errors.As(err, &dup) {
			msg, ok := duplicateMessages[dup.Field]
			if !ok {
				msg = "User already registered"
			}
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		h.internalError(w, r, "create user", err)
		return
	}

	h.Metrics.Registered(user.UserType)
	h.Log.InfoContext(r.Context(), "user registered", "user_id", user.ID, "user_type", user.UserType)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": capitalize(user.UserType) + " registered successfully",
		"user_id": user.ID,
	})
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message   string    `json:"message"`
	UserID    string    `json:"user_id"`
	UserType  string    `json:"user_type"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin verifies a phone/password pair and issues a session token
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	phone := strings.TrimSpace(in.Phone)

	user, err := h.Store.GetUserByPhone(r.Context(), phone)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.internalError(w, r, "lookup phone", err)
		return
	}
	if err != nil || in.Password == "" || !auth.CheckPassword(user.PasswordHash, in.Password) {
		h.Metrics.Login(false)
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, exp, err := h.Tokens.Issue(user.ID, user.UserType)
	if err != nil {
		h.internalError(w, r, "issue token", err)
		return
	}
	h.Metrics.Login(true)

	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Login successful",
		UserID:    user.ID,
		UserType:  user.UserType,
		Token:     token,
		ExpiresAt: exp,
	})
}

type documentSummary struct {
	ID         string `json:"id"`
	DocType    string `json:"doc_type"`
	Filename   string `json:"filename"`
	UploadDate string `json:"upload_date"`
}

// profileResponse lists every attribute; unset ones are null.
type profileResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	Email    *string `json:"email"`
	UserType string  `json:"user_type"`

	IDType           *string `json:"id_type"`
	IDNumber         *string `json:"id_number"`
	Nationality      *string `json:"nationality"`
	CurrentLocation  *string `json:"current_location"`
	Languages        *string `json:"languages"`
	DOB              *string `json:"dob"`
	Gender           *string `json:"gender"`
	EmergencyContact *string `json:"emergency_contact"`

	OrgName               *string `json:"org_name"`
	OrgType               *string `json:"org_type"`
	OrgSubtype            *string `json:"org_subtype"`
	OrgRegistrationNumber *string `json:"org_registration_number"`
	OrgAddress            *string `json:"org_address"`
	OrgContactPerson      *string `json:"org_contact_person"`
	OrgContactPhone       *string `json:"org_contact_phone"`

	Documents []documentSummary `json:"documents"`
}

func newProfile(u models.User, docs []models.Document) profileResponse {
	p := profileResponse{
		ID:       u.ID,
		Name:     u.Name,
		Phone:    u.Phone,
		Email:    nullable(u.Email),
		UserType: u.UserType,

		IDType:           nullable(u.IDType),
		IDNumber:         nullable(u.IDNumber),
		Nationality:      nullable(u.Nationality),
		CurrentLocation:  nullable(u.CurrentLocation),
		Languages:        nullable(u.Languages),
		Gender:           nullable(u.Gender),
		EmergencyContact: nullable(u.EmergencyContact),

		OrgName:               nullable(u.OrgName),
		OrgType:               nullable(u.OrgType),
		OrgSubtype:            nullable(u.OrgSubtype),
		OrgRegistrationNumber: nullable(u.OrgRegistrationNumber),
		OrgAddress:            nullable(u.OrgAddress),
		OrgContactPerson:      nullable(u.OrgContactPerson),
		OrgContactPhone:       nullable(u.OrgContactPhone),

		Documents: make([]documentSummary, 0, len(docs)),
	}
	if u.DOB != nil {
		p.DOB = nullable(u.DOB.Format(models.DateLayout))
	}
	for _, d := range docs {
		p.Documents = append(p.Documents, documentSummary{
			ID:         d.ID,
			DocType:    d.DocType,
			Filename:   d.Filename,
			UploadDate: d.UploadedAt.UTC().Format(time.RFC3339),
		})
	}
	return p
}

// handleGetProfile returns a user record with its uploaded documents
func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.authorize(w, r, id) {
		return
	}

	user, err := h.Store.GetUser(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.internalError(w, r, "get user", err)
		return
	}

	docs, err := h.Store.ListDocuments(r.Context(), user.ID)
	if err != nil {
		h.internalError(w, r, "list documents", err)
		return
	}

	writeJSON(w, http.StatusOK, newProfile(user, docs))
}

type buddy struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	CurrentLocation string `json:"current_location"`
}

// handleBuddyConnect lists other migrants sharing the user's nationality
func (h *Handler) handleBuddyConnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.authorize(w, r, id) {
		return
	}

	user, err := h.Store.GetUser(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.internalError(w, r, "get user", err)
		return
	}
	if err != nil || !user.IsMigrant() {
		writeError(w, http.StatusNotFound, "Invalid user")
		return
	}

	buddies := []buddy{}
	// A migrant without a nationality has nobody to match against
	if user.Nationality != "" {
		peers, err := h.Store.ListUsers(r.Context(), store.UserFilter{
			UserType:    models.UserTypeMigrant,
			Nationality: user.Nationality,
			ExcludeID:   user.ID,
		})
		if err != nil {
			h.internalError(w, r, "list buddies", err)
			return
		}
		for _, p := range peers {
			buddies = append(buddies, buddy{
				ID:              p.ID,
				Name:            p.Name,
				Phone:           p.Phone,
				CurrentLocation: p.CurrentLocation,
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"buddies": buddies})
}

// handleGetAllUsers retrieves user records for administrators
func (h *Handler) handleGetAllUsers(w http.ResponseWriter, r *http.Request) {
	if h.AdminAPIKey == "" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if !h.adminAllowed(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	q := r.URL.Query()
	limit := defaultListLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	users, err := h.Store.ListUsers(r.Context(), store.UserFilter{
		UserType:    strings.ToLower(strings.TrimSpace(q.Get("user_type"))),
		Nationality: strings.TrimSpace(q.Get("nationality")),
		Limit:       limit,
	})
	if err != nil {
		h.internalError(w, r, "list users", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func writeValidation(w http.ResponseWriter, err error) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Message)
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid request")
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// capitalize mirrors "ngo" -> "Ngo" for registration messages.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
