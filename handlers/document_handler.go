package handlers

import (
	"errors"
	"net/http"
	"strings"

	"migrantconnect/blobs"
	"migrantconnect/models"
	"migrantconnect/store"
)

// multipartOverhead leaves room for form fields next to the file part.
const multipartOverhead = 64 * 1024

// handleUpload processes a multipart document upload for an existing user
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit the size of the incoming request to avoid overloading
	r.Body = http.MaxBytesReader(w, r.Body, h.Blobs.MaxSize()+multipartOverhead)
	if err := r.ParseMultipartForm(h.Blobs.MaxSize()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Missing data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	userID := strings.TrimSpace(r.FormValue("user_id"))
	docType := strings.TrimSpace(r.FormValue("doc_type"))
	file, header, err := r.FormFile("file")
	if err != nil || userID == "" || docType == "" {
		writeError(w, http.StatusBadRequest, "Missing data")
		return
	}
	defer file.Close()

	if !h.authorize(w, r, userID) {
		return
	}

	if _, err := h.Store.GetUser(r.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.internalError(w, r, "get user", err)
		return
	}

	stored, err := h.Blobs.Save(header.Filename, file, blobs.DocumentExtensions)
	switch {
	case errors.Is(err, blobs.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
		return
	case errors.Is(err, blobs.ErrExtension), errors.Is(err, blobs.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "Invalid file type")
		return
	case err != nil:
		h.internalError(w, r, "save upload", err)
		return
	}

	doc := models.Document{
		UserID:       userID,
		DocType:      docType,
		Filename:     stored.Filename,
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         stored.Size,
		UploadedAt:   h.Now().UTC(),
	}
	if err := h.Store.CreateDocument(r.Context(), &doc); err != nil {
		h.removeBlob(r, stored.Filename)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.internalError(w, r, "create document", err)
		return
	}

	h.Metrics.Uploaded(docType)
	h.Log.InfoContext(r.Context(), "document uploaded",
		"user_id", userID, "doc_type", docType, "filename", stored.Filename, "size", stored.Size)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Document uploaded successfully",
		"document": doc,
	})
}

// handleGetDocument serves a stored blob by filename
func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	f, err := h.Blobs.Open(r.PathValue("filename"))
	if errors.Is(err, blobs.ErrNotFound) || errors.Is(err, blobs.ErrInvalidName) {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	if err != nil {
		h.internalError(w, r, "open blob", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (h *Handler) removeBlob(r *http.Request, filename string) {
	if err := h.Blobs.Remove(filename); err != nil {
		h.Log.WarnContext(r.Context(), "remove orphaned blob", "filename", filename, "err", err)
	}
}
