package server

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"bizcards/internal/util"
	"bizcards/pkg/domain"
	"bizcards/pkg/records"
	"bizcards/pkg/storage"
)

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateCard(w, r)
	case http.MethodGet, http.MethodHead:
		s.handleListCards(w, r)
	case http.MethodDelete:
		s.handleDeleteAll(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /cards/{id}
func (s *Server) handleCardByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/cards/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "card id is required")
		return
	}
	if strings.Contains(id, "/") {
		notFound(w, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		card, err := s.app.GetCard(r.Context(), id)
		if err != nil {
			s.writeRecordError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, card)
	case http.MethodPut:
		var fields domain.CardFields
		if err := decodeJSON(r, &fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		card, err := s.app.UpdateCard(r.Context(), id, fields)
		if err != nil {
			s.writeRecordError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, card)
	case http.MethodDelete:
		if err := s.app.DeleteCard(r.Context(), id); err != nil {
			s.writeRecordError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Card deleted successfully."})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer file.Close()

	var fields domain.CardFields
	if raw := strings.TrimSpace(r.FormValue("cardData")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid cardData")
			return
		}
	}

	card, err := s.app.CreateCard(r.Context(), fields, records.Image{
		Reader:      file,
		Size:        header.Size,
		Ext:         filepath.Ext(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		s.writeRecordError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// handleListCards serves the full list with a strong ETag so clients can
// re-fetch cheaply with If-None-Match.
func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.app.ListCards(r.Context())
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("list cards failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Error fetching cards.")
		return
	}
	body, err := json.Marshal(cards)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	etag := listETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(append(body, '\n'))
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.EraseAll(r.Context())
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("erase cards failed", "err", err)
		msg := "Error reading card data."
		if errors.Is(err, records.ErrImagesUnreadable) {
			msg = "Error reading card images."
		}
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	msg := "All cards deleted successfully."
	if res.Cards == 0 && res.Images == 0 {
		msg = "No cards to delete."
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"cards":   res.Cards,
		"images":  res.Images,
	})
}

// /uploads/images/{name}
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/uploads/images/")
	if !storage.ValidName(name) {
		notFound(w, "image not found")
		return
	}
	rc, info, err := s.app.OpenImage(r.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		notFound(w, "image not found")
		return
	}
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("open image failed", "image", name, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeFor(name)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, info.LastModified, rs)
		return
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.Copy(w, rc)
}

func (s *Server) writeRecordError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, records.ErrNotFound):
		notFound(w, "Card not found.")
	case errors.Is(err, records.ErrNameRequired):
		writeError(w, http.StatusBadRequest, "name is required")
	case errors.Is(err, records.ErrImageRequired):
		writeError(w, http.StatusBadRequest, "No file uploaded.")
	case errors.Is(err, records.ErrUnsupportedImage):
		writeError(w, http.StatusBadRequest, "unsupported image type")
	case isTooLarge(err):
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
	default:
		util.LoggerFromContext(r.Context()).Error("card operation failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg := "Error saving card data."
		switch r.Method {
		case http.MethodGet:
			msg = "Error reading card data."
		case http.MethodDelete:
			msg = "Error processing card data."
		}
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func listETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func etagMatches(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}
