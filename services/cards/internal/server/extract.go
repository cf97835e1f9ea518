package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"bizcards/pkg/ai"
	"bizcards/services/cards/internal/app"
)

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.extractLimiter, "too many extraction requests") {
		return
	}
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
	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}

	card, err := s.app.Extract(r.Context(), image, mimeType)
	if err != nil {
		writeExtractError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// writeExtractError passes the collaborator's message through unchanged.
func writeExtractError(w http.ResponseWriter, err error) {
	code := "EXTRACT_UPSTREAM_FAILED"
	switch {
	case errors.Is(err, ai.ErrMissingCredentials):
		code = "EXTRACT_MISSING_CREDENTIALS"
	case errors.Is(err, ai.ErrMalformedResponse):
		code = "EXTRACT_MALFORMED_RESPONSE"
	}
	msg := err.Error()
	if errors.Is(err, ai.ErrMalformedResponse) {
		msg = ai.ErrMalformedResponse.Error()
	}
	writeErrorCode(w, http.StatusBadGateway, msg, code)
}

type apiKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// /api/gemini-key
func (s *Server) handleGeminiKey(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSaveGeminiKey(w, r)
	case http.MethodGet:
		s.handleGetGeminiKey(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSaveGeminiKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req apiKeyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		writeError(w, http.StatusBadRequest, "API key is required.")
		return
	}
	if err := s.app.SaveAPIKey(req.APIKey); err != nil {
		if errors.Is(err, app.ErrAPIKeyRequired) {
			writeError(w, http.StatusBadRequest, "API key is required.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error saving API key.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "API key saved successfully."})
}

func (s *Server) handleGetGeminiKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	status, err := s.app.APIKeyStatus()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error reading API key.")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
