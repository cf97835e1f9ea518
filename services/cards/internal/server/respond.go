package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"bizcards/internal/util"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeErrorCode(w, status, msg, errorCodeForCards(status, msg))
}

func writeErrorCode(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: strings.TrimSpace(w.Header().Get(util.RequestIDHeader)),
	})
}

func errorCodeForCards(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch {
	case message == "card not found.":
		return "CARD_NOT_FOUND"
	case message == "image not found":
		return "CARD_IMAGE_NOT_FOUND"
	case message == "no file uploaded.":
		return "CARD_IMAGE_REQUIRED"
	case message == "file too large":
		return "CARD_FILE_TOO_LARGE"
	case message == "unsupported image type":
		return "CARD_UNSUPPORTED_IMAGE_TYPE"
	case message == "name is required":
		return "CARD_NAME_REQUIRED"
	case message == "card id is required":
		return "CARD_INVALID_ID"
	case message == "invalid form data":
		return "CARD_INVALID_UPLOAD_FORM"
	case message == "invalid carddata", message == "invalid json body":
		return "CARD_INVALID_REQUEST"
	case message == "api key is required.":
		return "EXTRACT_KEY_REQUIRED"
	case strings.HasPrefix(message, "too many"):
		return "SYSTEM_RATE_LIMITED"
	case message == "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case message == "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "CARD_INVALID_REQUEST"
	case http.StatusNotFound:
		return "CARD_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "SYSTEM_RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "SYSTEM_INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}
