package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aretw0/pmguide/internal/validator"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/progress"
)

// Envelope is the uniform response body.
type Envelope struct {
	Success bool                   `json:"success"`
	Data    any                    `json:"data,omitempty"`
	Message string                 `json:"message,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Details []validator.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Success: false, Error: msg})
}

// fail maps err onto a status code. Unknown errors are logged and answered
// with fallback, a generic localized message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *validator.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, Envelope{
			Success: false,
			Error:   "Invalid request data",
			Details: verr.Details,
		})
	case errors.Is(err, errBadBody):
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくありません")
	case errors.Is(err, domain.ErrUnknownStep), errors.Is(err, domain.ErrInvalidProgress):
		writeError(w, http.StatusBadRequest, "無効な進捗情報です")
	case errors.Is(err, progress.ErrInvalidTask):
		writeError(w, http.StatusBadRequest, "無効なタスクです")
	case errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "セッションが見つかりません")
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "進捗情報が見つかりません")
	case errors.Is(err, domain.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "タスクが見つかりません")
	case errors.Is(err, domain.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "書類が見つかりません")
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

var errBadBody = errors.New("malformed request body")

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errBadBody)
	}
	return nil
}
