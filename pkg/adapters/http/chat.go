package http

import (
	"net/http"

	"github.com/aretw0/pmguide/internal/validator"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// SessionSummary is the body of GET /api/v1/chat/session/{sessionId}.
type SessionSummary struct {
	SessionID           string          `json:"sessionId"`
	UserID              string          `json:"userId,omitempty"`
	ApplicationProgress domain.Progress `json:"applicationProgress"`
	MessageCount        int             `json:"messageCount"`
}

// AdvanceResult is the body of POST /api/v1/chat/session/{sessionId}/advance.
type AdvanceResult struct {
	Progress domain.Progress       `json:"progress"`
	Delta    *domain.ProgressDelta `json:"delta,omitempty"`
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req validator.ChatMessage
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err, "")
		return
	}
	req, err := s.validator.ChatMessage(req)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	resp, err := s.Engine.Chat(r.Context(), req.SessionID, req.UserID, req.Message)
	if err != nil {
		s.fail(w, r, err, "メッセージの処理中にエラーが発生しました")
		return
	}
	writeData(w, resp)
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "sessionId")
	if err := validator.SessionID(id); err != nil {
		s.fail(w, r, &validator.ValidationError{Details: []validator.FieldError{
			{Field: "sessionId", Message: "must be a valid GUID"},
		}}, "")
		return "", false
	}
	return id, true
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	cc, err := s.Engine.Session(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "セッション情報の取得中にエラーが発生しました")
		return
	}
	writeData(w, SessionSummary{
		SessionID:           cc.SessionID,
		UserID:              cc.UserID,
		ApplicationProgress: cc.Progress,
		MessageCount:        len(cc.History),
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.Engine.Reset(r.Context(), id); err != nil {
		s.fail(w, r, err, "セッションのリセット中にエラーが発生しました")
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "セッションがリセットされました"})
}

func (s *Server) advanceSession(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	p, delta, err := s.Engine.AdvanceStep(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "進捗の更新中にエラーが発生しました")
		return
	}
	writeData(w, AdvanceResult{Progress: p, Delta: delta})
}
