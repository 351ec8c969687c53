package http

import (
	"net/http"

	"github.com/aretw0/pmguide/internal/validator"
	"github.com/aretw0/pmguide/pkg/progress"
	"github.com/go-chi/chi/v5"
)

type taskRequest struct {
	Task *validator.NewTask `json:"task"`
}

type taskStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "userId")
	if err := validator.UserID(id); err != nil {
		s.fail(w, r, &validator.ValidationError{Details: []validator.FieldError{
			{Field: "userId", Message: err.Error()},
		}}, "")
		return "", false
	}
	return id, true
}

func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	p, err := s.Progress.Get(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err, "進捗情報の取得中にエラーが発生しました")
		return
	}
	writeData(w, p)
}

func (s *Server) putProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var raw map[string]any
	if err := decodeBody(w, r, &raw); err != nil {
		s.fail(w, r, err, "")
		return
	}
	patch, err := progress.DecodePatch(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくありません")
		return
	}
	p, err := s.Progress.Update(r.Context(), userID, patch)
	if err != nil {
		s.fail(w, r, err, "進捗の更新中にエラーが発生しました")
		return
	}
	writeData(w, p)
}

func (s *Server) postTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req taskRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err, "")
		return
	}
	if req.Task == nil {
		writeError(w, http.StatusBadRequest, "タスク名は必須です")
		return
	}
	in, err := s.validator.NewTask(*req.Task)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	task, err := s.Progress.AddTask(r.Context(), userID, progress.NewTask{
		Name:        in.Name,
		Description: in.Description,
		DueDate:     in.DueDate,
	})
	if err != nil {
		s.fail(w, r, err, "タスクの作成中にエラーが発生しました")
		return
	}
	writeData(w, task)
}

func (s *Server) putTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req taskStatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err, "")
		return
	}
	status, err := validator.TaskStatus(req.Status)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	task, err := s.Progress.UpdateTask(r.Context(), userID, chi.URLParam(r, "taskId"), status)
	if err != nil {
		s.fail(w, r, err, "タスクの更新中にエラーが発生しました")
		return
	}
	writeData(w, task)
}
