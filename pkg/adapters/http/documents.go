package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/go-chi/chi/v5"
)

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	writeData(w, s.Engine.Knowledge().Templates(category))
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	t, ok := s.Engine.Knowledge().Template(chi.URLParam(r, "id"))
	if !ok {
		s.fail(w, r, domain.ErrTemplateNotFound, "")
		return
	}
	writeData(w, t)
}

func (s *Server) downloadDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := s.Engine.Knowledge().Template(id)
	if !ok || s.Templates == nil {
		s.fail(w, r, domain.ErrTemplateNotFound, "")
		return
	}

	file, err := s.Templates.Open(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "ダウンロード処理中にエラーが発生しました")
		return
	}

	name := file.Filename
	if name == "" {
		name = t.Name
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(file.Data)
}

// contentDisposition encodes non-ASCII filenames per RFC 6266.
func contentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name))
}
