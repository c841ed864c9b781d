package devtools

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/vstore/pkg/draft"
	"github.com/vango-dev/vstore/pkg/patch"
	"github.com/vango-dev/vstore/pkg/tree"
)

// Content types accepted by POST /patch.
const (
	ContentTypeJSONPatch  = "application/json-patch+json"
	ContentTypeMergePatch = "application/merge-patch+json"
)

const maxPatchBytes = 1 << 20

// StateResponse is the body of GET /state.
type StateResponse struct {
	Store   string     `json:"store"`
	Version uint64     `json:"version"`
	Path    string     `json:"path"`
	Value   *tree.Node `json:"value"`
}

// PatchResponse is the body of a successful POST /patch.
type PatchResponse struct {
	Version uint64   `json:"version"`
	Writes  []string `json:"writes,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	path, err := patch.ParsePointer(pointer(chi.URLParam(r, "*")))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	snap := s.store.Current()
	node, ok := snap.Root.At(path)
	if !ok {
		s.writeError(w, http.StatusNotFound, &draft.PathError{Op: "get", Path: path, Err: draft.ErrPathNotFound})
		return
	}
	s.writeJSON(w, http.StatusOK, StateResponse{
		Store:   s.store.Name(),
		Version: snap.Version,
		Path:    path.String(),
		Value:   node,
	})
}

func pointer(rest string) string {
	if rest == "" {
		return ""
	}
	return "/" + rest
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPatchBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var m draft.Mutation
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == ContentTypeMergePatch {
		m, err = patch.MergeMutation(body)
	} else {
		m, err = patch.Mutation(body)
	}
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var writes []string
	record := func(d *draft.Draft) error {
		if err := m(d); err != nil {
			return err
		}
		for _, p := range d.Writes() {
			writes = append(writes, p.String())
		}
		return nil
	}
	if err := s.store.UpdateContext(r.Context(), record); err != nil {
		s.writeError(w, patchStatus(err), err)
		return
	}

	s.logger.Info("patch applied", "writes", len(writes), "media_type", mediaType)
	s.writeJSON(w, http.StatusOK, PatchResponse{
		Version: s.store.Current().Version,
		Writes:  writes,
	})
}

func patchStatus(err error) int {
	switch {
	case errors.Is(err, patch.ErrTestFailed):
		return http.StatusConflict
	case errors.Is(err, draft.ErrMutationFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
