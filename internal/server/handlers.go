package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/shorui/internal/models"
	"github.com/hyperjump/shorui/internal/pipeline"
	"github.com/hyperjump/shorui/internal/storage"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Indexer.IsReady(r.Context()) {
		s.respondError(w, http.StatusServiceUnavailable, "index not ready")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"models": s.deps.Registry.Profiles()})
}

// upload is a document posted as multipart/form-data with a "file" part.
type upload struct {
	content  []byte
	fileName string
	form     func(key string) string
}

func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "expected multipart form with a file part")
		return nil, false
	}
	f, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return nil, false
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return nil, false
	}
	return &upload{content: content, fileName: header.Filename, form: r.FormValue}, true
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.deps.Detector.Detect(r.Context(), up.content, up.fileName))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	out, err := s.deps.Pipeline.AnalyzeDocument(r.Context(), up.content, up.form("categoryHint"), up.fileName)
	if err != nil {
		s.respondErr(w, "analyze", err)
		return
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(up.form("force"))
	job, err := s.deps.Pipeline.Submit(r.Context(), pipeline.SubmitRequest{
		Content:        up.content,
		OrganizationID: up.form("organizationId"),
		ClientID:       up.form("clientId"),
		CategoryHint:   up.form("categoryHint"),
		FileName:       up.fileName,
		DocumentID:     up.form("documentId"),
		Force:          force,
	})
	if err != nil {
		s.respondErr(w, "submit", err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	org, ok := s.requireOrg(w, r)
	if !ok {
		return
	}
	offset, limit := pageParams(r, 50)
	jobs, err := s.deps.Pipeline.Jobs(r.Context(), org, offset, limit)
	if err != nil {
		s.respondErr(w, "list jobs", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	org, ok := s.requireOrg(w, r)
	if !ok {
		return
	}
	job, err := s.deps.Pipeline.Job(r.Context(), org, chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, "get job", err)
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var opts models.SearchOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", opts.Query), zap.Int("top", opts.Top))
	resp, err := s.deps.Search.Search(r.Context(), opts)
	if err != nil {
		s.respondErr(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var opts models.SuggestOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := s.deps.Search.Suggest(r.Context(), opts)
	if err != nil {
		s.respondErr(w, "suggest", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"suggestions": out})
}

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	var opts models.SuggestOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	out, err := s.deps.Search.Autocomplete(r.Context(), opts)
	if err != nil {
		s.respondErr(w, "autocomplete", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"completions": out})
}

func (s *Server) handleIndexEntry(w http.ResponseWriter, r *http.Request) {
	var entry models.SearchIndexEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.deps.Indexer.IndexOne(r.Context(), &entry); err != nil {
		s.respondErr(w, "index", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": entry.ID, "status": "indexed"})
}

func (s *Server) handleIndexBatch(w http.ResponseWriter, r *http.Request) {
	var entries []*models.SearchIndexEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res := s.deps.Indexer.IndexBatch(r.Context(), entries)
	status := http.StatusOK
	if len(res.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	s.respondJSON(w, status, res)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	org, ok := s.requireOrg(w, r)
	if !ok {
		return
	}
	entry, err := s.deps.Search.Get(r.Context(), org, chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, "get entry", err)
		return
	}
	s.respondJSON(w, http.StatusOK, entry)
}

// handleUpdateEntry merges the body into the entry. The organization comes from the query and
// must match the stored entry's.
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	org, ok := s.requireOrg(w, r)
	if !ok {
		return
	}
	var partial models.PartialEntry
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	partial.ID = chi.URLParam(r, "id")
	partial.OrganizationID = &org
	if err := s.deps.Indexer.Update(r.Context(), &partial); err != nil {
		s.respondErr(w, "update", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": partial.ID, "status": "updated"})
}

// handleDeleteEntry deletes an entry of the organization. Deleting an unknown id succeeds.
func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	org, ok := s.requireOrg(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Search.Get(r.Context(), org, id); err != nil {
		if isNotFound(err) {
			s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
			return
		}
		s.respondErr(w, "delete", err)
		return
	}
	if err := s.deps.Indexer.Delete(r.Context(), id); err != nil {
		s.respondErr(w, "delete", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := s.deps.Indexer.Statistics(ctx)
	if err != nil {
		s.respondErr(w, "stats", err)
		return
	}
	resp := map[string]any{"index": stats}
	if s.deps.Jobs != nil {
		byStatus, err := s.deps.Jobs.CountByStatus(ctx)
		if err != nil {
			s.respondErr(w, "stats", err)
			return
		}
		resp["jobs"] = byStatus
	}
	if s.deps.Storage != nil {
		usage, err := storage.MeasureUsage(s.deps.Storage.DatabasePath, s.deps.Storage.BleveIndexPath)
		if err != nil {
			s.logger.Warn("disk usage unavailable", zap.Error(err))
		} else {
			resp["disk"] = usage
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type inboxView struct {
	Path           string `json:"path"`
	OrganizationID string `json:"organizationId"`
	ClientID       string `json:"clientId,omitempty"`
	Category       string `json:"category,omitempty"`
}

func (s *Server) handleInboxes(w http.ResponseWriter, r *http.Request) {
	if s.deps.Inboxes == nil {
		s.respondError(w, http.StatusNotImplemented, "no inboxes configured")
		return
	}
	org := r.URL.Query().Get("organizationId")
	out := []inboxView{}
	for _, in := range s.deps.Inboxes.Inboxes() {
		if org != "" && in.OrganizationID != org {
			continue
		}
		out = append(out, inboxView{in.Path, in.OrganizationID, in.ClientID, in.Category})
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"inboxes": out})
}

func (s *Server) requireOrg(w http.ResponseWriter, r *http.Request) (string, bool) {
	org := r.URL.Query().Get("organizationId")
	if org == "" {
		s.respondError(w, http.StatusBadRequest, "organizationId is required")
		return "", false
	}
	return org, true
}

func pageParams(r *http.Request, defaultLimit int) (offset, limit int) {
	q := r.URL.Query()
	offset, _ = strconv.Atoi(q.Get("offset"))
	limit, _ = strconv.Atoi(q.Get("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 500 {
		limit = defaultLimit
	}
	return offset, limit
}

func (s *Server) respondErr(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	} else {
		s.logger.Debug(op+" rejected", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

