package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/docmirror"
	"github.com/go-chi/chi/v5"
)

// healthTimeout bounds the dependency checks of the health endpoint.
const healthTimeout = 5 * time.Second

// HealthResponse reports the status of the server and its dependencies.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{},
	}
	status := http.StatusOK
	if s.Sources != nil {
		if _, err := s.Sources.FindSources(ctx, docmirror.SourceFilter{Limit: 1}); err != nil {
			s.logger().Warn("health check failed", "check", "database", "err", err)
			resp.Checks["database"] = "error"
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["database"] = "ok"
		}
	}
	s.writeJSON(w, r, status, resp)
}

// SearchResponse is the body of a search.
type SearchResponse struct {
	Query   string                   `json:"query"`
	Results []docmirror.SearchResult `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.Search == nil {
		s.Error(w, r, docmirror.Errorf(docmirror.EUNAVAILABLE, "search is not configured"))
		return
	}
	q := r.URL.Query()
	opts, err := searchOptions(q["source"], q.Get("limit"), q.Get("min_score"))
	if err != nil {
		s.Error(w, r, err)
		return
	}
	query := q.Get("q")
	results, err := s.Search.Search(r.Context(), query, opts)
	if err != nil {
		s.Error(w, r, err)
		return
	}
	if results == nil {
		results = []docmirror.SearchResult{}
	}
	s.writeJSON(w, r, http.StatusOK, SearchResponse{Query: query, Results: results})
}

// searchOptions parses search parameters. Sources may be repeated or
// comma-separated.
func searchOptions(sources []string, limit, minScore string) (docmirror.SearchOptions, error) {
	var opts docmirror.SearchOptions
	for _, v := range sources {
		for name := range strings.SplitSeq(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				opts.Sources = append(opts.Sources, name)
			}
		}
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return opts, docmirror.Errorf(docmirror.EINVALID, "limit must be an integer")
		}
		opts.Limit = n
	}
	if minScore != "" {
		f, err := strconv.ParseFloat(minScore, 32)
		if err != nil {
			return opts, docmirror.Errorf(docmirror.EINVALID, "min_score must be a number")
		}
		opts.MinScore = float32(f)
	}
	return opts, nil
}

// AskRequest is the body of an ask request.
type AskRequest struct {
	Question string   `json:"question"`
	Sources  []string `json:"sources,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// AskResponse is the answer to an ask request.
type AskResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.Asker == nil {
		s.Error(w, r, docmirror.Errorf(docmirror.EUNAVAILABLE, "ask is not configured"))
		return
	}
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Error(w, r, docmirror.Errorf(docmirror.EINVALID, "invalid JSON body"))
		return
	}
	answer, err := s.Asker.Ask(r.Context(), req.Question, docmirror.SearchOptions{Sources: req.Sources, Limit: req.Limit})
	if err != nil {
		s.Error(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, AskResponse{Answer: answer})
}

// SourcesResponse lists sources with their update state.
type SourcesResponse struct {
	Sources []*docmirror.SourceState `json:"sources"`
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if s.Updates == nil {
		s.Error(w, r, docmirror.Errorf(docmirror.EUNAVAILABLE, "updates are not configured"))
		return
	}
	states, err := s.Updates.Status(r.Context())
	if err != nil {
		s.Error(w, r, err)
		return
	}
	if states == nil {
		states = []*docmirror.SourceState{}
	}
	s.writeJSON(w, r, http.StatusOK, SourcesResponse{Sources: states})
}

// JobsResponse lists the jobs started or joined by an update request.
type JobsResponse struct {
	Jobs []*docmirror.Job `json:"jobs"`

	// Error describes sources that could not start when others did.
	Error string `json:"error,omitempty"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if s.Updates == nil {
		s.Error(w, r, docmirror.Errorf(docmirror.EUNAVAILABLE, "updates are not configured"))
		return
	}
	jobs, err := s.Updates.Trigger(r.Context(), chi.URLParam(r, "name"))
	if err != nil && len(jobs) == 0 {
		s.Error(w, r, err)
		return
	}
	resp := JobsResponse{Jobs: jobs}
	if resp.Jobs == nil {
		resp.Jobs = []*docmirror.Job{}
	}
	if err != nil {
		s.logger().Error("start updates", "started", len(jobs), "err", err)
		resp.Error = docmirror.ErrorMessage(err)
	}
	s.writeJSON(w, r, http.StatusAccepted, resp)
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	if s.Updates == nil {
		s.Error(w, r, docmirror.Errorf(docmirror.EUNAVAILABLE, "updates are not configured"))
		return
	}
	source, err := s.Updates.Disable(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.Error(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, source)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if s.Updates == nil {
		s.Error(w, r, docmirror.Errorf(docmirror.EUNAVAILABLE, "updates are not configured"))
		return
	}
	job, err := s.Updates.Job(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.Error(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, job)
}
