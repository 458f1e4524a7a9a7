package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dyluth/fill/pkg/fill"
)

// RecordedRequest is a request captured by FakeService.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// FakeService is an httptest stand-in for the build-distribution service.
// History listings are served from Versions and Builds; uploads and
// publishes are recorded and answered with the configured status codes.
type FakeService struct {
	Server *httptest.Server

	mu sync.Mutex

	Versions       []fill.VersionSummary
	Builds         map[string][]fill.BuildSummary // Keyed by version id, most recent first
	VersionsStatus int                            // Defaults to 200
	BuildsStatus   int                            // Defaults to 200
	UploadStatus   int                            // Defaults to 200
	PublishStatus  int                            // Defaults to 201

	requests []RecordedRequest
}

// NewFakeService starts a fake service that is shut down when the test ends.
func NewFakeService(t *testing.T) *FakeService {
	t.Helper()

	s := &FakeService{
		Builds:         make(map[string][]fill.BuildSummary),
		VersionsStatus: http.StatusOK,
		BuildsStatus:   http.StatusOK,
		UploadStatus:   http.StatusOK,
		PublishStatus:  http.StatusCreated,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/projects/{project}/versions", s.handleVersions)
	mux.HandleFunc("GET /v3/projects/{project}/versions/{version}/builds", s.handleBuilds)
	mux.HandleFunc("POST /upload", s.handleWrite(func() int { return s.UploadStatus }))
	mux.HandleFunc("POST /publish", s.handleWrite(func() int { return s.PublishStatus }))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)

	return s
}

// URL returns the API base URL of the fake service.
func (s *FakeService) URL() string {
	return s.Server.URL
}

// AddVersion appends a version with the given builds to the listing.
// Builds must be given most recent first; the build ids listed for the
// version are taken from them.
func (s *FakeService) AddVersion(id string, builds ...fill.BuildSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(builds))
	for _, b := range builds {
		ids = append(ids, b.ID)
	}
	s.Versions = append(s.Versions, fill.VersionSummary{
		Version: fill.Version{ID: id},
		Builds:  ids,
	})
	s.Builds[id] = builds
}

// Requests returns every request received so far, in arrival order.
func (s *FakeService) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the recorded requests for a single path.
func (s *FakeService) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *FakeService) record(r *http.Request) []byte {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	return body
}

func (s *FakeService) handleVersions(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	s.mu.Lock()
	status := s.VersionsStatus
	resp := fill.VersionsResponse{Versions: s.Versions}
	s.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, "versions unavailable", status)
		return
	}
	if resp.Versions == nil {
		resp.Versions = []fill.VersionSummary{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *FakeService) handleBuilds(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	s.mu.Lock()
	status := s.BuildsStatus
	builds, ok := s.Builds[r.PathValue("version")]
	s.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, "builds unavailable", status)
		return
	}
	if !ok {
		http.Error(w, "version not found", http.StatusNotFound)
		return
	}
	if builds == nil {
		builds = []fill.BuildSummary{}
	}
	writeJSON(w, http.StatusOK, builds)
}

func (s *FakeService) handleWrite(status func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.record(r)

		s.mu.Lock()
		code := status()
		s.mu.Unlock()

		w.WriteHeader(code)
		if code >= 300 {
			_, _ = w.Write([]byte("rejected by fake service"))
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
