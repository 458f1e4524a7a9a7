// Package publish runs a publish attempt against the build-distribution
// service: reconcile the commit list, upload every artifact, then submit the
// build's metadata record.
//
// The metadata record is only ever sent after every upload has been
// acknowledged, so the service never holds a record that references files it
// does not have. The reverse is accepted: if the final submission fails, the
// uploaded files stay orphaned on the service.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dyluth/fill/internal/packager"
	"github.com/dyluth/fill/pkg/fill"
)

// DefaultUserAgent identifies this client to the service.
const DefaultUserAgent = "Fill (Go CLI)"

// DefaultTimeout bounds each upload and publish request.
const DefaultTimeout = 5 * time.Minute

const maxErrorBody = 4096

// CommitSource produces the commit list of a build, oldest first.
type CommitSource interface {
	Reconcile(ctx context.Context, project, version string) ([]fill.Commit, error)
}

// Config holds configuration for creating a Publisher.
type Config struct {
	// BaseURL is the service API root. Required.
	BaseURL string

	// UserAgent is sent with every request. Defaults to DefaultUserAgent.
	UserAgent string

	// HTTPClient is used for uploads and the metadata submission.
	// Defaults to a client with DefaultTimeout.
	HTTPClient *http.Client

	// Commits computes the commit list. Required.
	Commits CommitSource

	// Now returns the build time when a Request leaves Time unset.
	// Defaults to time.Now.
	Now func() time.Time

	// NewID generates the attempt id. Defaults to uuid.New.
	NewID func() uuid.UUID

	// OnTransition, if set, is called after every state change.
	OnTransition func(from, to State)
}

// Request describes the build to publish.
type Request struct {
	Project   string
	Family    string
	Version   string
	Build     int
	Time      time.Time         // Zero means now
	Channel   fill.BuildChannel // Empty means STABLE
	Artifacts []packager.Artifact
	Token     string // Sent as the Authorization header
}

// Validate checks every required field, naming the first one missing.
func (r *Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Token) == "":
		return fill.MissingField("api_token")
	case r.Project == "":
		return fill.MissingField("project")
	case r.Family == "":
		return fill.MissingField("family")
	case r.Version == "":
		return fill.MissingField("version")
	case r.Build < 0:
		return &fill.Error{Kind: fill.KindConfigurationInvalid, Field: "build", Err: fmt.Errorf("must be >= 0, got %d", r.Build)}
	}

	seen := make(map[string]bool, len(r.Artifacts))
	for i, a := range r.Artifacts {
		field := fmt.Sprintf("downloads[%d]", i)
		if a.Key == "" {
			return fill.MissingField(field + ".key")
		}
		if a.Path == "" {
			return fill.MissingField(fmt.Sprintf("downloads.%s.file", a.Key))
		}
		if a.FileName == "" {
			return fill.MissingField(fmt.Sprintf("downloads.%s.name", a.Key))
		}
		if seen[a.Key] {
			return &fill.Error{Kind: fill.KindConfigurationInvalid, Field: "downloads", Err: fmt.Errorf("duplicate download key '%s'", a.Key)}
		}
		seen[a.Key] = true
	}
	return nil
}

// Result is the outcome of a successful attempt.
type Result struct {
	ID      uuid.UUID
	Record  *fill.PublishRecord
	Commits []fill.Commit // Oldest first, as published
}

// Publisher runs publish attempts. Attempts share no state: each one gets a
// fresh id and builds its own record.
type Publisher struct {
	baseURL      string
	userAgent    string
	httpClient   *http.Client
	commits      CommitSource
	now          func() time.Time
	newID        func() uuid.UUID
	onTransition func(from, to State)
}

// New creates a Publisher.
func New(config Config) (*Publisher, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		return nil, fill.MissingField("api_url")
	}
	if parsed, err := url.Parse(baseURL); err != nil || parsed.Host == "" {
		return nil, &fill.Error{Kind: fill.KindConfigurationInvalid, Field: "api_url", Err: fmt.Errorf("invalid URL %q", config.BaseURL)}
	}
	if config.Commits == nil {
		return nil, fmt.Errorf("publish: commit source is required")
	}

	p := &Publisher{
		baseURL:      baseURL,
		userAgent:    config.UserAgent,
		httpClient:   config.HTTPClient,
		commits:      config.Commits,
		now:          config.Now,
		newID:        config.NewID,
		onTransition: config.OnTransition,
	}
	if p.userAgent == "" {
		p.userAgent = DefaultUserAgent
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.New
	}
	return p, nil
}

// attempt tracks one run of Publish.
type attempt struct {
	p     *Publisher
	id    uuid.UUID
	state State
}

func (a *attempt) transition(to State) {
	from := a.state
	if !canTransition(from, to) {
		// Unreachable unless Publish itself is wrong.
		panic(fmt.Sprintf("publish: invalid transition %s -> %s", from, to))
	}
	a.state = to

	logEvent("state_changed", map[string]interface{}{
		"attempt_id": a.id.String(),
		"from":       string(from),
		"to":         string(to),
	})
	if a.p.onTransition != nil {
		a.p.onTransition(from, to)
	}
}

// fail moves the attempt to Failed and wraps err with the phase it failed in.
func (a *attempt) fail(err error) error {
	phase := a.state
	a.transition(StateFailed)
	log.Printf("[Publish] Attempt %s failed while %s: %v", a.id, phase, err)
	return &PhaseError{Phase: phase, Err: err}
}

// Publish runs one attempt to completion. It either returns a Result, with
// the artifacts stored and the record accepted by the service, or a
// *PhaseError naming the phase that failed. Nothing is retried.
func (p *Publisher) Publish(ctx context.Context, req Request) (*Result, error) {
	// Configuration problems surface before any network traffic.
	if err := req.Validate(); err != nil {
		return nil, err
	}

	a := &attempt{p: p, id: p.newID(), state: StateReconciling}
	log.Printf("[Publish] Starting attempt %s for %s %s build %d", a.id, req.Project, req.Version, req.Build)
	if p.onTransition != nil {
		p.onTransition("", StateReconciling)
	}

	commits, err := p.commits.Reconcile(ctx, req.Project, req.Version)
	if err != nil {
		return nil, a.fail(err)
	}
	log.Printf("[Publish] %d commits in build %d", len(commits), req.Build)

	a.transition(StateUploading)

	// Read everything up front so an unreadable file aborts before the
	// first byte is sent.
	packaged := make([]*packager.Packaged, 0, len(req.Artifacts))
	for _, artifact := range req.Artifacts {
		pkg, err := packager.Package(artifact)
		if err != nil {
			return nil, a.fail(err)
		}
		packaged = append(packaged, pkg)
	}

	for _, pkg := range packaged {
		if err := p.upload(ctx, a.id, req.Token, pkg); err != nil {
			return nil, a.fail(err)
		}
		log.Printf("[Publish] Uploaded %s as %s (%d bytes, sha256 %s)",
			pkg.Key, pkg.Download.Name, pkg.Download.Size, pkg.Download.Checksum.SHA256)
	}

	a.transition(StatePublishing)

	buildTime := req.Time
	if buildTime.IsZero() {
		buildTime = p.now()
	}

	builder := fill.NewRecordBuilder().
		ID(a.id).
		Project(req.Project).
		Family(req.Family).
		Version(req.Version).
		BuildNumber(req.Build).
		Time(buildTime.UTC()).
		Channel(req.Channel.OrDefault()).
		AddCommits(commits)
	for _, pkg := range packaged {
		builder.AddDownload(pkg.Key, pkg.Download)
	}
	record, err := builder.Build()
	if err != nil {
		return nil, a.fail(err)
	}

	if err := p.submit(ctx, req.Token, record); err != nil {
		return nil, a.fail(err)
	}

	a.transition(StateDone)
	log.Printf("[Publish] Published %s %s build %d (attempt %s)", req.Project, req.Version, req.Build, a.id)

	return &Result{ID: a.id, Record: record, Commits: record.Commits}, nil
}

// upload sends one artifact. Only 200 counts as success.
func (p *Publisher) upload(ctx context.Context, id uuid.UUID, token string, pkg *packager.Packaged) error {
	op := fmt.Sprintf("POST /upload %s", pkg.Download.Name)

	body, err := BuildUploadBody(id, pkg.Download.Name, pkg.Content)
	if err != nil {
		return &fill.Error{Kind: fill.KindUploadFailed, Op: op, Err: err}
	}

	status, respBody, err := p.post(ctx, "/upload", uploadContentType, token, body)
	if err != nil {
		return &fill.Error{Kind: fill.KindUploadFailed, Op: op, Err: err}
	}
	if status != http.StatusOK {
		return &fill.Error{Kind: fill.KindUploadFailed, Op: op, StatusCode: status, Body: respBody}
	}
	return nil
}

// submit sends the metadata record. Only 201 counts as success.
func (p *Publisher) submit(ctx context.Context, token string, record *fill.PublishRecord) error {
	op := "POST /publish"

	body, err := json.Marshal(record)
	if err != nil {
		return &fill.Error{Kind: fill.KindPublishFailed, Op: op, Err: fmt.Errorf("failed to marshal record: %w", err)}
	}

	status, respBody, err := p.post(ctx, "/publish", "application/json", token, body)
	if err != nil {
		return &fill.Error{Kind: fill.KindPublishFailed, Op: op, Err: err}
	}
	if status != http.StatusCreated {
		return &fill.Error{Kind: fill.KindPublishFailed, Op: op, StatusCode: status, Body: respBody}
	}
	return nil
}

// post sends an authenticated POST and returns the status and (capped) body.
func (p *Publisher) post(ctx context.Context, path, contentType, token string, body []byte) (int, string, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("User-Agent", p.userAgent)
	request.Header.Set("Content-Type", contentType)
	request.Header.Set("Authorization", token)

	response, err := p.httpClient.Do(request)
	if err != nil {
		return 0, "", err
	}
	defer response.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
	return response.StatusCode, string(respBody), nil
}
