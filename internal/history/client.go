// Package history reads the build history the distribution service already
// holds for a project: its versions and the builds published for each one.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dyluth/fill/pkg/fill"
)

// DefaultUserAgent identifies this client to the service.
const DefaultUserAgent = "Fill (Go CLI)"

// defaultTimeout bounds every history request. Listings are small.
const defaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 4096

// Config holds configuration for creating a history Client.
type Config struct {
	// BaseURL is the service API root, e.g. "https://fill.papermc.io".
	BaseURL string

	// UserAgent is sent with every request. Defaults to DefaultUserAgent.
	UserAgent string

	// HTTPClient is used for all requests. Defaults to a client with a
	// 30 second timeout.
	HTTPClient *http.Client
}

// Client lists versions and builds from the service. It never retries:
// any failed call is returned to the caller as KindRemoteUnavailable.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a history client. Returns an error if BaseURL is unset
// or not an absolute http(s) URL.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		return nil, fill.MissingField("api_url")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, &fill.Error{
			Kind:  fill.KindConfigurationInvalid,
			Field: "api_url",
			Err:   fmt.Errorf("must be an absolute http(s) URL, got %q", config.BaseURL),
		}
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
	}, nil
}

// ListVersions returns every version of the project, in service order.
func (c *Client) ListVersions(ctx context.Context, project string) ([]fill.VersionSummary, error) {
	path := fmt.Sprintf("/v3/projects/%s/versions", url.PathEscape(project))

	var resp fill.VersionsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Versions, nil
}

// ListBuilds returns the builds of one version, most recent first as the
// service orders them.
func (c *Client) ListBuilds(ctx context.Context, project, version string) ([]fill.BuildSummary, error) {
	path := fmt.Sprintf("/v3/projects/%s/versions/%s/builds", url.PathEscape(project), url.PathEscape(version))

	var builds []fill.BuildSummary
	if err := c.get(ctx, path, &builds); err != nil {
		return nil, err
	}
	return builds, nil
}

// get performs a GET and decodes a 200 response into result. Any other
// outcome is a KindRemoteUnavailable error.
func (c *Client) get(ctx context.Context, path string, result any) error {
	op := "GET " + path

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &fill.Error{Kind: fill.KindRemoteUnavailable, Op: op, Err: err}
	}
	request.Header.Set("User-Agent", c.userAgent)
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return &fill.Error{Kind: fill.KindRemoteUnavailable, Op: op, Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		return &fill.Error{
			Kind:       fill.KindRemoteUnavailable,
			Op:         op,
			StatusCode: response.StatusCode,
			Body:       string(body),
		}
	}

	if err := json.NewDecoder(response.Body).Decode(result); err != nil {
		return &fill.Error{
			Kind:       fill.KindRemoteUnavailable,
			Op:         op,
			StatusCode: response.StatusCode,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}
