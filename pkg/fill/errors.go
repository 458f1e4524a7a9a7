package fill

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a publish failure. Every kind is terminal for the attempt.
type Kind string

const (
	// KindRemoteUnavailable is a non-200 response or transport error on a read call
	KindRemoteUnavailable Kind = "RemoteUnavailable"

	// KindCommitResolutionFailed means the boundary commit is missing from the local graph
	KindCommitResolutionFailed Kind = "CommitResolutionFailed"

	// KindArtifactReadFailed means an artifact file could not be read
	KindArtifactReadFailed Kind = "ArtifactReadFailed"

	// KindUploadFailed is a non-200 response or transport error on an artifact upload
	KindUploadFailed Kind = "UploadFailed"

	// KindPublishFailed is a non-201 response or transport error on the metadata submission
	KindPublishFailed Kind = "PublishFailed"

	// KindConfigurationInvalid means a required setting is missing or malformed
	KindConfigurationInvalid Kind = "ConfigurationInvalid"
)

// Error is the single error type surfaced by a publish attempt.
// Only the fields relevant to the Kind are set.
type Error struct {
	Kind       Kind
	Op         string // What was being attempted, e.g. "GET /v3/projects/paper/versions"
	StatusCode int    // HTTP status, 0 if no response was received
	Body       string // Response body, if any
	Path       string // Artifact path for KindArtifactReadFailed
	Field      string // Offending setting for KindConfigurationInvalid
	Err        error  // Underlying cause, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		fmt.Fprintf(&b, ": %s", e.Op)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, ": %s", e.Path)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		fmt.Fprintf(&b, ": %s", body)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err, or any error it wraps, is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// MissingField returns a KindConfigurationInvalid error for an unset setting.
func MissingField(field string) *Error {
	return &Error{
		Kind:  KindConfigurationInvalid,
		Field: field,
		Err:   errors.New("required value is not set"),
	}
}
