package fill

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "remote with status and body",
			err:  &Error{Kind: KindRemoteUnavailable, Op: "GET /v3/projects/paper/versions", StatusCode: 503, Body: "down\n"},
			want: "RemoteUnavailable: GET /v3/projects/paper/versions: HTTP 503: down",
		},
		{
			name: "artifact path with cause",
			err:  &Error{Kind: KindArtifactReadFailed, Path: "/tmp/x.jar", Err: errors.New("no such file")},
			want: "ArtifactReadFailed: /tmp/x.jar: no such file",
		},
		{
			name: "missing field",
			err:  MissingField("api_token"),
			want: "ConfigurationInvalid: api_token: required value is not set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("publish phase: %w", &Error{Kind: KindPublishFailed, Err: cause})

	assert.True(t, IsKind(err, KindPublishFailed))
	assert.False(t, IsKind(err, KindUploadFailed))
	assert.False(t, IsKind(cause, KindPublishFailed))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindPublishFailed, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(cause))
}
