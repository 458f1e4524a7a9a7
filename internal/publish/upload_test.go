package publish

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUploadBody_Exact(t *testing.T) {
	id := uuid.MustParse("0b9b6f0e-2f7e-4c43-9d7e-3c1f4f1b2a10")

	body, err := BuildUploadBody(id, "paper-1.21.1-42.jar", []byte("hello"))
	require.NoError(t, err)

	want := "--boundary\r\n" +
		"Content-Disposition: form-data; name=\"request\"\r\n" +
		"Content-Type: application/json\r\n" +
		"\r\n" +
		`{"id":"0b9b6f0e-2f7e-4c43-9d7e-3c1f4f1b2a10"}` + "\r\n" +
		"--boundary\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"paper-1.21.1-42.jar\"\r\n" +
		"\r\n" +
		"hello" +
		"\r\n--boundary"

	assert.Equal(t, want, string(body))
}

// TestBuildUploadBody_TwoParts tests that a multipart reader sees exactly the request and file parts
func TestBuildUploadBody_TwoParts(t *testing.T) {
	id := uuid.New()
	content := []byte{0x00, 0xff, '\r', '\n', '-', '-', 'x'}

	body, err := BuildUploadBody(id, "bin.dat", content)
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(uploadContentType)
	require.NoError(t, err)
	assert.Equal(t, "boundary", params["boundary"])

	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])

	part, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "request", part.FormName())
	assert.Equal(t, "application/json", part.Header.Get("Content-Type"))
	data, err := io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"`+id.String()+`"}`, string(data))

	part, err = reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "file", part.FormName())
	assert.Equal(t, "bin.dat", part.FileName())

	// No close delimiter follows; the trailing "\r\n--boundary" still ends the part.
	data, err = io.ReadAll(part)
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.True(t, strings.HasSuffix(string(body), "\r\n--boundary"))
	assert.False(t, strings.HasSuffix(string(body), "--boundary--"))
}
