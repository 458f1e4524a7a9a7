package publish

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"github.com/google/uuid"
)

// uploadBoundary is the literal multipart boundary the service expects.
const uploadBoundary = "boundary"

// uploadContentType is the Content-Type header of every upload request.
const uploadContentType = "multipart/form-data; boundary=" + uploadBoundary

// uploadRequest is the JSON part of an upload body.
type uploadRequest struct {
	ID uuid.UUID `json:"id"`
}

// BuildUploadBody returns the multipart body of one artifact upload.
//
// The body has exactly two parts: "request", carrying the attempt id as JSON,
// and "file", carrying the artifact bytes under fileName. It ends with
// "\r\n--boundary" with no closing "--".
func BuildUploadBody(id uuid.UUID, fileName string, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(uploadBoundary); err != nil {
		return nil, fmt.Errorf("failed to set multipart boundary: %w", err)
	}

	requestPart, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="request"`},
		"Content-Type":        {"application/json"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create request part: %w", err)
	}
	requestJSON, err := json.Marshal(uploadRequest{ID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upload request: %w", err)
	}
	if _, err := requestPart.Write(requestJSON); err != nil {
		return nil, fmt.Errorf("failed to write request part: %w", err)
	}

	filePart, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := filePart.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}

	// Not w.Close(): that would append the "--\r\n" close delimiter.
	buf.WriteString("\r\n--" + uploadBoundary)

	return buf.Bytes(), nil
}
