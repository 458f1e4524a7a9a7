// Package packager turns artifact files into upload payloads and the
// Download records that describe them.
package packager

import (
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/dyluth/fill/pkg/fill"
)

// Artifact is one configured build output.
type Artifact struct {
	Key      string // Logical name the download is recorded under
	Path     string // File on disk
	FileName string // Name the file is uploaded as
}

// Packaged is an artifact read into memory and ready to upload.
type Packaged struct {
	Key      string
	Download fill.Download
	Content  []byte
}

// Package reads the artifact fully and computes its checksum and size.
// Packaging identical content always yields an identical Download.
func Package(a Artifact) (*Packaged, error) {
	content, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, &fill.Error{Kind: fill.KindArtifactReadFailed, Op: "read artifact " + a.Key, Path: a.Path, Err: err}
	}

	return &Packaged{
		Key: a.Key,
		Download: fill.Download{
			Name:     a.FileName,
			Checksum: fill.Checksums{SHA256: Checksum(content)},
			Size:     int64(len(content)),
		},
		Content: content,
	}, nil
}

// Checksum returns the lowercase hex SHA-256 digest of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
