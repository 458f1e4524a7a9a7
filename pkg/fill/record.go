package fill

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PublishRecord is the metadata record submitted to the service at the end of
// a publish attempt. It is the authoritative description of a build.
//
// Records are produced by RecordBuilder and treated as immutable afterwards:
// the builder hands out its own copies of commits and downloads, and nothing in
// this module modifies a record once built. A failed attempt discards its record.
type PublishRecord struct {
	ID        uuid.UUID           `json:"id"`
	Project   string              `json:"project"`
	Family    string              `json:"family"`
	Version   string              `json:"version"`
	Build     int                 `json:"build"`
	Time      time.Time           `json:"time"`
	Channel   BuildChannel        `json:"channel"`
	Commits   []Commit            `json:"commits"`   // Oldest first
	Downloads map[string]Download `json:"downloads"` // Keyed by logical artifact name
}

// RecordBuilder accumulates the fields of a PublishRecord.
// Build fails on the first unset required field rather than producing a
// partially populated record.
type RecordBuilder struct {
	id        uuid.UUID
	project   string
	family    string
	version   string
	build     int
	buildSet  bool
	time      time.Time
	channel   BuildChannel
	commits   []Commit
	downloads map[string]Download
	err       error
}

// NewRecordBuilder returns an empty builder.
func NewRecordBuilder() *RecordBuilder {
	return &RecordBuilder{
		downloads: make(map[string]Download),
	}
}

func (b *RecordBuilder) ID(id uuid.UUID) *RecordBuilder {
	b.id = id
	return b
}

func (b *RecordBuilder) Project(project string) *RecordBuilder {
	b.project = project
	return b
}

func (b *RecordBuilder) Family(family string) *RecordBuilder {
	b.family = family
	return b
}

func (b *RecordBuilder) Version(version string) *RecordBuilder {
	b.version = version
	return b
}

func (b *RecordBuilder) BuildNumber(build int) *RecordBuilder {
	b.build = build
	b.buildSet = true
	return b
}

func (b *RecordBuilder) Time(t time.Time) *RecordBuilder {
	b.time = t
	return b
}

func (b *RecordBuilder) Channel(channel BuildChannel) *RecordBuilder {
	b.channel = channel
	return b
}

// AddCommit appends a commit. Commits must be added oldest first.
func (b *RecordBuilder) AddCommit(c Commit) *RecordBuilder {
	b.commits = append(b.commits, c)
	return b
}

// AddCommits appends commits in the order given. They must be oldest first.
func (b *RecordBuilder) AddCommits(commits []Commit) *RecordBuilder {
	b.commits = append(b.commits, commits...)
	return b
}

// AddDownload registers the download for a logical artifact name.
// Registering the same key twice makes Build fail.
func (b *RecordBuilder) AddDownload(key string, d Download) *RecordBuilder {
	if _, exists := b.downloads[key]; exists && b.err == nil {
		b.err = &Error{
			Kind:  KindConfigurationInvalid,
			Field: "downloads",
			Err:   fmt.Errorf("duplicate download key '%s'", key),
		}
	}
	b.downloads[key] = d
	return b
}

// Build validates the accumulated fields and returns the record.
func (b *RecordBuilder) Build() (*PublishRecord, error) {
	if b.err != nil {
		return nil, b.err
	}

	switch {
	case b.id == uuid.Nil:
		return nil, MissingField("id")
	case b.project == "":
		return nil, MissingField("project")
	case b.family == "":
		return nil, MissingField("family")
	case b.version == "":
		return nil, MissingField("version")
	case !b.buildSet:
		return nil, MissingField("build")
	case b.time.IsZero():
		return nil, MissingField("time")
	case b.channel == "":
		return nil, MissingField("channel")
	}

	commits := make([]Commit, len(b.commits))
	copy(commits, b.commits)

	downloads := make(map[string]Download, len(b.downloads))
	for k, v := range b.downloads {
		downloads[k] = v
	}

	return &PublishRecord{
		ID:        b.id,
		Project:   b.project,
		Family:    b.family,
		Version:   b.version,
		Build:     b.build,
		Time:      b.time,
		Channel:   b.channel,
		Commits:   commits,
		Downloads: downloads,
	}, nil
}
