package fill

import (
	"fmt"
	"strings"
	"time"
)

// Commit is a single source commit as reported to the service.
// Commits are read from the local commit graph and never modified afterwards.
type Commit struct {
	SHA     string    `json:"sha"`     // 40-hex object name
	Time    time.Time `json:"time"`    // Author time
	Message string    `json:"message"` // Full commit message
}

// Checksums holds the content digests of an artifact.
type Checksums struct {
	SHA256 string `json:"sha256"` // Lowercase hex
}

// Download describes one uploaded artifact inside a PublishRecord.
// Name is the file name the artifact was uploaded as, which is distinct from
// the logical key the download is stored under in PublishRecord.Downloads.
type Download struct {
	Name     string    `json:"name"`
	Checksum Checksums `json:"checksum"`
	Size     int64     `json:"size"`
}

// DownloadWithURL is a Download as reported back by the service for a build
// that has already been published.
type DownloadWithURL struct {
	Name     string    `json:"name"`
	Checksum Checksums `json:"checksum"`
	Size     int64     `json:"size"`
	URL      string    `json:"url"`
}

// BuildChannel is the release track a build is published on.
type BuildChannel string

const (
	// ChannelAlpha marks early builds not meant for general use
	ChannelAlpha BuildChannel = "ALPHA"

	// ChannelBeta marks pre-release builds
	ChannelBeta BuildChannel = "BETA"

	// ChannelExperimental marks builds from experimental branches
	ChannelExperimental BuildChannel = "EXPERIMENTAL"

	// ChannelStable is the default channel
	ChannelStable BuildChannel = "STABLE"

	// ChannelRecommended marks stable builds promoted for general use
	ChannelRecommended BuildChannel = "RECOMMENDED"
)

var knownChannels = []BuildChannel{
	ChannelAlpha,
	ChannelBeta,
	ChannelExperimental,
	ChannelStable,
	ChannelRecommended,
}

// ParseBuildChannel converts a channel name to a BuildChannel.
// Matching is case-insensitive. An empty string yields ChannelStable.
func ParseBuildChannel(s string) (BuildChannel, error) {
	if strings.TrimSpace(s) == "" {
		return ChannelStable, nil
	}

	candidate := BuildChannel(strings.ToUpper(strings.TrimSpace(s)))
	for _, c := range knownChannels {
		if c == candidate {
			return c, nil
		}
	}

	names := make([]string, len(knownChannels))
	for i, c := range knownChannels {
		names[i] = string(c)
	}
	return "", fmt.Errorf("unknown build channel %q (must be one of %s)", s, strings.Join(names, ", "))
}

// OrDefault returns the channel, or ChannelStable if it is unset.
func (c BuildChannel) OrDefault() BuildChannel {
	if c == "" {
		return ChannelStable
	}
	return c
}

// BuildSummary is a previously published build as listed by the service.
type BuildSummary struct {
	ID        int                        `json:"id"`
	Time      time.Time                  `json:"time"`
	Channel   BuildChannel               `json:"channel"`
	Commits   []Commit                   `json:"commits"`
	Downloads map[string]DownloadWithURL `json:"downloads"`
}

// Version identifies a version of a project and its support metadata.
// Support and Java are passed through untouched; only ID takes part in
// reconciliation.
type Version struct {
	ID      string         `json:"id"`
	Support map[string]any `json:"support,omitempty"`
	Java    map[string]any `json:"java,omitempty"`
}

// VersionSummary is one entry of the service's version listing.
type VersionSummary struct {
	Version Version `json:"version"`
	Builds  []int   `json:"builds"`
}

// VersionsResponse is the body of the version listing endpoint.
type VersionsResponse struct {
	Versions []VersionSummary `json:"versions"`
}
