package fill

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBuildChannel(t *testing.T) {
	tests := []struct {
		input   string
		want    BuildChannel
		wantErr bool
	}{
		{input: "", want: ChannelStable},
		{input: "STABLE", want: ChannelStable},
		{input: "stable", want: ChannelStable},
		{input: " Beta ", want: ChannelBeta},
		{input: "experimental", want: ChannelExperimental},
		{input: "RECOMMENDED", want: ChannelRecommended},
		{input: "alpha", want: ChannelAlpha},
		{input: "nightly", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBuildChannel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown build channel")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildChannelOrDefault(t *testing.T) {
	assert.Equal(t, ChannelStable, BuildChannel("").OrDefault())
	assert.Equal(t, ChannelBeta, ChannelBeta.OrDefault())
}

// TestBuildSummaryDecode checks the builds listing shape returned by the service
func TestBuildSummaryDecode(t *testing.T) {
	body := `[{
		"id": 7,
		"time": "2024-08-09T10:11:12Z",
		"channel": "STABLE",
		"commits": [{"sha": "1111111111111111111111111111111111111111", "time": "2024-08-09T09:00:00Z", "message": "Fix things"}],
		"downloads": {"server:default": {"name": "paper-1.21.1-7.jar", "checksum": {"sha256": "abc"}, "size": 12, "url": "https://example.invalid/paper-1.21.1-7.jar"}}
	}]`

	var builds []BuildSummary
	require.NoError(t, json.Unmarshal([]byte(body), &builds))
	require.Len(t, builds, 1)

	b := builds[0]
	assert.Equal(t, 7, b.ID)
	assert.Equal(t, time.Date(2024, 8, 9, 10, 11, 12, 0, time.UTC), b.Time)
	assert.Equal(t, ChannelStable, b.Channel)
	require.Len(t, b.Commits, 1)
	assert.Equal(t, "Fix things", b.Commits[0].Message)
	assert.Equal(t, int64(12), b.Downloads["server:default"].Size)
	assert.Equal(t, "abc", b.Downloads["server:default"].Checksum.SHA256)
}

func TestVersionsResponseDecode(t *testing.T) {
	body := `{"versions": [
		{"version": {"id": "1.21.1", "support": {"status": "SUPPORTED"}, "java": {"version": {"minimum": 21}}}, "builds": [3, 2, 1]},
		{"version": {"id": "1.21"}, "builds": []}
	]}`

	var resp VersionsResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Len(t, resp.Versions, 2)
	assert.Equal(t, "1.21.1", resp.Versions[0].Version.ID)
	assert.Equal(t, []int{3, 2, 1}, resp.Versions[0].Builds)
	assert.Equal(t, "SUPPORTED", resp.Versions[0].Version.Support["status"])
	assert.Empty(t, resp.Versions[1].Builds)
}
