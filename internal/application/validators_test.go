package application

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePortRef(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		wantNode string
		wantPort string
		wantErr  bool
	}{
		{name: "simple reference", ref: "feed.out", wantNode: "feed", wantPort: "out"},
		{name: "identifier characters", ref: "my_node-1.result_2", wantNode: "my_node-1", wantPort: "result_2"},
		{name: "missing dot", ref: "feedout", wantErr: true},
		{name: "two dots", ref: "a.b.c", wantErr: true},
		{name: "empty node", ref: ".out", wantErr: true},
		{name: "empty port", ref: "feed.", wantErr: true},
		{name: "empty reference", ref: "", wantErr: true},
		{name: "space in node", ref: "my feed.out", wantErr: true},
		{name: "slash in port", ref: "feed.a/b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, port, err := ParsePortRef(tt.ref)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPortRef)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNode, node)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

// tagProbe exposes each custom validation tag on its own optional field
// so single tags can be exercised in isolation.
type tagProbe struct {
	Version string `validate:"omitempty,semver"`
	NodeID  string `validate:"omitempty,nodeid"`
	PortRef string `validate:"omitempty,portref"`
}

func TestCustomValidators(t *testing.T) {
	v := validator.New()
	require.NoError(t, registerCustomValidators(v))

	tests := []struct {
		name    string
		probe   tagProbe
		wantErr bool
	}{
		{name: "valid semver", probe: tagProbe{Version: "1.0.0"}},
		{name: "semver with large components", probe: tagProbe{Version: "12.34.56"}},
		{name: "semver missing patch", probe: tagProbe{Version: "1.0"}, wantErr: true},
		{name: "semver with v prefix", probe: tagProbe{Version: "v1.0.0"}, wantErr: true},
		{name: "semver non-numeric", probe: tagProbe{Version: "one.two.three"}, wantErr: true},
		{name: "valid node id", probe: tagProbe{NodeID: "sensor_feed-2"}},
		{name: "node id with dot", probe: tagProbe{NodeID: "sensor.feed"}, wantErr: true},
		{name: "node id with space", probe: tagProbe{NodeID: "sensor feed"}, wantErr: true},
		{name: "valid port ref", probe: tagProbe{PortRef: "feed.out"}},
		{name: "port ref without dot", probe: tagProbe{PortRef: "feedout"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.probe)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSuggestClosest(t *testing.T) {
	candidates := []string{"source", "sink", "passthrough", "arithmetic", "clamp"}

	tests := []struct {
		name     string
		input    string
		want     string
		wantHint bool
	}{
		{name: "exact match", input: "source", want: "source", wantHint: true},
		{name: "single transposition", input: "sorce", want: "source", wantHint: true},
		{name: "case difference only", input: "SOURCE", want: "source", wantHint: true},
		{name: "close sink typo", input: "sinc", want: "sink", wantHint: true},
		{name: "nothing close enough", input: "zzz", wantHint: false},
		{name: "no candidates", input: "source", wantHint: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := candidates
			if tt.name == "no candidates" {
				pool = nil
			}
			got, ok := suggestClosest(tt.input, pool)
			assert.Equal(t, tt.wantHint, ok)
			if tt.wantHint {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
