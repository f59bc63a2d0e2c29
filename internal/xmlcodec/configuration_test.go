package xmlcodec

import (
	"encoding/xml"
	"testing"

	"github.com/cloud-scan/controlcenter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeConfigurationRoundTrips(t *testing.T) {
	c := &domain.Configuration{
		ID: "cfg-1", Owner: "alice", Comment: "nightly build", Target: "ci",
		Tags:           map[string][]string{"env": {"prod"}},
		JobParams:      domain.ParamMap{"branch": {Value: "main"}},
		AllowedRunners: map[string]struct{}{"tr-1": {}},
		LocalAgents:    map[string]string{"src": "tr-1"},
		InputLocators:  map[string]string{"src": "file:///x"},
		Tasks: map[string]domain.ConfigTask{
			"build": {
				Name: "build", TaskDefID: "td-build", Priority: 5,
				AllowedRunners: map[string]struct{}{"tr-2": {}},
				Params:         domain.ParamMap{"flag": {Value: "on"}},
			},
		},
	}

	buf, err := xml.Marshal(EncodeConfiguration(c))
	require.NoError(t, err)
	var w ConfigurationXML
	require.NoError(t, xml.Unmarshal(buf, &w))

	got := DecodeConfiguration(w)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.Owner, got.Owner)
	assert.Equal(t, []string{"prod"}, got.Tags["env"])
	assert.Equal(t, "main", got.JobParams["branch"].Value)
	assert.Contains(t, got.AllowedRunners, "tr-1")
	assert.Equal(t, "tr-1", got.LocalAgents["src"])
	assert.Equal(t, "file:///x", got.InputLocators["src"])

	build, ok := got.Tasks["build"]
	require.True(t, ok)
	assert.Equal(t, 5, build.Priority)
	assert.Contains(t, build.AllowedRunners, "tr-2")
	assert.Equal(t, "on", build.Params["flag"].Value)
}

func TestEncodeDecodeConfigurationHandlesEmptyCollections(t *testing.T) {
	c := &domain.Configuration{ID: "cfg-empty"}
	got := DecodeConfiguration(EncodeConfiguration(c))
	assert.Equal(t, "cfg-empty", got.ID)
	assert.Empty(t, got.Tasks)
}
