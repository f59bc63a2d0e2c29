package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResTypePresentationName(t *testing.T) {
	assert.Equal(t, "Task Runner", ResType{Name: TaskRunnerResType}.PresentationName())
	assert.Equal(t, "Repository", ResType{Name: RepositoryResType}.PresentationName())
	assert.Equal(t, "gpu", ResType{Name: "gpu"}.PresentationName())
}

func TestReservedResTypes(t *testing.T) {
	reserved := ReservedResTypes()
	require.Len(t, reserved, 2)

	names := map[string]bool{}
	for _, rt := range reserved {
		names[rt.Name] = true
	}
	assert.True(t, names[TaskRunnerResType])
	assert.True(t, names[RepositoryResType])
}
