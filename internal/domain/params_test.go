package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamMapCloneIsIndependent(t *testing.T) {
	orig := ParamMap{"wrapper": {Value: "docker", Final: true}}
	clone := orig.Clone()
	clone["wrapper"] = ParamValue{Value: "bare", Final: false}

	assert.Equal(t, "docker", orig["wrapper"].Value, "mutating the clone must not affect the original")
}

func TestIsReservedParam(t *testing.T) {
	assert.True(t, IsReservedParam("sf.wrapper"))
	assert.True(t, IsReservedParam("sf.timeout"))
	assert.False(t, IsReservedParam("wrapper"))
	assert.False(t, IsReservedParam(""))
}
