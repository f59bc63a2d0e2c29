package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceSpecSubset(t *testing.T) {
	spec := NewResourceSpec("main", "gpu", []string{"cuda", "fp16"})

	assert.True(t, spec.Subset(map[string]struct{}{"cuda": {}, "fp16": {}, "extra": {}}))
	assert.False(t, spec.Subset(map[string]struct{}{"cuda": {}}))
}

func TestResourceClaimGetAndLen(t *testing.T) {
	claim := NewResourceClaim(
		NewResourceSpec("main", "gpu", []string{"cuda"}),
		NewResourceSpec("sidecar", "disk", nil),
	)
	assert.Equal(t, 2, claim.Len())

	spec, ok := claim.Get("main")
	require.True(t, ok)
	assert.Equal(t, "gpu", spec.Type)

	_, ok = claim.Get("missing")
	assert.False(t, ok)
}

func TestResourceClaimSpecsOfType(t *testing.T) {
	claim := NewResourceClaim(
		NewResourceSpec("a", "gpu", nil),
		NewResourceSpec("b", "gpu", nil),
		NewResourceSpec("c", "disk", nil),
	)
	assert.Len(t, claim.SpecsOfType("gpu"), 2)
	assert.Len(t, claim.SpecsOfType("disk"), 1)
	assert.Empty(t, claim.SpecsOfType("missing"))
}

func TestResourceClaimMergeUnionsCapabilitiesOnMatchingType(t *testing.T) {
	base := NewResourceClaim(NewResourceSpec("main", "gpu", []string{"cuda"}))
	addition := NewResourceClaim(NewResourceSpec("main", "gpu", []string{"fp16"}))

	merged := base.Merge(addition)
	spec, ok := merged.Get("main")
	require.True(t, ok)
	assert.True(t, spec.Subset(map[string]struct{}{"cuda": {}, "fp16": {}}))
	assert.Contains(t, spec.Capabilities, "cuda")
	assert.Contains(t, spec.Capabilities, "fp16")
}

func TestResourceClaimMergeOverridesOnTypeMismatch(t *testing.T) {
	base := NewResourceClaim(NewResourceSpec("main", "gpu", []string{"cuda"}))
	addition := NewResourceClaim(NewResourceSpec("main", "disk", nil))

	merged := base.Merge(addition)
	spec, ok := merged.Get("main")
	require.True(t, ok)
	assert.Equal(t, "disk", spec.Type)
}

func TestResourceClaimEnsureTaskRunnerSpecAddsOnlyIfMissing(t *testing.T) {
	empty := NewResourceClaim()
	withRunner := empty.EnsureTaskRunnerSpec()

	spec, ok := withRunner.Get(TaskRunnerRef)
	require.True(t, ok)
	assert.Equal(t, TaskRunnerResType, spec.Type)

	again := withRunner.EnsureTaskRunnerSpec()
	assert.Equal(t, withRunner.Len(), again.Len())
}
