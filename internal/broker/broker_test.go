package broker

import (
	"testing"
	"time"

	"github.com/cloud-scan/controlcenter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResourceStore struct {
	byID map[string]*domain.Resource
}

func newFakeResourceStore(resources ...*domain.Resource) *fakeResourceStore {
	s := &fakeResourceStore{byID: make(map[string]*domain.Resource)}
	for _, r := range resources {
		s.byID[r.ID] = r
	}
	return s
}

func (s *fakeResourceStore) All() []*domain.Resource {
	out := make([]*domain.Resource, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	return out
}

func (s *fakeResourceStore) Put(r *domain.Resource) error {
	s.byID[r.ID] = r
	return nil
}

type fakeRunnerStore struct {
	byID map[string]*domain.TaskRunner
}

func newFakeRunnerStore(runners ...*domain.TaskRunner) *fakeRunnerStore {
	s := &fakeRunnerStore{byID: make(map[string]*domain.TaskRunner)}
	for _, r := range runners {
		s.byID[r.ID] = r
	}
	return s
}

func (s *fakeRunnerStore) All() []*domain.TaskRunner {
	out := make([]*domain.TaskRunner, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	return out
}

func (s *fakeRunnerStore) Get(id string) (*domain.TaskRunner, bool) {
	r, ok := s.byID[id]
	return r, ok
}

func (s *fakeRunnerStore) Put(r *domain.TaskRunner) error {
	s.byID[r.ID] = r
	return nil
}

func allPerJob(string) bool { return false }

func TestBrokerReserveBindsRunnerAndResources(t *testing.T) {
	gpu := &domain.Resource{ID: "gpu-1", Type: "gpu"}
	resources := newFakeResourceStore(gpu)
	runner := &domain.TaskRunner{Resource: domain.Resource{ID: "tr-1", Type: domain.TaskRunnerResType}}
	runners := newFakeRunnerStore(runner)

	b := New(resources, runners, allPerJob, time.Minute, 10*time.Minute)

	claim := domain.NewResourceClaim(domain.NewResourceSpec("gpu-ref", "gpu", nil))
	assignment, err := b.Reserve(claim, runner, domain.RunID("job-1/build/0"), domain.JobID("job-1"))
	require.NoError(t, err)

	require.Contains(t, assignment, "gpu-ref")
	assert.Equal(t, "gpu-1", assignment["gpu-ref"].ID)
	assert.True(t, gpu.IsReserved())
	assert.True(t, runner.IsReserved())
}

func TestBrokerReserveFailsWithoutEnoughFreeResources(t *testing.T) {
	resources := newFakeResourceStore()
	runner := &domain.TaskRunner{Resource: domain.Resource{ID: "tr-1", Type: domain.TaskRunnerResType}}
	runners := newFakeRunnerStore(runner)

	b := New(resources, runners, allPerJob, time.Minute, 10*time.Minute)
	claim := domain.NewResourceClaim(domain.NewResourceSpec("gpu-ref", "gpu", nil))

	_, err := b.Reserve(claim, runner, domain.RunID("job-1/build/0"), domain.JobID("job-1"))
	assert.Error(t, err)
}

func TestBrokerReleaseFreesNonJobHeldResources(t *testing.T) {
	gpu := &domain.Resource{ID: "gpu-1", Type: "gpu", ReservedBy: "job-1/build/0"}
	resources := newFakeResourceStore(gpu)
	runner := &domain.TaskRunner{Resource: domain.Resource{ID: "tr-1", Type: domain.TaskRunnerResType, ReservedBy: "job-1/build/0"}, RunningRunID: domain.RunID("job-1/build/0")}
	runners := newFakeRunnerStore(runner)

	b := New(resources, runners, allPerJob, time.Minute, 10*time.Minute)
	require.NoError(t, b.Release(domain.RunID("job-1/build/0")))

	assert.False(t, gpu.IsReserved())
	assert.False(t, runner.IsReserved())
	assert.Empty(t, runner.RunningRunID)
}

func TestBrokerReleaseKeepsPerJobExclusiveResourcesUntilReleaseJob(t *testing.T) {
	perJob := func(string) bool { return true }
	gpu := &domain.Resource{ID: "gpu-1", Type: "gpu"}
	resources := newFakeResourceStore(gpu)
	runner := &domain.TaskRunner{Resource: domain.Resource{ID: "tr-1", Type: domain.TaskRunnerResType}}
	runners := newFakeRunnerStore(runner)

	b := New(resources, runners, perJob, time.Minute, 10*time.Minute)
	claim := domain.NewResourceClaim(domain.NewResourceSpec("gpu-ref", "gpu", nil))
	_, err := b.Reserve(claim, runner, domain.RunID("job-1/build/0"), domain.JobID("job-1"))
	require.NoError(t, err)

	require.NoError(t, b.Release(domain.RunID("job-1/build/0")))
	assert.True(t, gpu.IsReserved(), "per-job-exclusive resources stay held across Release")

	require.NoError(t, b.ReleaseJob(domain.JobID("job-1")))
	assert.False(t, gpu.IsReserved())
}

func TestBrokerMatchDoesNotMutateState(t *testing.T) {
	gpu := &domain.Resource{ID: "gpu-1", Type: "gpu"}
	resources := newFakeResourceStore(gpu)
	runners := newFakeRunnerStore()

	b := New(resources, runners, allPerJob, time.Minute, 10*time.Minute)
	claim := domain.NewResourceClaim(domain.NewResourceSpec("gpu-ref", "gpu", nil))

	result := b.Match(claim, false)
	require.Contains(t, result.Assignment, "gpu-ref")
	assert.False(t, gpu.IsReserved(), "Match must not reserve")
}
