package definitions

import (
	"testing"

	"github.com/cloud-scan/controlcenter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProductDefStore struct{ byID map[string]domain.ProductDef }

func (s *fakeProductDefStore) Get(id string) (domain.ProductDef, bool) {
	d, ok := s.byID[id]
	return d, ok
}
func (s *fakeProductDefStore) All() []domain.ProductDef {
	out := make([]domain.ProductDef, 0, len(s.byID))
	for _, d := range s.byID {
		out = append(out, d)
	}
	return out
}

type fakeFrameworkStore struct{ byID map[string]*domain.Framework }

func (s *fakeFrameworkStore) Get(id string) (*domain.Framework, bool) {
	f, ok := s.byID[id]
	return f, ok
}
func (s *fakeFrameworkStore) All() []*domain.Framework {
	out := make([]*domain.Framework, 0, len(s.byID))
	for _, f := range s.byID {
		out = append(out, f)
	}
	return out
}
func (s *fakeFrameworkStore) Put(f *domain.Framework) error { s.byID[f.ID] = f; return nil }

type fakeTaskDefStore struct{ byID map[string]*domain.TaskDef }

func (s *fakeTaskDefStore) Get(id string) (*domain.TaskDef, bool) {
	t, ok := s.byID[id]
	return t, ok
}
func (s *fakeTaskDefStore) All() []*domain.TaskDef {
	out := make([]*domain.TaskDef, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, t)
	}
	return out
}
func (s *fakeTaskDefStore) Put(t *domain.TaskDef) error { s.byID[t.ID] = t; return nil }

func newTestGraph() (*Graph, *fakeProductDefStore, *fakeFrameworkStore, *fakeTaskDefStore) {
	products := &fakeProductDefStore{byID: map[string]domain.ProductDef{
		"src": {ID: "src", Type: domain.ProductFile},
		"bin": {ID: "bin", Type: domain.ProductFile},
	}}
	frameworks := &fakeFrameworkStore{byID: make(map[string]*domain.Framework)}
	taskdefs := &fakeTaskDefStore{byID: make(map[string]*domain.TaskDef)}
	return New(products, frameworks, taskdefs, nil), products, frameworks, taskdefs
}

func TestCreateFrameworkRejectsUnknownProduct(t *testing.T) {
	g, _, _, _ := newTestGraph()
	_, err := g.CreateFramework("build", []string{"missing"}, nil, nil, domain.ResourceClaim{})
	assert.Error(t, err)
}

func TestCreateFrameworkRejectsDuplicateID(t *testing.T) {
	g, _, _, _ := newTestGraph()
	_, err := g.CreateFramework("build", []string{"src"}, []string{"bin"}, nil, domain.ResourceClaim{})
	require.NoError(t, err)

	_, err = g.CreateFramework("build", []string{"src"}, []string{"bin"}, nil, domain.ResourceClaim{})
	assert.Error(t, err)
}

func TestCreateTaskDefRejectsFinalOverride(t *testing.T) {
	g, _, frameworks, _ := newTestGraph()
	frameworks.byID["fw-1"] = &domain.Framework{
		ID:     "fw-1",
		Params: domain.ParamMap{"timeout": {Value: "60", Final: true}},
	}

	_, err := g.CreateTaskDef("td-1", "fw-1", domain.ParamMap{"timeout": {Value: "120"}}, nil, domain.ResourceClaim{})
	assert.Error(t, err)
}

func TestCreateTaskDefRejectsReservedParamNamespace(t *testing.T) {
	g, _, frameworks, _ := newTestGraph()
	frameworks.byID["fw-1"] = &domain.Framework{ID: "fw-1"}

	_, err := g.CreateTaskDef("td-1", "fw-1", domain.ParamMap{"sf.wrapper": {Value: "docker"}}, nil, domain.ResourceClaim{})
	assert.Error(t, err)
}

func TestCreateTaskDefSucceedsWithMatchingFinalValue(t *testing.T) {
	g, _, frameworks, _ := newTestGraph()
	frameworks.byID["fw-1"] = &domain.Framework{
		ID:     "fw-1",
		Params: domain.ParamMap{"timeout": {Value: "60", Final: true}},
	}

	_, err := g.CreateTaskDef("td-1", "fw-1", domain.ParamMap{"timeout": {Value: "60"}}, nil, domain.ResourceClaim{})
	assert.NoError(t, err)
}

func TestResourceClaimMergesFrameworkAndTaskDef(t *testing.T) {
	g, _, frameworks, _ := newTestGraph()
	frameworks.byID["fw-1"] = &domain.Framework{
		ID:    "fw-1",
		Claim: domain.NewResourceClaim(domain.NewResourceSpec("main", "gpu", []string{"cuda"})),
	}
	td := &domain.TaskDef{
		ID: "td-1", Parent: "fw-1",
		Claim: domain.NewResourceClaim(domain.NewResourceSpec("side", "disk", nil)),
	}

	claim, err := g.ResourceClaim(td)
	require.NoError(t, err)
	_, ok := claim.Get(domain.TaskRunnerRef)
	assert.True(t, ok, "ResourceClaim must always include the task-runner spec")
	_, ok = claim.Get("main")
	assert.True(t, ok)
	_, ok = claim.Get("side")
	assert.True(t, ok)
}

func TestAnyExtractReportsWhetherAnyFrameworkExtracts(t *testing.T) {
	g, _, frameworks, _ := newTestGraph()
	assert.False(t, g.AnyExtract())

	frameworks.byID["fw-1"] = &domain.Framework{ID: "fw-1", Extractor: true}
	assert.True(t, g.AnyExtract())
}

func TestLookupWalksChildParentDefaults(t *testing.T) {
	products := &fakeProductDefStore{byID: map[string]domain.ProductDef{}}
	frameworks := &fakeFrameworkStore{byID: map[string]*domain.Framework{
		"fw-1": {ID: "fw-1", Params: domain.ParamMap{"from-fw": {Value: "fw-value"}}},
	}}
	taskdefs := &fakeTaskDefStore{byID: make(map[string]*domain.TaskDef)}
	defaults := domain.ParamMap{"from-defaults": {Value: "default-value"}}
	g := New(products, frameworks, taskdefs, defaults)

	td := &domain.TaskDef{ID: "td-1", Parent: "fw-1", Params: domain.ParamMap{"from-td": {Value: "td-value"}}}

	v, _, ok := g.Lookup(td, "from-td")
	require.True(t, ok)
	assert.Equal(t, "td-value", v)

	v, _, ok = g.Lookup(td, "from-fw")
	require.True(t, ok)
	assert.Equal(t, "fw-value", v)

	v, _, ok = g.Lookup(td, "from-defaults")
	require.True(t, ok)
	assert.Equal(t, "default-value", v)

	_, _, ok = g.Lookup(td, "missing")
	assert.False(t, ok)
}

func TestLookupReservedParamIsAlwaysFinal(t *testing.T) {
	frameworks := &fakeFrameworkStore{byID: map[string]*domain.Framework{"fw-1": {ID: "fw-1"}}}
	g := New(&fakeProductDefStore{byID: map[string]domain.ProductDef{}}, frameworks, &fakeTaskDefStore{byID: map[string]*domain.TaskDef{}}, nil)
	td := &domain.TaskDef{ID: "td-1", Parent: "fw-1", Params: domain.ParamMap{"sf.wrapper": {Value: "docker", Final: false}}}

	_, final, ok := g.Lookup(td, "sf.wrapper")
	require.True(t, ok)
	assert.True(t, final)
}
