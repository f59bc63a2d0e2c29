// Package definitions implements the definition graph:
// versioned CRUD over ProductDef, Framework, TaskDef and ResType, parameter
// inheritance, and resource claim merging. Grounded on
// original_source/src/softfab/resreq.py (ResourceClaim.merge, carried
// byte-for-byte semantically into domain.ResourceClaim.Merge) and
// restypelib.py's reserved-type bootstrap (domain.ReservedResTypes).
package definitions

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/cloud-scan/controlcenter/internal/ctlerr"
	"github.com/cloud-scan/controlcenter/internal/domain"
	log "github.com/sirupsen/logrus"
)

// ProductDefStore is the subset of store.Store[domain.ProductDef] needed.
type ProductDefStore interface {
	Get(id string) (domain.ProductDef, bool)
	All() []domain.ProductDef
}

// FrameworkStore is the subset of store.Store[*domain.Framework] needed.
type FrameworkStore interface {
	Get(id string) (*domain.Framework, bool)
	All() []*domain.Framework
	Put(*domain.Framework) error
}

// TaskDefStore is the subset of store.Store[*domain.TaskDef] needed.
type TaskDefStore interface {
	Get(id string) (*domain.TaskDef, bool)
	All() []*domain.TaskDef
	Put(*domain.TaskDef) error
}

// Graph is the definition graph: the single point from which Frameworks,
// TaskDefs and their effective (merged, version-pinned) resource claims are
// resolved.
type Graph struct {
	products   ProductDefStore
	frameworks FrameworkStore
	taskdefs   TaskDefStore

	// defaults is the singleton top-level parameter map every Framework's
	// lookup chain bottoms out at ("parent -> top-level
	// defaults").
	defaults domain.ParamMap

	logger *log.Entry
}

func New(products ProductDefStore, frameworks FrameworkStore, taskdefs TaskDefStore, defaults domain.ParamMap) *Graph {
	if defaults == nil {
		defaults = domain.ParamMap{}
	}
	return &Graph{products: products, frameworks: frameworks, taskdefs: taskdefs, defaults: defaults, logger: log.WithField("component", "definitions")}
}

// ProductDef looks up a product definition by id.
func (g *Graph) ProductDef(id string) (domain.ProductDef, bool) {
	return g.products.Get(id)
}

// CreateFramework implements createFramework operation.
func (g *Graph) CreateFramework(id string, inputs, outputs []string, params domain.ParamMap, claim domain.ResourceClaim) (*domain.Framework, error) {
	if _, ok := g.frameworks.Get(id); ok {
		return nil, ctlerr.InvalidRequestf("DUPLICATE: framework %s already exists", id)
	}
	for _, name := range append(append([]string{}, inputs...), outputs...) {
		def, ok := g.products.Get(name)
		if !ok {
			return nil, ctlerr.InvalidRequestf("REFERENCE: framework %s: product %s does not exist", id, name)
		}
		if def.Combined && !contains(outputs, name) {
			return nil, ctlerr.InvalidRequestf("REFERENCE: framework %s: product %s is combined-only, cannot be a plain input", id, name)
		}
	}
	fw := &domain.Framework{
		ID: id, Inputs: inputs, Outputs: outputs,
		Params: params, Claim: claim,
	}
	fw.Version = contentVersion("framework", id, inputs, outputs, params, claim)
	if err := g.frameworks.Put(fw); err != nil {
		return nil, fmt.Errorf("definitions: persisting framework %s: %w", id, err)
	}
	g.logger.WithField("framework", id).WithField("version", fw.Version).Info("framework created")
	return fw, nil
}

// CreateTaskDef implements createTaskDef operation.
func (g *Graph) CreateTaskDef(id, parentFrameworkID string, params domain.ParamMap, tags map[string][]string, claim domain.ResourceClaim) (*domain.TaskDef, error) {
	fw, ok := g.frameworks.Get(parentFrameworkID)
	if !ok {
		return nil, ctlerr.InvalidRequestf("REFERENCE: taskdef %s: parent framework %s does not exist", id, parentFrameworkID)
	}
	for name, v := range params {
		if parentVal, ok := fw.Params[name]; ok && parentVal.Final && parentVal.Value != v.Value {
			return nil, ctlerr.InvalidRequestf("FINAL_OVERRIDE: taskdef %s: parameter %s is final in framework %s", id, name, parentFrameworkID)
		}
		if domain.IsReservedParam(name) {
			return nil, ctlerr.InvalidRequestf("FINAL_OVERRIDE: taskdef %s: parameter %s is in the reserved sf. namespace", id, name)
		}
	}
	td := &domain.TaskDef{ID: id, Parent: parentFrameworkID, Params: params, Tags: tags, Claim: claim}
	td.Version = contentVersion("taskdef", id, parentFrameworkID, params, tags, claim)
	if err := g.taskdefs.Put(td); err != nil {
		return nil, fmt.Errorf("definitions: persisting taskdef %s: %w", id, err)
	}
	g.logger.WithField("taskdef", id).WithField("version", td.Version).Info("taskdef created")
	return td, nil
}

// ResourceClaim returns the merged, SF_TR-complete effective claim for a
// TaskDef ("resourceClaim(taskDef)").
func (g *Graph) ResourceClaim(td *domain.TaskDef) (domain.ResourceClaim, error) {
	fw, ok := g.frameworks.Get(td.Parent)
	if !ok {
		return domain.ResourceClaim{}, ctlerr.InvalidRequestf("REFERENCE: taskdef %s: parent framework %s does not exist", td.ID, td.Parent)
	}
	return fw.Claim.Merge(td.Claim).EnsureTaskRunnerSpec(), nil
}

// AnyExtract reports whether any framework has Extractor=true, so the UI
// can decide whether to surface extraction configuration.
func (g *Graph) AnyExtract() bool {
	for _, fw := range g.frameworks.All() {
		if fw.Extractor {
			return true
		}
	}
	return false
}

// Resolve satisfies internal/engine.Definitions: given a task-definition id,
// return the TaskDef and its parent Framework.
func (g *Graph) Resolve(taskDefID string) (*domain.TaskDef, *domain.Framework, error) {
	td, ok := g.taskdefs.Get(taskDefID)
	if !ok {
		return nil, nil, ctlerr.InvalidRequestf("REFERENCE: taskdef %s does not exist", taskDefID)
	}
	fw, ok := g.frameworks.Get(td.Parent)
	if !ok {
		return nil, nil, ctlerr.InvalidRequestf("REFERENCE: taskdef %s: parent framework %s does not exist", taskDefID, td.Parent)
	}
	return td, fw, nil
}

// Lookup implements the parameter inheritance protocol: lookup walks
// child -> parent -> top-level defaults; isFinal(name) is true if declared
// final at any ancestor. sf.-prefixed names are always final regardless
// of where they are declared.
func (g *Graph) Lookup(td *domain.TaskDef, name string) (value string, final bool, ok bool) {
	levels := []domain.ParamMap{td.Params}
	if fw, has := g.frameworks.Get(td.Parent); has {
		levels = append(levels, fw.Params)
	}
	levels = append(levels, g.defaults)
	final = domain.IsReservedParam(name)
	for _, params := range levels {
		if v, present := params[name]; present {
			if !ok {
				value, ok = v.Value, true
			}
			final = final || v.Final
		}
	}
	if !ok {
		return "", false, false
	}
	return value, final, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// contentVersion derives a stable, content-addressed version key from a
// record's defining fields, so two edits with identical content collapse to
// the same version. Tasks record the key they were created with, but the
// stores keep only the latest record per id, so an earlier version cannot
// be resolved again once a later edit replaces it.
func contentVersion(parts ...any) string {
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&b, "%v|", canonical(p))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:16]
}

// canonical renders a value deterministically regardless of Go's
// randomized map iteration order, so contentVersion is reproducible.
func canonical(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		cp := append([]string{}, x...)
		sort.Strings(cp)
		return strings.Join(cp, ",")
	case domain.ParamMap:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, "%s=%s:%t;", k, x[k].Value, x[k].Final)
		}
		return b.String()
	case map[string][]string:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for _, k := range keys {
			vs := append([]string{}, x[k]...)
			sort.Strings(vs)
			fmt.Fprintf(&b, "%s=%s;", k, strings.Join(vs, ","))
		}
		return b.String()
	case domain.ResourceClaim:
		specs := x.Specs()
		sort.Slice(specs, func(i, j int) bool { return specs[i].Ref < specs[j].Ref })
		var b strings.Builder
		for _, s := range specs {
			caps := make([]string, 0, len(s.Capabilities))
			for c := range s.Capabilities {
				caps = append(caps, c)
			}
			sort.Strings(caps)
			fmt.Fprintf(&b, "%s/%s/%s;", s.Ref, s.Type, strings.Join(caps, ","))
		}
		return b.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
