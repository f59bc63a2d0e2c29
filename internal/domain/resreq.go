package domain

// TaskRunnerRef is the fixed reference label every executable task
// implicitly claims a task-runner resource under.
const TaskRunnerRef = "SF_TR"

// TaskRunnerResType and RepositoryResType are the two reserved resource
// types that always exist, bootstrapped into the resource type store at
// server start if absent (see ReservedResTypes in restype.go and
// bootstrapResTypes in internal/cli/server.go).
const (
	TaskRunnerResType = "sf.tr"
	RepositoryResType = "sf.repo"
)

// ResourceSpec is one required resource slot within a ResourceClaim.
// Grounded on original_source/src/softfab/resreq.py: ResourceSpec.
type ResourceSpec struct {
	Ref          string
	Type         string
	Capabilities map[string]struct{}
}

// NewResourceSpec builds a spec from a plain capability slice.
func NewResourceSpec(ref, resType string, capabilities []string) ResourceSpec {
	caps := make(map[string]struct{}, len(capabilities))
	for _, c := range capabilities {
		caps[c] = struct{}{}
	}
	return ResourceSpec{Ref: ref, Type: resType, Capabilities: caps}
}

// Subset reports whether every capability of this spec is present in other.
func (s ResourceSpec) Subset(other map[string]struct{}) bool {
	for c := range s.Capabilities {
		if _, ok := other[c]; !ok {
			return false
		}
	}
	return true
}

func unionCaps(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for c := range a {
		out[c] = struct{}{}
	}
	for c := range b {
		out[c] = struct{}{}
	}
	return out
}

// ResourceClaim is an immutable collection of ResourceSpecs indexed by
// reference label. Grounded on resreq.py: ResourceClaim, including the
// merge semantics.
type ResourceClaim struct {
	specsByRef map[string]ResourceSpec
}

// NewResourceClaim builds a claim from a list of specs, last one wins per ref.
func NewResourceClaim(specs ...ResourceSpec) ResourceClaim {
	m := make(map[string]ResourceSpec, len(specs))
	for _, s := range specs {
		m[s.Ref] = s
	}
	return ResourceClaim{specsByRef: m}
}

// Len returns the number of specs in the claim.
func (c ResourceClaim) Len() int { return len(c.specsByRef) }

// Specs iterates the claim's specs in no particular order.
func (c ResourceClaim) Specs() []ResourceSpec {
	out := make([]ResourceSpec, 0, len(c.specsByRef))
	for _, s := range c.specsByRef {
		out = append(out, s)
	}
	return out
}

// SpecsOfType returns the specs in this claim requesting the given resource type.
func (c ResourceClaim) SpecsOfType(typeName string) []ResourceSpec {
	var out []ResourceSpec
	for _, s := range c.specsByRef {
		if s.Type == typeName {
			out = append(out, s)
		}
	}
	return out
}

// Get returns the spec with the given reference, if any.
func (c ResourceClaim) Get(ref string) (ResourceSpec, bool) {
	s, ok := c.specsByRef[ref]
	return s, ok
}

// Merge returns a new claim containing the specs of c and other. Specs
// sharing a reference have their capabilities unioned when the resource
// type matches; otherwise the spec from other overrides the one from c.
func (c ResourceClaim) Merge(other ResourceClaim) ResourceClaim {
	merged := make(map[string]ResourceSpec, len(c.specsByRef)+len(other.specsByRef))
	for ref, s := range c.specsByRef {
		merged[ref] = s
	}
	for ref, s := range other.specsByRef {
		ours, ok := merged[ref]
		if !ok {
			merged[ref] = s
			continue
		}
		if ours.Type == s.Type {
			merged[ref] = ResourceSpec{
				Ref:          ref,
				Type:         s.Type,
				Capabilities: unionCaps(ours.Capabilities, s.Capabilities),
			}
		} else {
			merged[ref] = s
		}
	}
	return ResourceClaim{specsByRef: merged}
}

// EnsureTaskRunnerSpec returns the claim unchanged if it already has an
// SF_TR spec; otherwise it returns a copy with an SF_TR spec of the
// task-runner type and no required capabilities added. The concrete runner
// is not part of the claim — it is passed out of band by Broker.Reserve.
func (c ResourceClaim) EnsureTaskRunnerSpec() ResourceClaim {
	if _, ok := c.specsByRef[TaskRunnerRef]; ok {
		return c
	}
	merged := make(map[string]ResourceSpec, len(c.specsByRef)+1)
	for ref, s := range c.specsByRef {
		merged[ref] = s
	}
	merged[TaskRunnerRef] = NewResourceSpec(TaskRunnerRef, TaskRunnerResType, nil)
	return ResourceClaim{specsByRef: merged}
}
