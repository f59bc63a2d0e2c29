package broker

import (
	"math"
	"sort"

	"github.com/cloud-scan/controlcenter/internal/domain"
)

// ReasonKind classifies why a claim could not be (fully) satisfied, for the
// diagnostic "reason to wait" path.
type ReasonKind string

const (
	ResourceSpecReason  ReasonKind = "spec"  // a spec's type has no candidates at all
	ResourceTypeReason  ReasonKind = "type"  // more specs of a type than available resources
	ResourceCapsReason  ReasonKind = "caps"  // assignment failed the post-hoc capability check
)

// Reason explains one cause of a match failure or partial wait, ordered by
// the status level that would need to improve for it to resolve.
type Reason struct {
	Ref    string
	Type   string
	Kind   ReasonKind
	Status domain.StatusLevel
}

// Catalog is the read side the broker needs: every resource (including
// TaskRunners) known to the store, keyed by id. internal/projection and
// internal/store both satisfy this trivially; the broker only ever reads.
type Catalog interface {
	ResourcesOfType(resType string) []*domain.Resource
}

// classify partitions resources of a given type by status level.
// TaskRunners are looked up through runnerStatus so connection
// freshness (not just reservation) affects their level.
func classify(resources []*domain.Resource, runnerStatus func(id string) domain.ConnectionStatus) map[domain.StatusLevel][]*domain.Resource {
	out := make(map[domain.StatusLevel][]*domain.Resource)
	for _, r := range resources {
		level := r.StatusLevel()
		if level == domain.StatusFree && runnerStatus != nil {
			if cs := runnerStatus(r.ID); cs == domain.ConnectionLost {
				level = domain.StatusLost
			}
		}
		out[level] = append(out[level], r)
	}
	return out
}

const infeasible = math.MaxFloat64 / 2

// buildCostMatrix returns the cost matrix for specs against candidates of
// their shared type: cost[i][j] is candidates[j].Cost() if candidates[j]
// satisfies specs[i], else an effectively-infinite penalty (sum(cost)+1,
// to stay finite while still dominating any real assignment).
func buildCostMatrix(specs []domain.ResourceSpec, candidates []*domain.Resource) [][]float64 {
	sum := 0
	for _, c := range candidates {
		sum += c.Cost()
	}
	penalty := float64(sum + 1)
	m := make([][]float64, len(specs))
	for i, s := range specs {
		m[i] = make([]float64, len(candidates))
		for j, c := range candidates {
			if s.Subset(c.Capabilities) {
				m[i][j] = float64(c.Cost())
			} else {
				m[i][j] = penalty
			}
		}
	}
	return m
}

// MatchResult is the outcome of a single Match call.
type MatchResult struct {
	Assignment map[string]*domain.Resource // spec ref -> resource, only set on success
	Reasons    []Reason                    // diagnostic reasons, only populated when requested
}

// Match attempts to satisfy claim using only FREE resources.
// runnerStatus may be nil when claim contains no SF_TR spec.
func Match(claim domain.ResourceClaim, catalog Catalog, runnerStatus func(id string) domain.ConnectionStatus, diagnose bool) MatchResult {
	result := MatchResult{Assignment: make(map[string]*domain.Resource)}

	byType := make(map[string][]domain.ResourceSpec)
	for _, s := range claim.Specs() {
		byType[s.Type] = append(byType[s.Type], s)
	}

	for resType, specs := range byType {
		sort.Slice(specs, func(i, j int) bool { return specs[i].Ref < specs[j].Ref })

		all := catalog.ResourcesOfType(resType)
		levels := classify(all, runnerStatus)
		free := levels[domain.StatusFree]

		if len(free) == 0 {
			result.Reasons = append(result.Reasons, Reason{Type: resType, Kind: ResourceSpecReason, Status: domain.StatusFree})
			if !diagnose {
				return MatchResult{}
			}
			continue
		}
		if len(specs) > len(free) {
			result.Reasons = append(result.Reasons, Reason{Type: resType, Kind: ResourceTypeReason, Status: domain.StatusFree})
			if !diagnose {
				return MatchResult{}
			}
			continue
		}

		sort.Slice(free, func(i, j int) bool {
			if free[i].Cost() != free[j].Cost() {
				return free[i].Cost() < free[j].Cost()
			}
			return free[i].ID < free[j].ID
		})

		cost := buildCostMatrix(specs, free)
		assign := hungarianAssign(cost)

		for i, s := range specs {
			j := assign[i]
			if j < 0 || j >= len(free) || cost[i][j] >= infeasible {
				result.Reasons = append(result.Reasons, Reason{Ref: s.Ref, Type: resType, Kind: ResourceCapsReason, Status: domain.StatusFree})
				if !diagnose {
					return MatchResult{}
				}
				continue
			}
			r := free[j]
			if !s.Subset(r.Capabilities) {
				result.Reasons = append(result.Reasons, Reason{Ref: s.Ref, Type: resType, Kind: ResourceCapsReason, Status: domain.StatusFree})
				if !diagnose {
					return MatchResult{}
				}
				continue
			}
			result.Assignment[s.Ref] = r
		}
	}

	if len(result.Reasons) > 0 && !diagnose {
		return MatchResult{}
	}
	sort.Slice(result.Reasons, func(i, j int) bool { return result.Reasons[i].Status < result.Reasons[j].Status })
	return result
}
