package domain

// Framework is a reusable execution template. Parameters
// inherit from a singleton top-level Defaults object maintained by
// internal/definitions.Graph; Framework itself only stores what it
// declares directly.
type Framework struct {
	ID        string
	Version   string // content-addressed version key, pinned by jobs/tasks
	Inputs    []string
	Outputs   []string
	Params    ParamMap
	Claim     ResourceClaim
	Wrapper   string
	Extractor bool
}

// TaskDef binds a name to a parent Framework and overrides/adds
// parameters, tags and resource claim additions.
type TaskDef struct {
	ID       string
	Version  string // content-addressed version key
	Parent   string // Framework.ID
	Params   ParamMap
	Tags     map[string][]string
	Claim    ResourceClaim // additions only; merge with the framework's claim happens in definitions.Graph
}
