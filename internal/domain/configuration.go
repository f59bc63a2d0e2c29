package domain

// ConfigTask is one task entry within a Configuration: a reference to a
// TaskDef plus parameter overrides and an optional per-task runner
// restriction.
type ConfigTask struct {
	Name           string
	TaskDefID      string
	Params         ParamMap
	AllowedRunners map[string]struct{} // empty set = inherit the configuration's
	Priority       int
}

// Configuration is a named, reusable set of tasks plus parameter
// overrides that can be instantiated into a Job.
type Configuration struct {
	ID      string
	Tasks   map[string]ConfigTask
	Owner   string
	Comment string
	Target  string // required capability, empty = none
	Tags    map[string][]string

	JobParams      ParamMap
	AllowedRunners map[string]struct{} // per-job restriction, empty = unrestricted

	// LocalAgents binds an input product name marked Local in its
	// ProductDef to the task-runner id that must produce it (spec 
	// step 4: "for local products not yet DONE, record the task-runner id
	// provided by the configuration").
	LocalAgents map[string]string

	// InputLocators supplies a locator for an external (non-local) input
	// product up front, satisfying "valid inputs".
	InputLocators map[string]string
}

// HasValidInputs reports whether every external input product has a
// locator (or is a TOKEN) and every local input has an assigned agent, as
// required before a schedule may instantiate this configuration.
// inputTypes maps product name to its declared type/local flag.
func (c *Configuration) HasValidInputs(inputTypes map[string]ProductDef) bool {
	for name, def := range inputTypes {
		if def.Type == ProductToken {
			continue
		}
		if def.Local {
			if _, ok := c.LocalAgents[name]; !ok {
				return false
			}
			continue
		}
		if _, ok := c.InputLocators[name]; !ok {
			return false
		}
	}
	return true
}
