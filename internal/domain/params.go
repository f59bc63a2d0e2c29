package domain

import "strings"

// ParamValue is one parameter entry: a value plus whether child definitions
// are forbidden from overriding it.
type ParamValue struct {
	Value string
	Final bool
}

// ParamMap is a flat parameter dictionary with per-entry final flags.
type ParamMap map[string]ParamValue

// Clone returns a shallow copy safe to mutate independently.
func (m ParamMap) Clone() ParamMap {
	out := make(ParamMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ReservedParamPrefix marks names reserved for the system; they are always
// final regardless of how they were declared ("sf." names are reserved
// and always final — wrapper, extractor, timeout, summary).
const ReservedParamPrefix = "sf."

// IsReservedParam reports whether name falls in the system-reserved
// namespace and is therefore unconditionally final.
func IsReservedParam(name string) bool {
	return strings.HasPrefix(name, ReservedParamPrefix)
}
