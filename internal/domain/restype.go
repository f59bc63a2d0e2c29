package domain

// ResType is resource type metadata. Grounded on
// original_source/src/softfab/restypelib.py: ResType.
type ResType struct {
	Name        string `xml:"name,attr"`
	PerTask     bool   `xml:"pertask,attr"` // per-task-exclusive
	PerJob      bool   `xml:"perjob,attr"`  // per-job-exclusive
	Description string `xml:"description"`

	// K8sProvisionable marks a type whose resources can be created as
	// Kubernetes Jobs by internal/provisioner. Nothing reads this flag to
	// start provisioning automatically; Spawn runs only when called.
	K8sProvisionable bool `xml:"k8sProvisionable,attr"`
}

// PresentationName mirrors restypelib.py's special-casing of the two
// reserved, "sf."-prefixed type names.
func (r ResType) PresentationName() string {
	switch r.Name {
	case TaskRunnerResType:
		return "Task Runner"
	case RepositoryResType:
		return "Repository"
	default:
		return r.Name
	}
}

// ReservedResTypes returns the two resource types that always exist,
// bootstrapped into the ResType store on first load if absent.
func ReservedResTypes() []ResType {
	return []ResType{
		{
			Name:        TaskRunnerResType,
			PerTask:     true,
			PerJob:      false,
			Description: "Task execution agent",
		},
		{
			Name:        RepositoryResType,
			PerTask:     false,
			PerJob:      false,
			Description: "Version control repository",
		},
	}
}
