package store

import (
	"encoding/xml"
	"fmt"

	"github.com/cloud-scan/controlcenter/internal/domain"
	"github.com/cloud-scan/controlcenter/internal/xmlcodec"
)

// NewResourceStore opens the resource record store rooted at dir.
func NewResourceStore(dir string) (*Store[*domain.Resource], error) {
	return New[*domain.Resource](dir, Codec[*domain.Resource]{
		ToWire: func(r *domain.Resource) any { return xmlcodec.EncodeResource(r) },
		FromWire: func(data []byte) (*domain.Resource, error) {
			var w xmlcodec.ResourceXML
			if err := xml.Unmarshal(data, &w); err != nil {
				return nil, fmt.Errorf("unmarshal resource: %w", err)
			}
			return xmlcodec.DecodeResource(w), nil
		},
	})
}

// NewTaskRunnerStore opens the task-runner record store rooted at dir.
func NewTaskRunnerStore(dir string) (*Store[*domain.TaskRunner], error) {
	return New[*domain.TaskRunner](dir, Codec[*domain.TaskRunner]{
		ToWire: func(t *domain.TaskRunner) any { return xmlcodec.EncodeTaskRunner(t) },
		FromWire: func(data []byte) (*domain.TaskRunner, error) {
			var w xmlcodec.TaskRunnerXML
			if err := xml.Unmarshal(data, &w); err != nil {
				return nil, fmt.Errorf("unmarshal taskrunner: %w", err)
			}
			return xmlcodec.DecodeTaskRunner(w), nil
		},
	})
}

// NewResTypeStore opens the resource-type record store rooted at dir. On
// first load, callers must call EnsureReserved to bootstrap sf.tr/sf.repo
// if the store came up empty.
func NewResTypeStore(dir string) (*Store[domain.ResType], error) {
	return New[domain.ResType](dir, Codec[domain.ResType]{
		ToWire: func(t domain.ResType) any { return xmlcodec.EncodeResType(t) },
		FromWire: func(data []byte) (domain.ResType, error) {
			var w xmlcodec.ResTypeXML
			if err := xml.Unmarshal(data, &w); err != nil {
				return domain.ResType{}, fmt.Errorf("unmarshal restype: %w", err)
			}
			return xmlcodec.DecodeResType(w), nil
		},
	})
}

// EnsureReserved writes the two reserved resource types if they are not
// already present, idempotently.
func EnsureReserved(s *Store[domain.ResType]) error {
	for _, rt := range domain.ReservedResTypes() {
		if _, ok := s.Get(rt.Name); ok {
			continue
		}
		if err := s.Put(rt); err != nil {
			return fmt.Errorf("store: bootstrapping reserved restype %s: %w", rt.Name, err)
		}
	}
	return nil
}

// NewProductDefStore opens the product-definition record store rooted at dir.
func NewProductDefStore(dir string) (*Store[domain.ProductDef], error) {
	return New[domain.ProductDef](dir, Codec[domain.ProductDef]{
		ToWire: func(p domain.ProductDef) any { return xmlcodec.EncodeProductDef(p) },
		FromWire: func(data []byte) (domain.ProductDef, error) {
			var w xmlcodec.ProductDefXML
			if err := xml.Unmarshal(data, &w); err != nil {
				return domain.ProductDef{}, fmt.Errorf("unmarshal productdef: %w", err)
			}
			return xmlcodec.DecodeProductDef(w), nil
		},
	})
}

// NewFrameworkStore opens the framework record store rooted at dir.
func NewFrameworkStore(dir string) (*Store[*domain.Framework], error) {
	return New[*domain.Framework](dir, Codec[*domain.Framework]{
		ToWire: func(f *domain.Framework) any { return xmlcodec.EncodeFramework(f) },
		FromWire: func(data []byte) (*domain.Framework, error) {
			var w xmlcodec.FrameworkXML
			if err := xml.Unmarshal(data, &w); err != nil {
				return nil, fmt.Errorf("unmarshal framework: %w", err)
			}
			return xmlcodec.DecodeFramework(w)
		},
	})
}

// NewTaskDefStore opens the task-definition record store rooted at dir.
func NewTaskDefStore(dir string) (*Store[*domain.TaskDef], error) {
	return New[*domain.TaskDef](dir, Codec[*domain.TaskDef]{
		ToWire: func(t *domain.TaskDef) any { return xmlcodec.EncodeTaskDef(t) },
		FromWire: func(data []byte) (*domain.TaskDef, error) {
			var w xmlcodec.TaskDefXML
			if err := xml.Unmarshal(data, &w); err != nil {
				return nil, fmt.Errorf("unmarshal taskdef: %w", err)
			}
			return xmlcodec.DecodeTaskDef(w)
		},
	})
}

// NewConfigurationStore opens the configuration record store rooted at dir.
func NewConfigurationStore(dir string) (*Store[*domain.Configuration], error) {
	return New[*domain.Configuration](dir, Codec[*domain.Configuration]{
		ToWire: func(c *domain.Configuration) any { return xmlcodec.EncodeConfiguration(c) },
		FromWire: func(data []byte) (*domain.Configuration, error) {
			var w xmlcodec.ConfigurationXML
			if err := xml.Unmarshal(data, &w); err != nil {
				return nil, fmt.Errorf("unmarshal configuration: %w", err)
			}
			return xmlcodec.DecodeConfiguration(w), nil
		},
	})
}

// NewJobStore opens the job record store rooted at dir. Jobs are the
// highest-churn record kind; Put is called on every state transition, so
// the store's atomic-write path is on the hot path for job execution.
func NewJobStore(dir string) (*Store[*domain.Job], error) {
	return New[*domain.Job](dir, Codec[*domain.Job]{
		ToWire: func(j *domain.Job) any { return xmlcodec.EncodeJob(j) },
		FromWire: func(data []byte) (*domain.Job, error) {
			var w xmlcodec.JobXML
			if err := xml.Unmarshal(data, &w); err != nil {
				return nil, fmt.Errorf("unmarshal job: %w", err)
			}
			return xmlcodec.DecodeJob(w)
		},
	})
}

// NewScheduleStore opens the schedule record store rooted at dir.
func NewScheduleStore(dir string) (*Store[*domain.Schedule], error) {
	return New[*domain.Schedule](dir, Codec[*domain.Schedule]{
		ToWire: func(s *domain.Schedule) any { return xmlcodec.EncodeSchedule(s) },
		FromWire: func(data []byte) (*domain.Schedule, error) {
			var w xmlcodec.ScheduleXML
			if err := xml.Unmarshal(data, &w); err != nil {
				return nil, fmt.Errorf("unmarshal schedule: %w", err)
			}
			return xmlcodec.DecodeSchedule(w), nil
		},
	})
}

// NewTokenStore opens the token record store rooted at dir.
func NewTokenStore(dir string) (*Store[*domain.Token], error) {
	return New[*domain.Token](dir, Codec[*domain.Token]{
		ToWire: func(t *domain.Token) any { return xmlcodec.EncodeToken(t) },
		FromWire: func(data []byte) (*domain.Token, error) {
			var w xmlcodec.TokenXML
			if err := xml.Unmarshal(data, &w); err != nil {
				return nil, fmt.Errorf("unmarshal token: %w", err)
			}
			return xmlcodec.DecodeToken(w), nil
		},
	})
}
