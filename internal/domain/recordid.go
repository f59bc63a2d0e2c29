package domain

// RecordID identifies each persisted entity by its natural key, satisfying
// internal/store.Record so every domain type can be stored without the
// store package knowing its shape.

func (p ProductDef) RecordID() string     { return p.ID }
func (r *Resource) RecordID() string      { return r.ID }
func (t *TaskRunner) RecordID() string    { return t.ID }
func (t ResType) RecordID() string        { return t.Name }
func (f *Framework) RecordID() string     { return f.ID }
func (t *TaskDef) RecordID() string       { return t.ID }
func (c *Configuration) RecordID() string { return c.ID }
func (j *Job) RecordID() string           { return string(j.ID) }
func (s *Schedule) RecordID() string      { return s.ID }
func (t *Token) RecordID() string         { return t.ID }
