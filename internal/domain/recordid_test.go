package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordIDReturnsNaturalKey(t *testing.T) {
	assert.Equal(t, "prod-1", ProductDef{ID: "prod-1"}.RecordID())
	assert.Equal(t, "res-1", (&Resource{ID: "res-1"}).RecordID())
	assert.Equal(t, "tr-1", (&TaskRunner{Resource: Resource{ID: "tr-1"}}).RecordID())
	assert.Equal(t, "gpu", ResType{Name: "gpu"}.RecordID())
	assert.Equal(t, "fw-1", (&Framework{ID: "fw-1"}).RecordID())
	assert.Equal(t, "td-1", (&TaskDef{ID: "td-1"}).RecordID())
	assert.Equal(t, "cfg-1", (&Configuration{ID: "cfg-1"}).RecordID())
	assert.Equal(t, "job-1", (&Job{ID: JobID("job-1")}).RecordID())
	assert.Equal(t, "sched-1", (&Schedule{ID: "sched-1"}).RecordID())
	assert.Equal(t, "tok-1", (&Token{ID: "tok-1"}).RecordID())
}
