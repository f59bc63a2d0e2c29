package xmlcodec

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/cloud-scan/controlcenter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeScheduleRoundTrips(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	s := &domain.Schedule{
		ID: "sched-1", Owner: "alice", Suspended: true, ConfigID: "cfg-1",
		TagFilter: "env=prod", Comment: "nightly", Repeat: domain.RepeatWeekly,
		StartTime: now, DaysOfWeek: domain.Monday | domain.Friday,
		MinDelay: 90 * time.Second, TriggerFired: true, LastStartTime: now,
		LastJobIDs: []domain.JobID{"job-1", "job-2"}, Done: true,
		Tags: map[string][]string{"team": {"infra"}},
	}

	buf, err := xml.Marshal(EncodeSchedule(s))
	require.NoError(t, err)
	var w ScheduleXML
	require.NoError(t, xml.Unmarshal(buf, &w))

	got := DecodeSchedule(w)
	assert.Equal(t, s.ID, got.ID)
	assert.True(t, got.Suspended)
	assert.Equal(t, s.Repeat, got.Repeat)
	assert.Equal(t, s.StartTime, got.StartTime)
	assert.Equal(t, s.DaysOfWeek, got.DaysOfWeek)
	assert.Equal(t, 90*time.Second, got.MinDelay)
	assert.True(t, got.Done)
	assert.Equal(t, []domain.JobID{"job-1", "job-2"}, got.LastJobIDs)
	assert.Equal(t, []string{"infra"}, got.Tags["team"])
}

func TestEncodeDecodeTokenRoundTrips(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	expires := now.Add(time.Hour)
	tok := &domain.Token{
		ID: "tok-1", Role: domain.TokenResource, Secret: "hashed-secret",
		Owner: "alice", CreateTime: now, Expires: expires,
		Params: domain.ParamMap{"scope": {Value: "resource"}},
	}

	buf, err := xml.Marshal(EncodeToken(tok))
	require.NoError(t, err)
	var w TokenXML
	require.NoError(t, xml.Unmarshal(buf, &w))

	got := DecodeToken(w)
	assert.Equal(t, tok.ID, got.ID)
	assert.Equal(t, tok.Role, got.Role)
	assert.Equal(t, tok.Secret, got.Secret)
	assert.Equal(t, now, got.CreateTime)
	assert.Equal(t, expires, got.Expires)
	assert.Equal(t, "resource", got.Params["scope"].Value)
}

func TestEncodeDecodeTokenWithoutExpiryStaysZero(t *testing.T) {
	tok := &domain.Token{ID: "tok-1", Role: domain.TokenPasswordReset, CreateTime: time.Now().Truncate(time.Second)}
	got := DecodeToken(EncodeToken(tok))
	assert.True(t, got.Expires.IsZero())
}
