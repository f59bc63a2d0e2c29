package xmlcodec

import (
	"encoding/xml"
	"time"

	"github.com/cloud-scan/controlcenter/internal/domain"
)

// ScheduleXML is the wire shape of a domain.Schedule.
type ScheduleXML struct {
	XMLName       xml.Name `xml:"schedule"`
	ID            string   `xml:"id,attr"`
	Owner         string   `xml:"owner,attr,omitempty"`
	Suspended     bool     `xml:"suspended,attr,omitempty"`
	ConfigID      string   `xml:"configid,attr,omitempty"`
	TagFilter     string   `xml:"tagfilter,attr,omitempty"`
	Comment       string   `xml:"comment,attr,omitempty"`
	Repeat        string   `xml:"repeat,attr"`
	StartTime     string   `xml:"starttime,attr,omitempty"`
	DaysOfWeek    int      `xml:"daysofweek,attr,omitempty"`
	MinDelaySecs  int64    `xml:"mindelay,attr,omitempty"`
	TriggerFired  bool     `xml:"triggerfired,attr,omitempty"`
	LastStartTime string   `xml:"laststarttime,attr,omitempty"`
	LastJobIDs    []string `xml:"lastjob"`
	Done          bool     `xml:"done,attr,omitempty"`
	Tags          []tagXML `xml:"tag"`
}

func EncodeSchedule(s *domain.Schedule) ScheduleXML {
	w := ScheduleXML{
		ID: s.ID, Owner: s.Owner, Suspended: s.Suspended, ConfigID: s.ConfigID,
		TagFilter: s.TagFilter, Comment: s.Comment, Repeat: string(s.Repeat),
		DaysOfWeek: int(s.DaysOfWeek), MinDelaySecs: int64(s.MinDelay / time.Second),
		TriggerFired: s.TriggerFired, Done: s.Done, Tags: encodeTags(s.Tags),
	}
	if !s.StartTime.IsZero() {
		w.StartTime = s.StartTime.Format(timeLayout)
	}
	if !s.LastStartTime.IsZero() {
		w.LastStartTime = s.LastStartTime.Format(timeLayout)
	}
	for _, id := range s.LastJobIDs {
		w.LastJobIDs = append(w.LastJobIDs, string(id))
	}
	return w
}

func DecodeSchedule(w ScheduleXML) *domain.Schedule {
	s := &domain.Schedule{
		ID: w.ID, Owner: w.Owner, Suspended: w.Suspended, ConfigID: w.ConfigID,
		TagFilter: w.TagFilter, Comment: w.Comment, Repeat: domain.RepeatKind(w.Repeat),
		DaysOfWeek: domain.Weekday(w.DaysOfWeek), MinDelay: time.Duration(w.MinDelaySecs) * time.Second,
		TriggerFired: w.TriggerFired, Done: w.Done, Tags: decodeTags(w.Tags),
	}
	if w.StartTime != "" {
		s.StartTime, _ = time.Parse(timeLayout, w.StartTime)
	}
	if w.LastStartTime != "" {
		s.LastStartTime, _ = time.Parse(timeLayout, w.LastStartTime)
	}
	for _, id := range w.LastJobIDs {
		s.LastJobIDs = append(s.LastJobIDs, domain.JobID(id))
	}
	return s
}

// TokenXML is the wire shape of a domain.Token.
type TokenXML struct {
	XMLName    xml.Name   `xml:"token"`
	ID         string     `xml:"id,attr"`
	Role       string     `xml:"role,attr"`
	Secret     string     `xml:"secret,attr"`
	Owner      string     `xml:"owner,attr,omitempty"`
	CreateTime string     `xml:"createtime,attr"`
	Expires    string     `xml:"expires,attr,omitempty"`
	Params     []paramXML `xml:"param"`
}

func EncodeToken(t *domain.Token) TokenXML {
	w := TokenXML{
		ID: t.ID, Role: string(t.Role), Secret: t.Secret, Owner: t.Owner,
		CreateTime: t.CreateTime.Format(timeLayout), Params: encodeParams(t.Params),
	}
	if !t.Expires.IsZero() {
		w.Expires = t.Expires.Format(timeLayout)
	}
	return w
}

func DecodeToken(w TokenXML) *domain.Token {
	t := &domain.Token{
		ID: w.ID, Role: domain.TokenRole(w.Role), Secret: w.Secret, Owner: w.Owner,
		Params: decodeParams(w.Params),
	}
	if w.CreateTime != "" {
		t.CreateTime, _ = time.Parse(timeLayout, w.CreateTime)
	}
	if w.Expires != "" {
		t.Expires, _ = time.Parse(timeLayout, w.Expires)
	}
	return t
}
