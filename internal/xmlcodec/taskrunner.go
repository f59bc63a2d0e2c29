package xmlcodec

import (
	"encoding/xml"
	"time"

	"github.com/cloud-scan/controlcenter/internal/domain"
)

// TaskRunnerXML is the wire shape of a domain.TaskRunner: the embedded
// Resource's attributes plus the runner-specific ones.
type TaskRunnerXML struct {
	XMLName      xml.Name        `xml:"taskrunner"`
	ID           string          `xml:"id,attr"`
	Locator      string          `xml:"locator,attr,omitempty"`
	Description  string          `xml:"description,attr,omitempty"`
	ReservedBy   string          `xml:"reservedby,attr,omitempty"`
	ChangedUser  string          `xml:"changeduser,attr,omitempty"`
	ChangedTime  string          `xml:"changedtime,attr,omitempty"`
	Suspended    bool            `xml:"suspended,attr,omitempty"`
	Capabilities []capabilityXML `xml:"capability"`
	LastSync     string          `xml:"lastsync,attr,omitempty"`
	RunningRunID string          `xml:"runningrun,attr,omitempty"`
	ShadowRunID  string          `xml:"shadowrun,attr,omitempty"`
	ExitOnIdle   bool            `xml:"exitonidle,attr,omitempty"`
	Version      string          `xml:"version,attr,omitempty"`
}

func EncodeTaskRunner(t *domain.TaskRunner) TaskRunnerXML {
	w := TaskRunnerXML{
		ID: t.ID, Locator: t.Locator, Description: t.Description,
		ReservedBy: t.ReservedBy, ChangedUser: t.ChangedUser, Suspended: t.Suspended,
		RunningRunID: string(t.RunningRunID), ShadowRunID: string(t.ShadowRunID),
		ExitOnIdle: t.ExitOnIdle, Version: t.Version,
	}
	if !t.ChangedTime.IsZero() {
		w.ChangedTime = t.ChangedTime.Format(timeLayout)
	}
	if !t.LastSync.IsZero() {
		w.LastSync = t.LastSync.Format(timeLayout)
	}
	for c := range t.Capabilities {
		w.Capabilities = append(w.Capabilities, capabilityXML{Name: c})
	}
	return w
}

func DecodeTaskRunner(w TaskRunnerXML) *domain.TaskRunner {
	t := &domain.TaskRunner{
		Resource: domain.Resource{
			ID: w.ID, Type: domain.TaskRunnerResType, Locator: w.Locator,
			Description: w.Description, ReservedBy: w.ReservedBy,
			ChangedUser: w.ChangedUser, Suspended: w.Suspended,
			Capabilities: make(map[string]struct{}, len(w.Capabilities)),
		},
		RunningRunID: domain.RunID(w.RunningRunID),
		ShadowRunID:  domain.RunID(w.ShadowRunID),
		ExitOnIdle:   w.ExitOnIdle,
		Version:      w.Version,
	}
	if w.ChangedTime != "" {
		t.ChangedTime, _ = time.Parse(timeLayout, w.ChangedTime)
	}
	if w.LastSync != "" {
		t.LastSync, _ = time.Parse(timeLayout, w.LastSync)
	}
	for _, c := range w.Capabilities {
		t.Capabilities[c.Name] = struct{}{}
	}
	return t
}
