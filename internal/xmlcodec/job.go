package xmlcodec

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/cloud-scan/controlcenter/internal/domain"
)

type runXML struct {
	XMLName     xml.Name `xml:"run"`
	ID          string   `xml:"id,attr"`
	RunnerID    string   `xml:"runnerid,attr,omitempty"`
	State       string   `xml:"state,attr"`
	Result      string   `xml:"result,attr,omitempty"`
	StartTime   string   `xml:"starttime,attr,omitempty"`
	StopTime    string   `xml:"stoptime,attr,omitempty"`
	Summary     string   `xml:"summary,attr,omitempty"`
	ReportURL   string   `xml:"reporturl,attr,omitempty"`
	Alert       bool     `xml:"alert,attr,omitempty"`
	ShadowRunID string   `xml:"shadowrun,attr,omitempty"`
}

func encodeRun(r *domain.TaskRun) runXML {
	w := runXML{
		ID: string(r.ID), RunnerID: r.RunnerID, State: string(r.State),
		Result: string(r.Result), Summary: r.Summary, ReportURL: r.ReportURL,
		Alert: r.Alert, ShadowRunID: string(r.ShadowRunID),
	}
	if !r.StartTime.IsZero() {
		w.StartTime = r.StartTime.Format(timeLayout)
	}
	if !r.StopTime.IsZero() {
		w.StopTime = r.StopTime.Format(timeLayout)
	}
	return w
}

func decodeRun(w runXML) *domain.TaskRun {
	r := &domain.TaskRun{
		ID: domain.RunID(w.ID), RunnerID: w.RunnerID, State: domain.RunState(w.State),
		Result: domain.Result(w.Result), Summary: w.Summary, ReportURL: w.ReportURL,
		Alert: w.Alert, ShadowRunID: domain.RunID(w.ShadowRunID),
	}
	if w.StartTime != "" {
		r.StartTime, _ = time.Parse(timeLayout, w.StartTime)
	}
	if w.StopTime != "" {
		r.StopTime, _ = time.Parse(timeLayout, w.StopTime)
	}
	return r
}

type taskXML struct {
	XMLName        xml.Name   `xml:"task"`
	Name           string     `xml:"name,attr"`
	TaskDefID      string     `xml:"taskdefid,attr"`
	TaskDefVersion string     `xml:"taskdefversion,attr,omitempty"`
	FrameworkID    string     `xml:"frameworkid,attr,omitempty"`
	FrameworkVer   string     `xml:"frameworkversion,attr,omitempty"`
	Priority       int        `xml:"priority,attr,omitempty"`
	InsertOrder    int        `xml:"order,attr"`
	AllowedRunners []string   `xml:"allowedrunner"`
	Params         []paramXML `xml:"param"`
	Claim          claimXML   `xml:"resources"`
	Runs           []runXML   `xml:"run"`
}

func encodeTask(t *domain.Task) taskXML {
	w := taskXML{
		Name: t.Name, TaskDefID: t.TaskDefID, TaskDefVersion: t.TaskDefVersion,
		FrameworkID: t.FrameworkID, FrameworkVer: t.FrameworkVer,
		Priority: t.Priority, InsertOrder: t.InsertionOrder,
		Params: encodeParams(t.Params), Claim: EncodeClaim(t.Claim),
	}
	for ref := range t.AllowedRunners {
		w.AllowedRunners = append(w.AllowedRunners, ref)
	}
	for _, r := range t.Runs {
		w.Runs = append(w.Runs, encodeRun(r))
	}
	return w
}

func decodeTask(w taskXML) (*domain.Task, error) {
	claim, err := DecodeClaim(w.Claim)
	if err != nil {
		return nil, err
	}
	t := &domain.Task{
		Name: w.Name, TaskDefID: w.TaskDefID, TaskDefVersion: w.TaskDefVersion,
		FrameworkID: w.FrameworkID, FrameworkVer: w.FrameworkVer,
		Priority: w.Priority, InsertionOrder: w.InsertOrder,
		Params: decodeParams(w.Params), Claim: claim,
		AllowedRunners: make(map[string]struct{}, len(w.AllowedRunners)),
	}
	for _, ref := range w.AllowedRunners {
		t.AllowedRunners[ref] = struct{}{}
	}
	for _, rw := range w.Runs {
		t.Runs = append(t.Runs, decodeRun(rw))
	}
	return t, nil
}

type productXML struct {
	XMLName        xml.Name          `xml:"product"`
	Name           string            `xml:"name,attr"`
	Type           string            `xml:"type,attr"`
	State          string            `xml:"state,attr"`
	Local          bool              `xml:"local,attr,omitempty"`
	AgentID        string            `xml:"agentid,attr,omitempty"`
	DefaultLocator string            `xml:"defaultlocator,attr,omitempty"`
	Producers      []string          `xml:"producer"`
	Locators       []productLocator  `xml:"locator"`
}

type productLocator struct {
	Task    string `xml:"task,attr"`
	Locator string `xml:"value,attr"`
}

func encodeProduct(p *domain.Product) productXML {
	w := productXML{
		Name: p.Name, Type: string(p.Type), State: string(p.State),
		Local: p.Local, AgentID: p.AgentID, DefaultLocator: p.DefaultLocator,
		Producers: p.Producers,
	}
	for task, loc := range p.Locators {
		w.Locators = append(w.Locators, productLocator{Task: task, Locator: loc})
	}
	return w
}

func decodeProduct(w productXML) *domain.Product {
	p := &domain.Product{
		Name: w.Name, Type: domain.ProductType(w.Type), State: domain.ProductState(w.State),
		Local: w.Local, AgentID: w.AgentID, DefaultLocator: w.DefaultLocator,
		Producers: w.Producers, Locators: make(map[string]string, len(w.Locators)),
	}
	for _, l := range w.Locators {
		p.Locators[l.Task] = l.Locator
	}
	return p
}

// JobXML is the wire shape of a domain.Job.
type JobXML struct {
	XMLName        xml.Name     `xml:"job"`
	ID             string       `xml:"id,attr"`
	ConfigID       string       `xml:"configid,attr,omitempty"`
	ScheduleID     string       `xml:"scheduleid,attr,omitempty"`
	Owner          string       `xml:"owner,attr,omitempty"`
	Comment        string       `xml:"comment,attr,omitempty"`
	Target         string       `xml:"target,attr,omitempty"`
	CreateTime     string       `xml:"createtime,attr"`
	FinishedTime   string       `xml:"finishedtime,attr,omitempty"`
	AllowedRunners []string     `xml:"allowedrunner"`
	Params         []paramXML   `xml:"param"`
	Tasks          []taskXML    `xml:"task"`
	Products       []productXML `xml:"product"`
}

func EncodeJob(j *domain.Job) JobXML {
	w := JobXML{
		ID: string(j.ID), ConfigID: j.ConfigID, ScheduleID: j.ScheduleID,
		Owner: j.Owner, Comment: j.Comment, Target: j.Target,
		CreateTime: j.CreateTime.Format(timeLayout),
		Params:     encodeParams(j.Params),
	}
	if !j.FinishedTime.IsZero() {
		w.FinishedTime = j.FinishedTime.Format(timeLayout)
	}
	for ref := range j.AllowedRunners {
		w.AllowedRunners = append(w.AllowedRunners, ref)
	}
	for _, name := range j.TaskOrder {
		if t, ok := j.Tasks[name]; ok {
			w.Tasks = append(w.Tasks, encodeTask(t))
		}
	}
	for _, p := range j.Products {
		w.Products = append(w.Products, encodeProduct(p))
	}
	return w
}

func DecodeJob(w JobXML) (*domain.Job, error) {
	j := domain.NewJob(domain.JobID(w.ID), w.ConfigID, w.Owner, w.Target, decodeParams(w.Params))
	j.ScheduleID = w.ScheduleID
	j.Comment = w.Comment
	if t, err := time.Parse(timeLayout, w.CreateTime); err == nil {
		j.CreateTime = t
	}
	if w.FinishedTime != "" {
		if t, err := time.Parse(timeLayout, w.FinishedTime); err == nil {
			j.FinishedTime = t
		}
	}
	for _, ref := range w.AllowedRunners {
		j.AllowedRunners[ref] = struct{}{}
	}
	for _, tw := range w.Tasks {
		t, err := decodeTask(tw)
		if err != nil {
			return nil, fmt.Errorf("job %s: task %s: %w", w.ID, tw.Name, err)
		}
		j.Tasks[t.Name] = t
		j.TaskOrder = append(j.TaskOrder, t.Name)
	}
	for _, pw := range w.Products {
		p := decodeProduct(pw)
		j.Products[p.Name] = p
	}
	return j, nil
}
