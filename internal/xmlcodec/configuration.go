package xmlcodec

import (
	"encoding/xml"

	"github.com/cloud-scan/controlcenter/internal/domain"
)

type configTaskXML struct {
	XMLName        xml.Name   `xml:"task"`
	Name           string     `xml:"name,attr"`
	TaskDefID      string     `xml:"taskdefid,attr"`
	Priority       int        `xml:"priority,attr,omitempty"`
	AllowedRunners []string   `xml:"allowedrunner"`
	Params         []paramXML `xml:"param"`
}

type localAgentXML struct {
	Product string `xml:"product,attr"`
	Runner  string `xml:"runner,attr"`
}

type inputLocatorXML struct {
	Product string `xml:"product,attr"`
	Locator string `xml:"value,attr"`
}

type tagXML struct {
	Key    string   `xml:"key,attr"`
	Values []string `xml:"value"`
}

func encodeTags(m map[string][]string) []tagXML {
	out := make([]tagXML, 0, len(m))
	for k, vs := range m {
		out = append(out, tagXML{Key: k, Values: vs})
	}
	return out
}

func decodeTags(in []tagXML) map[string][]string {
	out := make(map[string][]string, len(in))
	for _, t := range in {
		out[t.Key] = t.Values
	}
	return out
}

// ConfigurationXML is the wire shape of a domain.Configuration.
type ConfigurationXML struct {
	XMLName        xml.Name          `xml:"configuration"`
	ID             string            `xml:"id,attr"`
	Owner          string            `xml:"owner,attr,omitempty"`
	Comment        string            `xml:"comment,attr,omitempty"`
	Target         string            `xml:"target,attr,omitempty"`
	AllowedRunners []string          `xml:"allowedrunner"`
	Tags           []tagXML          `xml:"tag"`
	JobParams      []paramXML        `xml:"param"`
	LocalAgents    []localAgentXML   `xml:"localagent"`
	InputLocators  []inputLocatorXML `xml:"inputlocator"`
	Tasks          []configTaskXML   `xml:"task"`
}

func EncodeConfiguration(c *domain.Configuration) ConfigurationXML {
	w := ConfigurationXML{
		ID: c.ID, Owner: c.Owner, Comment: c.Comment, Target: c.Target,
		Tags: encodeTags(c.Tags), JobParams: encodeParams(c.JobParams),
	}
	for ref := range c.AllowedRunners {
		w.AllowedRunners = append(w.AllowedRunners, ref)
	}
	for product, runner := range c.LocalAgents {
		w.LocalAgents = append(w.LocalAgents, localAgentXML{Product: product, Runner: runner})
	}
	for product, loc := range c.InputLocators {
		w.InputLocators = append(w.InputLocators, inputLocatorXML{Product: product, Locator: loc})
	}
	for _, t := range c.Tasks {
		tw := configTaskXML{
			Name: t.Name, TaskDefID: t.TaskDefID, Priority: t.Priority,
			Params: encodeParams(t.Params),
		}
		for ref := range t.AllowedRunners {
			tw.AllowedRunners = append(tw.AllowedRunners, ref)
		}
		w.Tasks = append(w.Tasks, tw)
	}
	return w
}

func DecodeConfiguration(w ConfigurationXML) *domain.Configuration {
	c := &domain.Configuration{
		ID: w.ID, Owner: w.Owner, Comment: w.Comment, Target: w.Target,
		Tags:           decodeTags(w.Tags),
		JobParams:      decodeParams(w.JobParams),
		AllowedRunners: make(map[string]struct{}, len(w.AllowedRunners)),
		LocalAgents:    make(map[string]string, len(w.LocalAgents)),
		InputLocators:  make(map[string]string, len(w.InputLocators)),
		Tasks:          make(map[string]domain.ConfigTask, len(w.Tasks)),
	}
	for _, ref := range w.AllowedRunners {
		c.AllowedRunners[ref] = struct{}{}
	}
	for _, la := range w.LocalAgents {
		c.LocalAgents[la.Product] = la.Runner
	}
	for _, il := range w.InputLocators {
		c.InputLocators[il.Product] = il.Locator
	}
	for _, tw := range w.Tasks {
		t := domain.ConfigTask{
			Name: tw.Name, TaskDefID: tw.TaskDefID, Priority: tw.Priority,
			Params:         decodeParams(tw.Params),
			AllowedRunners: make(map[string]struct{}, len(tw.AllowedRunners)),
		}
		for _, ref := range tw.AllowedRunners {
			t.AllowedRunners[ref] = struct{}{}
		}
		c.Tasks[t.Name] = t
	}
	return c
}
