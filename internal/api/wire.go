// Package api implements the three HTTP endpoints (agent sync, result
// report, webhook), with net/http middleware providing request-scoped
// logging and panic recovery. The CLI does not go through this package.
package api

import (
	"encoding/xml"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// capabilityXML mirrors <capability name="..."/>.
type capabilityXML struct {
	Name string `xml:"name,attr" validate:"required"`
}

// runRefXML mirrors <run jobId="..." taskId="..." runId="..."/>.
type runRefXML struct {
	JobID  string `xml:"jobId,attr" validate:"required"`
	TaskID string `xml:"taskId,attr" validate:"required"`
	RunID  string `xml:"runId,attr" validate:"required"`
}

// shadowRefXML mirrors <shadowrun shadowId="..."/>.
type shadowRefXML struct {
	ShadowID string `xml:"shadowId,attr" validate:"required"`
}

// syncRequestXML is the wire shape of agent sync <request>.
type syncRequestXML struct {
	XMLName       xml.Name        `xml:"request"`
	RunnerID      string          `xml:"runnerId,attr" validate:"required"`
	RunnerVersion string          `xml:"runnerVersion,attr"`
	Target        *struct {
		Name string `xml:"name,attr"`
	} `xml:"target"`
	Capabilities []capabilityXML `xml:"capability"`
	Run          *runRefXML      `xml:"run"`
	ShadowRun    *shadowRefXML   `xml:"shadowrun"`
	ExitOnIdle   *struct{}       `xml:"exitOnIdle"`
}

// syncResponseXML is the wire shape of <response>: exactly one
// of wait/exit/assignment/abort is populated.
type syncResponseXML struct {
	XMLName    xml.Name            `xml:"response"`
	Wait       *waitXML            `xml:"wait,omitempty"`
	Exit       *struct{}           `xml:"exit,omitempty"`
	Assignment *assignmentXML      `xml:"assignment,omitempty"`
	Abort      *struct{}           `xml:"abort,omitempty"`
}

type waitXML struct {
	Seconds int `xml:"seconds,attr"`
}

type paramRefXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type resourceRefXML struct {
	Ref     string `xml:"ref,attr"`
	Locator string `xml:"locator,attr"`
}

type inputRefXML struct {
	Name    string `xml:"name,attr"`
	Locator string `xml:",chardata"`
}

type assignmentXML struct {
	RunID       string           `xml:"runId,attr"`
	TaskID      string           `xml:"taskId,attr"`
	Wrapper     string           `xml:"wrapper,attr"`
	TimeoutMins int              `xml:"timeoutMinutes,attr,omitempty"`
	Params      []paramRefXML    `xml:"param"`
	Inputs      []inputRefXML    `xml:"input"`
	Outputs     []string         `xml:"output"`
	Resources   []resourceRefXML `xml:"resource"`
}

// outputXML mirrors <output name="prodA">locator-a</output>.
type outputXML struct {
	Name    string `xml:"name,attr" validate:"required"`
	Locator string `xml:",chardata"`
}

// dataXML mirrors <data key="metric">value</data>.
type dataXML struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// extractionXML mirrors <extraction result="..."/> on shadow reports.
type extractionXML struct {
	Result string `xml:"result,attr" validate:"required,oneof=ok warning error inspect"`
}

// taskDoneXML is the wire shape of result-report <taskDone>.
type taskDoneXML struct {
	XMLName   xml.Name        `xml:"taskDone"`
	JobID     string          `xml:"id,attr"`
	TaskName  string          `xml:"name,attr"`
	ShadowID  string          `xml:"shadowId,attr"`
	Result    string          `xml:"result,attr" validate:"required,oneof=ok warning error inspect"`
	Summary   string          `xml:"summary"`
	Outputs   []outputXML     `xml:"output"`
	Data      []dataXML       `xml:"data"`
	Extraction *extractionXML `xml:"extraction"`
}
