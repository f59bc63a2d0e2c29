package xmlcodec

import (
	"encoding/xml"
	"time"

	"github.com/cloud-scan/controlcenter/internal/domain"
)

const timeLayout = time.RFC3339Nano

// paramXML mirrors <param name="..." value="..." final="true"/>.
type paramXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
	Final bool   `xml:"final,attr,omitempty"`
}

func encodeParams(m domain.ParamMap) []paramXML {
	out := make([]paramXML, 0, len(m))
	for name, v := range m {
		out = append(out, paramXML{Name: name, Value: v.Value, Final: v.Final})
	}
	return out
}

func decodeParams(in []paramXML) domain.ParamMap {
	out := make(domain.ParamMap, len(in))
	for _, p := range in {
		out[p.Name] = domain.ParamValue{Value: p.Value, Final: p.Final}
	}
	return out
}

// ResourceXML is the on-disk/wire shape of a domain.Resource, grounded on
// resreq.py's attribute-plus-nested-element convention.
type ResourceXML struct {
	XMLName      xml.Name        `xml:"resource"`
	ID           string          `xml:"id,attr"`
	Type         string          `xml:"type,attr"`
	Locator      string          `xml:"locator,attr,omitempty"`
	Description  string          `xml:"description,attr,omitempty"`
	ReservedBy   string          `xml:"reservedby,attr,omitempty"`
	ChangedUser  string          `xml:"changeduser,attr,omitempty"`
	ChangedTime  string          `xml:"changedtime,attr,omitempty"`
	Suspended    bool            `xml:"suspended,attr,omitempty"`
	Capabilities []capabilityXML `xml:"capability"`
}

func EncodeResource(r *domain.Resource) ResourceXML {
	w := ResourceXML{
		ID: r.ID, Type: r.Type, Locator: r.Locator, Description: r.Description,
		ReservedBy: r.ReservedBy, ChangedUser: r.ChangedUser, Suspended: r.Suspended,
	}
	if !r.ChangedTime.IsZero() {
		w.ChangedTime = r.ChangedTime.Format(timeLayout)
	}
	for c := range r.Capabilities {
		w.Capabilities = append(w.Capabilities, capabilityXML{Name: c})
	}
	return w
}

func DecodeResource(w ResourceXML) *domain.Resource {
	r := &domain.Resource{
		ID: w.ID, Type: w.Type, Locator: w.Locator, Description: w.Description,
		ReservedBy: w.ReservedBy, ChangedUser: w.ChangedUser, Suspended: w.Suspended,
		Capabilities: make(map[string]struct{}, len(w.Capabilities)),
	}
	if w.ChangedTime != "" {
		if t, err := time.Parse(timeLayout, w.ChangedTime); err == nil {
			r.ChangedTime = t
		}
	}
	for _, c := range w.Capabilities {
		r.Capabilities[c.Name] = struct{}{}
	}
	return r
}

// ResTypeXML is the wire shape of a domain.ResType.
type ResTypeXML struct {
	XMLName          xml.Name `xml:"restype"`
	Name             string   `xml:"name,attr"`
	Description      string   `xml:"description,attr,omitempty"`
	PerTask          bool     `xml:"pertask,attr,omitempty"`
	PerJob           bool     `xml:"perjob,attr,omitempty"`
	K8sProvisionable bool     `xml:"k8sprovisionable,attr,omitempty"`
}

func EncodeResType(t domain.ResType) ResTypeXML {
	return ResTypeXML{
		Name: t.Name, Description: t.Description,
		PerTask: t.PerTask, PerJob: t.PerJob, K8sProvisionable: t.K8sProvisionable,
	}
}

func DecodeResType(w ResTypeXML) domain.ResType {
	return domain.ResType{
		Name: w.Name, Description: w.Description,
		PerTask: w.PerTask, PerJob: w.PerJob, K8sProvisionable: w.K8sProvisionable,
	}
}

// FrameworkXML is the wire shape of a domain.Framework.
type FrameworkXML struct {
	XMLName   xml.Name   `xml:"framework"`
	ID        string     `xml:"id,attr"`
	Version   string     `xml:"version,attr"`
	Wrapper   string     `xml:"wrapper,attr,omitempty"`
	Extractor bool       `xml:"extractor,attr,omitempty"`
	Inputs    []string   `xml:"input"`
	Outputs   []string   `xml:"output"`
	Params    []paramXML `xml:"param"`
	Claim     claimXML   `xml:"resources"`
}

func EncodeFramework(f *domain.Framework) FrameworkXML {
	return FrameworkXML{
		ID: f.ID, Version: f.Version, Wrapper: f.Wrapper, Extractor: f.Extractor,
		Inputs: f.Inputs, Outputs: f.Outputs,
		Params: encodeParams(f.Params), Claim: EncodeClaim(f.Claim),
	}
}

func DecodeFramework(w FrameworkXML) (*domain.Framework, error) {
	claim, err := DecodeClaim(w.Claim)
	if err != nil {
		return nil, err
	}
	return &domain.Framework{
		ID: w.ID, Version: w.Version, Wrapper: w.Wrapper, Extractor: w.Extractor,
		Inputs: w.Inputs, Outputs: w.Outputs,
		Params: decodeParams(w.Params), Claim: claim,
	}, nil
}

// TaskDefXML is the wire shape of a domain.TaskDef.
type TaskDefXML struct {
	XMLName xml.Name   `xml:"taskdef"`
	ID      string     `xml:"id,attr"`
	Version string     `xml:"version,attr"`
	Parent  string     `xml:"parent,attr"`
	Params  []paramXML `xml:"param"`
	Tags    []tagXML   `xml:"tag"`
	Claim   claimXML   `xml:"resources"`
}

func EncodeTaskDef(t *domain.TaskDef) TaskDefXML {
	return TaskDefXML{
		ID: t.ID, Version: t.Version, Parent: t.Parent,
		Params: encodeParams(t.Params), Tags: encodeTags(t.Tags), Claim: EncodeClaim(t.Claim),
	}
}

func DecodeTaskDef(w TaskDefXML) (*domain.TaskDef, error) {
	claim, err := DecodeClaim(w.Claim)
	if err != nil {
		return nil, err
	}
	return &domain.TaskDef{
		ID: w.ID, Version: w.Version, Parent: w.Parent,
		Params: decodeParams(w.Params), Tags: decodeTags(w.Tags), Claim: claim,
	}, nil
}

// ProductDefXML is the wire shape of a domain.ProductDef.
type ProductDefXML struct {
	XMLName  xml.Name          `xml:"productdef"`
	ID       string            `xml:"id,attr"`
	Type     domain.ProductType `xml:"type,attr"`
	Local    bool              `xml:"local,attr,omitempty"`
	Combined bool              `xml:"combined,attr,omitempty"`
}

func EncodeProductDef(p domain.ProductDef) ProductDefXML {
	return ProductDefXML{ID: p.ID, Type: p.Type, Local: p.Local, Combined: p.Combined}
}

func DecodeProductDef(w ProductDefXML) domain.ProductDef {
	return domain.ProductDef{ID: w.ID, Type: w.Type, Local: w.Local, Combined: w.Combined}
}
