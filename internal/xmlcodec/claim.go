// Package xmlcodec encodes and decodes domain records as XML, the wire and
// on-disk format used throughout the controller. Each record
// kind gets a small wire struct with encoding/xml tags plus Encode*/
// Decode* conversions, rather than tagging the domain types directly —
// domain types use maps and sets that don't round-trip through encoding/xml
// on their own.
package xmlcodec

import (
	"encoding/xml"
	"fmt"

	"github.com/cloud-scan/controlcenter/internal/domain"
)

// capabilityXML mirrors the <capability name="..."/> leaf element used
// wherever a resource capability set is serialized.
type capabilityXML struct {
	Name string `xml:"name,attr"`
}

// resourceSpecXML mirrors <resource ref="..." type="..."><capability .../></resource>.
type resourceSpecXML struct {
	XMLName      xml.Name         `xml:"resource"`
	Ref          string           `xml:"ref,attr"`
	Type         string           `xml:"type,attr"`
	Capabilities []capabilityXML  `xml:"capability"`
}

// claimXML mirrors the claim wrapper element that groups a task's or
// framework's resource specs together.
type claimXML struct {
	XMLName xml.Name          `xml:"resources"`
	Specs   []resourceSpecXML `xml:"resource"`
}

// EncodeClaim renders a ResourceClaim as its wrapping <resources> element.
func EncodeClaim(claim domain.ResourceClaim) claimXML {
	out := claimXML{}
	for _, spec := range claim.Specs() {
		w := resourceSpecXML{Ref: spec.Ref, Type: spec.Type}
		for cap := range spec.Capabilities {
			w.Capabilities = append(w.Capabilities, capabilityXML{Name: cap})
		}
		out.Specs = append(out.Specs, w)
	}
	return out
}

// DecodeClaim converts a parsed claimXML back into a domain.ResourceClaim.
func DecodeClaim(in claimXML) (domain.ResourceClaim, error) {
	specs := make([]domain.ResourceSpec, 0, len(in.Specs))
	for _, w := range in.Specs {
		if w.Ref == "" || w.Type == "" {
			return domain.ResourceClaim{}, fmt.Errorf("xmlcodec: resource spec missing ref or type")
		}
		caps := make([]string, len(w.Capabilities))
		for i, c := range w.Capabilities {
			caps[i] = c.Name
		}
		specs = append(specs, domain.NewResourceSpec(w.Ref, w.Type, caps))
	}
	return domain.NewResourceClaim(specs...), nil
}
