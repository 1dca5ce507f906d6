// Package hazard models the versioned hazard catalog that maps API names to
// the safety, privacy and financial hazards of calling them.
//
// Two catalog shapes are accepted. The behaviour shape labels each API with
// api_description and behavior_label and allows null hazard slots with
// integer risk scores. The flat shape uses description and carries hazards
// with floating point risk scores. The shape a label was read in travels with
// it as its Schema, so it is encoded back the same way.
package hazard

import (
	"encoding/json"
	"fmt"
)

// Schema identifies the catalog shape an APILabel was decoded from.
type Schema int

const (
	// SchemaBehavior is the shape with api_description, behavior_label,
	// nullable hazard slots and integer risk scores.
	SchemaBehavior Schema = iota

	// SchemaFlat is the shape with description and floating point risk scores.
	SchemaFlat
)

// String returns a string representation of Schema.
func (s Schema) String() string {
	switch s {
	case SchemaBehavior:
		return "behavior"
	case SchemaFlat:
		return "flat"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Catalog is an immutable, versioned list of API labels.
type Catalog struct {
	// Version is copied verbatim into every manifest built from the catalog.
	Version string

	// Labels keeps document order; matching reports labels in this order.
	Labels []APILabel

	// Schema is the shape every label of the document was decoded with.
	Schema Schema
}

// Functionality describes what an API does to a device.
type Functionality struct {
	DeviceType string `json:"device_type"`
	Action     string `json:"action"`
}

// Hazard is a single hazard a capability exposes.
type Hazard struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// RiskScore keeps the number exactly as written in the catalog.
	// Nil encodes as null.
	RiskScore *json.Number `json:"risk_score"`
}

// Score returns the risk score as a float64. ok is false when the score is
// absent or unparsable.
func (h Hazard) Score() (score float64, ok bool) {
	if h.RiskScore == nil {
		return 0, false
	}
	f, err := h.RiskScore.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// HazardSet partitions hazards into the three fixed categories. A nil element
// is an explicit null slot and keeps its position.
type HazardSet struct {
	Safety    []*Hazard `json:"safety"`
	Privacy   []*Hazard `json:"privacy"`
	Financial []*Hazard `json:"financial"`
}

// MarshalJSON encodes empty categories as [] rather than null.
func (s HazardSet) MarshalJSON() ([]byte, error) {
	type plain HazardSet
	p := plain(s)
	if p.Safety == nil {
		p.Safety = []*Hazard{}
	}
	if p.Privacy == nil {
		p.Privacy = []*Hazard{}
	}
	if p.Financial == nil {
		p.Financial = []*Hazard{}
	}
	return json.Marshal(p)
}

// Count returns the number of non-null hazards across all categories.
func (s HazardSet) Count() int {
	n := 0
	for _, category := range [][]*Hazard{s.Safety, s.Privacy, s.Financial} {
		for _, h := range category {
			if h != nil {
				n++
			}
		}
	}
	return n
}

func (s HazardSet) clone() HazardSet {
	return HazardSet{
		Safety:    cloneHazards(s.Safety),
		Privacy:   cloneHazards(s.Privacy),
		Financial: cloneHazards(s.Financial),
	}
}

func cloneHazards(in []*Hazard) []*Hazard {
	if in == nil {
		return nil
	}
	out := make([]*Hazard, len(in))
	for i, h := range in {
		if h == nil {
			continue
		}
		c := *h
		if h.RiskScore != nil {
			score := *h.RiskScore
			c.RiskScore = &score
		}
		out[i] = &c
	}
	return out
}

// APILabel describes one capability of the tracked API surface.
type APILabel struct {
	// Name is the match key: a symbol matches when it contains Name.
	Name        string
	Description string

	// Behavior is only carried by SchemaBehavior labels.
	Behavior []Functionality
	Security HazardSet
	Schema   Schema
}

// Clone returns a deep copy of the label.
func (l APILabel) Clone() APILabel {
	c := l
	if l.Behavior != nil {
		c.Behavior = append([]Functionality(nil), l.Behavior...)
	}
	c.Security = l.Security.clone()
	return c
}

// MarshalJSON encodes the label in the shape it was decoded from.
func (l APILabel) MarshalJSON() ([]byte, error) {
	if l.Schema == SchemaFlat {
		return json.Marshal(flatLabelWire{
			APIName:       &l.Name,
			Description:   &l.Description,
			SecurityLabel: &l.Security,
		})
	}

	behavior := l.Behavior
	if behavior == nil {
		behavior = []Functionality{}
	}
	return json.Marshal(behaviorLabelWire{
		APIName:        &l.Name,
		APIDescription: &l.Description,
		BehaviorLabel:  &behavior,
		SecurityLabel:  &l.Security,
	})
}

// UnmarshalJSON resolves the label's shape by trying the behaviour shape
// first and the flat shape second.
func (l *APILabel) UnmarshalJSON(data []byte) error {
	var attempts []error
	for _, schema := range []Schema{SchemaBehavior, SchemaFlat} {
		label, err := decodeLabel(data, schema)
		if err == nil {
			*l = label
			return nil
		}
		attempts = append(attempts, fmt.Errorf("%s shape: %w", schema, err))
	}
	return &FormatError{Attempts: attempts}
}
