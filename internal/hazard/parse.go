package hazard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

type catalogWire struct {
	Version   *string            `json:"version"`
	APILabels *[]json.RawMessage `json:"api_labels"`
}

type behaviorLabelWire struct {
	APIName        *string          `json:"api_name"`
	APIDescription *string          `json:"api_description"`
	BehaviorLabel  *[]Functionality `json:"behavior_label"`
	SecurityLabel  *HazardSet       `json:"security_label"`
}

type flatLabelWire struct {
	APIName       *string    `json:"api_name"`
	Description   *string    `json:"description"`
	SecurityLabel *HazardSet `json:"security_label"`
}

// Parse decodes a catalog document. Every label of the document is decoded
// with the behaviour shape first; if any label does not fit, the flat shape
// is tried. The first shape that fits the whole document wins.
func Parse(data []byte) (*Catalog, error) {
	var doc catalogWire
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &FormatError{Attempts: []error{err}}
	}
	if doc.Version == nil {
		return nil, &FormatError{Attempts: []error{ErrMissingVersion}}
	}
	if doc.APILabels == nil {
		return nil, &FormatError{Attempts: []error{fmt.Errorf("%w: api_labels", ErrMissingField)}}
	}

	var attempts []error
	for _, schema := range []Schema{SchemaBehavior, SchemaFlat} {
		labels, err := decodeLabels(*doc.APILabels, schema)
		if err == nil {
			return &Catalog{
				Version: *doc.Version,
				Labels:  labels,
				Schema:  schema,
			}, nil
		}
		attempts = append(attempts, fmt.Errorf("%s shape: %w", schema, err))
	}

	return nil, &FormatError{Attempts: attempts}
}

func decodeLabels(raws []json.RawMessage, schema Schema) ([]APILabel, error) {
	labels := make([]APILabel, 0, len(raws))
	for i, raw := range raws {
		label, err := decodeLabel(raw, schema)
		if err != nil {
			return nil, fmt.Errorf("api_labels[%d]: %w", i, err)
		}
		labels = append(labels, label)
	}
	return labels, nil
}

func decodeLabel(raw []byte, schema Schema) (APILabel, error) {
	switch schema {
	case SchemaBehavior:
		var w behaviorLabelWire
		if err := decodeStrict(raw, &w); err != nil {
			return APILabel{}, err
		}
		switch {
		case w.APIName == nil:
			return APILabel{}, ErrMissingAPIName
		case w.APIDescription == nil:
			return APILabel{}, fmt.Errorf("%w: api_description", ErrMissingField)
		case w.BehaviorLabel == nil:
			return APILabel{}, fmt.Errorf("%w: behavior_label", ErrMissingField)
		case w.SecurityLabel == nil:
			return APILabel{}, fmt.Errorf("%w: security_label", ErrMissingField)
		}
		if err := validateHazards(*w.SecurityLabel, schema); err != nil {
			return APILabel{}, err
		}
		return APILabel{
			Name:        *w.APIName,
			Description: *w.APIDescription,
			Behavior:    *w.BehaviorLabel,
			Security:    *w.SecurityLabel,
			Schema:      SchemaBehavior,
		}, nil

	case SchemaFlat:
		var w flatLabelWire
		if err := decodeStrict(raw, &w); err != nil {
			return APILabel{}, err
		}
		switch {
		case w.APIName == nil:
			return APILabel{}, ErrMissingAPIName
		case w.Description == nil:
			return APILabel{}, fmt.Errorf("%w: description", ErrMissingField)
		case w.SecurityLabel == nil:
			return APILabel{}, fmt.Errorf("%w: security_label", ErrMissingField)
		}
		if err := validateHazards(*w.SecurityLabel, schema); err != nil {
			return APILabel{}, err
		}
		return APILabel{
			Name:        *w.APIName,
			Description: *w.Description,
			Security:    *w.SecurityLabel,
			Schema:      SchemaFlat,
		}, nil
	}

	return APILabel{}, fmt.Errorf("unknown schema %s", schema)
}

// decodeStrict rejects unknown fields, which is what tells the two shapes apart.
func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after label")
	}
	return nil
}

func validateHazards(set HazardSet, schema Schema) error {
	categories := []struct {
		name    string
		hazards []*Hazard
	}{
		{"safety", set.Safety},
		{"privacy", set.Privacy},
		{"financial", set.Financial},
	}

	for _, c := range categories {
		for i, h := range c.hazards {
			if h == nil {
				if schema == SchemaFlat {
					return fmt.Errorf("%s[%d]: %w", c.name, i, ErrNullHazard)
				}
				continue
			}
			if h.RiskScore == nil || schema != SchemaBehavior {
				continue
			}
			if _, err := strconv.ParseUint(h.RiskScore.String(), 10, 8); err != nil {
				return fmt.Errorf("%s[%d]: %w: %s", c.name, i, ErrRiskScoreRange, h.RiskScore.String())
			}
		}
	}
	return nil
}
