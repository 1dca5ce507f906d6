// Package manifest builds and serializes application manifests: the list of
// hazard-labelled APIs a binary uses, tagged with the catalog version.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/isseis/go-app-manifest/internal/hazard"
)

// Placeholder identity used when no application metadata is supplied.
const (
	PlaceholderName        = "app_name"
	PlaceholderDescription = "app_description"
)

// ErrDecode indicates a manifest document could not be decoded.
var ErrDecode = errors.New("invalid manifest")

// Meta is the application identity written into a manifest.
type Meta struct {
	Name        string
	Description string
}

// DefaultMeta returns the placeholder identity.
func DefaultMeta() Meta {
	return Meta{Name: PlaceholderName, Description: PlaceholderDescription}
}

// AppLabel is the manifest document.
type AppLabel struct {
	Name        string `json:"app_name"`
	Description string `json:"app_description"`

	// APIVersion is the catalog version, copied verbatim.
	APIVersion string `json:"sifis_version"`

	// APILabels are the matched labels in match order, duplicates included.
	APILabels []hazard.APILabel `json:"api_labels"`
}

// Assemble builds a manifest. Empty meta fields fall back to the placeholders.
func Assemble(meta Meta, version string, labels []hazard.APILabel) AppLabel {
	if meta.Name == "" {
		meta.Name = PlaceholderName
	}
	if meta.Description == "" {
		meta.Description = PlaceholderDescription
	}
	if labels == nil {
		labels = []hazard.APILabel{}
	}
	return AppLabel{
		Name:        meta.Name,
		Description: meta.Description,
		APIVersion:  version,
		APILabels:   labels,
	}
}

// Marshal returns the compact JSON encoding of label.
func Marshal(label AppLabel) ([]byte, error) {
	return json.Marshal(label)
}

// Encode writes label to w as indented JSON followed by a newline.
func Encode(w io.Writer, label AppLabel) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(label)
}

// Decode reads a manifest. Each label is resolved to the catalog shape it
// was written in.
func Decode(r io.Reader) (AppLabel, error) {
	var label AppLabel
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&label); err != nil {
		return AppLabel{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if label.APILabels == nil {
		label.APILabels = []hazard.APILabel{}
	}
	return label, nil
}
