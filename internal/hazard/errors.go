package hazard

import (
	"errors"
	"fmt"
)

// Static errors
var (
	// ErrCatalogFormat indicates the catalog document matches none of the known shapes.
	ErrCatalogFormat = errors.New("invalid hazard catalog")

	// ErrMissingVersion indicates the catalog has no version string.
	ErrMissingVersion = errors.New("catalog version is missing")

	// ErrMissingAPIName indicates an API label has no api_name.
	ErrMissingAPIName = errors.New("api_name is missing")

	// ErrMissingField indicates a label lacks a field its shape requires.
	ErrMissingField = errors.New("required field is missing")

	// ErrNullHazard indicates a null hazard slot in a shape that does not allow one.
	ErrNullHazard = errors.New("null hazard entry")

	// ErrRiskScoreRange indicates an integer risk score outside 0-255.
	ErrRiskScoreRange = errors.New("risk score must be an integer in 0-255")
)

// FormatError reports why a catalog document was rejected. Attempts holds
// the failure of each shape that was tried, in order.
type FormatError struct {
	Attempts []error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v: %v", ErrCatalogFormat, errors.Join(e.Attempts...))
}

// Unwrap exposes ErrCatalogFormat and every attempt error to errors.Is.
func (e *FormatError) Unwrap() []error {
	return append([]error{ErrCatalogFormat}, e.Attempts...)
}
