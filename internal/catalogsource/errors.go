package catalogsource

import (
	"errors"
	"fmt"
)

// Static errors
var (
	// ErrEmptySource indicates no catalog source was given.
	ErrEmptySource = errors.New("empty catalog source")

	// ErrRemoteFetch is matched by every failure to download a catalog.
	ErrRemoteFetch = errors.New("failed to fetch remote catalog")

	// ErrInvalidS3URL indicates an s3:// source without bucket or key.
	ErrInvalidS3URL = errors.New("invalid s3 catalog URL")

	// ErrS3NotConfigured indicates an s3:// source without an S3 endpoint.
	ErrS3NotConfigured = errors.New("s3 catalog source requires an endpoint")

	// ErrCatalogTooLarge indicates a remote catalog larger than MaxCatalogSize.
	ErrCatalogTooLarge = errors.New("catalog too large")
)

// HTTPStatusError reports a non-200 response from a catalog server.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("catalog server returned %s for %s", e.Status, e.URL)
}

