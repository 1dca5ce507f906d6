package catalogsource

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL hosts the published catalogs, one directory per version.
const DefaultBaseURL = "https://raw.githubusercontent.com/sifis-home/manifest/master/data"

const (
	filePrefix = "file://"
	s3Scheme   = "s3"
)

// Kind is the transport a catalog is loaded with.
type Kind int

const (
	// KindFile is a local file.
	KindFile Kind = iota
	// KindHTTP is an http(s) URL.
	KindHTTP
	// KindS3 is an object in an S3-compatible bucket.
	KindS3
)

// String returns a string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindHTTP:
		return "http"
	case KindS3:
		return "s3"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Location is a resolved catalog source.
type Location struct {
	Kind Kind

	// Path is the local file path (KindFile) or the URL (KindHTTP).
	Path string

	// Bucket and Key address the object (KindS3).
	Bucket string
	Key    string
}

// String returns the canonical form, used as the cache key.
func (l Location) String() string {
	switch l.Kind {
	case KindFile:
		return filePrefix + l.Path
	case KindS3:
		return s3Scheme + "://" + l.Bucket + "/" + l.Key
	default:
		return l.Path
	}
}

// Resolve interprets a catalog source string:
//
//   - "file://<path>" reads <path> from the local file system;
//   - "s3://<bucket>/<key>" reads an object from the configured S3 endpoint;
//   - anything containing "/" is used as a URL;
//   - anything else is a catalog version, fetched from
//     <baseURL>/<version>/library-api-hazards-<version>.json.
func Resolve(source, baseURL string) (Location, error) {
	if source == "" {
		return Location{}, ErrEmptySource
	}

	if path, ok := strings.CutPrefix(source, filePrefix); ok {
		if path == "" {
			return Location{}, fmt.Errorf("%w: %q", ErrEmptySource, source)
		}
		return Location{Kind: KindFile, Path: path}, nil
	}

	if strings.HasPrefix(source, s3Scheme+"://") {
		u, err := url.Parse(source)
		if err != nil {
			return Location{}, fmt.Errorf("%w: %w", ErrInvalidS3URL, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("%w: %q", ErrInvalidS3URL, source)
		}
		return Location{Kind: KindS3, Bucket: u.Host, Key: key}, nil
	}

	if strings.Contains(source, "/") {
		return Location{Kind: KindHTTP, Path: source}, nil
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Location{
		Kind: KindHTTP,
		Path: fmt.Sprintf("%s/%s/library-api-hazards-%s.json", strings.TrimSuffix(baseURL, "/"), source, source),
	}, nil
}
