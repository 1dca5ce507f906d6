// Package catalogsource loads hazard catalogs from local files, HTTP servers
// and S3-compatible object stores, keeping recently loaded catalogs in an LRU
// cache.
package catalogsource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/isseis/go-app-manifest/internal/hazard"
	"github.com/isseis/go-app-manifest/internal/safefileio"
)

// Defaults for Config.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultCacheSize = 16
)

// MaxCatalogSize bounds the bytes read for a single catalog.
const MaxCatalogSize = safefileio.DefaultMaxFileSize

// Config configures a Source.
type Config struct {
	// BaseURL replaces DefaultBaseURL for bare versions.
	BaseURL string

	// Timeout bounds each remote fetch. Zero selects DefaultTimeout.
	Timeout time.Duration

	// CacheSize is the number of parsed catalogs kept. Zero or less disables
	// caching.
	CacheSize int

	// S3 is required for s3:// sources.
	S3 *S3Config

	// HTTPClient overrides the client used for http(s) sources.
	HTTPClient *http.Client
}

// Source loads and parses catalogs. It is safe for concurrent use.
type Source struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	s3      *s3Fetcher
	cache   *lru.Cache[string, *hazard.Catalog]
}

// New creates a Source.
func New(cfg Config) (*Source, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	s := &Source{
		baseURL: cfg.BaseURL,
		timeout: timeout,
		http:    client,
	}

	if cfg.S3 != nil {
		fetcher, err := newS3Fetcher(*cfg.S3)
		if err != nil {
			return nil, err
		}
		s.s3 = fetcher
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, *hazard.Catalog](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create catalog cache: %w", err)
		}
		s.cache = cache
	}

	return s, nil
}

// Resolve interprets source with the Source's base URL.
func (s *Source) Resolve(source string) (Location, error) {
	return Resolve(source, s.baseURL)
}

// Load resolves source, reads it and parses the catalog.
//
// Errors from reading a local file are returned as they come from
// safefileio; remote failures match ErrRemoteFetch; malformed documents
// match hazard.ErrCatalogFormat.
func (s *Source) Load(ctx context.Context, source string) (*hazard.Catalog, error) {
	loc, err := s.Resolve(source)
	if err != nil {
		return nil, err
	}

	key := loc.String()
	if s.cache != nil {
		if catalog, ok := s.cache.Get(key); ok {
			slog.Debug("Catalog served from cache", slog.String("source", key))
			return catalog, nil
		}
	}

	data, err := s.fetch(ctx, loc)
	if err != nil {
		return nil, err
	}

	catalog, err := hazard.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", key, err)
	}

	slog.Debug("Catalog loaded",
		slog.String("source", key),
		slog.String("version", catalog.Version),
		slog.String("schema", catalog.Schema.String()),
		slog.Int("api_labels", len(catalog.Labels)))

	if s.cache != nil {
		s.cache.Add(key, catalog)
	}
	return catalog, nil
}

func (s *Source) fetch(ctx context.Context, loc Location) ([]byte, error) {
	switch loc.Kind {
	case KindFile:
		data, err := safefileio.SafeReadFileWithLimit(loc.Path, MaxCatalogSize)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", loc.Path, err)
		}
		return data, nil

	case KindS3:
		if s.s3 == nil {
			return nil, fmt.Errorf("%w: %w", ErrRemoteFetch, ErrS3NotConfigured)
		}
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		data, err := s.s3.get(ctx, loc.Bucket, loc.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRemoteFetch, loc, err)
		}
		return data, nil

	default:
		data, err := s.fetchHTTP(ctx, loc.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRemoteFetch, err)
		}
		return data, nil
	}
}

func (s *Source) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog URL: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("Error closing catalog response body", slog.Any("error", closeErr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return readLimited(resp.Body)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxCatalogSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if int64(len(data)) > MaxCatalogSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrCatalogTooLarge, MaxCatalogSize)
	}
	return data, nil
}
