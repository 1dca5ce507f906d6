// Package producer runs the manifest pipeline: load a hazard catalog, read a
// binary's symbol table, match the symbols against the catalog and assemble
// the manifest.
package producer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/isseis/go-app-manifest/internal/catalogsource"
	"github.com/isseis/go-app-manifest/internal/hazard"
	"github.com/isseis/go-app-manifest/internal/manifest"
	"github.com/isseis/go-app-manifest/internal/matcher"
	"github.com/isseis/go-app-manifest/internal/objfile"
	"github.com/isseis/go-app-manifest/internal/safefileio"
)

// CatalogLoader resolves and loads hazard catalogs. *catalogsource.Source
// implements it.
type CatalogLoader interface {
	Resolve(source string) (catalogsource.Location, error)
	Load(ctx context.Context, source string) (*hazard.Catalog, error)
}

// Options configures a Producer.
type Options struct {
	Matcher matcher.Config
	Meta    manifest.Meta

	// Arch selects the slice of a universal Mach-O binary.
	Arch string

	// Write enables writing the manifest after a successful run. Without
	// it Run only returns the manifest.
	Write bool

	// Stdout receives the manifest when Write is set and no output path is
	// given. Defaults to os.Stdout.
	Stdout io.Writer
}

// Request names the inputs and output of one run.
type Request struct {
	BinaryPath    string
	CatalogSource string

	// OutputPath is the manifest file. Empty prints to Stdout.
	OutputPath string
}

// Producer turns binaries into manifests.
type Producer struct {
	catalogs CatalogLoader
	matcher  *matcher.Matcher
	meta     manifest.Meta
	arch     string
	write    bool
	writer   *manifest.Writer
}

// New creates a Producer loading catalogs through catalogs.
func New(catalogs CatalogLoader, opts Options) *Producer {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Producer{
		catalogs: catalogs,
		matcher:  matcher.New(opts.Matcher),
		meta:     opts.Meta,
		arch:     opts.Arch,
		write:    opts.Write,
		writer:   manifest.NewWriter(stdout),
	}
}

// Run produces the manifest for req.
//
// Every path is checked before anything is parsed or written, so a
// directory given as binary, catalog or output fails with KindPathFormat
// and leaves no output behind. All failures are *Error values.
func (p *Producer) Run(ctx context.Context, req Request) (manifest.AppLabel, error) {
	if err := p.checkPaths(req); err != nil {
		return manifest.AppLabel{}, err
	}

	catalog, err := p.catalogs.Load(ctx, req.CatalogSource)
	if err != nil {
		return manifest.AppLabel{}, classify("load catalog", req.CatalogSource, err)
	}

	data, err := safefileio.SafeReadFileWithLimit(req.BinaryPath, objfile.MaxFileSize)
	if err != nil {
		return manifest.AppLabel{}, classify("read binary", req.BinaryPath, err)
	}

	bin, err := objfile.OpenWithOptions(data, objfile.Options{Arch: p.arch})
	if err != nil {
		return manifest.AppLabel{}, classify("parse binary", req.BinaryPath, err)
	}
	slog.Debug("Binary opened",
		slog.String("path", req.BinaryPath),
		slog.String("format", bin.Format().String()),
		slog.String("arch", bin.Arch()))

	labels := p.matcher.Match(bin.Symbols(), catalog)
	label := manifest.Assemble(p.meta, catalog.Version, labels)

	hazards := 0
	for _, l := range labels {
		hazards += l.Security.Count()
	}

	slog.Info("Manifest produced",
		slog.String("path", req.BinaryPath),
		slog.String("version", label.APIVersion),
		slog.Int("api_labels", len(label.APILabels)),
		slog.Int("hazards", hazards))

	if p.write {
		if err := p.writer.Write(req.OutputPath, label); err != nil {
			return manifest.AppLabel{}, classify("write manifest", req.OutputPath, err)
		}
	}

	return label, nil
}

func (p *Producer) checkPaths(req Request) error {
	if req.BinaryPath == "" {
		return &Error{Kind: KindPathFormat, Op: "check binary", Err: ErrEmptyPath}
	}
	if err := safefileio.CheckNotDirectory(req.BinaryPath); err != nil {
		return classify("check binary", req.BinaryPath, err)
	}

	loc, err := p.catalogs.Resolve(req.CatalogSource)
	if err != nil {
		return classify("resolve catalog", req.CatalogSource, err)
	}
	if loc.Kind == catalogsource.KindFile {
		if err := safefileio.CheckNotDirectory(loc.Path); err != nil {
			return classify("check catalog", loc.Path, err)
		}
	}

	// Checked even when writing is disabled.
	if req.OutputPath != "" {
		if err := safefileio.CheckNotDirectory(req.OutputPath); err != nil {
			return classify("check output", req.OutputPath, err)
		}
	}
	return nil
}

// classify wraps err in an *Error whose Kind follows the static errors of
// the package that produced it.
func classify(op, path string, err error) *Error {
	kind := KindIO
	switch {
	case errors.Is(err, objfile.ErrBinaryFormat):
		kind = KindBinaryFormat
	case errors.Is(err, hazard.ErrCatalogFormat):
		kind = KindCatalogFormat
	case errors.Is(err, catalogsource.ErrRemoteFetch):
		kind = KindRemoteFetch
	case errors.Is(err, safefileio.ErrIsDirectory),
		errors.Is(err, safefileio.ErrIsSymlink),
		errors.Is(err, safefileio.ErrInvalidFilePath),
		errors.Is(err, catalogsource.ErrEmptySource),
		errors.Is(err, catalogsource.ErrInvalidS3URL):
		kind = KindPathFormat
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}
