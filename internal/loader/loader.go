// Package loader reads a library directory into an unvalidated domain.Bundle.
//
// A library holds three root documents, discovered by the part of the file
// name before the first dot (modules, tools, nodes), and two collections
// (trees/ and workflows/) with one document per file. Documents may be YAML
// or JSON. Every document is decoded strictly: unknown fields, bad enum
// values and missing required fields are all rejected.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"reflect"
	"runtime"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	ModulesDoc   = "modules"
	ToolsDoc     = "tools"
	NodesDoc     = "nodes"
	TreesDir     = "trees"
	WorkflowsDir = "workflows"
)

// Extensions lists the accepted document extensions.
var Extensions = []string{".yaml", ".yml", ".json"}

// Loader decodes library directories.
type Loader struct {
	logger      *slog.Logger
	concurrency int
	validate    *validator.Validate
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithConcurrency bounds the number of collection documents decoded at once.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		logger:      logging.NewNop(),
		concurrency: runtime.GOMAXPROCS(0),
		validate:    newValidate(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load decodes the library rooted at fsys with a default Loader.
func Load(ctx context.Context, fsys fs.FS) (*domain.Bundle, error) {
	return New().Load(ctx, fsys)
}

// Load decodes every document of the library rooted at fsys.
// It never returns a partial bundle: the first error in lexical file order
// aborts the load.
func (l *Loader) Load(ctx context.Context, fsys fs.FS) (*domain.Bundle, error) {
	roots, err := l.discoverRoots(fsys)
	if err != nil {
		return nil, err
	}

	b := &domain.Bundle{}
	if b.Modules, err = decodeFile[domain.ModuleFile](fsys, roots[ModulesDoc], l.validate); err != nil {
		return nil, err
	}
	b.Modules.FileName = roots[ModulesDoc]

	if b.Tools, err = decodeFile[domain.ToolFile](fsys, roots[ToolsDoc], l.validate); err != nil {
		return nil, err
	}
	b.Tools.FileName = roots[ToolsDoc]

	if b.KnownNodes, err = decodeFile[domain.KnownNodesFile](fsys, roots[NodesDoc], l.validate); err != nil {
		return nil, err
	}
	b.KnownNodes.FileName = roots[NodesDoc]

	if b.Trees, err = decodeDir[domain.BehaviorTreeFile](ctx, l, fsys, TreesDir); err != nil {
		return nil, err
	}

	if b.Workflows, err = decodeDir[domain.WorkflowFile](ctx, l, fsys, WorkflowsDir); err != nil {
		return nil, err
	}

	l.logger.Debug("library decoded",
		"modules", len(b.Modules.Content),
		"tools", len(b.Tools.Content),
		"known_nodes", len(b.KnownNodes.Content),
		"trees", len(b.Trees),
		"workflows", len(b.Workflows),
	)
	return b, nil
}

// discoverRoots maps each root document kind to its file. When several files
// share a prefix the lexically first one wins.
func (l *Loader) discoverRoots(fsys fs.FS) (map[string]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, &domain.LoadError{Kind: domain.ErrMissingLibraryFile, Path: ".", Err: err}
	}

	roots := make(map[string]string, 3)
	for _, e := range entries {
		if e.IsDir() || !IsDocument(e.Name()) {
			continue
		}
		prefix, _, _ := strings.Cut(e.Name(), ".")
		switch prefix {
		case ModulesDoc, ToolsDoc, NodesDoc:
		default:
			continue
		}
		if prev, ok := roots[prefix]; ok {
			l.logger.Warn("ignoring duplicate root document", "kind", prefix, "file", e.Name(), "using", prev)
			continue
		}
		roots[prefix] = e.Name()
	}

	for _, kind := range []string{ModulesDoc, ToolsDoc, NodesDoc} {
		if _, ok := roots[kind]; !ok {
			return nil, &domain.LoadError{Kind: domain.ErrMissingLibraryFile, Path: kind + ".yaml"}
		}
	}
	return roots, nil
}

// IsDocument reports whether name has an accepted extension and is not hidden.
func IsDocument(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(path.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// fileNamed is satisfied by the collection document types.
type fileNamed interface {
	domain.BehaviorTreeFile | domain.WorkflowFile
}

func decodeDir[T fileNamed](ctx context.Context, l *Loader, fsys fs.FS, dir string) ([]T, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, &domain.LoadError{Kind: domain.ErrMissingLibraryFile, Path: dir, Err: err}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsDocument(e.Name()) {
			continue
		}
		files = append(files, path.Join(dir, e.Name()))
	}

	docs := make([]T, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Decode errors are collected by index so the reported one
			// does not depend on scheduling.
			docs[i], errs[i] = decodeFile[T](fsys, name, l.validate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	for i := range docs {
		setFileName(&docs[i], files[i])
	}
	return docs, nil
}

func setFileName[T fileNamed](doc *T, name string) {
	switch d := any(doc).(type) {
	case *domain.BehaviorTreeFile:
		d.FileName = name
	case *domain.WorkflowFile:
		d.FileName = name
	}
}

// decodeFile reads and strictly decodes one document. JSON documents go
// through the YAML decoder as well, so both formats share the same rules.
func decodeFile[T any](fsys fs.FS, name string, v *validator.Validate) (T, error) {
	var doc T
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, &domain.LoadError{Kind: domain.ErrMissingLibraryFile, Path: name, Err: err}
		}
		return doc, &domain.LoadError{Kind: domain.ErrMalformedDocument, Path: name, Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
		return doc, &domain.LoadError{Kind: domain.ErrMalformedDocument, Path: name, Field: unknownField(err), Err: err}
	}
	// A file holds exactly one document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = fmt.Errorf("unexpected extra document at line %d", extra.Line)
		}
		return doc, &domain.LoadError{Kind: domain.ErrMalformedDocument, Path: name, Err: err}
	}

	if err := v.Struct(&doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return doc, &domain.LoadError{
				Kind:  domain.ErrMalformedDocument,
				Path:  name,
				Field: fieldPath(fe.Namespace()),
				Err:   fmt.Errorf("failed on %q rule", fe.Tag()),
			}
		}
		return doc, &domain.LoadError{Kind: domain.ErrMalformedDocument, Path: name, Err: err}
	}
	return doc, nil
}

// unknownField extracts the offending key from a yaml.v3 strict-mode error
// ("line 4: field colour not found in type domain.Node").
func unknownField(err error) string {
	msg := err.Error()
	_, rest, ok := strings.Cut(msg, "field ")
	if !ok {
		return ""
	}
	field, _, ok := strings.Cut(rest, " not found")
	if !ok {
		return ""
	}
	return field
}

// fieldPath drops the root type from a validator namespace
// ("ModuleFile.content[gantry].info.name" -> "content[gantry].info.name").
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}
