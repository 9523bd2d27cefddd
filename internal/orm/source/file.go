package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
	"github.com/conduit-lang/entitymeta/internal/watch"
)

var documentExtensions = []string{".json", ".yaml", ".yml"}

// FileAdapter reads metadata documents from a directory. The document of
// service "api/Northwind/" is api_Northwind.json (or .yaml/.yml), falling
// back to Northwind.json.
type FileAdapter struct {
	dir    string
	logger *zap.Logger

	mu    sync.Mutex
	paths map[string]string // path -> service
}

// NewFileAdapter creates an adapter reading from dir
func NewFileAdapter(dir string, logger *zap.Logger) *FileAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileAdapter{
		dir:    dir,
		logger: logger,
		paths:  make(map[string]string),
	}
}

// Dir returns the directory documents are read from
func (a *FileAdapter) Dir() string {
	return a.dir
}

// Path returns the document file of serviceName
func (a *FileAdapter) Path(serviceName string) (string, error) {
	name := schema.NormalizeServiceName(serviceName)
	if name == "" {
		return "", &schema.ConfigurationError{Message: "service name is required"}
	}

	bases := []string{fileBase(name)}
	if last := lastSegment(name); last != bases[0] {
		bases = append(bases, last)
	}
	for _, base := range bases {
		for _, ext := range documentExtensions {
			path := filepath.Join(a.dir, base+ext)
			info, err := os.Stat(path)
			if err == nil && !info.IsDir() {
				return path, nil
			}
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("failed to read %s: %w", path, err)
			}
		}
	}
	return "", documentNotFound(name)
}

// FetchMetadata implements schema.Adapter
func (a *FileAdapter) FetchMetadata(ctx context.Context, _ *schema.MetadataStore, ds *schema.DataService) (*schema.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := serviceName(ds)
	path, err := a.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := schema.DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	a.mu.Lock()
	a.paths[path] = name
	a.mu.Unlock()

	a.logger.Debug("read metadata document", zap.String("service", name), zap.String("path", path))
	return doc, nil
}

// ServiceFor maps a document path back to the service it was read for.
// Paths never fetched map to their base name without extension.
func (a *FileAdapter) ServiceFor(path string) string {
	a.mu.Lock()
	name, ok := a.paths[path]
	a.mu.Unlock()
	if ok {
		return name
	}
	base := filepath.Base(path)
	return schema.NormalizeServiceName(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Watch starts a watcher on the adapter's directory and calls onChange with
// the service of every changed document
func (a *FileAdapter) Watch(opts watch.Options, onChange func(serviceName string)) (*watch.FileWatcher, error) {
	opts.Dirs = []string{a.dir}
	if opts.Logger == nil {
		opts.Logger = a.logger
	}

	fw, err := watch.NewFileWatcher(opts, func(files []string) error {
		seen := make(map[string]bool, len(files))
		for _, f := range files {
			name := a.ServiceFor(f)
			if seen[name] {
				continue
			}
			seen[name] = true
			a.logger.Info("metadata document changed", zap.String("service", name), zap.String("path", f))
			onChange(name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := fw.Start(); err != nil {
		fw.Stop()
		return nil, err
	}
	return fw, nil
}
