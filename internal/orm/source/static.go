package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
)

// StaticAdapter serves documents held in memory. Documents are stored
// encoded so every fetch returns a fresh copy.
type StaticAdapter struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	calls atomic.Int64
}

// NewStaticAdapter creates an empty adapter
func NewStaticAdapter() *StaticAdapter {
	return &StaticAdapter{docs: make(map[string][]byte)}
}

// Add registers doc for serviceName, replacing any previous document
func (a *StaticAdapter) Add(serviceName string, doc *schema.Document) error {
	if doc == nil {
		return &schema.ConfigurationError{Message: "metadata document is nil"}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for %s: %w", serviceName, err)
	}
	a.store(serviceName, data)
	return nil
}

// AddJSON registers a JSON or YAML document for serviceName
func (a *StaticAdapter) AddJSON(serviceName string, data []byte) error {
	doc, err := schema.DecodeDocument(data)
	if err != nil {
		return err
	}
	return a.Add(serviceName, doc)
}

func (a *StaticAdapter) store(serviceName string, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs[schema.NormalizeServiceName(serviceName)] = data
}

// Remove forgets the document of serviceName
func (a *StaticAdapter) Remove(serviceName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.docs, schema.NormalizeServiceName(serviceName))
}

// Calls returns how many fetches reached the adapter
func (a *StaticAdapter) Calls() int {
	return int(a.calls.Load())
}

// FetchMetadata implements schema.Adapter
func (a *StaticAdapter) FetchMetadata(ctx context.Context, _ *schema.MetadataStore, ds *schema.DataService) (*schema.Document, error) {
	a.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := serviceName(ds)
	a.mu.RLock()
	data, ok := a.docs[name]
	a.mu.RUnlock()
	if !ok {
		return nil, documentNotFound(name)
	}
	return schema.DecodeDocument(data)
}
