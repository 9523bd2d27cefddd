package schema

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// FetchMetadata makes sure metadata for serviceName is loaded. A completed
// service returns immediately. Concurrent callers for the same service share
// one adapter call and observe the same result. A failed fetch leaves the
// service not-started so a later call retries. Cancelling ctx stops this
// caller from waiting; the shared fetch runs to completion.
func (s *MetadataStore) FetchMetadata(ctx context.Context, serviceName string) error {
	name := NormalizeServiceName(serviceName)
	if name == "" {
		return &ConfigurationError{Message: "fetchMetadata requires a service name"}
	}

	s.mu.Lock()
	entry, ok := s.services[name]
	if !ok {
		entry = &serviceEntry{ds: NewDataService(name), state: FetchNotStarted}
		s.services[name] = entry
	}
	if entry.state == FetchComplete {
		s.mu.Unlock()
		return nil
	}
	if !entry.ds.HasServerMetadata {
		s.mu.Unlock()
		return &InvalidOperationError{Message: fmt.Sprintf("data service %s does not publish server metadata", name)}
	}
	adapter := s.adapter
	ds := *entry.ds
	s.mu.Unlock()

	if adapter == nil {
		return &ConfigurationError{Message: "no metadata adapter configured"}
	}

	shared := context.WithoutCancel(ctx)
	ch := s.fetches.DoChan(name, func() (interface{}, error) {
		return nil, s.fetch(shared, adapter, &ds)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetch runs the adapter and imports its document. Only one fetch per service runs at a time.
func (s *MetadataStore) fetch(ctx context.Context, adapter Adapter, ds *DataService) error {
	name := ds.ServiceName

	s.mu.Lock()
	entry := s.services[name]
	if entry.state == FetchComplete {
		s.mu.Unlock()
		return nil
	}
	entry.state = FetchInFlight
	s.mu.Unlock()

	s.logger.Debug("fetching metadata", zap.String("service", name))

	doc, err := adapter.FetchMetadata(ctx, s, ds)
	if err == nil && doc == nil {
		err = errors.New("adapter returned no metadata document")
	}
	if err != nil {
		s.setFetchState(name, FetchNotStarted)
		s.logger.Warn("metadata fetch failed", zap.String("service", name), zap.Error(err))
		return &FetchFailedError{ServiceName: name, Err: err}
	}

	if err := s.ImportMetadata(doc, false); err != nil {
		s.setFetchState(name, FetchNotStarted)
		s.logger.Warn("fetched metadata could not be imported", zap.String("service", name), zap.Error(err))
		return fmt.Errorf("failed to import metadata for %s: %w", name, err)
	}

	s.setFetchState(name, FetchComplete)
	s.logger.Info("metadata fetched", zap.String("service", name), zap.Int("types", len(doc.StructuralTypes)))
	return nil
}

func (s *MetadataStore) setFetchState(name string, state FetchState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.services[name]; ok {
		entry.state = state
	}
}
