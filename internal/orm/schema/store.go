package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchState tracks the metadata fetch of one data service
type FetchState int

const (
	FetchNotStarted FetchState = iota
	FetchInFlight
	FetchComplete
)

// String returns the string representation of the fetch state
func (s FetchState) String() string {
	switch s {
	case FetchInFlight:
		return "in-flight"
	case FetchComplete:
		return "complete"
	default:
		return "not-started"
	}
}

// DataService describes the remote service metadata is fetched from
type DataService struct {
	ServiceName        string
	HasServerMetadata  bool
	AdapterName        string
	UriBuilderName     string
	JsonResultsAdapter string
}

// NewDataService creates a descriptor for a service that publishes metadata
func NewDataService(serviceName string) *DataService {
	return &DataService{
		ServiceName:       NormalizeServiceName(serviceName),
		HasServerMetadata: true,
	}
}

func newDataServiceFromSpec(spec DataServiceSpec) *DataService {
	ds := NewDataService(spec.ServiceName)
	if spec.HasServerMetadata != nil {
		ds.HasServerMetadata = *spec.HasServerMetadata
	}
	ds.AdapterName = spec.AdapterName
	ds.UriBuilderName = spec.UriBuilderName
	ds.JsonResultsAdapter = spec.JsonResultsAdapter
	return ds
}

func (ds *DataService) spec() DataServiceSpec {
	spec := DataServiceSpec{
		ServiceName:        ds.ServiceName,
		AdapterName:        ds.AdapterName,
		UriBuilderName:     ds.UriBuilderName,
		JsonResultsAdapter: ds.JsonResultsAdapter,
	}
	if !ds.HasServerMetadata {
		spec.HasServerMetadata = boolPtr(false)
	}
	return spec
}

// Adapter retrieves the metadata document of a data service
type Adapter interface {
	FetchMetadata(ctx context.Context, store *MetadataStore, ds *DataService) (*Document, error)
}

type serviceEntry struct {
	ds    *DataService
	state FetchState
}

// MetadataStore registers structural types and coordinates metadata fetches
type MetadataStore struct {
	mu                          sync.RWMutex
	types                       map[string]*StructuralType
	shortNames                  map[string][]string
	resources                   map[string]string
	services                    map[string]*serviceEntry
	namingConvention            NamingConvention
	localQueryComparisonOptions string

	adapter Adapter
	fetches singleflight.Group
	logger  *zap.Logger
}

// StoreOption configures a MetadataStore
type StoreOption func(*MetadataStore)

// WithNamingConvention sets the client/server naming convention
func WithNamingConvention(nc NamingConvention) StoreOption {
	return func(s *MetadataStore) {
		s.namingConvention = nc
	}
}

// WithAdapter sets the collaborator used by FetchMetadata
func WithAdapter(a Adapter) StoreOption {
	return func(s *MetadataStore) {
		s.adapter = a
	}
}

// WithLogger sets the store's logger
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *MetadataStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLocalQueryComparisonOptions sets the opaque local query comparison setting
func WithLocalQueryComparisonOptions(opts string) StoreOption {
	return func(s *MetadataStore) {
		s.localQueryComparisonOptions = opts
	}
}

// NewMetadataStore creates an empty metadata store
func NewMetadataStore(opts ...StoreOption) *MetadataStore {
	s := &MetadataStore{
		types:            make(map[string]*StructuralType),
		shortNames:       make(map[string][]string),
		resources:        make(map[string]string),
		services:         make(map[string]*serviceEntry),
		namingConvention: NoneConvention,
		logger:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NamingConvention returns the store's naming convention
func (s *MetadataStore) NamingConvention() NamingConvention {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.namingConvention
}

// LocalQueryComparisonOptions returns the opaque local query comparison setting
func (s *MetadataStore) LocalQueryComparisonOptions() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localQueryComparisonOptions
}

// SetAdapter replaces the collaborator used by FetchMetadata
func (s *MetadataStore) SetAdapter(a Adapter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adapter = a
}

// AddEntityType registers a single entity or complex type. Its base type and
// complex property types must already be registered.
func (s *MetadataStore) AddEntityType(t *StructuralType) error {
	if t == nil {
		return &ConfigurationError{Message: "structural type cannot be nil"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	qn := t.QualifiedName()
	switch {
	case t.store == s:
		return &InvalidOperationError{Type: qn, Message: "type is already registered in this store"}
	case t.store != nil:
		return &InvalidOperationError{Type: qn, Message: "type is registered in another metadata store; add a Clone instead"}
	}
	if _, exists := s.types[qn]; exists {
		return &MetadataConflictError{Type: qn, Message: "type is already registered"}
	}
	if err := t.applyConvention(s.namingConvention); err != nil {
		return err
	}

	batch := newImportBatch(s, s.namingConvention)
	batch.added[qn] = t
	batch.order = append(batch.order, qn)
	order, err := batch.link()
	if err != nil {
		return err
	}
	batch.commit(order)

	s.logger.Debug("registered structural type", zap.String("type", qn))
	return nil
}

// GetEntityType finds a type by short name, qualified name or resource name
func (s *MetadataStore) GetEntityType(name string) (*StructuralType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookupLocked(name)
}

// FindEntityType is GetEntityType without the error
func (s *MetadataStore) FindEntityType(name string) (*StructuralType, bool) {
	t, err := s.GetEntityType(name)
	return t, err == nil
}

// GetComplexType finds a complex type by short or qualified name
func (s *MetadataStore) GetComplexType(name string) (*StructuralType, error) {
	t, err := s.GetEntityType(name)
	if err != nil {
		return nil, err
	}
	if !t.isComplexType {
		return nil, &MetadataNotFoundError{Name: name}
	}
	return t, nil
}

func (s *MetadataStore) lookupLocked(name string) (*StructuralType, error) {
	if t, ok := s.types[NormalizeTypeName(name)]; ok {
		return t, nil
	}
	if short, ns := ParseQualifiedName(name); ns == "" {
		switch qns := s.shortNames[short]; len(qns) {
		case 0:
		case 1:
			return s.types[qns[0]], nil
		default:
			return nil, &MetadataConflictError{Type: name, Message: fmt.Sprintf("short name is ambiguous between %v", qns)}
		}
	}
	if qn, ok := s.resources[name]; ok {
		if t, ok := s.types[qn]; ok {
			return t, nil
		}
	}
	return nil, &MetadataNotFoundError{Name: name, StoreEmpty: len(s.types) == 0}
}

// StructuralTypes returns every registered type, bases before subtypes
func (s *MetadataStore) StructuralTypes() []*StructuralType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orderedLocked()
}

// EntityTypes returns the registered entity types
func (s *MetadataStore) EntityTypes() []*StructuralType {
	result := make([]*StructuralType, 0)
	for _, t := range s.StructuralTypes() {
		if !t.isComplexType {
			result = append(result, t)
		}
	}
	return result
}

// ComplexTypes returns the registered complex types
func (s *MetadataStore) ComplexTypes() []*StructuralType {
	result := make([]*StructuralType, 0)
	for _, t := range s.StructuralTypes() {
		if t.isComplexType {
			result = append(result, t)
		}
	}
	return result
}

func (s *MetadataStore) orderedLocked() []*StructuralType {
	graph := NewInheritanceGraph(s.types, func(t *StructuralType) string {
		if t.baseType == nil {
			return ""
		}
		return t.baseType.QualifiedName()
	})
	order, err := graph.TopologicalSort()
	if err != nil {
		// registered types are always acyclic; fall back to name order
		order = graph.sortedNodes()
	}
	result := make([]*StructuralType, 0, len(order))
	for _, qn := range order {
		result = append(result, s.types[qn])
	}
	return result
}

// IsEmpty reports whether no types are registered
func (s *MetadataStore) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.types) == 0
}

// HasMetadataFor reports whether metadata for the service has been fetched or imported
func (s *MetadataStore) HasMetadataFor(serviceName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.services[NormalizeServiceName(serviceName)]
	return ok && entry.state == FetchComplete
}

// FetchState returns the fetch state of a data service
func (s *MetadataStore) FetchState(serviceName string) FetchState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.services[NormalizeServiceName(serviceName)]; ok {
		return entry.state
	}
	return FetchNotStarted
}

// AddDataService registers a data service descriptor
func (s *MetadataStore) AddDataService(ds *DataService, overwrite bool) error {
	if ds == nil || NormalizeServiceName(ds.ServiceName) == "" {
		return &ConfigurationError{Message: "data service requires a service name"}
	}
	name := NormalizeServiceName(ds.ServiceName)

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, exists := s.services[name]; exists {
		if !overwrite {
			return &InvalidOperationError{Message: fmt.Sprintf("data service %s is already registered", name)}
		}
		copied := *ds
		copied.ServiceName = name
		entry.ds = &copied
		return nil
	}
	copied := *ds
	copied.ServiceName = name
	s.services[name] = &serviceEntry{ds: &copied, state: FetchNotStarted}
	return nil
}

// DataService returns a copy of a registered data service descriptor
func (s *MetadataStore) DataService(serviceName string) (*DataService, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.services[NormalizeServiceName(serviceName)]
	if !ok {
		return nil, false
	}
	copied := *entry.ds
	return &copied, true
}

// SetEntityTypeForResourceName maps a resource (endpoint) name to an entity type
func (s *MetadataStore) SetEntityTypeForResourceName(resourceName, typeName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.lookupLocked(typeName)
	if err != nil {
		return err
	}
	if t.isComplexType {
		return &ConfigurationError{Type: t.QualifiedName(), Message: "a complex type cannot be mapped to a resource name"}
	}
	s.resources[resourceName] = t.QualifiedName()
	if t.defaultResourceName == "" {
		t.defaultResourceName = resourceName
	}
	return nil
}

// GetEntityTypeNameForResourceName returns the qualified type name mapped to a resource
func (s *MetadataStore) GetEntityTypeNameForResourceName(resourceName string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qn, ok := s.resources[resourceName]
	return qn, ok
}

// ImportMetadataJSON decodes a JSON or YAML document and imports it
func (s *MetadataStore) ImportMetadataJSON(data []byte, allowMerge bool) error {
	doc, err := DecodeDocument(data)
	if err != nil {
		return err
	}
	return s.ImportMetadata(doc, allowMerge)
}

// ImportMetadata registers every type of the document as one batch. Base
// types may appear in any order. On error nothing is registered. With
// allowMerge, types that already exist gain the document's new properties
// and custom annotations; without it they are a conflict.
func (s *MetadataStore) ImportMetadata(doc *Document, allowMerge bool) error {
	if doc == nil {
		return &ConfigurationError{Message: "metadata document is nil"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	convention := s.namingConvention
	if doc.NamingConvention != "" && doc.NamingConvention != convention.Name {
		if len(s.types) > 0 {
			return &MetadataConflictError{Message: fmt.Sprintf(
				"cannot import metadata using naming convention %q into a store using %q",
				doc.NamingConvention, convention.Name)}
		}
		nc, err := LookupNamingConvention(doc.NamingConvention)
		if err != nil {
			return err
		}
		convention = nc
	}

	batch := newImportBatch(s, convention)
	if err := batch.stage(doc, allowMerge); err != nil {
		return err
	}
	order, err := batch.link()
	if err != nil {
		return err
	}

	s.namingConvention = convention
	if doc.LocalQueryComparisonOptions != "" {
		s.localQueryComparisonOptions = doc.LocalQueryComparisonOptions
	}
	batch.commit(order)

	s.logger.Debug("imported metadata",
		zap.Int("types_added", len(order)),
		zap.Int("types_merged", len(batch.merges)),
		zap.Int("data_services", len(batch.services)),
		zap.Bool("allow_merge", allowMerge))
	return nil
}

// ExportMetadata serializes the store into a document that ImportMetadata accepts.
// Types are written bases first. Each type's own data properties are written
// before its navigation properties, so a type built with interleaved
// AddProperty calls reimports with its navigation properties last.
func (s *MetadataStore) ExportMetadata() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := &Document{
		MetadataVersion:             MetadataVersion,
		NamingConvention:            s.namingConvention.Name,
		LocalQueryComparisonOptions: s.localQueryComparisonOptions,
		StructuralTypes:             make([]TypeSpec, 0, len(s.types)),
	}

	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		doc.DataServices = append(doc.DataServices, s.services[name].ds.spec())
	}

	for _, t := range s.orderedLocked() {
		doc.StructuralTypes = append(doc.StructuralTypes, t.spec())
	}

	if len(s.resources) > 0 {
		doc.ResourceEntityTypeMap = make(map[string]string, len(s.resources))
		for res, qn := range s.resources {
			doc.ResourceEntityTypeMap[res] = qn
		}
	}
	return doc
}

// ExportMetadataJSON serializes the store as JSON
func (s *MetadataStore) ExportMetadataJSON() ([]byte, error) {
	data, err := json.Marshal(s.ExportMetadata())
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}

// ExportMetadataYAML serializes the store as YAML
func (s *MetadataStore) ExportMetadataYAML() ([]byte, error) {
	data, err := s.ExportMetadata().YAML()
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}

// StoreStats summarizes the contents of a store
type StoreStats struct {
	EntityTypes          int
	ComplexTypes         int
	DataProperties       int
	NavigationProperties int
	KeyProperties        int
	ResourceNames        int
	DataServices         int
	MaxInheritanceDepth  int
}

// Stats returns statistics about the store
func (s *MetadataStore) Stats() *StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &StoreStats{
		ResourceNames: len(s.resources),
		DataServices:  len(s.services),
	}
	for _, t := range s.types {
		if t.isComplexType {
			stats.ComplexTypes++
		} else {
			stats.EntityTypes++
		}
		for _, p := range t.properties {
			if p.kind == NavigationProperty {
				stats.NavigationProperties++
			} else {
				stats.DataProperties++
			}
			if p.isPartOfKey {
				stats.KeyProperties++
			}
		}
		depth := 0
		for base := t.baseType; base != nil; base = base.baseType {
			depth++
		}
		if depth > stats.MaxInheritanceDepth {
			stats.MaxInheritanceDepth = depth
		}
	}
	return stats
}

// addProperty adds a property to a registered type
func (s *MetadataStore) addProperty(t *StructuralType, p *Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p != nil {
		p.applyConvention(s.namingConvention)
		if subtypeDeclares(t, p.name) {
			return &DuplicatePropertyError{Type: t.QualifiedName(), Property: p.name}
		}
	}
	return t.addProperty(p, func(ref, namespace string) *StructuralType {
		return s.resolveLocked(ref, namespace, nil)
	})
}

// setTypeProperties applies a patch to a registered type and keeps the resource map current
func (s *MetadataStore) setTypeProperties(t *StructuralType, patch TypePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := t.setProperties(patch); err != nil {
		return err
	}
	if patch.DefaultResourceName != nil && *patch.DefaultResourceName != "" {
		s.resources[*patch.DefaultResourceName] = t.QualifiedName()
	}
	return nil
}

// setPropertyProperties applies a patch to a property of a registered type
func (s *MetadataStore) setPropertyProperties(p *Property, patch PropertyPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return p.setProperties(patch, s.namingConvention)
}

// registerLocked makes a linked type visible in the store
func (s *MetadataStore) registerLocked(t *StructuralType, base *StructuralType) {
	qn := t.QualifiedName()
	t.store = s
	if base != nil {
		t.baseType = base
		base.memoMu.Lock()
		base.subtypes = append(base.subtypes, t)
		base.memoMu.Unlock()
	}
	s.types[qn] = t
	s.shortNames[t.shortName] = append(s.shortNames[t.shortName], qn)
	if t.defaultResourceName != "" && !t.isComplexType {
		s.resources[t.defaultResourceName] = qn
	}
	t.invalidate()
}

// resolveLocked finds a referenced type among staged and registered types.
// Unqualified references are tried in the referring namespace, then by unique short name.
func (s *MetadataStore) resolveLocked(ref, namespace string, staged map[string]*StructuralType) *StructuralType {
	find := func(qn string) *StructuralType {
		if t, ok := staged[qn]; ok {
			return t
		}
		return s.types[qn]
	}

	if t := find(NormalizeTypeName(ref)); t != nil {
		return t
	}
	short, ns := ParseQualifiedName(ref)
	if ns != "" {
		return nil
	}
	if namespace != "" {
		if t := find(QualifyName(short, namespace)); t != nil {
			return t
		}
	}

	var matches []*StructuralType
	for _, qn := range s.shortNames[short] {
		matches = append(matches, s.types[qn])
	}
	for _, t := range staged {
		if t.shortName == short {
			matches = append(matches, t)
		}
	}
	if len(matches) == 1 {
		return matches[0]
	}
	return nil
}

func subtypeDeclares(t *StructuralType, name string) bool {
	for _, sub := range t.Subtypes() {
		if _, ok := sub.index[name]; ok {
			return true
		}
		if subtypeDeclares(sub, name) {
			return true
		}
	}
	return false
}
