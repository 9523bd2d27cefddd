package entity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/conduit-lang/entitymeta/internal/orm/schema"
	"go.uber.org/zap"
)

// exportBundle is the serialized form produced by ExportEntities
type exportBundle struct {
	Metadata json.RawMessage  `json:"metadata,omitempty"`
	Entities []exportedEntity `json:"entities"`
}

type exportedEntity struct {
	EntityType     string         `json:"entityType"`
	EntityState    string         `json:"entityState"`
	Values         map[string]any `json:"values"`
	OriginalValues map[string]any `json:"originalValues,omitempty"`
}

// ExportEntities serializes the store's metadata together with the attached
// entities of the named types, or all attached entities when none are named.
// Complex values are nested objects; collections are arrays.
func (m *Manager) ExportEntities(typeNames ...string) ([]byte, error) {
	entities, err := m.GetEntities(typeNames...)
	if err != nil {
		return nil, err
	}

	metadata, err := m.store.ExportMetadataJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export metadata: %w", err)
	}

	bundle := exportBundle{
		Metadata: metadata,
		Entities: make([]exportedEntity, 0, len(entities)),
	}
	for _, e := range entities {
		state := e.State()
		record := exportedEntity{
			EntityType:  e.Type().QualifiedName(),
			EntityState: state.String(),
			Values:      e.bag.export(),
		}
		if state == Modified || state == Deleted {
			record.OriginalValues = e.bag.originalValues(true)
		}
		bundle.Entities = append(bundle.Entities, record)
	}

	data, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entities: %w", err)
	}
	return data, nil
}

// ImportEntities merges the metadata of an export bundle into the store and
// attaches its entities. An entity whose key is already attached is kept when
// it has local changes and strategy is PreserveChanges; otherwise it takes the
// imported values and state.
func (m *Manager) ImportEntities(data []byte, strategy MergeStrategy) ([]*Entity, error) {
	var bundle struct {
		Metadata json.RawMessage   `json:"metadata"`
		Entities []json.RawMessage `json:"entities"`
	}
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("failed to decode entity bundle: %w", err)
	}

	if len(bundle.Metadata) > 0 && !bytes.Equal(bytes.TrimSpace(bundle.Metadata), []byte("null")) {
		doc, err := schema.DecodeDocument(bundle.Metadata)
		if err != nil {
			return nil, err
		}
		if err := m.store.ImportMetadata(doc, true); err != nil {
			return nil, fmt.Errorf("failed to import metadata: %w", err)
		}
	}

	imported := make([]*Entity, 0, len(bundle.Entities))
	for i, raw := range bundle.Entities {
		var record exportedEntity
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&record); err != nil {
			return imported, fmt.Errorf("failed to decode entity %d: %w", i, err)
		}

		e, err := m.importEntity(record, strategy)
		if err != nil {
			return imported, fmt.Errorf("failed to import entity %d (%s): %w", i, record.EntityType, err)
		}
		imported = append(imported, e)
	}

	m.logger.Debug("imported entities",
		zap.Int("count", len(imported)),
		zap.Stringer("strategy", strategy))
	return imported, nil
}

func (m *Manager) importEntity(record exportedEntity, strategy MergeStrategy) (*Entity, error) {
	t, err := m.store.GetEntityType(record.EntityType)
	if err != nil {
		return nil, err
	}
	state, err := ParseEntityState(record.EntityState)
	if err != nil {
		return nil, err
	}
	if state == Detached {
		state = Unchanged
	}

	candidate, err := newEntity(t)
	if err != nil {
		return nil, err
	}
	if err := loadRecord(candidate.bag, record); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing := m.findByKeyLocked(candidate.Key())
	if existing == nil {
		candidate.state = state
		candidate.manager.Store(m)
		m.entities = append(m.entities, candidate)
		return candidate, nil
	}

	if strategy == PreserveChanges && existing.state.IsChanged() {
		return existing, nil
	}
	if existing.Type() != t {
		return nil, fmt.Errorf("%w: %s is attached as %s", ErrDuplicateKey, candidate.Key(), existing.Type().QualifiedName())
	}
	if err := loadRecord(existing.bag, record); err != nil {
		return nil, err
	}
	existing.state = state
	return existing, nil
}

func loadRecord(bag *propertyBag, record exportedEntity) error {
	if err := bag.setValues(record.Values); err != nil {
		return err
	}
	bag.accept()
	if len(record.OriginalValues) > 0 {
		return bag.applyOriginals(record.OriginalValues)
	}
	return nil
}
