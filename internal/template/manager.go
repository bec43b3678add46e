package template

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/internal/common"
)

// Store persists templates keyed by cluster id.
type Store interface {
	Save(ctx context.Context, t *Template) error
	Delete(ctx context.Context, clusterID string) error
	// LoadAll returns every readable template plus one error per record
	// that failed integrity checks. Broken records are reported, not
	// silently dropped.
	LoadAll(ctx context.Context) ([]*Template, []error)
}

// Manager owns the in-memory template set and mediates every mutation.
// Mutations go through the manager so regions are never re-normalized
// behind a caller's back. Safe for concurrent use.
type Manager struct {
	store  Store
	logger *slog.Logger

	mu        sync.RWMutex
	templates map[string]*Template
}

// NewManager loads all templates from the store. Integrity failures are
// logged and returned so callers can offer recovery; the manager still
// starts with whatever loaded cleanly.
func NewManager(ctx context.Context, store Store, logger *slog.Logger) (*Manager, []error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{store: store, logger: logger, templates: make(map[string]*Template)}

	loaded, errs := store.LoadAll(ctx)
	for _, t := range loaded {
		m.templates[t.ClusterID] = t
	}
	for _, err := range errs {
		logger.Error("template failed to load", "error", err)
	}
	logger.Info("templates loaded", "count", len(loaded), "broken", len(errs))
	return m, errs
}

// Create makes a new empty template for a cluster. The cluster must already
// have a resolved reference document.
func (m *Manager) Create(ctx context.Context, clusterID string, referenceID uuid.UUID) (*Template, error) {
	if clusterID == "" {
		return nil, common.NewAppError("TEMPLATE_CREATE", "cluster id is required", common.ErrInvalidInput)
	}
	if referenceID == uuid.Nil {
		return nil, common.NewAppError("TEMPLATE_CREATE", "cluster has no resolved reference document", common.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[clusterID]; ok {
		return nil, common.NewAppError("TEMPLATE_EXISTS", fmt.Sprintf("template for cluster %s already exists", clusterID), common.ErrInvalidInput)
	}
	t := &Template{
		Version:     SchemaVersion,
		ClusterID:   clusterID,
		ReferenceID: referenceID,
		Language:    DefaultLanguage,
		Fields:      []FieldMapping{},
		Tables:      []TableMapping{},
	}
	if err := m.store.Save(ctx, t); err != nil {
		return nil, common.WrapError(err, "save new template")
	}
	m.templates[clusterID] = t
	m.logger.Info("template created", "cluster_id", clusterID, "reference_id", referenceID)
	return t.Clone(), nil
}

// Get returns a copy of the cluster's template.
func (m *Manager) Get(clusterID string) (*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[clusterID]
	if !ok {
		return nil, common.NewAppError("TEMPLATE_MISSING", fmt.Sprintf("no template for cluster %s", clusterID), common.ErrNotFound)
	}
	return t.Clone(), nil
}

// List returns copies of all templates ordered by cluster id.
func (m *Manager) List() []*Template {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClusterID < out[j].ClusterID })
	return out
}

// Delete removes a cluster's template. Deleting a missing template is not
// an error; the end state is the same.
func (m *Manager) Delete(ctx context.Context, clusterID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[clusterID]; !ok {
		return nil
	}
	if err := m.store.Delete(ctx, clusterID); err != nil {
		return common.WrapError(err, "delete template")
	}
	delete(m.templates, clusterID)
	m.logger.Info("template deleted", "cluster_id", clusterID)
	return nil
}

// PutField adds the mapping, or replaces the existing mapping of the same
// name keeping its position.
func (m *Manager) PutField(ctx context.Context, clusterID string, fm FieldMapping) error {
	if fm.Name == "" {
		return common.NewAppError("TEMPLATE_FIELD", "field name is required", common.ErrInvalidInput)
	}
	if !fm.Value.Valid() {
		return common.NewAppError("TEMPLATE_FIELD", fmt.Sprintf("field %q has an invalid value region", fm.Name), common.ErrInvalidInput)
	}
	if fm.Header != nil && !fm.Header.Valid() {
		return common.NewAppError("TEMPLATE_FIELD", fmt.Sprintf("field %q has an invalid header region", fm.Name), common.ErrInvalidInput)
	}
	return m.mutate(ctx, clusterID, func(t *Template) error {
		if i := t.FieldByName(fm.Name); i >= 0 {
			t.Fields[i] = fm
		} else {
			t.Fields = append(t.Fields, fm)
		}
		return nil
	})
}

// RemoveField deletes the named mapping, preserving the order of the rest.
func (m *Manager) RemoveField(ctx context.Context, clusterID, name string) error {
	return m.mutate(ctx, clusterID, func(t *Template) error {
		i := t.FieldByName(name)
		if i < 0 {
			return common.NewAppError("TEMPLATE_FIELD", fmt.Sprintf("no field %q in cluster %s", name, clusterID), common.ErrNotFound)
		}
		t.Fields = append(t.Fields[:i], t.Fields[i+1:]...)
		return nil
	})
}

// PutTable adds the table mapping, or replaces the existing one of the same
// name keeping its position. Columns are ordered by their start offset.
func (m *Manager) PutTable(ctx context.Context, clusterID string, tm TableMapping) error {
	if tm.Name == "" {
		return common.NewAppError("TEMPLATE_TABLE", "table name is required", common.ErrInvalidInput)
	}
	if !tm.Region.Valid() {
		return common.NewAppError("TEMPLATE_TABLE", fmt.Sprintf("table %q has an invalid region", tm.Name), common.ErrInvalidInput)
	}
	if len(tm.Columns) == 0 {
		return common.NewAppError("TEMPLATE_TABLE", fmt.Sprintf("table %q has no columns", tm.Name), common.ErrInvalidInput)
	}
	sort.SliceStable(tm.Columns, func(i, j int) bool { return tm.Columns[i].Start < tm.Columns[j].Start })
	return m.mutate(ctx, clusterID, func(t *Template) error {
		if i := t.TableByName(tm.Name); i >= 0 {
			t.Tables[i] = tm
		} else {
			t.Tables = append(t.Tables, tm)
		}
		return nil
	})
}

// RemoveTable deletes the named table mapping.
func (m *Manager) RemoveTable(ctx context.Context, clusterID, name string) error {
	return m.mutate(ctx, clusterID, func(t *Template) error {
		i := t.TableByName(name)
		if i < 0 {
			return common.NewAppError("TEMPLATE_TABLE", fmt.Sprintf("no table %q in cluster %s", name, clusterID), common.ErrNotFound)
		}
		t.Tables = append(t.Tables[:i], t.Tables[i+1:]...)
		return nil
	})
}

// SetLanguage sets the template's OCR language code.
func (m *Manager) SetLanguage(ctx context.Context, clusterID, language string) error {
	if language == "" {
		return common.NewAppError("TEMPLATE_LANGUAGE", "language code is required", common.ErrInvalidInput)
	}
	return m.mutate(ctx, clusterID, func(t *Template) error {
		t.Language = language
		return nil
	})
}

// SetReference records a re-selected reference document. Existing regions
// keep the old reference's geometry, so the template is flagged for
// re-validation instead of being trusted silently.
func (m *Manager) SetReference(ctx context.Context, clusterID string, referenceID uuid.UUID) error {
	if referenceID == uuid.Nil {
		return common.NewAppError("TEMPLATE_REFERENCE", "reference id is required", common.ErrInvalidInput)
	}
	return m.mutate(ctx, clusterID, func(t *Template) error {
		if t.ReferenceID == referenceID {
			return nil
		}
		t.ReferenceID = referenceID
		t.NeedsRevalidation = len(t.Fields) > 0 || len(t.Tables) > 0
		return nil
	})
}

// ClearRevalidation marks the template as re-validated against its current
// reference.
func (m *Manager) ClearRevalidation(ctx context.Context, clusterID string) error {
	return m.mutate(ctx, clusterID, func(t *Template) error {
		t.NeedsRevalidation = false
		return nil
	})
}

func (m *Manager) mutate(ctx context.Context, clusterID string, fn func(*Template) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[clusterID]
	if !ok {
		return common.NewAppError("TEMPLATE_MISSING", fmt.Sprintf("no template for cluster %s", clusterID), common.ErrNotFound)
	}
	next := t.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := m.store.Save(ctx, next); err != nil {
		return common.WrapError(err, "save template")
	}
	m.templates[clusterID] = next
	return nil
}
