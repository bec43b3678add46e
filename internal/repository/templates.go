package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/joseph-ayodele/docmapper/internal/common"
	"github.com/joseph-ayodele/docmapper/internal/template"
)

// TemplateStore keeps templates in the templates table, one JSON payload
// per cluster. It satisfies template.Store, so the Manager can run on SQL
// instead of the template directory.
type TemplateStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewTemplateStore(store *Store, logger *slog.Logger) *TemplateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateStore{db: store.DB, logger: logger}
}

func (s *TemplateStore) Save(ctx context.Context, t *template.Template) error {
	payload, err := template.Encode(t)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates (cluster_id, payload) VALUES ($1, $2)
		ON CONFLICT (cluster_id) DO UPDATE SET payload = EXCLUDED.payload`,
		t.ClusterID, string(payload))
	if err != nil {
		s.logger.Error("failed to save template", "cluster_id", t.ClusterID, "error", err)
	}
	return err
}

func (s *TemplateStore) Delete(ctx context.Context, clusterID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE cluster_id = $1`, clusterID)
	if err != nil {
		s.logger.Error("failed to delete template", "cluster_id", clusterID, "error", err)
	}
	return err
}

// LoadAll decodes every stored template. Broken payloads are collected as
// integrity errors and never silently dropped; the healthy templates load
// regardless.
func (s *TemplateStore) LoadAll(ctx context.Context) ([]*template.Template, []error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cluster_id, payload FROM templates ORDER BY cluster_id`)
	if err != nil {
		return nil, []error{err}
	}
	defer func() { _ = rows.Close() }()

	var (
		templates []*template.Template
		errs      []error
	)
	for rows.Next() {
		var clusterID, payload string
		if err := rows.Scan(&clusterID, &payload); err != nil {
			errs = append(errs, err)
			continue
		}
		t, err := template.Decode([]byte(payload))
		if err != nil {
			errs = append(errs, common.WrapError(err, "template for cluster "+clusterID))
			continue
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		errs = append(errs, err)
	}
	return templates, errs
}
