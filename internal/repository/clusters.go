package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docmapper/constants"
	"github.com/joseph-ayodele/docmapper/internal/entity"
)

type ClusterRepository interface {
	// ReplaceAssignment swaps the whole cluster assignment atomically.
	// Clustering is a batch computation over the full corpus, so partial
	// updates would leave documents pointing at stale clusters.
	ReplaceAssignment(ctx context.Context, clusters []entity.Cluster) error
	List(ctx context.Context) ([]entity.Cluster, error)
	SetReference(ctx context.Context, clusterID string, referenceID uuid.UUID) error
}

type clusterRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewClusterRepository(store *Store, logger *slog.Logger) ClusterRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &clusterRepository{db: store.DB, logger: logger}
}

func (r *clusterRepository) ReplaceAssignment(ctx context.Context, clusters []entity.Cluster) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM clusters`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET cluster_id = '', is_reference = 0`); err != nil {
		return err
	}

	for _, c := range clusters {
		ref := ""
		if c.ReferenceID != uuid.Nil {
			ref = c.ReferenceID.String()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO clusters (id, reference_id) VALUES ($1, $2)`, c.ID, ref); err != nil {
			return err
		}
		for _, member := range c.Members {
			if _, err := tx.ExecContext(ctx, `
				UPDATE documents SET cluster_id = $1, status = $2, is_reference = $3
				WHERE id = $4`,
				c.ID, string(constants.DocumentStatusClustered),
				boolToInt(member == c.ReferenceID), member.String()); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("failed to replace cluster assignment", "error", err)
		return err
	}
	r.logger.Info("cluster assignment replaced", "clusters", len(clusters))
	return nil
}

func (r *clusterRepository) List(ctx context.Context) ([]entity.Cluster, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.reference_id, d.id
		FROM clusters c
		LEFT JOIN documents d ON d.cluster_id = c.id
		ORDER BY c.id, d.id`)
	if err != nil {
		r.logger.Error("failed to list clusters", "error", err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var (
		clusters []entity.Cluster
		current  *entity.Cluster
	)
	for rows.Next() {
		var clusterID, refID string
		var docID sql.NullString
		if err := rows.Scan(&clusterID, &refID, &docID); err != nil {
			return nil, err
		}
		if current == nil || current.ID != clusterID {
			clusters = append(clusters, entity.Cluster{ID: clusterID})
			current = &clusters[len(clusters)-1]
			if refID != "" {
				if parsed, err := uuid.Parse(refID); err == nil {
					current.ReferenceID = parsed
				}
			}
		}
		if docID.Valid {
			parsed, err := uuid.Parse(docID.String)
			if err != nil {
				return nil, err
			}
			current.Members = append(current.Members, parsed)
		}
	}
	return clusters, rows.Err()
}

func (r *clusterRepository) SetReference(ctx context.Context, clusterID string, referenceID uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE clusters SET reference_id = $1 WHERE id = $2`,
		referenceID.String(), clusterID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET is_reference = 0 WHERE cluster_id = $1`, clusterID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET is_reference = 1 WHERE id = $1`, referenceID.String()); err != nil {
		return err
	}
	return tx.Commit()
}
