package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/piwcasokwa/backend/internal/dbx"
	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
)

// documentColumns is shared by every read so scanDocument stays in sync with the queries
const documentColumns = `
	d.id, d.collection, d.data, d.published, d.display_order, d.created_at, d.updated_at,
	(ar.record_id IS NOT NULL) AS is_active
`

// documentJoin derives is_active from the pointer row of exclusive collections
const documentJoin = `
	FROM documents d
	LEFT JOIN active_records ar ON ar.collection = d.collection AND ar.record_id = d.id
`

type documentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) *documentRepository {
	return &documentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a record. In one transaction it also appends the record
// to the end of an ordered collection and moves the active pointer to it when IsActive is set.
func (r *documentRepository) Create(ctx context.Context, rec *models.ContentRecord) error {
	spec, err := models.LookupCollection(string(rec.Collection))
	if err != nil {
		return err
	}

	data, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	// On an empty collection FOR UPDATE only takes gap locks, so two first appends can deadlock
	return dbx.WithTxRetry(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if spec.Ordered {
			// Locks the collection's rows so concurrent appends serialize
			var maxOrder int
			err := tx.QueryRowContext(ctx, `
				SELECT COALESCE(MAX(display_order), -1)
				FROM documents
				WHERE collection = ?
				FOR UPDATE
			`, rec.Collection).Scan(&maxOrder)
			if err != nil {
				r.logger.Error("failed to read display order", zap.Error(err), zap.String("collection", string(rec.Collection)))
				return fmt.Errorf("failed to read display order: %w", err)
			}
			next := maxOrder + 1
			rec.DisplayOrder = &next
		}

		query := `
			INSERT INTO documents (id, collection, data, published, display_order, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, query,
			rec.ID,
			rec.Collection,
			data,
			rec.Published,
			nullableInt(rec.DisplayOrder),
			rec.CreatedAt,
			rec.UpdatedAt,
		); err != nil {
			r.logger.Error("failed to insert document", zap.Error(err), zap.String("collection", string(rec.Collection)))
			return fmt.Errorf("failed to insert document: %w", err)
		}

		if spec.Exclusive && rec.IsActive {
			if err := setActivePointer(ctx, tx, rec.Collection, rec.ID); err != nil {
				r.logger.Error("failed to activate new record", zap.Error(err), zap.String("id", rec.ID))
				return err
			}
		}

		return nil
	})
}

// GetByID retrieves a record of a collection by its ID
func (r *documentRepository) GetByID(ctx context.Context, collection models.Collection, id string) (*models.ContentRecord, error) {
	query := `SELECT ` + documentColumns + documentJoin + ` WHERE d.collection = ? AND d.id = ?`

	rec, err := scanDocument(r.db.QueryRowContext(ctx, query, collection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		r.logger.Error("failed to query document", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	return rec, nil
}

// List retrieves the records of a collection.
// Ordered collections are sorted by display_order, collections with a SortField by that field,
// others newest first.
// With publishedOnly set, records whose flag is false are left out.
func (r *documentRepository) List(ctx context.Context, collection models.Collection, publishedOnly bool) ([]models.ContentRecord, error) {
	spec, err := models.LookupCollection(string(collection))
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + documentColumns + documentJoin + ` WHERE d.collection = ?`
	if publishedOnly {
		query += ` AND d.published = TRUE`
	}
	switch {
	case spec.Ordered:
		query += ` ORDER BY d.display_order ASC, d.created_at ASC`
	case spec.SortField != "":
		query += ` ORDER BY JSON_UNQUOTE(JSON_EXTRACT(d.data, '$.` + spec.SortField + `')) ASC, d.created_at DESC`
	default:
		query += ` ORDER BY d.created_at DESC`
	}

	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		r.logger.Error("failed to query documents", zap.Error(err), zap.String("collection", string(collection)))
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	records := make([]models.ContentRecord, 0)
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			r.logger.Error("failed to scan document", zap.Error(err))
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		records = append(records, *rec)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// Update replaces the domain fields of a record and, in the same transaction,
// queues the media the edit no longer references for deletion
func (r *documentRepository) Update(ctx context.Context, rec *models.ContentRecord, released []models.PendingCleanup) error {
	data, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `
			UPDATE documents
			SET data = ?, published = ?, updated_at = ?
			WHERE collection = ? AND id = ?
		`
		result, err := tx.ExecContext(ctx, query, data, rec.Published, rec.UpdatedAt, rec.Collection, rec.ID)
		if err != nil {
			r.logger.Error("failed to update document", zap.Error(err), zap.String("id", rec.ID))
			return fmt.Errorf("failed to update document: %w", err)
		}
		if err := requireRow(ctx, tx, result, rec.Collection, rec.ID); err != nil {
			return err
		}

		return insertCleanups(ctx, tx, released)
	})
}

// SetPublished writes the visibility flag. Existence is the only precondition.
func (r *documentRepository) SetPublished(ctx context.Context, collection models.Collection, id string, value bool) error {
	query := `
		UPDATE documents
		SET published = ?, updated_at = CURRENT_TIMESTAMP
		WHERE collection = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, query, value, collection, id)
	if err != nil {
		r.logger.Error("failed to set published flag", zap.Error(err), zap.String("id", id))
		return fmt.Errorf("failed to set published flag: %w", err)
	}

	return requireRow(ctx, r.db, result, collection, id)
}

// Delete removes a record. In the same transaction it clears the active pointer
// when the record holds it and queues the record's media for deletion.
func (r *documentRepository) Delete(ctx context.Context, collection models.Collection, id string, released []models.PendingCleanup) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
		if err != nil {
			r.logger.Error("failed to delete document", zap.Error(err), zap.String("id", id))
			return fmt.Errorf("failed to delete document: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return models.ErrRecordNotFound
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE active_records
			SET record_id = NULL, version = version + 1
			WHERE collection = ? AND record_id = ?
		`, collection, id); err != nil {
			r.logger.Error("failed to clear active pointer", zap.Error(err), zap.String("id", id))
			return fmt.Errorf("failed to clear active pointer: %w", err)
		}

		return insertCleanups(ctx, tx, released)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.ContentRecord, error) {
	var (
		rec          models.ContentRecord
		data         []byte
		displayOrder sql.NullInt64
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Collection,
		&data,
		&rec.Published,
		&displayOrder,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.IsActive,
	); err != nil {
		return nil, err
	}

	rec.Fields = make(map[string]any)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode document %s: %w", rec.ID, err)
		}
	}
	if displayOrder.Valid {
		order := int(displayOrder.Int64)
		rec.DisplayOrder = &order
	}

	return &rec, nil
}

// requireRow turns a zero-row update into ErrRecordNotFound.
// MySQL reports zero affected rows when the value is unchanged, so existence is checked explicitly.
func requireRow(ctx context.Context, q dbx.DBTX, result sql.Result, collection models.Collection, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	if err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM documents WHERE collection = ? AND id = ?)`,
		collection, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check document existence: %w", err)
	}
	if !exists {
		return models.ErrRecordNotFound
	}
	return nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
