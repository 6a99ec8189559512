// Package sqlite implements repository.Store on a local SQLite file, for
// datasets kept on disk instead of in the cloud.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/autolabel/internal/adapters/repository"
	"github.com/okian/autolabel/internal/domain/model"
)

// Store wraps the SQLite database connection.
type Store struct {
	conn *sql.DB
}

// New opens (creating if needed) the database at dbPath and migrates it.
func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("empty database path")
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{conn: conn}

	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assets (
		file_id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL DEFAULT '',
		location_id TEXT NOT NULL DEFAULT '',
		dataset_id TEXT NOT NULL,
		mime_type TEXT NOT NULL DEFAULT '',
		data BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS asset_tags (
		file_id TEXT NOT NULL,
		tag TEXT NOT NULL,
		PRIMARY KEY (file_id, tag),
		FOREIGN KEY (file_id) REFERENCES assets(file_id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS bounding_boxes (
		id TEXT PRIMARY KEY,
		file_id TEXT NOT NULL,
		label TEXT NOT NULL,
		x_min REAL NOT NULL,
		y_min REAL NOT NULL,
		x_max REAL NOT NULL,
		y_max REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (file_id) REFERENCES assets(file_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_assets_dataset ON assets(dataset_id, file_id);
	CREATE INDEX IF NOT EXISTS idx_boxes_file ON bounding_boxes(file_id);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// Put inserts or replaces an asset with its tags. Existing boxes are kept.
func (s *Store) Put(ctx context.Context, asset model.Asset) error {
	if !asset.ID.Valid() {
		return fmt.Errorf("asset without file id")
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO assets (file_id, organization_id, location_id, dataset_id, mime_type, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id) DO UPDATE SET
			organization_id = excluded.organization_id,
			location_id = excluded.location_id,
			dataset_id = excluded.dataset_id,
			mime_type = excluded.mime_type,
			data = excluded.data
	`, asset.ID.FileID, asset.ID.OrganizationID, asset.ID.LocationID, asset.DatasetID, asset.MimeType, asset.Binary)
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}

	if err := insertTags(ctx, tx, asset.ID.FileID, asset.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// Query implements repository.Store. The cursor is the last file id returned.
func (s *Store) Query(ctx context.Context, filter repository.Filter, last string, limit int) (repository.Page, error) {
	if limit < 1 {
		return repository.Page{}, fmt.Errorf("%w: %d", repository.ErrInvalidLimit, limit)
	}

	var (
		sb   strings.Builder
		args = []any{filter.DatasetID, last}
	)
	sb.WriteString(`
		SELECT file_id, organization_id, location_id, dataset_id, mime_type, data
		FROM assets
		WHERE dataset_id = ? AND file_id > ?`)
	if len(filter.ExcludeTags) > 0 {
		sb.WriteString(` AND NOT EXISTS (SELECT 1 FROM asset_tags t WHERE t.file_id = assets.file_id AND t.tag IN (`)
		for i, tag := range filter.ExcludeTags {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("?")
			args = append(args, tag)
		}
		sb.WriteString("))")
	}
	sb.WriteString(` ORDER BY file_id LIMIT ?`)
	args = append(args, limit)

	rows, err := s.conn.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return repository.Page{}, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var items []model.Asset
	for rows.Next() {
		var a model.Asset
		if err := rows.Scan(&a.ID.FileID, &a.ID.OrganizationID, &a.ID.LocationID, &a.DatasetID, &a.MimeType, &a.Binary); err != nil {
			return repository.Page{}, fmt.Errorf("failed to scan asset: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return repository.Page{}, fmt.Errorf("failed to iterate assets: %w", err)
	}

	page := repository.Page{Items: items, Count: len(items), Last: last}
	for i := range page.Items {
		if err := s.loadDetails(ctx, &page.Items[i]); err != nil {
			return repository.Page{}, err
		}
		page.Last = page.Items[i].ID.FileID
	}
	return page, nil
}

// loadDetails fills the tags and annotations of a.
func (s *Store) loadDetails(ctx context.Context, a *model.Asset) error {
	tags, err := s.conn.QueryContext(ctx, `SELECT tag FROM asset_tags WHERE file_id = ? ORDER BY tag`, a.ID.FileID)
	if err != nil {
		return fmt.Errorf("failed to query tags: %w", err)
	}
	defer tags.Close()
	for tags.Next() {
		var tag string
		if err := tags.Scan(&tag); err != nil {
			return fmt.Errorf("failed to scan tag: %w", err)
		}
		a.Tags = append(a.Tags, tag)
	}
	if err := tags.Err(); err != nil {
		return fmt.Errorf("failed to iterate tags: %w", err)
	}

	anns, err := s.Annotations(ctx, a.ID.FileID)
	if err != nil {
		return err
	}
	a.Annotations = anns
	return nil
}

// Annotations returns the boxes attached to a file, oldest first.
func (s *Store) Annotations(ctx context.Context, fileID string) ([]model.Annotation, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, label, x_min, y_min, x_max, y_max
		FROM bounding_boxes WHERE file_id = ? ORDER BY created_at, rowid
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bounding boxes: %w", err)
	}
	defer rows.Close()

	var anns []model.Annotation
	for rows.Next() {
		var ann model.Annotation
		if err := rows.Scan(&ann.ID, &ann.Label, &ann.Box.XMin, &ann.Box.YMin, &ann.Box.XMax, &ann.Box.YMax); err != nil {
			return nil, fmt.Errorf("failed to scan bounding box: %w", err)
		}
		anns = append(anns, ann)
	}
	return anns, rows.Err()
}

// AddBoundingBox implements repository.Store.
func (s *Store) AddBoundingBox(ctx context.Context, id model.BinaryID, label string, box model.NormalizedBox) (string, error) {
	boxID := uuid.NewString()
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO bounding_boxes (id, file_id, label, x_min, y_min, x_max, y_max)
		SELECT ?, file_id, ?, ?, ?, ?, ? FROM assets WHERE file_id = ?
	`, boxID, label, box.XMin, box.YMin, box.XMax, box.YMax, id.FileID)
	if err != nil {
		return "", fmt.Errorf("failed to insert bounding box: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", fmt.Errorf("%w: %s", ErrAssetNotFound, id.FileID)
	}
	return boxID, nil
}

// AddTags implements repository.Store. Tags already present are left as is.
func (s *Store) AddTags(ctx context.Context, ids []model.BinaryID, tags []string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM assets WHERE file_id = ?`, id.FileID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to look up asset: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, id.FileID)
		}
		if err := insertTags(ctx, tx, id.FileID, tags); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func insertTags(ctx context.Context, tx *sql.Tx, fileID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO asset_tags (file_id, tag) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, tag := range tags {
		if _, err := stmt.ExecContext(ctx, fileID, tag); err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}
	}
	return nil
}
