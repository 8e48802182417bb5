// Package storage persists catalog snapshots so a restarted bot can serve
// menus before the first successful spreadsheet sync.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/chartbot/core/logger"
)

const (
	component = "db"

	// DefaultRetain is the number of snapshots kept after each save.
	DefaultRetain = 20
)

// SnapshotStore keeps the recent catalog name lists in the
// catalog_snapshots table. It implements catalog.SnapshotStore.
type SnapshotStore struct {
	db     *sqlx.DB
	retain int
	now    func() time.Time
}

// NewSnapshotStore returns a store over db. retain <= 0 selects DefaultRetain.
func NewSnapshotStore(db *sqlx.DB, retain int) *SnapshotStore {
	if retain <= 0 {
		retain = DefaultRetain
	}
	return &SnapshotStore{db: db, retain: retain, now: time.Now}
}

type snapshotRow struct {
	ID        int64     `db:"id"`
	Names     string    `db:"names"`
	CreatedAt time.Time `db:"created_at"`
}

// Load returns the most recent snapshot. ok is false when none was saved yet.
func (s *SnapshotStore) Load(ctx context.Context) ([]string, bool, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, names, created_at FROM catalog_snapshots ORDER BY id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load catalog snapshot: %w", err)
	}

	var names []string
	if err := json.Unmarshal([]byte(row.Names), &names); err != nil {
		return nil, false, fmt.Errorf("decode catalog snapshot %d: %w", row.ID, err)
	}
	logger.Debug(ctx, component, "snapshot.load",
		slog.Int64("id", row.ID),
		slog.Int("count", len(names)),
		slog.Time("saved_at", row.CreatedAt),
	)
	return names, true, nil
}

// Save inserts names as the newest snapshot and prunes old rows.
func (s *SnapshotStore) Save(ctx context.Context, names []string) error {
	if names == nil {
		names = []string{}
	}
	payload, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode catalog snapshot: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := tx.Rebind(`INSERT INTO catalog_snapshots (names, created_at) VALUES (?, ?)`)
	if _, err := tx.ExecContext(ctx, insert, string(payload), s.now().UTC()); err != nil {
		return fmt.Errorf("insert catalog snapshot: %w", err)
	}
	prune := tx.Rebind(`DELETE FROM catalog_snapshots WHERE id NOT IN (
		SELECT id FROM catalog_snapshots ORDER BY id DESC LIMIT ?)`)
	res, err := tx.ExecContext(ctx, prune, s.retain)
	if err != nil {
		return fmt.Errorf("prune catalog snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot tx: %w", err)
	}

	pruned, _ := res.RowsAffected()
	logger.Debug(ctx, component, "snapshot.save",
		slog.String("status", "ok"),
		slog.Int("count", len(names)),
		slog.Int64("pruned", pruned),
	)
	return nil
}
