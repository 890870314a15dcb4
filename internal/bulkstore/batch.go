// Package bulkstore implements the staging-table bulk load pattern: rows are
// buffered in memory, copied into a staging table, merged into the permanent
// table with a single statement, then the staging table is cleared. All three
// steps share one transaction so a retried commit never double-applies rows.
package bulkstore

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StagingTableToken is the placeholder replaced by the staging table name in
// merge statements.
const StagingTableToken = "{{STAGING_TABLE}}"

// Batch buffers rows of one staging row type. Not safe for concurrent Add;
// every loader owns its batch.
type Batch[T any] struct {
	log       *zap.Logger
	staging   string
	mergeSQL  string
	chunkSize int
	rows      []T
}

func NewBatch[T any](staging, mergeSQL string, chunkSize int, log *zap.Logger) *Batch[T] {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	return &Batch[T]{
		log:       log.Named("bulkstore"),
		staging:   staging,
		mergeSQL:  strings.ReplaceAll(mergeSQL, StagingTableToken, staging),
		chunkSize: chunkSize,
	}
}

func (b *Batch[T]) Add(row T) {
	b.rows = append(b.rows, row)
}

func (b *Batch[T]) Len() int { return len(b.rows) }

// CommitAll flushes buffered rows through the staging table. A zero-row batch
// is a no-op. On success the buffer is cleared; on failure the transaction is
// rolled back and the buffer kept, so the caller may retry.
func (b *Batch[T]) CommitAll(ctx context.Context, db *gorm.DB) error {
	if len(b.rows) == 0 {
		return nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(b.staging).CreateInBatches(b.rows, b.chunkSize).Error; err != nil {
			return fmt.Errorf("stage %d rows into %s: %w", len(b.rows), b.staging, err)
		}
		if err := tx.Exec(b.mergeSQL).Error; err != nil {
			return fmt.Errorf("merge from %s: %w", b.staging, err)
		}
		if err := tx.Exec("DELETE FROM " + b.staging).Error; err != nil {
			return fmt.Errorf("clear %s: %w", b.staging, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.log.Debug("batch committed", zap.String("staging", b.staging), zap.Int("rows", len(b.rows)))
	b.rows = b.rows[:0]
	return nil
}
