// Package audit appends AuditLog rows inside the caller's unit of work.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type Entry struct {
	ActorID    string
	EntityType string
	EntityID   string
	Action     string
	FromStatus string
	ToStatus   string
	Meta       map[string]interface{}
}

// Record inserts e using idb, normally the transaction of the change it describes.
func Record(ctx context.Context, idb bun.IDB, e Entry) (*models.AuditLog, error) {
	row := &models.AuditLog{
		ID:         utils.GenerateID(),
		ActorID:    e.ActorID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		Meta:       e.Meta,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := idb.NewInsert().Model(row).Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert audit log for %s %s: %w", e.EntityType, e.EntityID, err)
	}
	return row, nil
}

// ForEntity returns the audit trail of one entity, oldest first.
func ForEntity(ctx context.Context, idb bun.IDB, entityType, entityID string) ([]models.AuditLog, error) {
	var rows []models.AuditLog
	err := idb.NewSelect().
		Model(&rows).
		Where("al.entity_type = ?", entityType).
		Where("al.entity_id = ?", entityID).
		OrderExpr("al.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
