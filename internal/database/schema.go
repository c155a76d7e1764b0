package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"mekaniku/internal/models"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		(*models.User)(nil),
		(*models.Workshop)(nil),
		(*models.ServiceCatalog)(nil),
		(*models.Mechanic)(nil),
		(*models.Vehicle)(nil),
		(*models.Consultation)(nil),
		(*models.Booking)(nil),
		(*models.Payment)(nil),
		(*models.Inspection)(nil),
		(*models.WorkOrder)(nil),
		(*models.Review)(nil),
		(*models.Report)(nil),
		(*models.AuditLog)(nil),
		(*models.Notification)(nil),
	}
}

// CreateSchema creates all tables from the bun models. Production schemas come
// from the SQL migrations; this is for SQLite tests and local tooling.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range Models() {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}

func DropSchema(ctx context.Context, db bun.IDB) error {
	all := Models()
	for i := len(all) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(all[i]).IfExists().Cascade().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", all[i], err)
		}
	}
	return nil
}
