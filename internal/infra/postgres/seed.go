package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"timed-quiz-service/internal/domain"
)

type catalogRow struct {
	bun.BaseModel `bun:"table:catalogs"`

	ID        string         `bun:"id,pk"`
	Data      domain.Catalog `bun:"data,type:jsonb"`
	UpdatedAt time.Time      `bun:"updated_at,notnull"`
}

// Seed upserts catalogs into the catalogs table. Each catalog is validated first.
func Seed(ctx context.Context, db *bun.DB, catalogs ...domain.Catalog) error {
	if len(catalogs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]catalogRow, 0, len(catalogs))
	for _, c := range catalogs {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("seed %q: %w", c.ID, err)
		}
		rows = append(rows, catalogRow{ID: c.ID, Data: c, UpdatedAt: now})
	}

	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("seed catalogs: %w", err)
	}
	return nil
}
