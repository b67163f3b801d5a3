package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/bryanwahyu/autovuln/internal/infra/db"
)

// Connect opens the archive pool on lib/pq.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	return db.Open(ctx, connector)
}
