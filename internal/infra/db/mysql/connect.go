package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/bryanwahyu/autovuln/internal/infra/db"
)

// Connect opens the archive pool. parseTime and UTC are forced whatever the DSN says.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return db.Open(ctx, connector)
}
