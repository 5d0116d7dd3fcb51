package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/infrastructure/repo"
	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/usecase"
)

// openStore picks a backend by driver name: "memory", "postgres" or "mysql".
func openStore(ctx context.Context, driver, dsn string) (usecase.Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "memory":
		return repo.NewMemoryStore(), nil
	case "postgres", "postgresql":
		if dsn == "" {
			return nil, fmt.Errorf("postgres store needs a database url")
		}
		return repo.OpenPostgres(ctx, dsn)
	case "mysql":
		if dsn == "" {
			return nil, fmt.Errorf("mysql store needs a database url")
		}
		return repo.OpenMySQL(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
