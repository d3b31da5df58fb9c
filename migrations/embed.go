// Package migrations embeds the journal schema into the binary.
package migrations

import (
	"embed"

	"github.com/Mlodko/iot2025-plants/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
