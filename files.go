package auth

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded schema migrations for the users and
// refresh_sessions tables. Hosts mount these into their own migration runner.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
