// Package migrations embeds the SQL schema for both supported store dialects.
package migrations

import "embed"

// Postgres holds the migrations applied to a Postgres lookup store.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite holds the migrations applied to an embedded SQLite lookup store.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
