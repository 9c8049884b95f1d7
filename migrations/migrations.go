// Package migrations embebe los archivos de schema SQL que el store de
// postgres aplica al arrancar.
package migrations

import "embed"

//go:embed postgres/*.sql
var Postgres embed.FS
