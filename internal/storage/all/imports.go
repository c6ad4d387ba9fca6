// Package all registers every built-in storage backend. Import it for side
// effects from the binary's wiring layer:
//
//	import _ "archesprep/internal/storage/all"
//
// Binaries that need only a subset can import the backend packages directly.
package all

import (
	_ "archesprep/internal/storage/csvfile"
	_ "archesprep/internal/storage/mssql"
	_ "archesprep/internal/storage/mysql"
	_ "archesprep/internal/storage/postgres"
	_ "archesprep/internal/storage/sqlite"
)
