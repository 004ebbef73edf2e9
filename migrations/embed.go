// Package migrations embeds the versioned postgres schema so the binaries
// and integration tests do not depend on the working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
