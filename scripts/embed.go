// Package scripts embeds the default Risor lint scripts.
package scripts

import "embed"

// FS holds lint/*.risor.
//
//go:embed lint/*.risor
var FS embed.FS
