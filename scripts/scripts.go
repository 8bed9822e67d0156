// Package scripts bundles the Risor validator scripts shipped with graft.
package scripts

import "embed"

// FS holds validate/*.risor.
//
//go:embed validate/*.risor
var FS embed.FS
