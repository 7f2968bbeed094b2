// Package config carries build metadata injected through -ldflags by the dev
// tool.
package config

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)
