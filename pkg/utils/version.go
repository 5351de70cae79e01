// Package utils holds small helpers shared by revchat commands.
package utils

// Build stamp, set with -ldflags "-X github.com/reviewagent/revchat/pkg/utils.Version=...".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
