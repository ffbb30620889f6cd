// Package utils holds small helpers shared by the chatrelay commands that
// don't warrant a package of their own.
package utils

// Build metadata, overwritten at link time:
//
//	go build -ldflags "-X github.com/papercomputeco/chatrelay/pkg/utils.Version=v0.3.0 ..."
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
