// Package version reports the xform build.
//
// Version and GitCommit may be set at link time:
//
//	go build -ldflags "-X github.com/kbukum/xform/version.Version=1.0.0" ./cmd/xform
//
// Otherwise the commit comes from the VCS stamp of the binary.
package version
