// Package buildinfo reports the version of the running binary.
//
// Release builds inject values with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/respkv/internal/infra/buildinfo.Version=v0.1.0 \
//	  -X github.com/yndnr/respkv/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// Fields left unset fall back to the VCS stamp and Go version embedded by
// the toolchain.
package buildinfo
