// Package version carries the client's build version and the User-Agent
// string derived from it.
//
// The version is set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/serviceclient/version.Version=1.2.0"
package version
