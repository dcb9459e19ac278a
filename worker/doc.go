// Package worker provides a goroutine pool for constructing model
// instances from many raw payloads in parallel, such as bulk exports
// or directory imports.
package worker
