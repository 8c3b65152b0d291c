// Package native loads scripts compiled to shared libraries into the host
// process with dlopen. A fault in the script is a fault in the host.
package native

import "go.uber.org/zap"

// Options configures the native loader.
type Options struct {
	Logger *zap.Logger
}
