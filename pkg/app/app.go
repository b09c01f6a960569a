// Package app defines common runtime contracts shared by executable
// entrypoints.
//
// It provides minimal abstractions that allow cmd/* binaries to start
// application components without depending on their concrete implementations.
package app

import "context"

// Runner represents a runnable application component.
type Runner interface {
	Run(ctx context.Context) error
}
