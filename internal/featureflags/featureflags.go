package featureflags

import (
	"context"
	"fmt"
	"os"

	"github.com/rollout/rox-go/v5/server"
)

// Container holds every flag the service reads. Defaults apply whenever
// the Rollout backend is unreachable or no API key is configured.
type Container struct {
	// Offline blocks all traffic except health checks when enabled.
	Offline server.RoxFlag
	// LogLevel drives the leveled logger; watched for flips at runtime.
	LogLevel server.RoxString
	// DefaultKidMode makes unauthenticated sessions browse in kid mode.
	DefaultKidMode server.RoxFlag
}

var flags = &Container{
	Offline:        server.NewRoxFlag(false),
	LogLevel:       server.NewRoxString("info", []string{"debug", "info", "warn", "error"}),
	DefaultKidMode: server.NewRoxFlag(true),
}

var rox *server.Rox

// Values returns the process-wide flag container. Safe to call before Init;
// flags evaluate to their defaults until setup completes.
func Values() *Container {
	return flags
}

// Init registers the container and connects to Rollout. The key argument
// overrides ROLLOUT_API_KEY; with neither present Init returns an error and
// the flags keep their defaults, which callers treat as non-fatal.
func Init(ctx context.Context, key string) error {
	if key == "" {
		key = os.Getenv("ROLLOUT_API_KEY")
	}
	if key == "" {
		return fmt.Errorf("no rollout API key configured, using flag defaults")
	}

	rox = server.NewRox()
	rox.Register("", flags)

	options := server.NewRoxOptions(server.RoxOptionsBuilder{})
	done := rox.Setup(key, options)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("feature flags setup: %w", ctx.Err())
	}
}

// Shutdown disconnects from Rollout. No-op when Init never completed.
func Shutdown() {
	if rox != nil {
		<-rox.Shutdown()
	}
}
