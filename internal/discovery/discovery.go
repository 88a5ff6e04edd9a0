// Package discovery resolves a local remote-debugging port to the WebSocket
// control endpoint exposed by a running Chrome instance.
package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
)

// ErrNoEndpoint reports that no reachable debug endpoint exists on the port.
// Non-sticky: the next resolution attempt probes again.
var ErrNoEndpoint = errors.New("no debuggable browser endpoint found")

// Resolver turns a debug port into a control endpoint URL.
type Resolver interface {
	Resolve(ctx context.Context, port int) (string, error)
}

// PortResolver probes 127.0.0.1:<port>/json/version via Rod's launcher helpers.
type PortResolver struct{}

func NewPortResolver() *PortResolver {
	return &PortResolver{}
}

func (r *PortResolver) Resolve(ctx context.Context, port int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("debug port %d out of range: %w", port, ErrNoEndpoint)
	}

	controlURL, err := launcher.ResolveURL(fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return "", fmt.Errorf("probe port %d: %v: %w", port, err, ErrNoEndpoint)
	}
	return controlURL, nil
}
