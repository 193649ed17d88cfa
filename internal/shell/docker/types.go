// Package docker drives the container tool for the start hook: the compose
// CLI for down/up, and either a listing command or the Engine API for the
// running-container report.
package docker

import (
	"context"
	"io"
	"time"
)

// Labels the compose tool puts on every container it creates.
const (
	LabelComposeProject = "com.docker.compose.project"
	LabelComposeService = "com.docker.compose.service"
)

// List modes.
const (
	ListModeCLI = "cli"
	ListModeAPI = "api"
)

// =============================================================================
// Container Info
// =============================================================================

// PortBinding defines a port mapping.
type PortBinding struct {
	ContainerPort int
	HostPort      int    // 0 when not published
	Protocol      string // "tcp" or "udp"
	HostIP        string
}

// ContainerInfo contains information about a container.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	State     string // "running", "exited", "created", etc.
	Status    string // human status from the daemon, e.g. "Up 3 minutes"
	CreatedAt time.Time
	Ports     []PortBinding
	Labels    map[string]string
}

// Service returns the compose service label, if any.
func (c ContainerInfo) Service() string {
	return c.Labels[LabelComposeService]
}

// ListOptions defines options for listing containers.
type ListOptions struct {
	All     bool              // Include stopped containers
	Filters map[string]string // Filter by label, name, etc.
}

// =============================================================================
// Interfaces
// =============================================================================

// Client is the slice of the Docker Engine API the hooks use.
type Client interface {
	Ping(ctx context.Context) error
	ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error)
	Close() error
}

// Lister writes the running-container report to w. Listers backed by the
// Engine API also return the containers; CLI listers return nil.
type Lister interface {
	List(ctx context.Context, w io.Writer) ([]ContainerInfo, error)
}
