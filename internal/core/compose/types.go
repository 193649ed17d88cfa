package compose

// =============================================================================
// Stack - Main Output Type
// =============================================================================

// Stack is the part of a compose descriptor the hooks care about: which
// services it brings up and what their containers will be called.
type Stack struct {
	ProjectName string    `json:"project_name"`
	WorkingDir  string    `json:"working_dir,omitempty"`
	File        string    `json:"file,omitempty"`
	Services    []Service `json:"services"`
}

// Service represents a single service definition.
type Service struct {
	Name          string       `json:"name"`
	Image         string       `json:"image,omitempty"`
	Build         *BuildConfig `json:"build,omitempty"`
	ContainerName string       `json:"container_name,omitempty"`
	Ports         []Port       `json:"ports,omitempty"`
	DependsOn     []string     `json:"depends_on,omitempty"`
}

// BuildConfig represents build configuration (optional).
type BuildConfig struct {
	Context    string `json:"context"`
	Dockerfile string `json:"dockerfile,omitempty"`
}

// Port represents a port mapping.
type Port struct {
	Target    uint32 `json:"target"`              // Container port
	Published uint32 `json:"published,omitempty"` // Host port (0 = dynamic)
	Protocol  string `json:"protocol,omitempty"`  // tcp, udp
	HostIP    string `json:"host_ip,omitempty"`   // Bind IP
}

// LoadOptions controls how a descriptor is loaded.
type LoadOptions struct {
	// ProjectName overrides the project name. Empty falls back to
	// COMPOSE_PROJECT_NAME in Environment, then the descriptor's top-level
	// name, then the normalized base name of WorkingDir.
	ProjectName string
	// WorkingDir is the directory holding the descriptor.
	WorkingDir string
	// Filename is used in error messages only.
	Filename string
	// Environment is used for ${VAR} interpolation.
	Environment map[string]string
}

// ServiceNames returns the service names, sorted.
func (s *Stack) ServiceNames() []string {
	names := make([]string, 0, len(s.Services))
	for _, svc := range s.Services {
		names = append(names, svc.Name)
	}
	return names
}
