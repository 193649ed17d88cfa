package compose

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// DefaultProjectName is used when neither a project name nor a working
// directory is given.
const DefaultProjectName = "stackhooks"

// EnvProjectName overrides the descriptor's top-level name, as it does for
// the compose tool.
const EnvProjectName = "COMPOSE_PROJECT_NAME"

// =============================================================================
// Parser Functions
// =============================================================================

// ParseDescriptor parses compose YAML into a Stack.
// This is a pure function - no I/O, no side effects.
func ParseDescriptor(yamlContent string, opts LoadOptions) (*Stack, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, ErrEmptyInput
	}

	project, err := loadProject(yamlContent, opts)
	if err != nil {
		return nil, err
	}

	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	projectName := loader.NormalizeProjectName(project.Name)
	if projectName == "" {
		projectName = ResolveProjectName(opts.ProjectName, opts.Environment, opts.WorkingDir)
	}

	stack := &Stack{
		ProjectName: projectName,
		WorkingDir:  opts.WorkingDir,
		File:        opts.Filename,
		Services:    make([]Service, 0, len(project.Services)),
	}

	for _, svc := range project.Services {
		converted, err := convertService(svc)
		if err != nil {
			return nil, err
		}
		stack.Services = append(stack.Services, converted)
	}
	sort.Slice(stack.Services, func(i, j int) bool {
		return stack.Services[i].Name < stack.Services[j].Name
	})

	if err := detectCircularDependencies(stack.Services); err != nil {
		return nil, err
	}
	if err := validatePorts(stack.Services); err != nil {
		return nil, err
	}
	if err := validateContainerNames(stack.Services); err != nil {
		return nil, err
	}

	return stack, nil
}

// ProjectNameOverride returns the project name given by -p or by
// COMPOSE_PROJECT_NAME in env, in that order. Either one beats a name
// declared inside the descriptor. Empty means no override.
func ProjectNameOverride(explicit string, env map[string]string) string {
	if name := loader.NormalizeProjectName(explicit); name != "" {
		return name
	}
	return loader.NormalizeProjectName(env[EnvProjectName])
}

// ResolveProjectName picks the project name without reading the descriptor:
// the override if any, otherwise the directory name.
func ResolveProjectName(explicit string, env map[string]string, workingDir string) string {
	if name := ProjectNameOverride(explicit, env); name != "" {
		return name
	}
	if workingDir != "" {
		if name := loader.NormalizeProjectName(filepath.Base(workingDir)); name != "" {
			return name
		}
	}
	return DefaultProjectName
}

// loadProject loads a compose project using compose-go.
func loadProject(yamlContent string, opts LoadOptions) (*types.Project, error) {
	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil {
		return nil, NewParseError(opts.Filename, "invalid YAML syntax", ErrInvalidYAML)
	}
	if dict == nil {
		return nil, NewParseError(opts.Filename, "invalid YAML syntax", ErrInvalidYAML)
	}

	env := types.Mapping{}
	for k, v := range opts.Environment {
		env[k] = v
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		WorkingDir: opts.WorkingDir,
		ConfigFiles: []types.ConfigFile{
			{
				Filename: opts.Filename,
				Content:  []byte(yamlContent),
				Config:   dict,
			},
		},
		Environment: env,
	}, func(o *loader.Options) {
		if name := ProjectNameOverride(opts.ProjectName, opts.Environment); name != "" {
			o.SetProjectName(name, true)
		} else {
			o.SetProjectName(ResolveProjectName("", nil, opts.WorkingDir), false)
		}
		o.SkipValidation = false
		o.SkipInterpolation = false
		o.SkipNormalization = true
		o.SkipExtends = true
	})
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "dependency cycle detected") {
			return nil, NewParseError("", "circular dependency detected", ErrCircularDependency)
		}
		if strings.Contains(errStr, "image") && strings.Contains(errStr, "build") {
			return nil, NewParseError("", "service must have image or build", ErrServiceNoImage)
		}
		if strings.Contains(errStr, "empty compose file") || strings.Contains(errStr, "no service") {
			return nil, NewParseError(opts.Filename, errStr, ErrNoServices)
		}
		return nil, NewParseError(opts.Filename, errStr, ErrInvalidYAML)
	}

	return project, nil
}

// convertService converts a compose-go service to our Service type.
func convertService(svc types.ServiceConfig) (Service, error) {
	service := Service{
		Name:          svc.Name,
		Image:         svc.Image,
		ContainerName: svc.ContainerName,
		DependsOn:     make([]string, 0, len(svc.DependsOn)),
	}

	if svc.Build != nil {
		service.Build = &BuildConfig{
			Context:    svc.Build.Context,
			Dockerfile: svc.Build.Dockerfile,
		}
	}

	if service.Image == "" && service.Build == nil {
		return Service{}, NewParseError("services."+svc.Name, "service must have image or build", ErrServiceNoImage)
	}

	for _, p := range svc.Ports {
		var published uint32
		if p.Published != "" {
			pub, err := strconv.ParseUint(p.Published, 10, 32)
			if err == nil {
				published = uint32(pub)
			}
		}
		service.Ports = append(service.Ports, Port{
			Target:    p.Target,
			Published: published,
			Protocol:  p.Protocol,
			HostIP:    p.HostIP,
		})
	}

	for dep := range svc.DependsOn {
		service.DependsOn = append(service.DependsOn, dep)
	}
	sort.Strings(service.DependsOn)

	return service, nil
}

// detectCircularDependencies detects circular dependencies in service dependencies.
func detectCircularDependencies(services []Service) error {
	deps := make(map[string][]string)
	for _, svc := range services {
		deps[svc.Name] = svc.DependsOn
	}

	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var hasCycle func(node string) bool
	hasCycle = func(node string) bool {
		visited[node] = true
		recStack[node] = true

		for _, dep := range deps[node] {
			if dep == node {
				return true
			}
			if !visited[dep] {
				if hasCycle(dep) {
					return true
				}
			} else if recStack[dep] {
				return true
			}
		}

		recStack[node] = false
		return false
	}

	for _, svc := range services {
		if !visited[svc.Name] {
			if hasCycle(svc.Name) {
				return ErrCircularDependency
			}
		}
	}

	return nil
}

// validatePorts validates all port configurations.
func validatePorts(services []Service) error {
	for _, svc := range services {
		for i, port := range svc.Ports {
			field := fmt.Sprintf("services.%s.ports[%d]", svc.Name, i)
			if port.Target == 0 {
				return NewParseError(field, "target port cannot be 0", ErrServiceInvalidPort)
			}
			if port.Target > 65535 {
				return NewParseError(field, "target port must be <= 65535", ErrServiceInvalidPort)
			}
			if port.Published > 65535 {
				return NewParseError(field, "published port must be <= 65535", ErrServiceInvalidPort)
			}
		}
	}
	return nil
}

// validateContainerNames rejects two services pinned to the same
// container_name; the second "up" would fail on the name conflict.
func validateContainerNames(services []Service) error {
	owner := make(map[string]string)
	for _, svc := range services {
		if svc.ContainerName == "" {
			continue
		}
		if prev, ok := owner[svc.ContainerName]; ok {
			return NewParseError(
				"services."+svc.Name+".container_name",
				fmt.Sprintf("%q is already used by service %s", svc.ContainerName, prev),
				ErrDuplicateContainer,
			)
		}
		owner[svc.ContainerName] = svc.Name
	}
	return nil
}

// =============================================================================
// Container Expectations
// =============================================================================

// ExpectedContainerName is the name the compose tool gives the first replica
// of a service.
func ExpectedContainerName(projectName string, svc Service) string {
	if svc.ContainerName != "" {
		return svc.ContainerName
	}
	return projectName + "-" + svc.Name + "-1"
}

// ExpectedContainers returns the expected container names, sorted.
func (s *Stack) ExpectedContainers() []string {
	names := make([]string, 0, len(s.Services))
	for _, svc := range s.Services {
		names = append(names, ExpectedContainerName(s.ProjectName, svc))
	}
	sort.Strings(names)
	return names
}

// MissingContainers returns the expected container names that are absent
// from running, sorted.
func (s *Stack) MissingContainers(running []string) []string {
	up := make(map[string]bool, len(running))
	for _, name := range running {
		up[name] = true
	}
	var missing []string
	for _, name := range s.ExpectedContainers() {
		if !up[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
