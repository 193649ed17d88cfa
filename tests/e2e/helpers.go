// Package e2e runs the hooks against a real Docker daemon.
package e2e

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/stackhooks/internal/shell/docker"
	"github.com/stretchr/testify/require"
)

// testPrefix marks compose projects created by these tests.
const testPrefix = "stackhooks-e2e-"

// skipIfNoDocker skips unless both the Engine API and the compose plugin
// are usable.
func skipIfNoDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("e2e tests skipped in short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker CLI not installed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cli, err := docker.NewDockerClient(ctx, "")
	if err != nil {
		t.Skip("Docker not available:", err)
	}
	defer cli.Close()
	if err := cli.Ping(ctx); err != nil {
		t.Skip("Docker not reachable:", err)
	}
	if err := exec.CommandContext(ctx, "docker", "compose", "version").Run(); err != nil {
		t.Skip("docker compose plugin not available:", err)
	}
}

// writeStack creates a deployment directory holding descriptor.
func writeStack(t *testing.T, descriptor string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docker-compose.yml"), []byte(descriptor), 0o644))
	return dir
}

// cleanupStack tears the project down when the test ends.
func cleanupStack(t *testing.T, dir, project string) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		var out bytes.Buffer
		cmd := exec.CommandContext(ctx, "docker", "compose", "-p", project, "down", "--remove-orphans")
		cmd.Dir = dir
		cmd.Stdout = &out
		cmd.Stderr = &out
		if err := cmd.Run(); err != nil {
			t.Logf("cleanup of %s failed: %v\n%s", project, err, out.String())
		}
	})
}

// runningServices lists compose services of project with a running container.
func runningServices(t *testing.T, project string) []string {
	t.Helper()
	ctx := context.Background()
	cli, err := docker.NewDockerClient(ctx, "")
	require.NoError(t, err)
	defer cli.Close()

	containers, err := cli.ListContainers(ctx, docker.ListOptions{
		Filters: map[string]string{"label": docker.LabelComposeProject + "=" + project},
	})
	require.NoError(t, err)

	var services []string
	for _, c := range containers {
		services = append(services, c.Service())
	}
	return services
}
