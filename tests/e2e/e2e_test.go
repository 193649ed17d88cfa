package e2e

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/artpar/stackhooks/internal/cli"
	"github.com/artpar/stackhooks/internal/core/layout"
	"github.com/artpar/stackhooks/internal/core/procedure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sleeperStack = `
services:
  sleeper:
    image: busybox:latest
    command: ["sleep", "600"]
  idler:
    image: busybox:latest
    command: ["sleep", "600"]
`

// TestE2E_InstallThenStart runs both hooks in pipeline order.
func TestE2E_InstallThenStart(t *testing.T) {
	skipIfNoDocker(t)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "scripts", "start_application.sh"), []byte("#!/bin/sh\n"), 0o644))

	var out bytes.Buffer
	code := cli.Execute(cli.AfterInstall("e2e", "now"), []string{"--root", root}, &out, &out)
	require.Equal(t, procedure.ExitSuccess, code, out.String())

	info, err := os.Stat(filepath.Join(root, "scripts", "start_application.sh"))
	require.NoError(t, err)
	assert.True(t, layout.IsExecutable(info.Mode()))
	assert.DirExists(t, filepath.Join(root, "logs"))
	assert.DirExists(t, filepath.Join(root, "temp"))

	project := testPrefix + "pipeline"
	dir := writeStack(t, sleeperStack)
	cleanupStack(t, dir, project)
	t.Setenv("STACKHOOKS_STACK_PROJECT_NAME", project)

	out.Reset()
	code = cli.Execute(cli.ApplicationStart("e2e", "now"), []string{"--dir", dir}, &out, &out)
	require.Equal(t, procedure.ExitSuccess, code, out.String())

	assert.ElementsMatch(t, []string{"sleeper", "idler"}, runningServices(t, project))
	assert.Contains(t, out.String(), "=== Application Started Successfully ===")
}

// TestE2E_StartIsRepeatable restarts an already running stack.
func TestE2E_StartIsRepeatable(t *testing.T) {
	skipIfNoDocker(t)

	project := testPrefix + "repeat"
	dir := writeStack(t, sleeperStack)
	cleanupStack(t, dir, project)
	t.Setenv("STACKHOOKS_STACK_PROJECT_NAME", project)
	t.Setenv("STACKHOOKS_STACK_LIST_MODE", "api")
	t.Setenv("STACKHOOKS_STACK_LIST_PROJECT_ONLY", "true")

	for i := 0; i < 2; i++ {
		var out bytes.Buffer
		code := cli.Execute(cli.ApplicationStart("e2e", "now"), []string{"--dir", dir}, &out, &out)
		require.Equal(t, procedure.ExitSuccess, code, out.String())
		assert.Contains(t, out.String(), project+"-sleeper-1")
	}

	assert.ElementsMatch(t, []string{"sleeper", "idler"}, runningServices(t, project))
}

// TestE2E_MalformedDescriptor leaves nothing running.
func TestE2E_MalformedDescriptor(t *testing.T) {
	skipIfNoDocker(t)

	project := testPrefix + "malformed"
	dir := writeStack(t, "services:\n  web:\n    ports: [\"80:80\"]\n")
	t.Setenv("STACKHOOKS_STACK_PROJECT_NAME", project)

	var out bytes.Buffer
	code := cli.Execute(cli.ApplicationStart("e2e", "now"), []string{"--dir", dir}, &out, &out)

	assert.NotEqual(t, procedure.ExitSuccess, code)
	assert.NotContains(t, out.String(), "Started Successfully")
	assert.Empty(t, runningServices(t, project))
}
