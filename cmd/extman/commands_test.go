package extman

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/persist"
	"github.com/arthur-debert/extman/pkg/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	root       string
	configDir  string
	catalogDir string
	stateDir   string
}

func (e testEnv) stateFile() string { return filepath.Join(e.stateDir, "state.yml") }

// setupEnv points every extman directory at a temp dir and installs a small
// catalog: app depends on lib and requires a value lib only suggests.
func setupEnv(t *testing.T) testEnv {
	t.Helper()
	root := t.TempDir()
	env := testEnv{
		root:       root,
		configDir:  filepath.Join(root, "config"),
		catalogDir: filepath.Join(root, "data", "extensions"),
		stateDir:   filepath.Join(root, "state"),
	}
	t.Setenv("EXTMAN_CONFIG_DIR", env.configDir)
	t.Setenv("EXTMAN_DATA_DIR", filepath.Join(root, "data"))
	t.Setenv("EXTMAN_STATE_DIR", env.stateDir)
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "xdg-state"))
	t.Setenv("NO_COLOR", "1")

	testutil.WriteTree(t, afero.NewOsFs(), env.catalogDir, map[string]string{
		"app-1.0.0/definition.yml": `
name: app
version: 1.0.0
depends:
  lib: ^2.0.0
`,
		"app-1.0.0/config.yml": `
lib:
  mode:
    required-value: fast
`,
		"lib-2.0.0/definition.yml": `
name: lib
version: 2.0.0
options:
  level:
    contents: {}
    default: 1
`,
		"lib-2.0.0/config.yml": `
lib:
  mode:
    suggested-value: safe
`,
		"lib-1.0.0/definition.yml":  "name: lib\nversion: 1.0.0\n",
		"tool-0.3.0/definition.yml": "name: tool\nversion: 0.3.0\n",
	})
	return env
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	testutil.WriteFile(t, afero.NewOsFs(), path, content)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "extman %s: %s", strings.Join(args, " "), out)
	return out
}

func TestRootCmd_Structure(t *testing.T) {
	cmd := NewRootCmd()
	want := []string{
		"list", "status", "activate", "deactivate", "move", "set", "unset",
		"import", "export", "conflicts", "history", "undo", "config", "version", "completion",
	}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"verbose", "config", "catalog", "state", "format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootCmd_NoCommand(t *testing.T) {
	setupEnv(t)
	_, err := run(t)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestActivate_SavesStateAndReportsMerge(t *testing.T) {
	env := setupEnv(t)

	out := mustRun(t, "activate", "app")
	assert.Contains(t, out, "Activated app@1.0.0")
	assert.Contains(t, out, "1 warning(s) and 0 error(s)")

	f, err := persist.Load(afero.NewOsFs(), env.stateFile())
	require.NoError(t, err)
	require.Len(t, f.Sparse.LoadOrder, 1)
	assert.Equal(t, "app", f.Sparse.LoadOrder[0].Extension)
	require.Len(t, f.Full.LoadOrder, 2)
	assert.Equal(t, "lib", f.Full.LoadOrder[0].Extension, "load order puts dependencies first")

	status := mustRun(t, "status")
	assert.Contains(t, status, "1. app  1.0.0  explicit")
	assert.Contains(t, status, "2. lib  2.0.0  dependency")
	assert.Contains(t, status, "Configuration: warnings")
}

func TestActivate_UnknownExtension(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "activate", "ap")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrExtensionNotFound))
	assert.Contains(t, err.Error(), "ap")
}

func TestActivate_SeveralIsOneChange(t *testing.T) {
	env := setupEnv(t)

	_, err := run(t, "activate", "tool", "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrExtensionNotFound))
	assert.False(t, testutil.FileExists(t, afero.NewOsFs(), env.stateFile()))
	assert.Contains(t, mustRun(t, "history"), "No history")
	assert.Contains(t, mustRun(t, "status"), "No active extensions")

	out := mustRun(t, "activate", "tool", "app")
	assert.Contains(t, out, "Activated tool@0.3.0")
	assert.Contains(t, out, "Activated app@1.0.0")
	assert.Contains(t, mustRun(t, "history"), "activate tool@0.3.0 app@1.0.0")

	_, err = run(t, "undo")
	require.Error(t, err, "a single snapshot has nothing before it")
}

func TestActivate_ExplicitVersion(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "activate", "lib@1.0.0")
	assert.Contains(t, out, "Activated lib@1.0.0")

	list := mustRun(t, "list", "--all")
	assert.Contains(t, list, "lib   1.0.0  explicit")
	assert.Contains(t, list, "lib   2.0.0  shadowed")
	assert.Contains(t, list, "tool  0.3.0  installed")
}

func TestDeactivate(t *testing.T) {
	setupEnv(t)
	mustRun(t, "activate", "app")

	out := mustRun(t, "deactivate", "app")
	assert.Contains(t, out, "Deactivated app")
	assert.Contains(t, mustRun(t, "status"), "No active extensions")

	_, err := run(t, "deactivate", "app")
	assert.Error(t, err)
}

func TestMove_InvalidDirection(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "move", "app", "sideways")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestMove_SingleExtension(t *testing.T) {
	setupEnv(t)
	mustRun(t, "activate", "tool")

	out := mustRun(t, "move", "tool", "up")
	assert.Contains(t, out, "tool cannot move up")

	_, err := run(t, "move", "app", "up")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestMove_BlockedByDependency(t *testing.T) {
	setupEnv(t)
	mustRun(t, "activate", "app")

	assert.Contains(t, mustRun(t, "move", "app", "down"), "app cannot move down")
	up := mustRun(t, "move", "lib", "up")
	assert.Contains(t, up, "lib cannot move up")
	assert.Contains(t, up, "required by app")
}

func TestSetAndUnset(t *testing.T) {
	env := setupEnv(t)
	mustRun(t, "activate", "app")

	out := mustRun(t, "set", "lib.level", "3")
	assert.Contains(t, out, "Set lib.level = 3")

	f, err := persist.Load(afero.NewOsFs(), env.stateFile())
	require.NoError(t, err)
	user := f.UserContributions()
	require.Len(t, user, 1)
	assert.Equal(t, "lib.level", user[0].URL)
	assert.Equal(t, 3, user[0].Facts[0].Content)

	assert.Contains(t, mustRun(t, "unset", "lib.level"), "Unset lib.level")

	_, err = run(t, "unset", "lib.level")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))

	_, err = run(t, "set", "nope.level", "1")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrExtensionNotFound))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"3", 3},
		{"true", true},
		{"fast", "fast"},
		{"1.5", 1.5},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseValue(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseValue("[unclosed")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestConflicts(t *testing.T) {
	setupEnv(t)
	mustRun(t, "activate", "app")

	out := mustRun(t, "conflicts")
	assert.Contains(t, out, "Warnings")
	assert.Contains(t, out, "lib.mode")
	assert.Contains(t, out, "Overrides")

	raw := mustRun(t, "conflicts", "--raw")
	assert.True(t, strings.HasPrefix(raw, "# Configuration conflicts"))
	assert.Contains(t, raw, "## Warnings")
}

func TestExportAndImport(t *testing.T) {
	env := setupEnv(t)
	mustRun(t, "activate", "app")

	stdout := mustRun(t, "export", "-")
	assert.Contains(t, stdout, "load-order")
	assert.Contains(t, stdout, "extension: app")

	shared := filepath.Join(env.root, "shared.yml")
	assert.Contains(t, mustRun(t, "export", shared), "Exported")

	mustRun(t, "deactivate", "app")
	out := mustRun(t, "import", shared)
	assert.Contains(t, out, "✓ full")
	assert.Contains(t, out, "Imported with the full strategy: 2 active, 1 explicit")
	assert.Contains(t, mustRun(t, "status"), "1. app")
}

func TestImport_FallsBackToSparse(t *testing.T) {
	env := setupEnv(t)
	shared := filepath.Join(env.root, "shared.yml")
	writeFile(t, shared, `
meta:
  format-version: 1
sparse:
  load-order:
    - extension: app
      version: 1.0.0
full:
  load-order:
    - extension: lib
      version: 9.0.0
    - extension: app
      version: 1.0.0
`)

	out := mustRun(t, "import", shared)
	assert.Contains(t, out, "✗ full")
	assert.Contains(t, out, "Imported with the sparse strategy")
}

func TestImport_MissingFile(t *testing.T) {
	env := setupEnv(t)

	_, err := run(t, "import", filepath.Join(env.root, "missing.yml"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileAccess))
}

func TestHistoryAndUndo(t *testing.T) {
	setupEnv(t)

	assert.Contains(t, mustRun(t, "history"), "No history")
	_, err := run(t, "undo")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))

	mustRun(t, "activate", "app")
	mustRun(t, "activate", "tool")

	hist := mustRun(t, "history")
	assert.Contains(t, hist, "activate tool@0.3.0")
	assert.Contains(t, hist, "activate app@1.0.0")

	out := mustRun(t, "undo")
	assert.Contains(t, out, "activate app@1.0.0")

	status := mustRun(t, "status")
	assert.Contains(t, status, "app")
	assert.NotContains(t, status, "tool")
	assert.NotContains(t, mustRun(t, "history"), "activate tool@0.3.0")
}

func TestCorruptStateFile(t *testing.T) {
	env := setupEnv(t)
	writeFile(t, env.stateFile(), "sparse: [not, a, section\n")

	_, err := run(t, "status")
	require.Error(t, err)

	// import replaces the state so it still runs
	shared := filepath.Join(env.root, "shared.yml")
	writeFile(t, shared, "sparse:\n  load-order:\n    - extension: tool\n      version: 0.3.0\n")
	out := mustRun(t, "import", shared)
	assert.Contains(t, out, "Imported")
	assert.Contains(t, mustRun(t, "status"), "tool")
}

func TestCatalogFlag_MissingDirectory(t *testing.T) {
	env := setupEnv(t)

	out := mustRun(t, "--catalog", filepath.Join(env.root, "none"), "list")
	assert.Contains(t, out, "No extensions found")
}

func TestConfigShowAndInit(t *testing.T) {
	env := setupEnv(t)

	show := mustRun(t, "config", "show")
	assert.Contains(t, show, "[catalog]")
	assert.Contains(t, show, env.catalogDir)

	out := mustRun(t, "config", "init")
	assert.Contains(t, out, "extman.toml")
	data, err := os.ReadFile(filepath.Join(env.configDir, "extman.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# history_limit")

	_, err = run(t, "config", "init")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyExists))
	mustRun(t, "config", "init", "--force")
}

func TestConfigFile_ChangesStateLocation(t *testing.T) {
	env := setupEnv(t)
	custom := filepath.Join(env.root, "custom", "state.yml")
	writeFile(t, filepath.Join(env.configDir, "extman.toml"), "[state]\nfile = \""+filepath.ToSlash(custom)+"\"\n")

	mustRun(t, "activate", "tool")
	_, err := os.Stat(custom)
	assert.NoError(t, err)
	_, err = os.Stat(env.stateFile())
	assert.True(t, os.IsNotExist(err))
}

func TestMetricsTextfile(t *testing.T) {
	env := setupEnv(t)
	prom := filepath.Join(env.root, "metrics", "extman.prom")
	t.Setenv("EXTMAN_METRICS_TEXTFILE", prom)

	mustRun(t, "activate", "app")
	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "extman_")
}

func TestVersionCmd(t *testing.T) {
	out := mustRun(t, "version")
	assert.Contains(t, out, "extman version")
	assert.Contains(t, out, "commit:")
}

func TestFormatFlag_Invalid(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "--format", "json", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
