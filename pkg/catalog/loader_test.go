package catalog_test

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/extman/pkg/catalog"
	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	root := "/ucp/modules"

	write(t, fs, filepath.Join(root, "files-1.0.0", "definition.yml"), `
name: files
version: 1.0.0
depends:
  framework: ^3.0.0
  winProcHandler: ^1.0.0
  graphicsApiReplacer: ">=1.0.0"
options:
  cache:
    contents:
      default: true
`)
	write(t, fs, filepath.Join(root, "aicloader-2.0.0", "definition.toml"), `
name = "aicloader"
version = "2.0.0"
type = "plugin"

[depends]
maploader = "^1.0.0"
files = "^1.0.0"
`)
	write(t, fs, filepath.Join(root, "aicloader-2.0.0", "config.toml"), `
[files.cache]
suggested-value = false
`)
	write(t, fs, filepath.Join(root, "notes", "README.md"), "not an extension")

	c, err := catalog.Load(fs, root)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	files, ok := c.Find(types.PackageID{Name: "files", Version: "1.0.0"})
	require.True(t, ok)
	assert.Equal(t, types.KindModule, files.Kind)
	assert.Equal(t, []string{"framework", "winProcHandler", "graphicsApiReplacer"}, depNames(files))
	assert.Equal(t, true, files.Defaults["files.cache"])

	ai, ok := c.Latest("aicloader")
	require.True(t, ok)
	assert.Equal(t, types.KindPlugin, ai.Kind)
	assert.Equal(t, []string{"files", "maploader"}, depNames(ai), "toml dependencies are sorted by name")
	require.Len(t, ai.Contributions, 1)
	assert.Equal(t, "files.cache", ai.Contributions[0].URL)
	assert.Equal(t, types.Suggested, ai.Contributions[0].Facts[0].Qualifier)
}

func TestLoadInvalidDefinition(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad version", "name: x\nversion: not-a-version\n"},
		{"bad range", "name: x\nversion: 1.0.0\ndepends:\n  y: '>>1'\n"},
		{"missing name", "version: 1.0.0\n"},
		{"self dependency", "name: x\nversion: 1.0.0\ndepends:\n  x: ^1.0.0\n"},
		{"unknown type", "name: x\nversion: 1.0.0\ntype: theme\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			write(t, fs, "/cat/x/definition.yml", tt.doc)

			_, err := catalog.Load(fs, "/cat")
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
			assert.Equal(t, "/cat/x/definition.yml", filepath.ToSlash(errors.GetErrorDetails(err)["path"].(string)))
		})
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := catalog.Load(afero.NewMemMapFs(), "/nowhere")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileAccess))
}

func depNames(p *types.Package) []string {
	var names []string
	for _, d := range p.Dependencies {
		names = append(names, d.Name)
	}
	return names
}

func TestLoadWithOptions(t *testing.T) {
	fs := afero.NewMemMapFs()
	write(t, fs, "/cat/a/extension.yml", "name: a\nversion: 1.0.0\n")
	write(t, fs, "/cat/a/settings.yml", "a:\n  speed:\n    suggested-value: 2\n")
	write(t, fs, "/cat/b/definition.yml", "name: b\nversion: 1.0.0\n")

	c, err := catalog.LoadWithOptions(fs, "/cat", catalog.LoadOptions{
		DefinitionFiles: []string{"extension.yml"},
		ConfigFiles:     []string{"settings.yml"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, c.Names(), "directories without a configured definition file are skipped")
	a, ok := c.Latest("a")
	require.True(t, ok)
	require.Len(t, a.Contributions, 1)
	assert.Equal(t, "a.speed", a.Contributions[0].URL)
}
