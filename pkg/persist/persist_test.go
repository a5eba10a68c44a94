package persist_test

import (
	"testing"

	"github.com/arthur-debert/extman/pkg/activation"
	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/merge"
	"github.com/arthur-debert/extman/pkg/persist"
	"github.com/arthur-debert/extman/pkg/testutil"
	"github.com/arthur-debert/extman/pkg/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
meta:
  format-version: 1
sparse:
  load-order:
    - extension: files
      version: 1.0.0
    - extension: running-units
  config:
    running-units:
      speed:
        value: 3
      ai:
        wazir:
          contents:
            suggested-max: 4
full:
  load-order:
    - extension: files
      version: 1.0.0
    - extension: running-units
      version: 1.0.0
`

func TestDecode(t *testing.T) {
	f, err := persist.Decode([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 1, f.Meta.FormatVersion)
	assert.Equal(t, []persist.Entry{
		{Extension: "files", Version: "1.0.0"},
		{Extension: "running-units"},
	}, f.Sparse.LoadOrder)
	assert.Equal(t, "running-units", f.Sparse.LoadOrder[1].ID().String())
	assert.Len(t, f.Full.LoadOrder, 2)

	assert.Equal(t, []types.Contribution{
		{URL: "running-units.speed", Facts: []types.Fact{{Qualifier: types.Unspecified, Field: types.FieldValue, Content: 3}}},
		{URL: "running-units.ai.wazir", Facts: []types.Fact{{Qualifier: types.Suggested, Field: types.FieldMax, Content: 4}}},
	}, f.UserContributions())
}

func TestDecode_Defaults(t *testing.T) {
	f, err := persist.Decode([]byte("sparse:\n  load-order: []\n"))
	require.NoError(t, err)
	assert.Equal(t, persist.FormatVersion, f.Meta.FormatVersion)
	assert.Nil(t, f.UserContributions())
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "sparse: [unclosed"},
		{"load order is not a list", "full:\n  load-order: files\n"},
		{"dotted option key", "sparse:\n  config:\n    a.b:\n      value: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := persist.Decode([]byte(tt.data))
			assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
		})
	}
}

func TestSaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	f, err := persist.Decode([]byte(sample))
	require.NoError(t, err)

	require.NoError(t, persist.Save(fs, "/state/extman.yml", f))
	exists, err := afero.Exists(fs, "/state/extman.yml.tmp")
	require.NoError(t, err)
	assert.False(t, exists)

	loaded, err := persist.Load(fs, "/state/extman.yml")
	require.NoError(t, err)
	assert.Equal(t, f.Sparse.LoadOrder, loaded.Sparse.LoadOrder)
	assert.Equal(t, f.Full.LoadOrder, loaded.Full.LoadOrder)
	assert.Equal(t, f.UserContributions(), loaded.UserContributions())

	data, err := afero.ReadFile(fs, "/state/extman.yml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "suggested-max: 4")
	assert.Contains(t, string(data), "contents:")
}

func TestLoad_Missing(t *testing.T) {
	_, err := persist.Load(afero.NewMemMapFs(), "/nope.yml")
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileAccess))
	assert.Equal(t, "/nope.yml", errors.GetErrorDetails(err)["path"])
}

func TestExport(t *testing.T) {
	c := testutil.NewCatalog(t,
		testutil.Pkg("base", "1.0.0").Default("base.volume", 5).Default("base.mode", "easy"),
		testutil.Pkg("addon", "1.0.0").Dep("base", "^1.0.0").
			Requires("base.mode", "hard").
			Suggests("base.speed", 2),
	)
	addon, _ := c.Find(testutil.ID("addon", "1.0.0"))
	s, err := activation.Add(activation.NewState(c), addon, false)
	require.NoError(t, err)
	user := []types.Contribution{{URL: "base.volume", Facts: []types.Fact{{Field: types.FieldValue, Content: 9}}}}
	m := merge.Merge(s.Active, merge.Layer{Name: "user", Contributions: user})

	f, err := persist.Export(s, m, user)
	require.NoError(t, err)

	assert.Equal(t, persist.FormatVersion, f.Meta.FormatVersion)
	assert.Equal(t, []persist.Entry{{Extension: "addon", Version: "1.0.0"}}, f.Sparse.LoadOrder)
	assert.Equal(t, []persist.Entry{
		{Extension: "base", Version: "1.0.0"},
		{Extension: "addon", Version: "1.0.0"},
	}, f.Full.LoadOrder)
	assert.Equal(t, user, f.UserContributions())

	assert.Equal(t, []types.Contribution{
		{URL: "base.mode", Facts: []types.Fact{{Qualifier: types.Required, Field: types.FieldValue, Content: "hard"}}},
		{URL: "base.speed", Facts: []types.Fact{{Qualifier: types.Suggested, Field: types.FieldValue, Content: 2}}},
		{URL: "base.volume", Facts: []types.Fact{{Qualifier: types.Unspecified, Field: types.FieldValue, Content: 9}}},
	}, f.Full.Config.Contributions())

	data, err := persist.Encode(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), "required-value: hard")
	assert.Contains(t, string(data), "suggested-value: 2")
}

func TestExport_NestedOptionUrls(t *testing.T) {
	c := testutil.NewCatalog(t,
		testutil.Pkg("a", "1.0.0").Sets("a.mode", 1),
		testutil.Pkg("b", "1.0.0").Dep("a", "*").Sets("a.mode.fast", true),
	)
	b, _ := c.Find(testutil.ID("b", "1.0.0"))
	s, err := activation.Add(activation.NewState(c), b, false)
	require.NoError(t, err)
	m := merge.Merge(s.Active)
	require.Equal(t, 0, m.StatusCode())

	f, err := persist.Export(s, m, nil)
	require.NoError(t, err)

	data, err := persist.Encode(f)
	require.NoError(t, err)
	back, err := persist.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, f.Full.Config.Contributions(), back.Full.Config.Contributions())
	assert.Len(t, back.Full.Config.Contributions(), 2)
}
