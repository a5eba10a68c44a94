package types_test

import (
	"testing"

	"github.com/arthur-debert/extman/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestParseFactKey(t *testing.T) {
	tests := []struct {
		key       string
		qualifier types.Qualifier
		field     types.Field
		ok        bool
	}{
		{"value", types.Unspecified, types.FieldValue, true},
		{"required-value", types.Required, types.FieldValue, true},
		{"suggested-min", types.Suggested, types.FieldMin, true},
		{"required-exclusive", types.Required, types.FieldExclusive, true},
		{"suggested-values", types.Suggested, types.FieldValues, true},
		{"default", types.Unspecified, "", false},
		{"required-colour", types.Unspecified, "", false},
		{"contents", types.Unspecified, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			q, f, ok := types.ParseFactKey(tt.key)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.qualifier, q)
				assert.Equal(t, tt.field, f)
				assert.Equal(t, tt.key, types.FactKey(q, f))
			}
		})
	}
}

func TestIsReserved(t *testing.T) {
	assert.True(t, types.IsReserved("framework"))
	assert.True(t, types.IsReserved("frontend"))
	assert.False(t, types.IsReserved("files"))
}

func TestParsePackageID(t *testing.T) {
	tests := []struct {
		in   string
		want types.PackageID
	}{
		{"files", types.PackageID{Name: "files"}},
		{"files@1.0.0", types.PackageID{Name: "files", Version: "1.0.0"}},
		{" files@2.1 ", types.PackageID{Name: "files", Version: "2.1"}},
		{"@1.0.0", types.PackageID{Name: "@1.0.0"}},
		{"files@", types.PackageID{Name: "files"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, types.ParsePackageID(tt.in))
		})
	}
}
