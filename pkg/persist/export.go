package persist

import (
	"github.com/arthur-debert/extman/pkg/activation"
	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/merge"
	"github.com/arthur-debert/extman/pkg/options"
	"github.com/arthur-debert/extman/pkg/types"
)

// Export serializes an activation state and its merge into a file. user holds
// the options the user set by hand and becomes the sparse config.
func Export(s *activation.State, m *merge.MergedConfiguration, user []types.Contribution) (*File, error) {
	f := &File{
		Meta: Meta{FormatVersion: FormatVersion},
		Sparse: Section{
			LoadOrder: Entries(s.ExplicitLoadOrder()),
		},
		Full: Section{
			LoadOrder: Entries(s.LoadOrder()),
		},
	}

	if len(user) > 0 {
		tree, err := options.FromContributions(user)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInvalidInput, "invalid user options")
		}
		f.Sparse.Config = tree
	}

	if m != nil && len(m.DefinedValues) > 0 {
		tree, err := options.FromContributions(resolvedContributions(m))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "cannot encode resolved values")
		}
		f.Full.Config = tree
	}
	return f, nil
}

// resolvedContributions turns every defined value into one fact, qualified by
// how it won.
func resolvedContributions(m *merge.MergedConfiguration) []types.Contribution {
	urls := m.URLs()
	out := make([]types.Contribution, 0, len(urls))
	for _, url := range urls {
		q := types.Unspecified
		if _, ok := m.Locks[url]; ok {
			q = types.Required
		} else if _, ok := m.Suggestions[url]; ok {
			q = types.Suggested
		}
		out = append(out, types.Contribution{URL: url, Facts: []types.Fact{{
			Qualifier: q,
			Field:     types.FieldValue,
			Content:   m.DefinedValues[url],
		}}})
	}
	return out
}
