// Package persist reads and writes saved activation files.
//
// A file has two sections. "sparse" lists only the explicitly chosen
// extensions and the options the user set; "full" lists every active
// extension and every resolved option value. Both load orders are
// dependency-first:
//
//	meta:
//	  format-version: 1
//	sparse:
//	  load-order:
//	    - extension: running-units
//	      version: 1.0.0
//	  config:
//	    running-units:
//	      speed:
//	        value: 3
//	full:
//	  load-order:
//	    - extension: ucp2-legacy
//	      version: 1.0.0
//	    ...
package persist

import (
	"bytes"
	"path/filepath"

	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/logging"
	"github.com/arthur-debert/extman/pkg/options"
	"github.com/arthur-debert/extman/pkg/types"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FormatVersion is the version written by Encode. Files without a meta block
// are read as this version.
const FormatVersion = 1

// Entry is one load order position.
type Entry struct {
	Extension string `yaml:"extension"`
	Version   string `yaml:"version,omitempty"`
}

// ID returns the package identity the entry refers to. An empty version means
// "any".
func (e Entry) ID() types.PackageID {
	return types.PackageID{Name: e.Extension, Version: e.Version}
}

func (e Entry) String() string {
	return e.ID().String()
}

// Section is one of the two halves of a file.
type Section struct {
	LoadOrder []Entry       `yaml:"load-order"`
	Config    *options.Tree `yaml:"config,omitempty"`
}

// Meta carries format information.
type Meta struct {
	FormatVersion int `yaml:"format-version"`
}

// File is a saved activation.
type File struct {
	Meta   Meta    `yaml:"meta"`
	Sparse Section `yaml:"sparse"`
	Full   Section `yaml:"full"`
}

// Entries converts packages to load order entries.
func Entries(pkgs []*types.Package) []Entry {
	out := make([]Entry, len(pkgs))
	for i, p := range pkgs {
		out[i] = Entry{Extension: p.Name, Version: p.Version.String()}
	}
	return out
}

// UserContributions returns the user-set options from the sparse section.
func (f *File) UserContributions() []types.Contribution {
	if f.Sparse.Config == nil {
		return nil
	}
	return f.Sparse.Config.Contributions()
}

// Decode parses a file. Structural problems are ErrConfigParse.
func Decode(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "invalid activation file")
	}
	if f.Meta.FormatVersion == 0 {
		f.Meta.FormatVersion = FormatVersion
	}
	return &f, nil
}

// Encode renders a file as YAML.
func Encode(f *File) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot encode activation file")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot encode activation file")
	}
	return buf.Bytes(), nil
}

// Load reads and decodes the file at path.
func Load(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", path).
			WithDetail("path", path)
	}
	f, err := Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "cannot load %s", path).
			WithDetail("path", path)
	}
	logger := logging.GetLogger("persist")
	logger.Debug().
		Str("path", path).
		Int("sparse", len(f.Sparse.LoadOrder)).
		Int("full", len(f.Full.LoadOrder)).
		Msg("Activation file loaded")
	return f, nil
}

// Save writes f to path through a temporary sibling so readers never see a
// partial file.
func Save(fs afero.Fs, path string, f *File) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot create directory for %s", path).
			WithDetail("path", path)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", tmp).
			WithDetail("path", path)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot replace %s", path).
			WithDetail("path", path)
	}
	logger := logging.GetLogger("persist")
	logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("Activation file saved")
	return nil
}
