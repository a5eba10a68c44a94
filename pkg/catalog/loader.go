package catalog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/logging"
	"github.com/arthur-debert/extman/pkg/options"
	"github.com/arthur-debert/extman/pkg/types"
	"github.com/arthur-debert/extman/pkg/versions"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Definition and contribution file names, in lookup order.
var (
	DefinitionFiles = []string{"definition.yml", "definition.yaml", "definition.toml"}
	ConfigFiles     = []string{"config.yml", "config.yaml", "config.toml"}
)

// definition is the on-disk shape of definition.yml.
type definition struct {
	Name        string        `yaml:"name"`
	Version     string        `yaml:"version"`
	Type        string        `yaml:"type"`
	DisplayName string        `yaml:"display-name"`
	Author      string        `yaml:"author"`
	Depends     dependencyMap `yaml:"depends"`
	Options     *options.Tree `yaml:"options"`
}

type dependencyEntry struct {
	name string
	raw  string
}

// dependencyMap keeps YAML declaration order.
type dependencyMap []dependencyEntry

func (d *dependencyMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: depends must be a mapping of name to range", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		*d = append(*d, dependencyEntry{name: value.Content[i].Value, raw: value.Content[i+1].Value})
	}
	return nil
}

// tomlDefinition mirrors definition for go-toml, which decodes into maps.
type tomlDefinition struct {
	Name        string                 `toml:"name"`
	Version     string                 `toml:"version"`
	Type        string                 `toml:"type"`
	DisplayName string                 `toml:"display-name"`
	Author      string                 `toml:"author"`
	Depends     map[string]string      `toml:"depends"`
	Options     map[string]interface{} `toml:"options"`
}

// LoadOptions overrides the file names the loader looks for.
type LoadOptions struct {
	DefinitionFiles []string
	ConfigFiles     []string
}

func (o LoadOptions) withDefaults() LoadOptions {
	if len(o.DefinitionFiles) == 0 {
		o.DefinitionFiles = DefinitionFiles
	}
	if len(o.ConfigFiles) == 0 {
		o.ConfigFiles = ConfigFiles
	}
	return o
}

// Load discovers every extension under dir. Each immediate subdirectory
// holding a definition file is one package.
func Load(fs afero.Fs, dir string) (*Catalog, error) {
	return LoadWithOptions(fs, dir, LoadOptions{})
}

// LoadWithOptions is Load with custom definition and config file names.
func LoadWithOptions(fs afero.Fs, dir string, opts LoadOptions) (*Catalog, error) {
	opts = opts.withDefaults()
	logger := logging.GetLogger("catalog").With().Str("dir", dir).Logger()
	done := logging.LogOperationStart(logger, "catalog.load")
	defer done()

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read catalog directory %s", dir)
	}

	var pkgs []*types.Package
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		pkgDir := filepath.Join(dir, entry.Name())
		p, err := loadPackage(fs, pkgDir, opts)
		if err != nil {
			if errors.IsErrorCode(err, errors.ErrNotFound) {
				logger.Debug().Str("path", pkgDir).Msg("Skipping directory without definition")
				continue
			}
			return nil, err
		}
		pkgs = append(pkgs, p)
	}

	c, err := New(pkgs)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("extensions", c.Len()).Msg("Catalog loaded")
	return c, nil
}

// LoadPackage reads one extension directory.
func LoadPackage(fs afero.Fs, dir string) (*types.Package, error) {
	return loadPackage(fs, dir, LoadOptions{}.withDefaults())
}

func loadPackage(fs afero.Fs, dir string, opts LoadOptions) (*types.Package, error) {
	defPath, defData, err := readFirst(fs, dir, opts.DefinitionFiles)
	if err != nil {
		return nil, err
	}
	if defPath == "" {
		return nil, errors.Newf(errors.ErrNotFound, "no definition in %s", dir)
	}

	var p *types.Package
	if strings.HasSuffix(defPath, ".toml") {
		p, err = parseTOMLDefinition(defData)
	} else {
		p, err = ParseDefinition(defData)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "invalid definition %s", defPath).
			WithDetail("path", defPath)
	}

	cfgPath, cfgData, err := readFirst(fs, dir, opts.ConfigFiles)
	if err != nil {
		return nil, err
	}
	if cfgPath != "" {
		contribs, err := parseContributions(cfgPath, cfgData)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "invalid configuration %s", cfgPath).
				WithDetail("path", cfgPath)
		}
		p.Contributions = append(p.Contributions, contribs...)
	}

	logger := logging.GetLogger("catalog")

	logger.Debug().
		Str("extension", p.Name).
		Str("version", p.Version.String()).
		Int("dependencies", len(p.Dependencies)).
		Int("contributions", len(p.Contributions)).
		Msg("Extension definition loaded")
	return p, nil
}

func readFirst(fs afero.Fs, dir string, names []string) (string, []byte, error) {
	for _, name := range names {
		path := filepath.Join(dir, name)
		ok, err := afero.Exists(fs, path)
		if err != nil {
			return "", nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot stat %s", path)
		}
		if !ok {
			continue
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return "", nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", path)
		}
		return path, data, nil
	}
	return "", nil, nil
}

// ParseDefinition decodes a YAML definition document.
func ParseDefinition(data []byte) (*types.Package, error) {
	var def definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	deps := make([]rawDependency, 0, len(def.Depends))
	for _, d := range def.Depends {
		deps = append(deps, rawDependency{d.name, d.raw})
	}
	return build(def.Name, def.Version, def.Type, def.DisplayName, def.Author, deps, def.Options)
}

func parseTOMLDefinition(data []byte) (*types.Package, error) {
	var def tomlDefinition
	if err := toml.Unmarshal(data, &def); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(def.Depends))
	for n := range def.Depends {
		names = append(names, n)
	}
	sort.Strings(names)
	deps := make([]rawDependency, 0, len(names))
	for _, n := range names {
		deps = append(deps, rawDependency{n, def.Depends[n]})
	}
	tree, err := options.FromMap(def.Options)
	if err != nil {
		return nil, err
	}
	return build(def.Name, def.Version, def.Type, def.DisplayName, def.Author, deps, tree)
}

type rawDependency struct {
	name string
	raw  string
}

func build(name, version, kind, display, author string, deps []rawDependency, own *options.Tree) (*types.Package, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if strings.Contains(name, ".") {
		return nil, fmt.Errorf("name %q must not contain '.'", name)
	}
	v, err := versions.Parse(version)
	if err != nil {
		return nil, err
	}
	p := &types.Package{
		Name:        name,
		Version:     v,
		Kind:        types.KindModule,
		DisplayName: display,
		Author:      author,
		Defaults:    map[string]interface{}{},
	}
	switch types.Kind(kind) {
	case "", types.KindModule:
	case types.KindPlugin:
		p.Kind = types.KindPlugin
	default:
		return nil, fmt.Errorf("unknown type %q", kind)
	}
	if p.DisplayName == "" {
		p.DisplayName = name
	}
	for _, d := range deps {
		if d.name == name {
			return nil, fmt.Errorf("%s depends on itself", name)
		}
		r, err := versions.ParseRange(d.raw)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", d.name, err)
		}
		p.Dependencies = append(p.Dependencies, types.Dependency{Name: d.name, Range: r})
	}
	if own != nil && !own.IsEmpty() {
		prefixed := own.Prefixed(name)
		p.Contributions = prefixed.Contributions()
		p.Defaults = prefixed.Defaults()
	}
	return p, nil
}

func parseContributions(path string, data []byte) ([]types.Contribution, error) {
	if strings.HasSuffix(path, ".toml") {
		var m map[string]interface{}
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, err
		}
		tree, err := options.FromMap(m)
		if err != nil {
			return nil, err
		}
		return tree.Contributions(), nil
	}
	var tree options.Tree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree.Contributions(), nil
}
