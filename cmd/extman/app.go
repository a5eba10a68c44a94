package extman

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/arthur-debert/extman/pkg/catalog"
	"github.com/arthur-debert/extman/pkg/config"
	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/history"
	"github.com/arthur-debert/extman/pkg/logging"
	"github.com/arthur-debert/extman/pkg/manager"
	"github.com/arthur-debert/extman/pkg/metrics"
	"github.com/arthur-debert/extman/pkg/persist"
	"github.com/arthur-debert/extman/pkg/reconcile"
	"github.com/arthur-debert/extman/pkg/style"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// globalFlags holds the persistent flags of the root command.
type globalFlags struct {
	verbosity int
	config    string
	catalog   string
	state     string
	format    string
}

// app bundles what a command needs to run against the saved state.
type app struct {
	cfg      *config.Config
	fs       afero.Fs
	session  *manager.Session
	store    *history.Store
	metrics  *metrics.Recorder
	renderer style.Renderer
	out      io.Writer
}

// loadConfig applies the command line overrides on top of the config layers.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	overrides := map[string]interface{}{}
	if flags.catalog != "" {
		overrides["catalog.dir"] = flags.catalog
	}
	if flags.state != "" {
		overrides["state.file"] = flags.state
	}
	return config.Load(config.Options{File: flags.config, Overrides: overrides})
}

// newRenderer picks the output renderer for w. Anything that is not a file
// is rendered as plain text.
func newRenderer(flags *globalFlags, cfg *config.Config, w io.Writer) (style.Renderer, error) {
	requested, err := style.ParseFormat(flags.format)
	if err != nil {
		return nil, err
	}
	format := style.FormatText
	if f, ok := w.(*os.File); ok {
		format = style.ResolveFormat(requested, f, cfg.Output.Color)
	}
	style.SetPlain(format != style.FormatTerminal)
	return style.NewRenderer(format), nil
}

// openApp loads config, catalog and history and restores the saved state.
// With tolerant set a state file that cannot be restored is logged and
// skipped, so commands that replace the state still run.
func openApp(cmd *cobra.Command, flags *globalFlags, tolerant bool) (*app, error) {
	logger := logging.GetLogger("cli")

	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	renderer, err := newRenderer(flags, cfg, cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	c, err := loadCatalog(fs, cfg)
	if err != nil {
		return nil, fmt.Errorf(MsgErrLoadCatalog, err)
	}

	store, err := history.Open(cfg.State.HistoryDB)
	if err != nil {
		return nil, err
	}
	rec := metrics.New()

	a := &app{
		cfg:   cfg,
		fs:    fs,
		store: store,
		session: manager.New(c, manager.Options{
			UserLayer:    cfg.Merge.UserLayerName,
			History:      store,
			HistoryLimit: cfg.State.HistoryLimit,
			Metrics:      rec,
		}),
		metrics:  rec,
		renderer: renderer,
		out:      cmd.OutOrStdout(),
	}

	if err := a.restore(); err != nil {
		if !tolerant {
			_ = a.close()
			return nil, err
		}
		logger.Warn().Err(err).Str("path", cfg.State.File).Msg("Ignoring saved state")
	}
	return a, nil
}

func loadCatalog(fs afero.Fs, cfg *config.Config) (*catalog.Catalog, error) {
	exists, err := afero.DirExists(fs, cfg.Catalog.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", cfg.Catalog.Dir).
			WithDetail("path", cfg.Catalog.Dir)
	}
	if !exists {
		logger := logging.GetLogger("cli")
		logger.Warn().Str("path", cfg.Catalog.Dir).Msg(MsgEmptyCatalogDir)
		return catalog.New(nil)
	}
	return catalog.LoadWithOptions(fs, cfg.Catalog.Dir, catalog.LoadOptions{
		DefinitionFiles: cfg.Catalog.DefinitionFiles,
	})
}

// restore reloads the saved state file into the session, if there is one.
func (a *app) restore() error {
	path := a.cfg.State.File
	exists, err := afero.Exists(a.fs, path)
	if err != nil || !exists {
		return nil
	}
	f, err := persist.Load(a.fs, path)
	if err != nil {
		return fmt.Errorf(MsgErrLoadState, path, err)
	}
	report, err := a.session.Restore(f)
	if err != nil {
		return fmt.Errorf(MsgErrLoadState, path, err)
	}
	if report.Result != nil && report.Result.Strategy == reconcile.StrategySparse {
		logger := logging.GetLogger("cli")
		logger.Warn().Str("path", path).
			Msgf(MsgStateRepaired, report.Result.Strategy)
	}
	return nil
}

// save writes the committed state back to the state file and dumps metrics
// when a textfile is configured.
func (a *app) save() error {
	f, err := a.session.Export()
	if err != nil {
		return err
	}
	if err := persist.Save(a.fs, a.cfg.State.File, f); err != nil {
		return err
	}
	return a.writeMetrics()
}

func (a *app) writeMetrics() error {
	path := a.cfg.Metrics.Textfile
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "cannot create directory for %s", path).
			WithDetail("path", path)
	}
	return a.metrics.WriteTextfile(path)
}

func (a *app) close() error {
	return a.store.Close()
}

// printf renders markup and writes it to the command output.
func (a *app) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprint(a.out, style.Render(fmt.Sprintf(format, args...)))
}

// println writes already rendered output followed by a newline.
func (a *app) println(s string) {
	_, _ = fmt.Fprintln(a.out, s)
}

// reportMerge points at the conflicts command when the merge has issues.
func (a *app) reportMerge() {
	m := a.session.Merged()
	if len(m.Warnings) > 0 || len(m.Errors) > 0 {
		a.printf(MsgMergeIssues, len(m.Warnings), len(m.Errors))
	}
}
