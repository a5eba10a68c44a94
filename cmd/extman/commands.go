package extman

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/extman/internal/version"
	"github.com/arthur-debert/extman/pkg/activation"
	"github.com/arthur-debert/extman/pkg/config"
	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/logging"
	"github.com/arthur-debert/extman/pkg/paths"
	"github.com/arthur-debert/extman/pkg/persist"
	"github.com/arthur-debert/extman/pkg/style"
	"github.com/arthur-debert/extman/pkg/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     "extman",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(flags.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand: show help but still fail
			_ = cmd.Help()
			return errors.New(errors.ErrInvalidInput, MsgErrNoCommand)
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&flags.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVar(&flags.config, "config", "", MsgFlagConfig)
	rootCmd.PersistentFlags().StringVar(&flags.catalog, "catalog", "", MsgFlagCatalog)
	rootCmd.PersistentFlags().StringVar(&flags.state, "state", "", MsgFlagState)
	rootCmd.PersistentFlags().StringVar(&flags.format, "format", "auto", MsgFlagFormat)

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "COMMANDS:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "misc",
		Title: "MISC:",
	})

	rootCmd.AddCommand(newListCmd(flags))
	rootCmd.AddCommand(newStatusCmd(flags))
	rootCmd.AddCommand(newActivateCmd(flags))
	rootCmd.AddCommand(newDeactivateCmd(flags))
	rootCmd.AddCommand(newMoveCmd(flags))
	rootCmd.AddCommand(newSetCmd(flags))
	rootCmd.AddCommand(newUnsetCmd(flags))
	rootCmd.AddCommand(newImportCmd(flags))
	rootCmd.AddCommand(newExportCmd(flags))
	rootCmd.AddCommand(newConflictsCmd(flags))
	rootCmd.AddCommand(newHistoryCmd(flags))
	rootCmd.AddCommand(newUndoCmd(flags))
	rootCmd.AddCommand(newConfigCmd(flags))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// withApp opens the app, runs fn and closes the history store.
func withApp(cmd *cobra.Command, flags *globalFlags, tolerant bool, fn func(a *app) error) error {
	a, err := openApp(cmd, flags, tolerant)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to close history")
		}
	}()
	return fn(a)
}

// extensionNamesCompletion provides shell completion for installed extensions
func extensionNamesCompletion(flags *globalFlags) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := loadConfig(flags)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		c, err := loadCatalog(afero.NewOsFs(), cfg)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		used := make(map[string]bool, len(args))
		for _, arg := range args {
			used[types.ParsePackageID(arg).Name] = true
		}
		var names []string
		for _, name := range c.Names() {
			if !used[name] {
				names = append(names, name)
			}
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}
}

func newListCmd(flags *globalFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "list",
		Short:   MsgListShort,
		Long:    MsgListLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(a *app) error {
				a.println(a.renderer.RenderCatalog(a.session.Catalog(), a.session.State(), all))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, MsgFlagAll)
	return cmd
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   MsgStatusShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(a *app) error {
				a.println(a.renderer.RenderStatus(a.session.State(), a.session.Merged()))
				return nil
			})
		},
	}
}

func newActivateCmd(flags *globalFlags) *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:               "activate <name[@version]>...",
		Short:             MsgActivateShort,
		Long:              MsgActivateLong,
		Example:           MsgActivateExample,
		GroupID:           "core",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: extensionNamesCompletion(flags),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(a *app) error {
				repair := repair
				if !cmd.Flags().Changed("repair") {
					repair = a.cfg.Activation.Repair
				}
				ids := make([]types.PackageID, len(args))
				for i, arg := range args {
					ids[i] = types.ParsePackageID(arg)
				}
				if err := a.session.ActivateAll(ids, repair); err != nil {
					if activation.IsMisordered(err) {
						a.printf(MsgMisorderedHint)
					}
					return fmt.Errorf(MsgErrActivate, strings.Join(args, " "), err)
				}
				for _, id := range ids {
					p, _ := a.session.State().ActivePackage(id.Name)
					a.printf(MsgActivated, p.String())
				}
				a.reportMerge()
				return a.save()
			})
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, MsgFlagRepair)
	return cmd
}

func newDeactivateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:               "deactivate <name>...",
		Short:             MsgDeactivateShort,
		GroupID:           "core",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: extensionNamesCompletion(flags),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(a *app) error {
				if err := a.session.DeactivateAll(args); err != nil {
					return fmt.Errorf(MsgErrDeactivate, strings.Join(args, " "), err)
				}
				for _, name := range args {
					a.printf(MsgDeactivated, name)
				}
				a.reportMerge()
				return a.save()
			})
		},
	}
}

func newMoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:               "move <name> up|down",
		Short:             MsgMoveShort,
		Example:           MsgMoveExample,
		GroupID:           "core",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: extensionNamesCompletion(flags),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := activation.ParseDirection(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, flags, false, func(a *app) error {
				moved, err := a.session.Move(args[0], d)
				if err != nil {
					return err
				}
				if !moved {
					a.printf(MsgNotMoved, args[0], d)
					if deps := a.session.State().Graph.Dependents(args[0]); d == activation.Up && len(deps) > 0 {
						a.printf(MsgRequiredBy, strings.Join(deps, ", "))
					}
					return nil
				}
				a.printf(MsgMoved, args[0], d)
				a.reportMerge()
				return a.save()
			})
		},
	}
}

// parseValue reads a command line value as a YAML scalar, so numbers and
// booleans keep their type.
func parseValue(s string) (interface{}, error) {
	var v interface{}
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, MsgErrInvalidValue, s).WithDetail("value", s)
	}
	if v == nil {
		return s, nil
	}
	return v, nil
}

func newSetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "set <option> <value>",
		Short:   MsgSetShort,
		Example: MsgSetExample,
		GroupID: "core",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, flags, false, func(a *app) error {
				if err := a.session.SetOption(args[0], value); err != nil {
					return err
				}
				a.printf(MsgOptionSet, args[0], value)
				a.reportMerge()
				return a.save()
			})
		},
	}
}

func newUnsetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "unset <option>",
		Short:   MsgUnsetShort,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(a *app) error {
				if err := a.session.UnsetOption(args[0]); err != nil {
					return err
				}
				a.printf(MsgOptionUnset, args[0])
				a.reportMerge()
				return a.save()
			})
		},
	}
}

func newImportCmd(flags *globalFlags) *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:     "import <file>",
		Short:   MsgImportShort,
		Long:    MsgImportLong,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, true, func(a *app) error {
				f, err := persist.Load(a.fs, args[0])
				if err != nil {
					return fmt.Errorf(MsgErrImport, args[0], err)
				}
				repair := repair
				if !cmd.Flags().Changed("repair") {
					repair = a.cfg.Activation.Repair
				}
				report, err := a.session.Import(f, repair)
				if report != nil {
					a.println(a.renderer.RenderImport(report))
				}
				if err != nil {
					return fmt.Errorf(MsgErrImport, args[0], err)
				}
				a.reportMerge()
				return a.save()
			})
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, MsgFlagRepair)
	return cmd
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "export <file|->",
		Short:   MsgExportShort,
		Example: MsgExportExample,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(a *app) error {
				f, err := a.session.Export()
				if err != nil {
					return err
				}
				if args[0] == "-" {
					data, err := persist.Encode(f)
					if err != nil {
						return err
					}
					_, err = a.out.Write(data)
					return err
				}
				if err := persist.Save(a.fs, args[0], f); err != nil {
					return err
				}
				a.printf(MsgExported, args[0])
				return nil
			})
		},
	}
}

func newConflictsCmd(flags *globalFlags) *cobra.Command {
	var (
		markdown bool
		raw      bool
	)
	cmd := &cobra.Command{
		Use:     "conflicts",
		Short:   MsgConflictsShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, false, func(a *app) error {
				m := a.session.Merged()
				if !cmd.Flags().Changed("markdown") {
					markdown = a.cfg.Output.Markdown
				}
				if !markdown && !raw {
					a.println(a.renderer.RenderConflicts(m))
					return nil
				}
				content := style.ConflictsMarkdown(m)
				if raw {
					_, err := fmt.Fprint(a.out, content)
					return err
				}
				_, err := fmt.Fprint(a.out, style.NewGlamourRenderer().Render(content))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, MsgFlagMarkdown)
	cmd.Flags().BoolVar(&raw, "raw", false, MsgFlagRawOutput)
	return cmd
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "history",
		Short:   MsgHistoryShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, true, func(a *app) error {
				entries, err := a.store.List(limit)
				if err != nil {
					return err
				}
				a.println(a.renderer.RenderHistory(entries))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, MsgFlagLimit)
	return cmd
}

func newUndoCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "undo",
		Short:   MsgUndoShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, true, func(a *app) error {
				entry, err := a.session.Undo()
				if err != nil {
					return err
				}
				a.printf(MsgUndone, entry.ID, entry.Operation)
				a.reportMerge()
				return a.save()
			})
		},
	}
}

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   MsgConfigShort,
		GroupID: "misc",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: MsgConfigShowShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			content, err := config.Render(cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), content)
			return err
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: MsgConfigInitShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.config
			if path == "" {
				path = paths.New().ConfigFile()
			}
			fs := afero.NewOsFs()
			if exists, _ := afero.Exists(fs, path); exists && !force {
				return errors.Newf(errors.ErrAlreadyExists, MsgErrConfigExists, path).WithDetail("path", path)
			}
			if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return errors.Wrapf(err, errors.ErrFileWrite, "cannot create directory for %s", path).WithDetail("path", path)
			}
			if err := afero.WriteFile(fs, path, []byte(config.GenerateConfigContent()), 0644); err != nil {
				return errors.Wrapf(err, errors.ErrFileWrite, "cannot write %s", path).WithDetail("path", path)
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), style.Render(fmt.Sprintf(MsgConfigWritten, path)))
			return err
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, MsgFlagForce)
	cmd.AddCommand(initCmd)

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, MsgVersionFormat, version.Version)
			fmt.Fprintf(out, MsgCommitFormat, version.Commit)
			fmt.Fprintf(out, MsgBuiltFormat, version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		GroupID:               "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(os.Stdout, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}
