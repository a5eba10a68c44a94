package extman

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Resolve, order and configure extensions"
	MsgListShort       = "List installed extensions"
	MsgListLong        = "List shows every installed extension with its activation role."
	MsgStatusShort     = "Show the active extensions and the merge status"
	MsgActivateShort   = "Activate extensions and their dependencies"
	MsgDeactivateShort = "Deactivate explicitly activated extensions"
	MsgMoveShort       = "Move an active extension up or down one slot"
	MsgSetShort        = "Set a user value for an option"
	MsgUnsetShort      = "Remove a user value"
	MsgImportShort     = "Import a saved activation file"
	MsgExportShort     = "Export the current state to a file"
	MsgConflictsShort  = "Show merge warnings, errors and overrides"
	MsgHistoryShort    = "List recorded snapshots"
	MsgUndoShort       = "Restore the snapshot before the latest change"
	MsgConfigShort     = "Show or create the extman configuration"
	MsgConfigShowShort = "Print the effective configuration"
	MsgConfigInitShort = "Write a commented configuration file"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	// Examples
	MsgActivateExample = `  extman activate running-units
  extman activate files@1.0.0 maploader --repair`
	MsgMoveExample   = "  extman move aicloader up"
	MsgSetExample    = "  extman set maploader.size 400"
	MsgExportExample = "  extman export shared.yml\n  extman export -"

	// Status messages
	MsgActivated       = "[success]Activated[/success] [explicit]%s[/explicit]\n"
	MsgDeactivated     = "[success]Deactivated[/success] %s\n"
	MsgMoved           = "[success]Moved[/success] %s %s\n"
	MsgNotMoved        = "[muted]%s cannot move %s[/muted]\n"
	MsgRequiredBy      = "[muted]  required by %s[/muted]\n"
	MsgOptionSet       = "[success]Set[/success] [code]%s[/code] = %v\n"
	MsgOptionUnset     = "[success]Unset[/success] [code]%s[/code]\n"
	MsgExported        = "[success]Exported[/success] to [path]%s[/path]\n"
	MsgUndone          = "[success]Restored[/success] snapshot %s (%s)\n"
	MsgConfigWritten   = "[success]Wrote[/success] [path]%s[/path]\n"
	MsgMergeIssues     = "[warning]Configuration has %d warning(s) and %d error(s), run 'extman conflicts' for details[/warning]\n"
	MsgMisorderedHint  = "[warning]This activation reorders extensions you activated earlier.[/warning] Re-run with --repair to accept the new order.\n"
	MsgStateRepaired   = "state file no longer matched the catalog and was restored with the %s strategy"
	MsgVersionFormat   = "extman version %s\n"
	MsgCommitFormat    = "  commit: %s\n"
	MsgBuiltFormat     = "  built:  %s\n"
	MsgEmptyCatalogDir = "catalog directory does not exist, continuing with no extensions"

	// Error messages
	MsgErrLoadCatalog   = "failed to load catalog: %w"
	MsgErrLoadState     = "failed to restore state from %s: %w"
	MsgErrActivate      = "failed to activate %s: %w"
	MsgErrDeactivate    = "failed to deactivate %s: %w"
	MsgErrImport        = "failed to import %s: %w"
	MsgErrNoCommand     = "no command specified"
	MsgErrConfigExists  = "%s already exists, use --force to overwrite"
	MsgErrInvalidValue  = "invalid value %q"

	// Flag descriptions
	MsgFlagVerbose   = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig    = "Config file (default $XDG_CONFIG_HOME/extman/extman.toml)"
	MsgFlagCatalog   = "Extension catalog directory"
	MsgFlagState     = "State file"
	MsgFlagFormat    = "Output format: auto, term or text"
	MsgFlagAll       = "Show every installed version"
	MsgFlagRepair    = "Accept a corrected order when activation would reorder extensions"
	MsgFlagMarkdown  = "Render as markdown"
	MsgFlagLimit     = "Maximum number of snapshots to show"
	MsgFlagForce     = "Overwrite an existing file"
	MsgFlagRawOutput = "Print the markdown source instead of rendering it"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/activate-long.txt
	msgActivateLongRaw string
	MsgActivateLong    = strings.TrimSpace(msgActivateLongRaw)

	//go:embed msgs/import-long.txt
	msgImportLongRaw string
	MsgImportLong    = strings.TrimSpace(msgImportLongRaw)
)
