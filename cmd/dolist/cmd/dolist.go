package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dolist/internal/config"
	"dolist/internal/utils"
)

// Version is set at build time
var Version = "dev"

// Commit is set at build time
var Commit = "none"

// Config holds the command-line overrides. Everything else comes from the
// config file.
type Config struct {
	NoPrompt     bool
	Verbose      bool
	OutputFormat string
	ConfigPath   string    // Path to config file (default: XDG config dir)
	Backend      string    // Overrides default_backend
	DBPath       string    // Overrides the selected backend's path
	Stdin        io.Reader // Prompt input (default: os.Stdin)
}

func (c *Config) stdin() io.Reader {
	if c.Stdin == nil {
		return os.Stdin
	}
	return c.Stdin
}

// Execute runs the CLI with the given arguments and IO writers.
// Flags are applied to a copy of cfg.
func Execute(args []string, stdout, stderr io.Writer, base *Config) int {
	cfg := &Config{}
	if base != nil {
		*cfg = *base
	}
	rootCmd := NewDolist(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		if containsJSONFlag(args) || cfg.OutputFormat == "json" {
			outputErrorJSON(err, stdout)
		} else {
			_, _ = fmt.Fprintln(stderr, "Error:", err)
			// Emit ERROR result code in no-prompt mode
			if cfg.NoPrompt {
				_, _ = fmt.Fprintln(stdout, ResultError)
			}
		}
		return 1
	}
	return 0
}

// containsJSONFlag checks if args contain --json flag
func containsJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

// NewDolist creates the root command with injectable IO
func NewDolist(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "dolist",
		Short:   "A to-do list manager",
		Long:    "dolist keeps to-do lists in a local store and edits them from the command line or a terminal UI.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyFlags(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	cmd.PersistentFlags().String("config", "", "Path to config file")
	cmd.PersistentFlags().StringP("backend", "b", "", "Storage backend (sqlite, file, badger)")
	cmd.PersistentFlags().String("db-path", "", "Path of the selected backend's store")
	cmd.PersistentFlags().BoolP("no-prompt", "y", false, "Disable interactive prompts")
	cmd.PersistentFlags().BoolP("verbose", "V", false, "Enable verbose/debug output")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	cmd.AddCommand(newListCmd(stdout, cfg))
	cmd.AddCommand(newItemsCmd(stdout, cfg))
	cmd.AddCommand(newAddCmd(stdout, cfg))
	for _, a := range itemActions {
		cmd.AddCommand(newItemActionCmd(stdout, cfg, a))
	}
	cmd.AddCommand(newRenameCmd(stdout, cfg))
	cmd.AddCommand(newCleanCmd(stdout, cfg))
	cmd.AddCommand(newTUICmd(stdout, stderr, cfg))
	cmd.AddCommand(newConfigCmd(stdout, cfg))
	cmd.AddCommand(newVersionCmd(stdout))

	return cmd
}

// applyFlags copies the global flags into cfg. Values set by the caller
// are kept when the flag is absent.
func applyFlags(cmd *cobra.Command, cfg *Config) error {
	flags := cmd.Flags()
	if v, _ := flags.GetBool("no-prompt"); v {
		cfg.NoPrompt = true
	}
	if v, _ := flags.GetBool("verbose"); v {
		cfg.Verbose = true
	}
	if v, _ := flags.GetBool("json"); v {
		cfg.OutputFormat = "json"
	}
	if v, _ := flags.GetString("config"); v != "" {
		cfg.ConfigPath = v
	}
	if v, _ := flags.GetString("backend"); v != "" {
		if !config.IsValidBackend(v) {
			return utils.ErrUnknownBackend(v, config.ValidBackends)
		}
		cfg.Backend = v
	}
	if v, _ := flags.GetString("db-path"); v != "" {
		cfg.DBPath = v
	}
	return nil
}

// newVersionCmd creates the 'version' subcommand
func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintf(stdout, "Version: %s\n", Version)
			_, _ = fmt.Fprintf(stdout, "Commit:  %s\n", Commit)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

// newConfigCmd creates the 'config' subcommand
func newConfigCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long:  "Print the configuration after defaults and command-line overrides are applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig(cfg)
			if err != nil {
				return err
			}
			if appCfg.OutputFormat == "json" {
				return writeJSON(stdout, appCfg)
			}
			data, err := yaml.Marshal(appCfg)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(stdout, string(data))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "sample",
		Short: "Print the documented sample configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprint(stdout, config.GetSampleConfig())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})

	return configCmd
}
