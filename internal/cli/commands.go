// Package cli is the prismctl command line. It feeds parameters read from YAML
// files and flags into the resource module driver and prints the resulting
// records.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/prismctl/prismctl/internal/common/logtrace"
	"github.com/prismctl/prismctl/internal/connection"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "v0.1.0-dev"

// ErrAlreadyHandled is returned once a failure has been printed.
var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)
var skipLabel = color.New(color.FgYellow)

// globalOptions are the persistent flags.
type globalOptions struct {
	configFile string
	profile    string
	jsonOutput bool
	output     string
	logLevel   string
	check      bool
}

var opts globalOptions

// NewRootCmd returns the prismctl command tree with fresh flag state.
func NewRootCmd() *cobra.Command {
	opts = globalOptions{}
	rootCmd := &cobra.Command{
		Use:   "prismctl [command] [flags]",
		Short: "prismctl - manage Prism Central entities from the command line",
		Long: `prismctl drives Prism Central resources (vms, subnets, vpcs, images, ...)
from YAML parameter files. Each document of a file is one module invocation.

Examples:
  # Create or update the VMs described in vms.yaml
  prismctl apply -f vms.yaml --resource vms

  # Show what would be sent without calling the API
  prismctl apply -f vms.yaml --resource vms --check

  # Delete a subnet
  prismctl delete subnets 9b2a1c7e-0f7d-4f2c-8b1e-3a6d5c4b2e10

  # List powered-on VMs as YAML
  prismctl list vms --filter power_state==ON -o yaml`,
		PersistentPreRunE: preRunHandlePersistents,
		SilenceErrors:     true,
		SilenceUsage:      true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to the connection profile file (default $XDG_CONFIG_HOME/prismctl/profiles.toml)")
	flags.StringVar(&opts.profile, "profile", "", "Connection profile to use")
	flags.BoolVarP(&opts.jsonOutput, "json", "j", false, "Output in JSON format")
	flags.StringVarP(&opts.output, "output", "o", "", "Output format: json or yaml")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Diagnostic log level")
	flags.BoolVar(&opts.check, "check", false, "Compose requests without calling the API")

	rootCmd.AddCommand(
		newVersionCmd(),
		newApplyCmd(),
		newDeleteCmd(),
		newListCmd(),
		newGetCmd(),
		newTaskCmd(),
		newInventoryCmd(),
		newIDsCmd(),
	)
	return rootCmd
}

// Execute runs the command line and exits with 1 on failure.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, ErrAlreadyHandled) {
			printError(rootCmd.ErrOrStderr(), err)
		}
		os.Exit(1)
	}
}

func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	logtrace.InitLoggerTo(cmd.ErrOrStderr(), opts.logLevel)
	if err := connection.LoadDotEnv(""); err != nil {
		log.Warn().Err(err).Msg("unable to load .env")
	}
	switch opts.output {
	case "", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q", opts.output)
	}
	if opts.jsonOutput {
		opts.output = "json"
	}
	if opts.configFile == "" {
		path, err := GetDefaultConfigPath()
		if err != nil {
			log.Debug().Err(err).Msg("no default profile file")
		}
		opts.configFile = path
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of prismctl",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "" {
				return printData(cmd.OutOrStdout(), map[string]string{
					"version":     Version,
					"config_file": opts.configFile,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "prismctl %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Profile file: %s\n", opts.configFile)
			return nil
		},
	}
}

func printError(w io.Writer, err error) {
	if opts.output != "" {
		printData(w, map[string]any{"failed": true, "msg": err.Error()})
		return
	}
	errorLabel.Fprintf(w, "Error: %v\n", err)
}
