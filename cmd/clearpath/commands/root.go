// ABOUTME: Root CLI command with global flags and subcommand registration
// ABOUTME: Shares verbose/quiet/format flags across all subcommands
package commands

import (
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

const banner = `
 ██████╗██╗     ███████╗ █████╗ ██████╗ ██████╗  █████╗ ████████╗██╗  ██╗
██╔════╝██║     ██╔════╝██╔══██╗██╔══██╗██╔══██╗██╔══██╗╚══██╔══╝██║  ██║
██║     ██║     █████╗  ███████║██████╔╝██████╔╝███████║   ██║   ███████║
██║     ██║     ██╔══╝  ██╔══██║██╔══██╗██╔═══╝ ██╔══██║   ██║   ██╔══██║
╚██████╗███████╗███████╗██║  ██║██║  ██║██║     ██║  ██║   ██║   ██║  ██║
 ╚═════╝╚══════╝╚══════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝     ╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝
`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clearpath",
		Short: "ClearPath support assistant toolkit",
		Long: banner + `
Retrieval-augmented support assistant for the ClearPath documentation.

Indexes the PDF corpus, answers questions over it with tiered Groq
models, and exposes the same pipeline to LLM agents over MCP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format (auto, json)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(
		NewIndexCmd(),
		NewSearchCmd(),
		NewAskCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
