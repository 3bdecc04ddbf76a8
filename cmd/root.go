package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/toolcmd"
)

func NewRootCmd() *cobra.Command {
	var globals toolcmd.Globals

	cmd := &cobra.Command{
		Use:   "pdftoolkit",
		Short: "Batch PDF toolkit for masking, stamping and merging scanned documents",
		Long: `pdftoolkit prepares PDF documents in bulk.

It redacts rectangular areas, draws measuring grids, stamps file name headers
and page numbers, frames the original content and concatenates folders of PDFs.
Every command that takes a file also accepts a directory and then processes
each PDF in it, in natural order.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return toolcmd.Setup(cmd, globals)
		},
	}

	globals.Bind(cmd)
	cmd.AddCommand(toolcmd.Commands()...)

	return cmd
}
