package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Neumenon/adv2/dupe"
)

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print version info",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "adv2 %s (%s)\n", toolVersion, runtime.Version())
		fmt.Fprintf(cmd.OutOrStdout(), "codec versions: %v\n", dupe.Versions())
	},
}

func init() {
	cmdMain.AddCommand(cmdVersion)
}
