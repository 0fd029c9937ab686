// Version command for the nodectl CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riglab/metanode/pkg/metanode"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the nodectl version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("nodectl", metanode.Version)
	},
}
