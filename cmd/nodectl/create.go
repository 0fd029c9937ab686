// Create command for the nodectl CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riglab/metanode/pkg/metanode"
	"github.com/riglab/metanode/pkg/types"
)

var (
	createName   string
	createNative string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new metanode-backed entity in the scene",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ctx, err := openScene()
		if err != nil {
			fatal(exitSysError, "create", err)
		}
		defer store.Close()

		k, err := ctx.Create(metanode.BaseKind, createNative, types.CreateOptions{Name: createName})
		if err != nil {
			fatal(exitUserError, "create", err)
		}

		n := k.MetaNode()
		name, err := n.Name()
		if err != nil {
			fatal(exitSysError, "create", err)
		}

		if flagJSON {
			return printJSON(map[string]any{"uuid": n.ID(), "name": name})
		}
		fmt.Println(n.ID(), name)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "display name for the new entity")
	createCmd.Flags().StringVar(&createNative, "native", "", "native entity kind (default from config)")
}
