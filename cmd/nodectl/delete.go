// Delete command for the nodectl CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id-or-name>",
	Short: "Delete an entity from the scene",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ctx, err := openScene()
		if err != nil {
			fatal(exitSysError, "delete", err)
		}
		defer store.Close()

		id, err := resolveEntity(store, args[0])
		if err != nil {
			fatal(exitUserError, "delete", err)
		}
		if err := store.DeleteEntity(id); err != nil {
			fatal(exitUserError, "delete", err)
		}
		// Drop the stale wrapper so a later wrap does not resurrect it.
		ctx.Evict(id)

		fmt.Println("deleted", id)
		return nil
	},
}
