// Get command for the nodectl CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <id-or-name> <field>",
	Short: "Print the serialized value of one field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ctx, err := openScene()
		if err != nil {
			fatal(exitSysError, "get", err)
		}
		defer store.Close()

		id, err := resolveEntity(store, args[0])
		if err != nil {
			fatal(exitUserError, "get", err)
		}
		k, err := ctx.Wrap(id)
		if err != nil {
			fatal(exitUserError, "get", err)
		}

		f := k.MetaNode().Field(args[1])
		if f == nil {
			fatal(exitUserError, "get", fmt.Errorf("no field %q on entity %s", args[1], id))
		}
		v, err := f.Serialize()
		if err != nil {
			fatal(exitSysError, "get", err)
		}
		return printJSON(v)
	},
}
