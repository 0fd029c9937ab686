// Set command for the nodectl CLI.
package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <id-or-name> <field> <value>",
	Short: "Set one field value and flush it to the scene",
	Long: `Set parses the value as JSON (falling back to a plain string) and
writes it through the field's validator. Private fields are flushed
immediately; public fields write through on their own.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ctx, err := openScene()
		if err != nil {
			fatal(exitSysError, "set", err)
		}
		defer store.Close()

		id, err := resolveEntity(store, args[0])
		if err != nil {
			fatal(exitUserError, "set", err)
		}
		k, err := ctx.Wrap(id)
		if err != nil {
			fatal(exitUserError, "set", err)
		}

		f := k.MetaNode().Field(args[1])
		if f == nil {
			fatal(exitUserError, "set", fmt.Errorf("no field %q on entity %s", args[1], id))
		}

		var value any
		if err := json.Unmarshal([]byte(args[2]), &value); err != nil {
			// Not valid JSON: treat as a plain string value.
			value = args[2]
		}

		if err := f.Set(value); err != nil {
			fatal(exitUserError, "set", err)
		}
		if err := f.Write(); err != nil {
			fatal(exitUserError, "set", err)
		}
		return nil
	},
}
