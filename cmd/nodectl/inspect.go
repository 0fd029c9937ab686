// Inspect command for the nodectl CLI.
package main

import (
	"github.com/spf13/cobra"
)

var inspectAll bool

var inspectCmd = &cobra.Command{
	Use:   "inspect [id-or-name]",
	Short: "Print the serialized snapshot of an entity (or of the whole scene with --all)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ctx, err := openScene()
		if err != nil {
			fatal(exitSysError, "inspect", err)
		}
		defer store.Close()

		if inspectAll {
			ids, err := store.ListEntities()
			if err != nil {
				fatal(exitSysError, "inspect", err)
			}
			snapshots := make([]map[string]any, 0, len(ids))
			for _, id := range ids {
				k, err := ctx.Wrap(id)
				if err != nil {
					fatal(exitUserError, "inspect", err)
				}
				data, err := k.MetaNode().Serialize()
				if err != nil {
					fatal(exitSysError, "inspect", err)
				}
				snapshots = append(snapshots, data)
			}
			return printJSON(snapshots)
		}

		if len(args) != 1 {
			return cmd.Usage()
		}
		id, err := resolveEntity(store, args[0])
		if err != nil {
			fatal(exitUserError, "inspect", err)
		}
		k, err := ctx.Wrap(id)
		if err != nil {
			fatal(exitUserError, "inspect", err)
		}
		data, err := k.MetaNode().Serialize()
		if err != nil {
			fatal(exitSysError, "inspect", err)
		}
		return printJSON(data)
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectAll, "all", false, "inspect every entity in the scene")
}
