// List command for the nodectl CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities in the scene",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openScene()
		if err != nil {
			fatal(exitSysError, "list", err)
		}
		defer store.Close()

		ids, err := store.ListEntities()
		if err != nil {
			fatal(exitSysError, "list", err)
		}

		if flagJSON {
			entries := make([]map[string]string, 0, len(ids))
			for _, id := range ids {
				name, err := store.EntityName(id)
				if err != nil {
					fatal(exitSysError, "list", err)
				}
				entries = append(entries, map[string]string{"uuid": id, "name": name})
			}
			return printJSON(entries)
		}

		for _, id := range ids {
			name, err := store.EntityName(id)
			if err != nil {
				fatal(exitSysError, "list", err)
			}
			fmt.Println(id, name)
		}
		return nil
	},
}
