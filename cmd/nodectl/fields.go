// Fields command for the nodectl CLI: declare a field or show descriptors.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riglab/metanode/pkg/types"
)

var (
	fieldsAddKind   string
	fieldsAddName   string
	fieldsAddPublic bool
	fieldsAddMulti  bool
)

var fieldsCmd = &cobra.Command{
	Use:   "fields <id-or-name>",
	Short: "Show field descriptors of an entity, or declare a new field with --add",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ctx, err := openScene()
		if err != nil {
			fatal(exitSysError, "fields", err)
		}
		defer store.Close()

		id, err := resolveEntity(store, args[0])
		if err != nil {
			fatal(exitUserError, "fields", err)
		}
		k, err := ctx.Wrap(id)
		if err != nil {
			fatal(exitUserError, "fields", err)
		}
		n := k.MetaNode()

		if fieldsAddName != "" {
			access := types.AccessPrivate
			if fieldsAddPublic {
				access = types.AccessPublic
			}
			if _, err := n.AddField(fieldsAddKind, fieldsAddName, access, fieldsAddMulti, nil); err != nil {
				fatal(exitUserError, "fields", err)
			}
		}

		if flagJSON {
			descs := make([]map[string]any, 0)
			for _, name := range n.FieldNames() {
				d := n.Field(name).Descriptor()
				entry := d.SchemaEntry()
				entry["name"] = name
				descs = append(descs, entry)
			}
			return printJSON(descs)
		}

		for _, name := range n.FieldNames() {
			d := n.Field(name).Descriptor()
			fmt.Printf("%-24s %-8s %-8s multi=%v\n", name, d.Validator, d.Access, d.Multi)
		}
		return nil
	},
}

func init() {
	fieldsCmd.Flags().StringVar(&fieldsAddName, "add", "", "declare a new field with this name")
	fieldsCmd.Flags().StringVar(&fieldsAddKind, "kind", "string", "validator kind for --add")
	fieldsCmd.Flags().BoolVar(&fieldsAddPublic, "public", false, "declare the field public")
	fieldsCmd.Flags().BoolVar(&fieldsAddMulti, "multi", false, "declare the field as an array")
}
