// Root command for the nodectl CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/riglab/metanode/internal/paths"
	"github.com/riglab/metanode/pkg/metanode"
)

// Global flag values.
var (
	flagConfigDir string
	flagSceneDir  string
	flagJSON      bool
)

// configSceneDir holds the scene_dir value loaded from config.yaml.
// Set by PersistentPreRunE so all subcommands can use it.
var configSceneDir string

var rootCmd = &cobra.Command{
	Use:     "nodectl",
	Short:   "nodectl inspects and edits metanode entities in a scene file",
	Version: metanode.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		configSceneDir = cfg.GetString(cfgKeySceneDir)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: $(CWD)/.metanode)")
	rootCmd.PersistentFlags().StringVar(&flagSceneDir, "scene-dir", "", "scene directory (default: $(CWD)/.metanode-db)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(deleteCmd)
}

// resolveSceneDir returns the scene directory following the precedence:
// --scene-dir flag > config.yaml scene_dir > METANODE_SCENE_DIR env >
// default $(CWD)/.metanode-db.
func resolveSceneDir() (string, error) {
	return paths.ResolveSceneDir(flagSceneDir, configSceneDir)
}

// resolveConfigDir returns the configuration directory following the
// precedence: --config-dir flag > METANODE_CONFIG_DIR env > DefaultConfigDir().
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}
