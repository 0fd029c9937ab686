// Init command for the nodectl CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize nodectl configuration and an empty scene",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			fatal(exitSysError, "init", err)
		}
		if err := ensureConfigDir(configDir); err != nil {
			fatal(exitSysError, "init", err)
		}
		if err := ensureDefaultConfigFile(configDir); err != nil {
			fatal(exitSysError, "init", err)
		}

		store, _, err := openScene()
		if err != nil {
			fatal(exitSysError, "init", err)
		}
		defer store.Close()

		sceneDir, err := resolveSceneDir()
		if err != nil {
			fatal(exitSysError, "init", err)
		}

		fmt.Println("Scene initialized successfully")
		fmt.Println("  config:", configDir)
		fmt.Println("  scene: ", sceneDir)
		return nil
	},
}
