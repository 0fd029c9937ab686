// Shared helpers for nodectl subcommands.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/riglab/metanode/internal/sqlite"
	"github.com/riglab/metanode/pkg/metanode"
)

// sceneFileName is the SQLite scene file inside the scene directory.
const sceneFileName = "scene.db"

// openScene opens (creating if needed) the scene store and a context
// over it. The caller must Close the returned store.
func openScene() (*sqlite.Store, *metanode.Context, error) {
	sceneDir, err := resolveSceneDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(sceneDir, 0o755); err != nil {
		return nil, nil, err
	}

	store, err := sqlite.Open(filepath.Join(sceneDir, sceneFileName))
	if err != nil {
		return nil, nil, err
	}
	ctx := metanode.NewContext(store, metanode.WithNativeKind(nativeKind()))
	return store, ctx, nil
}

// nativeKind returns the configured native entity kind for create.
func nativeKind() string {
	configDir, err := resolveConfigDir()
	if err != nil {
		return defaultNativeKind
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return defaultNativeKind
	}
	return cfg.GetString(cfgKeyNativeKind)
}

// resolveEntity turns an id-or-name argument into a durable id.
func resolveEntity(store *sqlite.Store, arg string) (string, error) {
	if uuid.Validate(arg) == nil {
		return arg, nil
	}
	return store.Resolve(arg)
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

// fatal prints a message to stderr and exits with the given code.
func fatal(code int, prefix string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", prefix, err)
	os.Exit(code)
}
