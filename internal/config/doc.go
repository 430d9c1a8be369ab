// Package config loads the resolution settings and owns the persisted
// state around them: new file-count maxima and the per-repository ignore
// list.
//
// # Layers
//
// Settings are merged from layers, higher layers overriding lower:
//
//	┌───────────────────────────────┐
//	│  4. Environment Variables     │  ← BRANCHTABS_MAX_FILES_TO_OPEN, ...
//	├───────────────────────────────┤
//	│  3. Workspace                 │  ← <root>/.branchtabs/settings.json
//	├───────────────────────────────┤
//	│  2. User                      │  ← ~/.config/branchtabs/config.toml
//	├───────────────────────────────┤
//	│  1. Built-in Defaults         │  ← Lowest priority
//	└───────────────────────────────┘
//
// Keys are the same camelCase names in every file format:
//
//	# config.toml
//	excludedBranches = ["main", "release/*"]
//	maxFilesToOpen = 20
//
//	// settings.json
//	{"baseBranch": "develop", "textFilesOnly": true}
//
// A value of the wrong type is logged and skipped; the rest of the layer
// still applies.
//
// # Basic Usage
//
//	loader := config.NewLoader(config.DefaultPaths(), logger)
//	settings, err := loader.Load(root)
//	if err != nil {
//	    return err
//	}
//	if settings.IsExcludedBranch(branch) {
//	    ...
//	}
package config
