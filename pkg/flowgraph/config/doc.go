/*
Package config provides type-safe configuration extraction from map[string]any.

Config wraps a map and provides typed accessors that return a default when
a key is missing or its value cannot be converted. Keys may be dotted paths
that walk nested maps.

	cfg, err := config.FromFile("argus.yaml")
	if err != nil {
	    return err
	}
	model := cfg.String("llm.model", "claude-sonnet-4-5")
	poll := cfg.Duration("ingest.poll_interval", 2*time.Second)

Layers combine with Merge, later layers winning:

	cfg = defaults.Merge(fileCfg).Merge(config.FromEnv("ARGUS_", os.Environ()))

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
