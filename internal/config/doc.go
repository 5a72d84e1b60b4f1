// Package config holds the relay configuration model.
//
// Configuration is layered: built-in defaults, then an optional YAML file
// (with ${VAR} and ${VAR:-default} substitution), then environment
// overrides such as PORT and WEATHER_API_KEY. The result is validated once
// with ValidateConfig and passed read-only to the components that need it.
//
//	cfg, err := config.Load("configs/relay.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    return err
//	}
//
// A Watcher reloads the file on change and hands each valid configuration
// to a callback.
package config
