// Package config loads the xform service configuration.
//
// Values come from a config.yml file, then a .env file, then the process
// environment. Environment keys are matched against nested config keys, so
// ENGINE_BATCH_SIZE sets engine.batch_size.
//
//	var cfg config.Config
//	if err := config.LoadConfig("xform", &cfg); err != nil { ... }
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil { ... }
package config
