// Package config loads environment-driven configuration structs, caching
// one parsed value per struct type for the process lifetime. It backs the
// pg and mongodb connection configs.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
package config
