// Package config loads typed configuration structs from environment
// variables (with optional .env file support for local development).
//
//	type Config struct {
//		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
package config
