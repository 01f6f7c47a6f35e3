// Package config loads typed configuration structs from environment
// variables via caarlos0/env, with an optional .env file picked up once
// per process through godotenv.
//
// Declare a struct with env tags and hand a pointer to Load:
//
//	type ServerConfig struct {
//	    Addr string `env:"SERVER_ADDR" envDefault:":8080"`
//	}
//
//	var cfg ServerConfig
//	config.MustLoad(&cfg)
//
// Sentinel errors (ErrParsingConfig, ErrNilPointer) compare with errors.Is.
package config
