// Package config parses environment variables into typed structs.
//
// Struct fields use caarlos0/env tags. Variables from .env files are loaded
// first with joho/godotenv; variables already present in the process
// environment take precedence over file values.
//
//	type Config struct {
//		DatabaseURL string        `env:"DATABASE_URL,required"`
//		CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"5m"`
//	}
//
//	cfg, err := config.Load[Config](config.WithEnvFiles(".env"))
package config
