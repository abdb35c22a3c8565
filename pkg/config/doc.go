// Package config loads typed configuration structs from environment
// variables, with optional .env files for local development.
//
// Each configuration type is parsed once per process and cached, so the many
// components sharing a config (storage, channel adapters, workers) can each
// call Load without re-reading the environment:
//
//	var cfg channel.SMSConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatalf("loading sms config: %v", err)
//	}
//
// Parsing is delegated to github.com/caarlos0/env, .env handling to
// github.com/joho/godotenv. ResetCache exists for tests that mutate the
// process environment between loads.
package config
