// Package config loads factorize settings from files and the environment.
//
// Settings are layered, later layers winning:
//
//  1. built-in defaults (pipeline.DefaultConfig)
//  2. a YAML or JSON file given with -config
//  3. FACTORIZE_* environment variables, optionally loaded from a .env file
//  4. command-line flags (applied by cmd/factorize)
//
// # File Format
//
//	workers: 4
//	queue_capacity: 256
//	method: rho        # trial | rho
//	format: text       # text | json | yaml
//	stats: true
//	log:
//	  level: debug
//	  json: false
//	server:
//	  addr: ":8080"
//
// # Environment
//
//	FACTORIZE_WORKERS, FACTORIZE_QUEUE_CAPACITY, FACTORIZE_METHOD,
//	FACTORIZE_FORMAT, FACTORIZE_LOG_LEVEL, FACTORIZE_STATS, FACTORIZE_ADDR
package config
