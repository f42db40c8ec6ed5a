// Package config provides configuration loading and validation for ipgate.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (IPGATE_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with IPGATE_ prefix:
//   - server.port → IPGATE_SERVER_PORT
//   - blockstore.type → IPGATE_BLOCKSTORE_TYPE
//   - gateway.timeout → IPGATE_GATEWAY_TIMEOUT
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, read/write/idle timeouts and access logging
//   - Gateway: progress timeout, debug errors, largest cached object, shutdown timeout
//   - Cache: edge cache switch and ristretto sizing
//   - Blockstore: backend type and its DSN, table, path or upstream URL
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Blockstore type must be memory, sqlite, postgres, badger, flatfs or remote,
//     with the settings that backend needs
//   - Log level must be debug, info, warn, or error
package config
