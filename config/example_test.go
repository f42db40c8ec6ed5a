package config_test

import (
	"context"
	"fmt"
	"log"

	"github.com/sagarc03/ipgate/config"
)

func ExampleLoad() {
	// Load with defaults only (no config file)
	cfg, err := config.Load(nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Port: %d, Blockstore: %s, Timeout: %s\n", cfg.Server.Port, cfg.Blockstore.Type, cfg.Gateway.Timeout)
	// Output: Port: 8080, Blockstore: memory, Timeout: 30s
}

func ExampleWithContext() {
	cfg, _ := config.Load(nil, nil)

	// Store config in context
	ctx := config.WithContext(context.Background(), cfg)

	// Retrieve later (e.g., in a subcommand)
	retrieved, err := config.FromContext(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Retrieved port: %d\n", retrieved.Server.Port)
	// Output: Retrieved port: 8080
}
