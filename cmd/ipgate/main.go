package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/ipgate/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "ipgate",
	Short:   "Content-addressed HTTP gateway",
	Long: `ipgate serves content-addressed data over HTTP: files and directory
listings, single raw blocks and CAR archives, addressed by CID.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if f, _ := cmd.Flags().GetString("config"); f != "" {
			files = append(files, f)
		}

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("blockstore", "", "block store: memory, sqlite, postgres, badger, flatfs, remote (env: IPGATE_BLOCKSTORE_TYPE)")
	rootCmd.PersistentFlags().String("blockstore-dsn", "", "sqlite or postgres connection string (env: IPGATE_BLOCKSTORE_DSN)")
	rootCmd.PersistentFlags().String("blockstore-dir", "", "badger or flatfs directory (env: IPGATE_BLOCKSTORE_PATH)")
	rootCmd.PersistentFlags().String("upstream", "", "upstream trustless gateway for the remote store (env: IPGATE_BLOCKSTORE_URL)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: IPGATE_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
