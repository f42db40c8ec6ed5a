package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sagarc03/ipgate/blockstore"
	"github.com/sagarc03/ipgate/config"
	"github.com/sagarc03/ipgate/dagfs"
)

var addCmd = &cobra.Command{
	Use:   "add [flags] <path1> [path2] ...",
	Short: "Import files into the block store",
	Long: `Import files and directories into the configured block store and
print the CID of each imported path.

Examples:
  # Add a single file to a sqlite store
  ipgate add --blockstore sqlite --blockstore-dsn blocks.db ./photo.jpg

  # Add a directory recursively to a flatfs store
  ipgate add -r --blockstore flatfs --blockstore-dir ./blocks ./site`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addRecursive bool
	addChunkSize int
	addQuiet     bool
)

func init() {
	addCmd.Flags().BoolVarP(&addRecursive, "recursive", "r", false, "recursively add directories")
	addCmd.Flags().IntVar(&addChunkSize, "chunk-size", dagfs.DefaultChunkSize, "size in bytes of file chunks")
	addCmd.Flags().BoolVarP(&addQuiet, "quiet", "q", false, "only print CIDs")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if cfg.Blockstore.Type == "memory" {
		slog.Warn("adding to the memory blockstore, blocks are lost when the command exits")
	}

	bs, closeStore, err := blockstore.Open(ctx, cfg.Blockstore.Options(slog.Default()))
	if err != nil {
		return fmt.Errorf("open blockstore: %w", err)
	}
	defer closeStore()

	builder := dagfs.NewBuilder(bs, addChunkSize)
	out := cmd.OutOrStdout()

	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", arg, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if info.IsDir() && !addRecursive {
			return fmt.Errorf("%s is a directory (use -r to add recursively)", arg)
		}

		c, size, err := builder.AddFS(ctx, os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
		if err != nil {
			return err
		}

		if addQuiet {
			_, _ = fmt.Fprintln(out, c)
			continue
		}
		_, _ = fmt.Fprintf(out, "added %s %s (%s)\n", c, arg, humanize.IBytes(uint64(size)))
	}

	return nil
}
