package prunecmder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/chatline/cmd/chatline/cachepath"
	"github.com/papercomputeco/chatline/pkg/audiocache"
	"github.com/papercomputeco/chatline/pkg/logger"
)

const pruneLongDesc string = `Remove old clips from the audio cache.

Clips synthesized before the cutoff are deleted. The proxy synthesizes
them again the next time they are requested.

Examples:
  chatline cache prune --older-than 720h
  chatline cache prune --cache /tmp/audio.db --older-than 24h`

const pruneShortDesc string = "Remove old clips from the audio cache"

type pruneCommander struct {
	cachePath string
	olderThan time.Duration
	debug     bool
}

func NewPruneCmd() *cobra.Command {
	cmder := &pruneCommander{}

	cmd := &cobra.Command{
		Use:   "prune",
		Short: pruneShortDesc,
		Long:  pruneLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd, time.Now().UTC())
		},
	}

	cmd.Flags().StringVarP(&cmder.cachePath, "cache", "c", "", "Path to audio cache")
	cmd.Flags().DurationVar(&cmder.olderThan, "older-than", 30*24*time.Hour, "Remove clips older than this")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *pruneCommander) run(ctx context.Context, cmd *cobra.Command, now time.Time) error {
	if c.olderThan <= 0 {
		return errors.New("--older-than must be positive")
	}

	log := logger.NewWriterLogger(cmd.ErrOrStderr(), c.debug)
	defer log.Sync()

	path, err := cachepath.ResolveCachePath(c.cachePath)
	if err != nil {
		return fmt.Errorf("could not resolve cache: %w", err)
	}

	store, err := audiocache.NewSQLiteStorer(path)
	if err != nil {
		return fmt.Errorf("could not open cache %s: %w", path, err)
	}
	defer store.Close()

	cutoff := now.Add(-c.olderThan)
	log.Debug("pruning audio cache",
		zap.String("path", path),
		zap.Time("cutoff", cutoff),
	)

	removed, err := store.Prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("could not prune %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d clips older than %s from %s\n", removed, c.olderThan, path)
	return nil
}
