package mergecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/chatline/cmd/chatline/cachepath"
	"github.com/papercomputeco/chatline/pkg/audiocache"
)

const mergeLongDesc string = `Merge one or more source audio caches into a target.

Entries are keyed by voice and text, so merging is a simple union:
clips that already exist in the target are skipped.

Examples:
  chatline cache merge laptop-audio.db desktop-audio.db
  chatline cache merge --cache /tmp/merged.db ~/alice/audio.db ~/bob/audio.db`

const mergeShortDesc string = "Merge SQLite audio caches"

type mergeCommander struct {
	cachePath string
}

func NewMergeCmd() *cobra.Command {
	cmder := &mergeCommander{}

	cmd := &cobra.Command{
		Use:   "merge [sources...]",
		Short: mergeShortDesc,
		Long:  mergeLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.cachePath, "cache", "c", "", "Path to target audio cache")

	return cmd
}

func (c *mergeCommander) run(ctx context.Context, cmd *cobra.Command, sources []string) error {
	targetPath, err := cachepath.ResolveCachePath(c.cachePath)
	if err != nil {
		return fmt.Errorf("could not resolve target cache: %w", err)
	}

	target, err := audiocache.NewSQLiteStorer(targetPath)
	if err != nil {
		return fmt.Errorf("could not open target cache %s: %w", targetPath, err)
	}
	defer target.Close()

	var totalNew, totalDuped int

	for _, srcPath := range sources {
		srcNew, srcDuped, err := mergeSource(ctx, target, srcPath)
		if err != nil {
			return err
		}

		totalNew += srcNew
		totalDuped += srcDuped

		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d new, %d already existed\n", srcPath, srcNew, srcDuped)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d new clips from %d sources (%d already existed) into %s\n",
		totalNew, len(sources), totalDuped, targetPath)

	return nil
}

func mergeSource(ctx context.Context, target audiocache.Storer, srcPath string) (int, int, error) {
	source, err := audiocache.NewSQLiteStorer(srcPath)
	if err != nil {
		return 0, 0, fmt.Errorf("could not open source cache %s: %w", srcPath, err)
	}
	defer source.Close()

	entries, err := source.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("could not list clips from %s: %w", srcPath, err)
	}

	var isNewCount, dupedCount int
	for _, e := range entries {
		isNew, err := target.Put(ctx, e)
		if err != nil {
			return 0, 0, fmt.Errorf("could not put clip %s: %w", e.Key, err)
		}
		if isNew {
			isNewCount++
		} else {
			dupedCount++
		}
	}
	return isNewCount, dupedCount, nil
}
