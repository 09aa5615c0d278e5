package cachecmder

import (
	"github.com/spf13/cobra"

	mergecmder "github.com/papercomputeco/chatline/cmd/chatline/cache/merge"
	prunecmder "github.com/papercomputeco/chatline/cmd/chatline/cache/prune"
	warmcmder "github.com/papercomputeco/chatline/cmd/chatline/cache/warm"
)

const cacheLongDesc string = `Manage the synthesized audio cache.

The TTS proxy keeps every clip it synthesizes, keyed by voice and text.
These commands combine caches from several machines, fill a cache
ahead of time and drop clips that are no longer needed.`

const cacheShortDesc string = "Manage the audio cache"

func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: cacheShortDesc,
		Long:  cacheLongDesc,
	}

	cmd.AddCommand(mergecmder.NewMergeCmd())
	cmd.AddCommand(warmcmder.NewWarmCmd())
	cmd.AddCommand(prunecmder.NewPruneCmd())

	return cmd
}
