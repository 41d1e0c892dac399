package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/aixigo/oci-semver-tagging/internal/logging"
	"github.com/aixigo/oci-semver-tagging/internal/promote"
)

const notifyFlushTimeout = 5 * time.Second

func newTagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag <image> [version]",
		Short: "Tag an image with its semantic version aliases",
		Long: `Tag points the major, major.minor, full version and latest tags at the
given image. The version is taken from the image's tag unless given
explicitly. An alias only moves when the image is the highest release in
that alias's line; pre-releases only get their full version tag.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var version string
			if len(args) == 2 {
				version = args[1]
			}
			return a.runTag(cmd.Context(), args[0], version)
		},
	}
	cmd.Flags().BoolP("dry-run", "d", false, "only print what would be pushed")
	return cmd
}

func (a *app) runTag(ctx context.Context, image, version string) error {
	client, err := a.newClient()
	if err != nil {
		return err
	}
	p := promote.New(a.cfg, client)
	res, err := p.Promote(ctx, promote.Request{
		Image:   image,
		Version: version,
		Prefix:  a.cfg.TagPrefix,
		DryRun:  a.cfg.DryRun,
	})

	flushCtx, cancel := context.WithTimeout(context.Background(), notifyFlushTimeout)
	defer cancel()
	if werr := p.Wait(flushCtx); werr != nil {
		logging.Get().Warn().Err(werr).Msg("timed out waiting for notifiers to finish")
	}

	if res != nil {
		if perr := a.printer().result(res); perr != nil {
			return perr
		}
	}
	return err
}
