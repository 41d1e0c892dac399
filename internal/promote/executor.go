package promote

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aixigo/oci-semver-tagging/internal/logging"
)

// TagWriter points a tag at an existing manifest.
type TagWriter interface {
	WriteTag(ctx context.Context, repository, tag, digest string) error
}

// Executor applies decisions to a repository. Writes for distinct aliases
// run concurrently up to Limit; a failed write never stops the others.
type Executor struct {
	Writer TagWriter
	Limit  int
}

// Apply writes every decision that should move and returns the failures in
// decision order. In dry-run mode nothing is written and nil is returned.
func (e *Executor) Apply(ctx context.Context, repository string, decisions []Decision, dryRun bool) []WriteFailure {
	if dryRun {
		for _, d := range decisions {
			if d.ShouldMove {
				logging.Get().Info().Str("tag", d.Tag).Str("digest", d.Digest).Msg("dry-run: would move alias")
			}
		}
		return nil
	}

	limit := e.Limit
	if limit < 1 {
		limit = 1
	}
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed = make(map[int]WriteFailure)
	)
	g.SetLimit(limit)
	for i, d := range decisions {
		if !d.ShouldMove {
			continue
		}
		g.Go(func() error {
			if err := e.Writer.WriteTag(ctx, repository, d.Tag, d.Digest); err != nil {
				logging.Get().Error().Err(err).Str("tag", d.Tag).Msg("failed to move alias")
				mu.Lock()
				failed[i] = WriteFailure{Level: d.Level, Tag: d.Tag, Err: err}
				mu.Unlock()
				return nil
			}
			logging.Get().Info().Str("tag", d.Tag).Str("digest", d.Digest).Msg("moved alias")
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		return nil
	}
	out := make([]WriteFailure, 0, len(failed))
	for i := range decisions {
		if f, ok := failed[i]; ok {
			out = append(out, f)
		}
	}
	return out
}
