// Package promote decides which semantic-version alias tags a freshly built
// image may claim and moves them in the registry.
//
// The registry tag namespace is shared and offers no compare-and-swap. Tags
// are read once, decisions are computed, then each alias is written. Two runs
// racing between the read and the writes can let a lower version overwrite a
// higher one. This is accepted; no lock is taken.
package promote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aixigo/oci-semver-tagging/internal/config"
	"github.com/aixigo/oci-semver-tagging/internal/logging"
	"github.com/aixigo/oci-semver-tagging/internal/metrics"
	"github.com/aixigo/oci-semver-tagging/internal/notify"
	"github.com/aixigo/oci-semver-tagging/internal/registry"
	"github.com/aixigo/oci-semver-tagging/internal/semver"
)

const publishTimeout = 10 * time.Second

// TagReader is the read side of the registry.
type TagReader interface {
	ListTags(ctx context.Context, repository string) ([]string, error)
	ResolveDigest(ctx context.Context, image string) (string, error)
}

// Registry is everything a promotion run needs from the registry.
type Registry interface {
	TagReader
	TagWriter
}

// Request describes one promotion run.
type Request struct {
	// Image is the source reference, e.g. "ghcr.io/org/app:1.4.2".
	Image string
	// Version overrides the version derived from the image tag.
	Version string
	Prefix  string
	DryRun  bool
}

// Result is returned for every run that got as far as computing decisions.
type Result struct {
	RunID      string         `json:"run_id"`
	Repository string         `json:"repository"`
	Version    string         `json:"version"`
	Digest     string         `json:"digest"`
	DryRun     bool           `json:"dry_run"`
	Decisions  []Decision     `json:"decisions"`
	Failures   []WriteFailure `json:"failures,omitempty"`
}

// Moved returns the decisions that move an alias.
func (r *Result) Moved() []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if d.ShouldMove {
			out = append(out, d)
		}
	}
	return out
}

// Promoter runs promotions against one registry.
type Promoter struct {
	cfg      *config.Config
	reg      Registry
	exec     *Executor
	notifier *notify.MultiNotifier
	Now      func() time.Time // injectable clock for testing
}

// New creates a promoter.
func New(cfg *config.Config, reg Registry) *Promoter {
	p := &Promoter{
		cfg:  cfg,
		reg:  reg,
		exec: &Executor{Writer: reg, Limit: cfg.MaxConcurrentWrites},
		Now:  time.Now,
	}
	p.initNotifiers()
	return p
}

func (p *Promoter) initNotifiers() {
	p.notifier = notify.NewMultiNotifier()
	cfg := p.cfg
	entries := []struct {
		enabled bool
		svc     notify.Service
	}{
		{cfg.SlackWebhook != "", &notify.Slack{WebhookURL: cfg.SlackWebhook}},
		{cfg.DiscordWebhook != "", &notify.Discord{WebhookURL: cfg.DiscordWebhook}},
		{cfg.TeamsWebhook != "", &notify.Teams{WebhookURL: cfg.TeamsWebhook}},
		{cfg.GenericWebhookURL != "", &notify.Generic{WebhookURL: cfg.GenericWebhookURL}},
	}
	for _, e := range entries {
		if e.enabled {
			p.notifier.Add(e.svc)
		}
	}
}

// Promote resolves the source version and digest, reads the repository's
// tags, decides which aliases move and, unless req.DryRun, writes them.
//
// Fatal errors (bad version, prefix mismatch, registry read failure) are
// returned before anything is written, with a nil Result. When some writes
// fail the Result is returned together with a *PartialFailureError.
func (p *Promoter) Promote(ctx context.Context, req Request) (res *Result, err error) {
	start := p.Now()
	runID := uuid.NewString()
	log := logging.Get().With().Str("run_id", runID).Logger()

	defer func() {
		p.record(ctx, res, err, start)
	}()

	ref, err := registry.ParseReference(req.Image)
	if errors.Is(err, registry.ErrInvalidTag) {
		return nil, fmt.Errorf("%w: %w", semver.ErrInvalidVersionFormat, err)
	}
	if err != nil {
		return nil, err
	}
	log = log.With().Str("repository", ref.Repository).Logger()

	version, err := ResolveVersion(ref.Tag, req.Version, req.Prefix)
	if err != nil {
		return nil, err
	}
	if version.Metadata() != "" {
		log.Warn().Str("build", version.Metadata()).Msg("build metadata is not allowed in tags and is dropped")
	}

	digest, err := p.reg.ResolveDigest(ctx, ref.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistryRead, err)
	}
	tags, err := p.reg.ListTags(ctx, ref.Repository)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegistryRead, err)
	}
	existing := semver.FilterAndParse(tags, req.Prefix)
	log.Debug().Int("tags", len(tags)).Int("versions", len(existing)).Msg("inventory loaded")

	decisions, err := Decide(version, req.Prefix, existing, digest)
	if err != nil {
		return nil, err
	}
	res = &Result{
		RunID:      runID,
		Repository: ref.Repository,
		Version:    version.String(),
		Digest:     digest,
		DryRun:     req.DryRun,
		Decisions:  decisions,
	}
	logDecisions(log, decisions)

	if p.handleDryRun(ctx, log, res) {
		return res, nil
	}

	res.Failures = p.exec.Apply(ctx, ref.Repository, decisions, false)
	if len(res.Failures) > 0 {
		err = &PartialFailureError{Failures: res.Failures}
		log.Error().Err(err).Msg("promotion partially failed")
		p.notify(ctx, p.event(res, notify.LevelFailure))
		return res, err
	}
	log.Info().Str("version", res.Version).Int("moved", len(res.Moved())).Msg("promotion complete")
	p.notify(ctx, p.event(res, notify.LevelSuccess))
	return res, nil
}

// handleDryRun returns true when dry-run handling was performed
func (p *Promoter) handleDryRun(ctx context.Context, log zerolog.Logger, res *Result) bool {
	if !res.DryRun {
		return false
	}
	log.Info().Int("would_move", len(res.Moved())).Msg("dry-run mode: no tags written")
	_ = p.exec.Apply(ctx, res.Repository, res.Decisions, true)
	return true
}

// record updates metrics for a finished run and pushes them when configured.
func (p *Promoter) record(ctx context.Context, res *Result, err error, start time.Time) {
	metrics.ObserveRunDuration(p.Now().Sub(start).Seconds())
	metrics.SetLastRun(p.Now())
	if res != nil {
		failed := make(map[string]bool, len(res.Failures))
		for _, f := range res.Failures {
			failed[f.Tag] = true
			metrics.IncWriteFailure()
		}
		for _, d := range res.Decisions {
			switch {
			case !d.ShouldMove:
				metrics.IncAliasKept()
			case !failed[d.Tag]:
				metrics.IncAliasMoved()
			}
		}
	}
	if res != nil && res.DryRun {
		metrics.IncDryRun()
	} else {
		metrics.IncRun(err != nil)
	}

	repository := ""
	if res != nil {
		repository = res.Repository
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if perr := metrics.PushGateway(pushCtx, p.cfg.PushgatewayURL, p.cfg.PushgatewayJob, repository); perr != nil {
		logging.Get().Warn().Err(perr).Msg("failed to push metrics to pushgateway")
	}
	if perr := metrics.PushInflux(pushCtx, p.cfg.InfluxURL, p.cfg.InfluxToken, p.cfg.InfluxOrg, p.cfg.InfluxBucket, repository); perr != nil {
		logging.Get().Warn().Err(perr).Msg("failed to push metrics to influxdb")
	}
}

// notify sends a notification if the configured level allows it
func (p *Promoter) notify(ctx context.Context, ev notify.Event) {
	if !notify.Allowed(p.cfg.NotificationLevel, ev.Status) {
		return
	}
	p.notifier.Send(context.WithoutCancel(ctx), ev)
}

// event summarises a finished write phase. Aliases whose write failed are
// listed under Failed only.
func (p *Promoter) event(res *Result, status string) notify.Event {
	ev := notify.Event{
		Status:     status,
		RunID:      res.RunID,
		Repository: res.Repository,
		Version:    res.Version,
		Digest:     res.Digest,
		Time:       p.Now(),
	}
	failed := make(map[string]bool, len(res.Failures))
	for _, f := range res.Failures {
		failed[f.Tag] = true
		ev.Failed = append(ev.Failed, notify.AliasFailure{Tag: f.Tag, Error: f.Err.Error()})
	}
	for _, d := range res.Decisions {
		switch {
		case !d.ShouldMove:
			ev.Kept = append(ev.Kept, d.Tag)
		case !failed[d.Tag]:
			ev.Moved = append(ev.Moved, d.Tag)
		}
	}
	return ev
}

// Wait blocks until pending notifications are sent or ctx is done.
func (p *Promoter) Wait(ctx context.Context) error {
	return p.notifier.Wait(ctx)
}

// ResolveVersion determines the version being promoted. explicit wins when
// set (a leading prefix is tolerated); otherwise tag, the source image's tag,
// must carry prefix and parse. An empty tag with no explicit version is an
// invalid version.
func ResolveVersion(tag, explicit, prefix string) (semver.Version, error) {
	if explicit != "" {
		return semver.Parse(strings.TrimPrefix(explicit, prefix), "")
	}
	if tag == "" {
		return semver.Version{}, fmt.Errorf("%w: image reference has no tag and no version was given", semver.ErrInvalidVersionFormat)
	}
	return semver.Parse(tag, prefix)
}

func logDecisions(log zerolog.Logger, decisions []Decision) {
	for _, d := range decisions {
		log.Debug().
			Str("level", d.Level.String()).
			Str("tag", d.Tag).
			Bool("move", d.ShouldMove).
			Str("reason", d.Reason).
			Msg("decision")
	}
}
