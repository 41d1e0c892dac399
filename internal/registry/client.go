// Package registry talks to an OCI distribution registry. It lists tags,
// resolves manifest digests and points tags at existing manifests.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/aixigo/oci-semver-tagging/internal/logging"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultRetryBackoff = 500 * time.Millisecond
	retryFactor         = 2.0
	retryJitter         = 0.1
)

// ErrInvalidTag is returned by ParseReference for a tag the OCI distribution
// spec does not allow.
var ErrInvalidTag = errors.New("invalid tag")

// Options configures a Client.
type Options struct {
	// Insecure talks plain http to the registry.
	Insecure bool
	// Auth is used for every request. Nil falls back to the docker config
	// keychain, which is anonymous when no credentials are stored.
	Auth          authn.Authenticator
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	UserAgent     string
}

// Client implements the registry operations used by promotion and
// validation. It is safe for concurrent use.
type Client struct {
	opts Options

	mu    sync.Mutex
	descs map[string]*remote.Descriptor // keyed by repository@digest
}

// NewClient returns a Client with zero-valued options replaced by defaults.
// RetryAttempts counts every try, so a value below 1 means a single attempt
// without retries.
func NewClient(o Options) *Client {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.RetryAttempts < 1 {
		o.RetryAttempts = 1
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	return &Client{opts: o, descs: make(map[string]*remote.Descriptor)}
}

// Reference is an image reference split into the parts promotion needs.
type Reference struct {
	// Repository is the fully qualified repository, e.g. "ghcr.io/org/app".
	Repository string
	// Tag is the tag written in the reference, or "" when none was given.
	// An implicit "latest" does not count.
	Tag string
	// Digest is set when the reference was pinned by digest.
	Digest string
}

// String renders the reference the way it is resolved against the registry.
func (r Reference) String() string {
	switch {
	case r.Digest != "":
		return r.Repository + "@" + r.Digest
	case r.Tag != "":
		return r.Repository + ":" + r.Tag
	}
	return r.Repository
}

// ParseReference parses image as a tag or digest reference. A tag that is
// not a valid OCI tag, e.g. one carrying "+build" metadata, fails with
// ErrInvalidTag.
func ParseReference(image string) (Reference, error) {
	base, digest, pinned := strings.Cut(image, "@")
	repoPart, tag, tagged := base, "", hasExplicitTag(base)
	if tagged {
		i := strings.LastIndex(base, ":")
		repoPart, tag = base[:i], base[i+1:]
	}
	repo, err := name.NewRepository(repoPart)
	if err != nil {
		return Reference{}, fmt.Errorf("parse reference %q: %w", image, err)
	}
	out := Reference{Repository: repo.Name(), Tag: tag}
	if tagged {
		if tag == "" {
			return Reference{}, fmt.Errorf("%w: empty tag in %q", ErrInvalidTag, image)
		}
		if _, err := name.NewTag(repo.Name() + ":" + tag); err != nil {
			return Reference{}, fmt.Errorf("%w %q in %q: %v", ErrInvalidTag, tag, image, err)
		}
	}
	if pinned {
		d, err := name.NewDigest(repo.Name() + "@" + digest)
		if err != nil {
			return Reference{}, fmt.Errorf("parse reference %q: %w", image, err)
		}
		out.Digest = d.DigestStr()
	}
	return out, nil
}

// hasExplicitTag reports whether the last path component carries ":tag".
// A ":port" on the registry host is not a tag.
func hasExplicitTag(ref string) bool {
	last := ref
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		last = ref[i+1:]
	}
	return strings.Contains(last, ":")
}

// ListTags returns every tag of repository in registry order.
func (c *Client) ListTags(ctx context.Context, repository string) ([]string, error) {
	repo, err := name.NewRepository(repository, c.nameOptions()...)
	if err != nil {
		return nil, fmt.Errorf("parse repository %q: %w", repository, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	tags, err := remote.List(repo, c.remoteOptions(ctx)...)
	if err != nil {
		return nil, fmt.Errorf("list tags of %s: %w", repo.Name(), err)
	}
	logging.Get().Debug().Str("repository", repo.Name()).Int("tags", len(tags)).Msg("Listed tags")
	return tags, nil
}

// ResolveDigest returns the manifest digest image points at. For an index
// this is the index digest, so every platform keeps travelling together.
func (c *Client) ResolveDigest(ctx context.Context, image string) (string, error) {
	ref, err := name.ParseReference(image, c.nameOptions()...)
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", image, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	desc, err := remote.Head(ref, c.remoteOptions(ctx)...)
	if err != nil {
		return "", fmt.Errorf("resolve digest of %s: %w", ref.Name(), err)
	}
	return desc.Digest.String(), nil
}

// WriteTag creates or overwrites tag in repository so that it references the
// manifest with digest. The manifest is fetched once per digest and reused
// for subsequent writes.
func (c *Client) WriteTag(ctx context.Context, repository, tag, digest string) error {
	repo, err := name.NewRepository(repository, c.nameOptions()...)
	if err != nil {
		return fmt.Errorf("parse repository %q: %w", repository, err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	desc, err := c.descriptor(ctx, repo, digest)
	if err != nil {
		return err
	}
	if err := remote.Tag(repo.Tag(tag), desc, c.remoteOptions(ctx)...); err != nil {
		return fmt.Errorf("write tag %s:%s: %w", repo.Name(), tag, err)
	}
	logging.Get().Debug().Str("repository", repo.Name()).Str("tag", tag).Str("digest", digest).Msg("Tag written")
	return nil
}

func (c *Client) descriptor(ctx context.Context, repo name.Repository, digest string) (*remote.Descriptor, error) {
	key := repo.Name() + "@" + digest
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.descs[key]; ok {
		return d, nil
	}
	d, err := remote.Get(repo.Digest(digest), c.remoteOptions(ctx)...)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest %s: %w", key, err)
	}
	c.descs[key] = d
	return d, nil
}

func (c *Client) nameOptions() []name.Option {
	if c.opts.Insecure {
		return []name.Option{name.Insecure}
	}
	return nil
}

func (c *Client) remoteOptions(ctx context.Context) []remote.Option {
	opts := []remote.Option{
		remote.WithContext(ctx),
		remote.WithRetryBackoff(remote.Backoff{
			Duration: c.opts.RetryBackoff,
			Factor:   retryFactor,
			Jitter:   retryJitter,
			Steps:    c.opts.RetryAttempts,
		}),
	}
	if c.opts.UserAgent != "" {
		opts = append(opts, remote.WithUserAgent(c.opts.UserAgent))
	}
	if c.opts.Auth != nil {
		opts = append(opts, remote.WithAuth(c.opts.Auth))
	} else {
		opts = append(opts, remote.WithAuthFromKeychain(authn.DefaultKeychain))
	}
	return opts
}
