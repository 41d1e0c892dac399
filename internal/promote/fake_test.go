package promote

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

const testRepo = "registry.example.com/team/app"

// fakeRegistry is a single-repository registry kept in memory.
type fakeRegistry struct {
	mu         sync.Mutex
	tags       map[string]string // tag -> digest
	writes     []string
	failWrites map[string]bool
	listErr    error
	resolveErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{tags: make(map[string]string), failWrites: make(map[string]bool)}
}

// build simulates CI pushing a freshly built image under its own tag.
func (f *fakeRegistry) build(tag string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := "sha256:" + tag
	f.tags[tag] = d
	return d
}

func (f *fakeRegistry) digest(tag string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tags[tag]
}

func (f *fakeRegistry) ListTags(ctx context.Context, repository string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.tags))
	for t := range f.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeRegistry) ResolveDigest(ctx context.Context, image string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	if i := strings.LastIndex(image, "@"); i >= 0 {
		return image[i+1:], nil
	}
	tag := image[strings.LastIndex(image, ":")+1:]
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.tags[tag]
	if !ok {
		return "", errors.New("manifest unknown")
	}
	return d, nil
}

func (f *fakeRegistry) WriteTag(ctx context.Context, repository, tag, digest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, tag)
	if f.failWrites[tag] {
		return errors.New("denied")
	}
	f.tags[tag] = digest
	return nil
}

func (f *fakeRegistry) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}
