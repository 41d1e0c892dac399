package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-containerregistry/pkg/name"
	ggcr "github.com/google/go-containerregistry/pkg/registry"
	"github.com/google/go-containerregistry/pkg/v1/random"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/stretchr/testify/require"

	"github.com/aixigo/oci-semver-tagging/internal/promote"
)

func init() {
	color.NoColor = true
}

func newTestRegistry(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(ggcr.New(ggcr.Logger(log.New(io.Discard, "", 0))))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func pushImage(t *testing.T, ref string) {
	t.Helper()
	img, err := random.Image(128, 1)
	require.NoError(t, err)
	tag, err := name.NewTag(ref)
	require.NoError(t, err)
	require.NoError(t, remote.Write(tag, img))
}

func listTags(t *testing.T, repo string) []string {
	t.Helper()
	r, err := name.NewRepository(repo)
	require.NoError(t, err)
	tags, err := remote.List(r)
	require.NoError(t, err)
	sort.Strings(tags)
	return tags
}

// runCLI runs the command line with quiet logging.
func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append(args, "--log-level", "error")
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestTagDryRun(t *testing.T) {
	repo := newTestRegistry(t) + "/team/app"
	pushImage(t, repo+":1.0.0")

	code, out, errOut := runCLI(t, "", "tag", repo+":1.0.0", "--dry-run")
	require.Equal(t, exitOK, code, errOut)
	require.Contains(t, out, "Dry run for "+repo+" 1.0.0")
	require.Contains(t, out, "move    1 ")
	require.Contains(t, out, "move    latest ")
	require.Equal(t, []string{"1.0.0"}, listTags(t, repo))
}

func TestTagJSONOutput(t *testing.T) {
	repo := newTestRegistry(t) + "/app"
	pushImage(t, repo+":1.4.2")

	code, out, errOut := runCLI(t, "", "tag", repo+":1.4.2", "-o", "json")
	require.Equal(t, exitOK, code, errOut)

	var res promote.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, "1.4.2", res.Version)
	require.Len(t, res.Moved(), 4)
	require.Equal(t, []string{"1", "1.4", "1.4.2", "latest"}, listTags(t, repo))
}

func TestTagOlderVersionKeepsAliases(t *testing.T) {
	repo := newTestRegistry(t) + "/app"
	pushImage(t, repo+":2.0.0")
	code, _, errOut := runCLI(t, "", "tag", repo+":2.0.0")
	require.Equal(t, exitOK, code, errOut)

	pushImage(t, repo+":1.9.0")
	code, out, errOut := runCLI(t, "", "tag", repo+":1.9.0")
	require.Equal(t, exitOK, code, errOut)
	require.Contains(t, out, "keep    latest (2.0.0 is newer)")
	require.Contains(t, out, "move    1 ")
}

func TestTagExplicitVersionAndPrefix(t *testing.T) {
	repo := newTestRegistry(t) + "/app"
	pushImage(t, repo+":build-17")

	code, _, errOut := runCLI(t, "", "tag", repo+":build-17", "3.0.1", "--tag-prefix", "release-")
	require.Equal(t, exitOK, code, errOut)
	require.Equal(t, []string{"build-17", "release-3", "release-3.0", "release-3.0.1", "release-latest"}, listTags(t, repo))
}

func TestTagInvalidVersion(t *testing.T) {
	repo := newTestRegistry(t) + "/app"
	pushImage(t, repo+":nightly")

	code, _, errOut := runCLI(t, "", "tag", repo+":nightly")
	require.Equal(t, exitFatal, code)
	require.Contains(t, errOut, "invalid version format")
	require.Equal(t, []string{"nightly"}, listTags(t, repo))
}

func TestTagBuildMetadataInTag(t *testing.T) {
	code, _, errOut := runCLI(t, "", "tag", "registry.example.com/app:1.2.3+build.7")
	require.Equal(t, exitFatal, code)
	require.Contains(t, errOut, "invalid version format")
	require.Contains(t, errOut, "invalid tag")
}

func TestTagPasswordEnvUnset(t *testing.T) {
	code, _, errOut := runCLI(t, "", "tag", "registry.example.com/app:1.0.0", "-u", "ci", "--password-env", "SEMVER_TAGGING_TEST_UNSET_PASSWORD")
	require.Equal(t, exitFatal, code)
	require.Contains(t, errOut, "SEMVER_TAGGING_TEST_UNSET_PASSWORD")
}

func TestTagPasswordStdin(t *testing.T) {
	repo := newTestRegistry(t) + "/app"
	pushImage(t, repo+":0.1.0")

	// the in-memory registry ignores credentials
	code, _, errOut := runCLI(t, "hunter2\n", "tag", repo+":0.1.0", "-u", "ci", "--password-stdin")
	require.Equal(t, exitOK, code, errOut)
}

func TestValidate(t *testing.T) {
	repo := newTestRegistry(t) + "/app"
	pushImage(t, repo+":1.0.0")
	code, _, errOut := runCLI(t, "", "tag", repo+":1.0.0")
	require.Equal(t, exitOK, code, errOut)

	code, out, errOut := runCLI(t, "", "validate", repo)
	require.Equal(t, exitOK, code, errOut)
	require.Contains(t, out, "ok      latest -> 1.0.0")

	// a release pushed without promotion leaves every alias stale
	pushImage(t, repo+":1.0.1")
	code, out, _ = runCLI(t, "", "validate", repo)
	require.Equal(t, exitValidation, code)
	require.Contains(t, out, "stale   1 -> 1.0.1")
	require.Contains(t, out, "stale   latest -> 1.0.1")
}

func TestValidateLogsConfigWarnings(t *testing.T) {
	repo := newTestRegistry(t) + "/app"
	pushImage(t, repo+":nightly")
	t.Setenv("SEMVER_TAGGING_RETRY_ATTEMPTS", "0")

	var stdout, stderr bytes.Buffer
	code := run([]string{"validate", repo, "--max-concurrent-writes", "0", "--log-level", "warn"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	require.Contains(t, stderr.String(), "max_concurrent_writes below 1, writes will run sequentially")
	require.Contains(t, stderr.String(), "retry_attempts below 1, registry calls will not be retried")
}

func TestValidateJSONEmpty(t *testing.T) {
	repo := newTestRegistry(t) + "/app"
	pushImage(t, repo+":nightly")

	code, out, errOut := runCLI(t, "", "validate", repo, "-o", "json")
	require.Equal(t, exitOK, code, errOut)
	require.JSONEq(t, "[]", out)
}

func TestUnknownOutputFormat(t *testing.T) {
	code, _, errOut := runCLI(t, "", "version", "-o", "yaml")
	require.Equal(t, exitFatal, code)
	require.Contains(t, errOut, "unknown output format")
}

func TestVersionShort(t *testing.T) {
	code, out, _ := runCLI(t, "", "version", "--short")
	require.Equal(t, exitOK, code)
	require.Equal(t, BuildVersion+"\n", out)
}

func TestConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("tag_prefix: file-\nmax_concurrent_writes: 2\nprotocol: http\n"), 0o600))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SEMVER_TAGGING_MAX_CONCURRENT_WRITES=3\n"), 0o600))
	t.Setenv("SEMVER_TAGGING_MAX_CONCURRENT_WRITES", "")
	os.Unsetenv("SEMVER_TAGGING_MAX_CONCURRENT_WRITES")

	a := &app{stdin: strings.NewReader(""), stdout: io.Discard, stderr: io.Discard}
	defer a.close()
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"version", "--config", cfgPath, "--env-file", envPath, "-t", "flag-", "--log-level", "error"})
	cmd.SetOut(io.Discard)
	require.NoError(t, cmd.Execute())

	require.Equal(t, "flag-", a.cfg.TagPrefix)
	require.Equal(t, 3, a.cfg.MaxConcurrentWrites)
	require.True(t, a.cfg.Insecure())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{errors.New("boom"), exitFatal},
		{fmt.Errorf("%w: list", promote.ErrRegistryRead), exitFatal},
		{&promote.PartialFailureError{Failures: []promote.WriteFailure{{Tag: "1", Err: errors.New("denied")}}}, exitPartialFailure},
		{fmt.Errorf("wrapped: %w", errValidationFailed), exitValidation},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
