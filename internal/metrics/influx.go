package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var influxClient = &http.Client{Timeout: 5 * time.Second}

// PushInflux writes the current snapshot as one line-protocol point to an
// InfluxDB v2 write endpoint. It is a no-op when url or bucket are empty.
func PushInflux(ctx context.Context, baseURL, token, org, bucket, repository string) error {
	if baseURL == "" || bucket == "" {
		return nil
	}
	q := url.Values{}
	q.Set("org", org)
	q.Set("bucket", bucket)
	q.Set("precision", "s")
	writeURL := fmt.Sprintf("%s/api/v2/write?%s", strings.TrimRight(baseURL, "/"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, writeURL, bytes.NewReader([]byte(lineProtocol(GetSnapshot(), repository, time.Now()))))
	if err != nil {
		return fmt.Errorf("influxdb request creation failed: %w", err)
	}
	req.Header.Set("Authorization", "Token "+token)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := influxClient.Do(req)
	if err != nil {
		return fmt.Errorf("influxdb push failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("influxdb rejected metrics: status %d", resp.StatusCode)
	}
	return nil
}

// lineProtocol renders
// measurement,tag=value field=value timestamp
func lineProtocol(s StatsSnapshot, repository string, now time.Time) string {
	measurement := "oci_semver_tagging"
	if repository != "" {
		measurement += ",repository=" + escapeTag(repository)
	}
	return fmt.Sprintf(
		"%s runs=%di,runs_failed=%di,dry_runs=%di,aliases_moved=%di,aliases_kept=%di,write_failures=%di %d",
		measurement, s.Runs, s.RunsFailed, s.DryRuns, s.AliasesMoved, s.AliasesKept, s.WriteFailures, now.Unix(),
	)
}

var tagEscaper = strings.NewReplacer(",", `\,`, "=", `\=`, " ", `\ `)

func escapeTag(s string) string { return tagEscaper.Replace(s) }
