// Package notify reports promotion runs to chat services and webhooks.
package notify

import (
	"fmt"
	"strings"
	"time"
)

// Event statuses. The configured notification level filters on them.
const (
	LevelSuccess = "success"
	LevelFailure = "failure"
)

// Event is the outcome of one promotion run.
type Event struct {
	Status     string         `json:"status"`
	RunID      string         `json:"run_id"`
	Repository string         `json:"repository"`
	Version    string         `json:"version"`
	Digest     string         `json:"digest"`
	Moved      []string       `json:"moved"`
	Kept       []string       `json:"kept"`
	Failed     []AliasFailure `json:"failed,omitempty"`
	Time       time.Time      `json:"time"`
}

// AliasFailure is an alias tag that could not be written.
type AliasFailure struct {
	Tag   string `json:"tag"`
	Error string `json:"error"`
}

// failed reports whether the run left aliases unwritten.
func (e Event) failed() bool { return e.Status == LevelFailure }

// Title is the one-line headline used by every service.
func (e Event) Title() string {
	if e.failed() {
		return fmt.Sprintf("Promotion of %s:%s partially failed", e.Repository, e.Version)
	}
	return fmt.Sprintf("Promoted %s:%s", e.Repository, e.Version)
}

func (e Event) movedText() string {
	if len(e.Moved) == 0 {
		return "none"
	}
	return strings.Join(e.Moved, ", ")
}

func (e Event) failedText() string {
	parts := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s (%s)", f.Tag, f.Error))
	}
	return strings.Join(parts, ", ")
}

// Allowed reports whether an event with status passes the configured
// notification level ("all", "failure" or "none").
func Allowed(configLevel, status string) bool {
	switch strings.ToLower(configLevel) {
	case "none":
		return false
	case "failure":
		return status == LevelFailure
	}
	return true
}
