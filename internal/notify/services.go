package notify

import (
	"context"
	"time"
)

const agentName = "oci-semver-tagging"

const (
	colorSuccess = 0x2EA043
	colorFailure = 0xCF222E
)

func (e Event) color() int {
	if e.failed() {
		return colorFailure
	}
	return colorSuccess
}

// Slack posts to an incoming webhook using Block Kit.
type Slack struct{ WebhookURL string }

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackMessage struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

func (s *Slack) Name() string { return "Slack" }

func (s *Slack) Send(ctx context.Context, ev Event) error {
	fields := []slackText{
		{Type: "mrkdwn", Text: "*Moved*\n" + ev.movedText()},
		{Type: "mrkdwn", Text: "*Digest*\n`" + ev.Digest + "`"},
	}
	if len(ev.Failed) > 0 {
		fields = append(fields, slackText{Type: "mrkdwn", Text: "*Failed*\n" + ev.failedText()})
	}
	return postJSON(ctx, s.WebhookURL, slackMessage{
		Text: ev.Title(),
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: ev.Title()}},
			{Type: "section", Fields: fields},
		},
	})
}

// Discord posts a single embed with one field per fact.
type Discord struct{ WebhookURL string }

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Fields    []discordField `json:"fields"`
	Timestamp string         `json:"timestamp,omitempty"`
}

type discordMessage struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
}

func (d *Discord) Name() string { return "Discord" }

func (d *Discord) Send(ctx context.Context, ev Event) error {
	fields := []discordField{
		{Name: "Version", Value: ev.Version, Inline: true},
		{Name: "Moved", Value: ev.movedText(), Inline: true},
		{Name: "Digest", Value: ev.Digest},
	}
	if len(ev.Failed) > 0 {
		fields = append(fields, discordField{Name: "Failed", Value: ev.failedText()})
	}
	embed := discordEmbed{Title: ev.Title(), Color: ev.color(), Fields: fields}
	if !ev.Time.IsZero() {
		embed.Timestamp = ev.Time.UTC().Format(time.RFC3339)
	}
	return postJSON(ctx, d.WebhookURL, discordMessage{Username: agentName, Embeds: []discordEmbed{embed}})
}

// Teams posts a legacy connector MessageCard with a facts table.
type Teams struct{ WebhookURL string }

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type teamsSection struct {
	ActivityTitle string      `json:"activityTitle"`
	Facts         []teamsFact `json:"facts"`
}

type teamsCard struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor"`
	Summary    string         `json:"summary"`
	Sections   []teamsSection `json:"sections"`
}

func (t *Teams) Name() string { return "Teams" }

func (t *Teams) Send(ctx context.Context, ev Event) error {
	facts := []teamsFact{
		{Name: "Repository", Value: ev.Repository},
		{Name: "Version", Value: ev.Version},
		{Name: "Moved", Value: ev.movedText()},
		{Name: "Digest", Value: ev.Digest},
	}
	if len(ev.Failed) > 0 {
		facts = append(facts, teamsFact{Name: "Failed", Value: ev.failedText()})
	}
	theme := "2EA043"
	if ev.failed() {
		theme = "CF222E"
	}
	return postJSON(ctx, t.WebhookURL, teamsCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: theme,
		Summary:    ev.Title(),
		Sections:   []teamsSection{{ActivityTitle: ev.Title(), Facts: facts}},
	})
}

// Generic posts the Event itself as JSON, plus agent and title.
type Generic struct{ WebhookURL string }

type genericPayload struct {
	Agent string `json:"agent"`
	Title string `json:"title"`
	Event
}

func (g *Generic) Name() string { return "GenericWebhook" }

func (g *Generic) Send(ctx context.Context, ev Event) error {
	return postJSON(ctx, g.WebhookURL, genericPayload{Agent: agentName, Title: ev.Title(), Event: ev})
}
