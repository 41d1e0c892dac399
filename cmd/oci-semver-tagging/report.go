package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/aixigo/oci-semver-tagging/internal/promote"
)

var (
	moveColor  = color.New(color.FgGreen, color.Bold)
	keepColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
	dimColor   = color.New(color.Faint)
)

type printer struct {
	w    io.Writer
	json bool
}

func (a *app) printer() printer {
	return printer{w: a.stdout, json: a.flags.output == "json"}
}

func (p printer) result(res *promote.Result) error {
	if p.json {
		return p.encode(res)
	}
	failed := make(map[string]error, len(res.Failures))
	for _, f := range res.Failures {
		failed[f.Tag] = f.Err
	}

	if res.DryRun {
		fmt.Fprintf(p.w, "Dry run for %s %s (%s), nothing is pushed\n", res.Repository, res.Version, res.Digest)
	} else {
		fmt.Fprintf(p.w, "Promoting %s %s (%s)\n", res.Repository, res.Version, res.Digest)
	}
	if len(res.Moved()) == 0 {
		fmt.Fprintln(p.w, "Nothing to push")
	}
	for _, d := range res.Decisions {
		switch err, ok := failed[d.Tag]; {
		case ok:
			errorColor.Fprintf(p.w, "%-7s", "failed")
			fmt.Fprintf(p.w, " %s: %v\n", d.Tag, err)
		case d.ShouldMove:
			moveColor.Fprintf(p.w, "%-7s", "move")
			fmt.Fprintf(p.w, " %s ", d.Tag)
			dimColor.Fprintf(p.w, "(%s)\n", d.Reason)
		default:
			keepColor.Fprintf(p.w, "%-7s", "keep")
			fmt.Fprintf(p.w, " %s ", d.Tag)
			dimColor.Fprintf(p.w, "(%s)\n", d.Reason)
		}
	}
	return nil
}

func (p printer) findings(findings []promote.Finding) error {
	if p.json {
		if findings == nil {
			findings = []promote.Finding{}
		}
		return p.encode(findings)
	}
	if len(findings) == 0 {
		fmt.Fprintln(p.w, "No released versions found")
		return nil
	}
	for _, f := range findings {
		c := moveColor
		if f.Status != promote.StatusOK {
			c = errorColor
		}
		c.Fprintf(p.w, "%-7s", f.Status)
		fmt.Fprintf(p.w, " %s -> %s\n", f.Alias, f.Expected)
	}
	return nil
}

func (p printer) encode(v interface{}) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
