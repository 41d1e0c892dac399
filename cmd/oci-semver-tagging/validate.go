package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aixigo/oci-semver-tagging/internal/promote"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <repository>",
		Short: "Check that every alias points at the highest release of its line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(cmd.Context(), args[0])
		},
	}
}

func (a *app) runValidate(ctx context.Context, repository string) error {
	client, err := a.newClient()
	if err != nil {
		return err
	}
	findings, err := promote.Validate(ctx, client, repository, a.cfg.TagPrefix)
	if err != nil {
		return err
	}
	if err := a.printer().findings(findings); err != nil {
		return err
	}
	if len(promote.Failed(findings)) > 0 {
		return errValidationFailed
	}
	return nil
}
