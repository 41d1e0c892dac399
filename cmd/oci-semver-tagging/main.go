// Command oci-semver-tagging promotes an image to its semantic-version alias
// tags (1, 1.4, 1.4.2, latest) in an OCI registry.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aixigo/oci-semver-tagging/internal/promote"
)

// Process exit codes.
const (
	exitOK             = 0
	exitFatal          = 1
	exitPartialFailure = 2
	exitValidation     = 3
)

var errValidationFailed = errors.New("aliases do not match the repository's versions")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	defer a.close()

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var partial *promote.PartialFailureError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &partial):
		return exitPartialFailure
	case errors.Is(err, errValidationFailed):
		return exitValidation
	}
	return exitFatal
}
