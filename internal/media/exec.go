package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// maxStderr bounds how much tool output is kept for logs and error causes.
const maxStderr = 4096

// LookupBinary resolves a tool name or path the way the pipeline does.
func LookupBinary(name string) (string, error) {
	return exec.LookPath(name)
}

type runResult struct {
	stderr   string
	exitCode int
	timedOut bool
	canceled bool
}

// run executes path with args under timeout. err is non-nil for start
// failures and unsuccessful exits alike; result describes which.
func run(ctx context.Context, timeout time.Duration, path string, args ...string) (runResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.WaitDelay = 2 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := runResult{stderr: tail(stderr.String(), maxStderr), exitCode: -1}
	if err == nil {
		res.exitCode = 0
		return res, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.timedOut = true
		return res, fmt.Errorf("timed out after %s: %w", timeout, err)
	}
	if ctx.Err() != nil {
		res.canceled = true
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
	}
	return res, err
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
