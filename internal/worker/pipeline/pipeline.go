// Package pipeline runs the worker's three-command transcoding pipeline:
// fetch the input file from the coordinator host, run the configured
// converter, and return the output — a straightforward sequential pipe of
// external commands, following original_source/node-server/src/main.rs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thesamsai/transcode-dispatch/internal/worker/client"
)

// CommandResult captures one sub-command's outcome for the /failure report.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (c CommandResult) ok() bool { return c.ExitCode == 0 }

// Result holds the outcome of every step of the pipeline; any step can be
// the zero value if the pipeline stopped before reaching it.
type Result struct {
	RsyncFrom CommandResult
	Convert   CommandResult
	RsyncTo   CommandResult
	// OutputLocalPath is where the converted file was expected to land.
	OutputLocalPath string
	// InputLocalPath is where the fetched file was staged.
	InputLocalPath string
}

// Pipeline runs fetch/convert/return against one coordinator host.
type Pipeline struct {
	JobsDir string
}

// Execute fetches remotePath from serverHost via rsync, converts it with
// info.FFmpegCommand, and rsyncs the result to info.CompletedPath on
// serverHost. It returns as soon as a step fails; callers should check
// each Result field's ok() before trusting the next one, or just check
// whether the expected output file exists locally (Succeeded()).
func (p *Pipeline) Execute(ctx context.Context, serverHost, remotePath string, info client.Info) Result {
	fileName := filepath.Base(remotePath)
	inputLocal := filepath.Join(p.JobsDir, fileName)
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	outputBase := filepath.Join(p.JobsDir, stem)
	ext := strings.TrimPrefix(info.FileExtension, ".")
	outputLocal := outputBase + "." + ext

	result := Result{InputLocalPath: inputLocal, OutputLocalPath: outputLocal}

	result.RsyncFrom = runCommand(ctx, "rsync", "-az",
		fmt.Sprintf("%s@%s:%s", info.RsyncUser, serverHost, remotePath),
		p.JobsDir+string(filepath.Separator),
	)
	if !result.RsyncFrom.ok() {
		return result
	}

	cmdStr := strings.NewReplacer("[input]", inputLocal, "[output]", outputBase).Replace(info.FFmpegCommand)
	result.Convert = runShell(ctx, cmdStr)
	if !result.Convert.ok() {
		return result
	}

	result.RsyncTo = runCommand(ctx, "rsync", "-az",
		outputLocal,
		fmt.Sprintf("%s@%s:%s", info.RsyncUser, serverHost, info.CompletedPath),
	)
	return result
}

// Succeeded reports whether the converted output actually landed locally,
// which the worker checks before calling /push (spec.md section 4.5).
func (r Result) Succeeded() bool {
	if !r.RsyncFrom.ok() || !r.Convert.ok() || !r.RsyncTo.ok() {
		return false
	}
	_, err := os.Stat(r.OutputLocalPath)
	return err == nil
}

// Cleanup removes the local input and output staging files. Called after a
// successful /push, matching original_source's remove_file calls.
func (r Result) Cleanup() {
	if r.InputLocalPath != "" {
		_ = os.Remove(r.InputLocalPath)
	}
	if r.OutputLocalPath != "" {
		_ = os.Remove(r.OutputLocalPath)
	}
}

func runCommand(ctx context.Context, name string, args ...string) CommandResult {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return CommandResult{
		ExitCode: exitCode(err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
}

func runShell(ctx context.Context, shellCmd string) CommandResult {
	cmd := exec.CommandContext(ctx, "sh", "-c", shellCmd)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return CommandResult{
		ExitCode: exitCode(err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
