package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/thesamsai/transcode-dispatch/internal/worker/client"
)

// Most of these tests exercise Succeeded/Cleanup against a Result built by
// hand, since Execute shells out to rsync/ffmpeg binaries that aren't
// available in a unit test environment. The last one runs Execute only as
// far as its first (failing) rsync step.

func TestSucceededRequiresAllStepsOkAndOutputPresent(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "out.webm")
	if err := os.WriteFile(outputPath, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	result := Result{
		RsyncFrom:       CommandResult{ExitCode: 0},
		Convert:         CommandResult{ExitCode: 0},
		RsyncTo:         CommandResult{ExitCode: 0},
		OutputLocalPath: outputPath,
	}
	if !result.Succeeded() {
		t.Fatal("expected Succeeded to be true")
	}
}

func TestSucceededFalseOnNonZeroExit(t *testing.T) {
	result := Result{
		RsyncFrom: CommandResult{ExitCode: 0},
		Convert:   CommandResult{ExitCode: 1},
		RsyncTo:   CommandResult{ExitCode: 0},
	}
	if result.Succeeded() {
		t.Fatal("expected Succeeded to be false on nonzero convert exit")
	}
}

func TestSucceededFalseWhenOutputFileMissing(t *testing.T) {
	dir := t.TempDir()
	result := Result{
		RsyncFrom:       CommandResult{ExitCode: 0},
		Convert:         CommandResult{ExitCode: 0},
		RsyncTo:         CommandResult{ExitCode: 0},
		OutputLocalPath: filepath.Join(dir, "missing.webm"),
	}
	if result.Succeeded() {
		t.Fatal("expected Succeeded to be false when output file is absent")
	}
}

func TestCleanupRemovesStagedFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.mp4")
	out := filepath.Join(dir, "out.webm")
	for _, p := range []string{in, out} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	result := Result{InputLocalPath: in, OutputLocalPath: out}
	result.Cleanup()

	for _, p := range []string{in, out} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed, stat err=%v", p, err)
		}
	}
}

func TestExecuteFailsFastWhenRsyncFromBinaryMissing(t *testing.T) {
	// rsync isn't guaranteed to exist in every environment; if it's absent
	// runCommand should still return a non-zero/negative exit code rather
	// than panicking, and Execute should stop before running ffmpeg.
	p := &Pipeline{JobsDir: t.TempDir()}
	info := client.Info{
		FFmpegCommand: "ffmpeg -i [input] -f webm [output].webm",
		FileExtension: "webm",
		CompletedPath: "/completed",
		RsyncUser:     "media",
	}
	result := p.Execute(t.Context(), "example.invalid", "/intake/does-not-exist.mp4", info)
	if result.Convert.ExitCode != 0 || result.Convert.Stdout != "" {
		t.Fatalf("expected Convert step to be skipped after RsyncFrom failure, got %+v", result.Convert)
	}
}
