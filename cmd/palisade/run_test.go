package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/palisade/config"
)

// testApp builds an app whose exit handler is inert so tests can inspect
// exit codes instead of exiting the test process.
func testApp() *cli.App {
	return &cli.App{
		Name:           "palisade",
		ExitErrHandler: func(*cli.Context, error) {},
		Commands:       []*cli.Command{runCommand(), summaryCommand()},
	}
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var ec cli.ExitCoder
	if !errors.As(err, &ec) {
		t.Fatalf("error is not an ExitCoder: %v", err)
	}
	return ec.ExitCode()
}

func TestRun_MissingInputFlag(t *testing.T) {
	dir := t.TempDir()
	err := testApp().Run([]string{
		"palisade", "run",
		"--db", filepath.Join(dir, "events.db"),
		"--metrics", filepath.Join(dir, "metrics.csv"),
	})
	if got := exitCode(t, err); got != exitBadInvoke {
		t.Errorf("exit code = %d, want %d", got, exitBadInvoke)
	}
}

func TestRun_NonexistentInputFile(t *testing.T) {
	dir := t.TempDir()
	err := testApp().Run([]string{
		"palisade", "run",
		"--input", filepath.Join(dir, "missing.log"),
		"--db", filepath.Join(dir, "events.db"),
		"--metrics", filepath.Join(dir, "metrics.csv"),
	})
	if got := exitCode(t, err); got != exitBadInvoke {
		t.Errorf("exit code = %d, want %d", got, exitBadInvoke)
	}
}

func TestRun_MissingDBFlag(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "access.log")
	if err := os.WriteFile(input, []byte("x\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	err := testApp().Run([]string{
		"palisade", "run",
		"--input", input,
		"--metrics", filepath.Join(dir, "metrics.csv"),
	})
	if got := exitCode(t, err); got != exitBadInvoke {
		t.Errorf("exit code = %d, want %d", got, exitBadInvoke)
	}
}

func TestRun_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}

	dir := t.TempDir()
	input := filepath.Join(dir, "access.log")
	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b,
			"10.0.0.%d - - [01/Jul/1995:00:00:01 -0400] \"GET /p%d HTTP/1.0\" 200 100 \"-\" \"Mozilla/5.0\"\n",
			i%5, i)
	}
	if err := os.WriteFile(input, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	dbPath := filepath.Join(dir, "out", "events.db")
	csvPath := filepath.Join(dir, "out", "metrics.csv")
	reportPath := filepath.Join(dir, "out", "report.json")

	err := testApp().Run([]string{
		"palisade", "run",
		"--input", input,
		"--db", dbPath,
		"--metrics", csvPath,
		"--report", reportPath,
		"--run-time", "1",
		"--rate", "100",
		"--batch", "10",
		"--interval", "200ms",
		"--quiet",
	})
	if got := exitCode(t, err); got != exitSuccess {
		t.Fatalf("exit code = %d, want %d (err=%v)", got, exitSuccess, err)
	}

	for _, path := range []string{dbPath, csvPath, reportPath} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("output %s missing: %v", path, err)
		}
	}

	csvData, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read CSV: %v", err)
	}
	if !strings.HasPrefix(string(csvData), "timestamp,runtime_sec,") {
		t.Errorf("CSV header missing: %q", string(csvData)[:min(60, len(csvData))])
	}

	report, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(report), `"outcome": "completed"`) {
		t.Errorf("report outcome not completed: %s", report)
	}
}

func TestBuildNotifier(t *testing.T) {
	if n, err := buildNotifier(config.NotifyConfig{}); err != nil || n != nil {
		t.Errorf("empty config = (%v, %v), want (nil, nil)", n, err)
	}

	n, err := buildNotifier(config.NotifyConfig{
		Type:    "webhook",
		URL:     "https://hooks.example.com/x",
		Timeout: config.Duration{Duration: time.Second},
	})
	if err != nil || n == nil {
		t.Errorf("webhook config = (%v, %v), want notifier", n, err)
	}

	if _, err := buildNotifier(config.NotifyConfig{Type: "webhook"}); err == nil {
		t.Error("webhook without URL succeeded, want error")
	}

	if _, err := buildNotifier(config.NotifyConfig{Type: "carrier-pigeon"}); err == nil {
		t.Error("unknown type succeeded, want error")
	}
}
