package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/evanschultz/taskflow/internal/adapters/server"
	servercommon "github.com/evanschultz/taskflow/internal/adapters/server/common"
	"github.com/evanschultz/taskflow/internal/adapters/storage/memory"
	"github.com/evanschultz/taskflow/internal/app"
	"github.com/evanschultz/taskflow/internal/config"
	"github.com/evanschultz/taskflow/internal/domain"
	"github.com/evanschultz/taskflow/internal/report"
	"github.com/evanschultz/taskflow/internal/session"
	"github.com/evanschultz/taskflow/internal/tui"
)

// TestMain sets deterministic environment defaults for CLI tests.
func TestMain(m *testing.M) {
	_ = os.Setenv("TASKFLOW_DEV_MODE", "false")
	_ = os.Unsetenv("TASKFLOW_CONFIG")
	_ = os.Unsetenv("TASKFLOW_DB_PATH")
	_ = os.Unsetenv("TASKFLOW_APP_NAME")
	os.Exit(m.Run())
}

type fakeProgram struct {
	runErr error
}

func (f fakeProgram) Run() (tea.Model, error) {
	return nil, f.runErr
}

// tempArgs returns --db and --config flags pointing into a fresh temp dir.
func tempArgs(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{"--db", filepath.Join(dir, "taskflow.db"), "--config", filepath.Join(dir, "config.toml")}
}

func stubProgram(t *testing.T, prog program, seen *tea.Model) {
	t.Helper()
	orig := programFactory
	t.Cleanup(func() { programFactory = orig })
	programFactory = func(m tea.Model) program {
		if seen != nil {
			*seen = m
		}
		return prog
	}
}

// TestRunVersion verifies the version flag.
func TestRunVersion(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"--version"}, &out, io.Discard); err != nil {
		t.Fatalf("run(version) error = %v", err)
	}
	if !strings.Contains(out.String(), version) {
		t.Fatalf("expected version output, got %q", out.String())
	}
}

// TestRunStartsProgram verifies the default command builds the board model and runs it.
func TestRunStartsProgram(t *testing.T) {
	var seen tea.Model
	stubProgram(t, fakeProgram{}, &seen)
	if err := run(context.Background(), tempArgs(t), io.Discard, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if _, ok := seen.(tui.Model); !ok {
		t.Fatalf("expected tui.Model, got %T", seen)
	}
}

// TestRunPropagatesProgramError verifies TUI failures surface as command errors.
func TestRunPropagatesProgramError(t *testing.T) {
	stubProgram(t, fakeProgram{runErr: errors.New("tty lost")}, nil)
	err := run(context.Background(), tempArgs(t), io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "tty lost") {
		t.Fatalf("expected program error, got %v", err)
	}
}

// TestRunUnknownCommand verifies unknown commands fail.
func TestRunUnknownCommand(t *testing.T) {
	if err := run(context.Background(), []string{"bogus"}, io.Discard, io.Discard); err == nil {
		t.Fatal("expected unknown command error")
	}
}

// TestRunExportCommandWritesSnapshot verifies json export to stdout.
func TestRunExportCommandWritesSnapshot(t *testing.T) {
	var out bytes.Buffer
	args := append([]string{"export"}, tempArgs(t)...)
	if err := run(context.Background(), args, &out, io.Discard); err != nil {
		t.Fatalf("run(export) error = %v", err)
	}
	var snap app.Snapshot
	if err := json.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(snap.Columns) != 3 || len(snap.Tasks) != 3 {
		t.Fatalf("expected seeded snapshot, got %d columns and %d tasks", len(snap.Columns), len(snap.Tasks))
	}
}

// TestRunExportCommandFormats verifies file and directory targets.
func TestRunExportCommandFormats(t *testing.T) {
	dir := t.TempDir()
	mdPath := filepath.Join(dir, "nested", "board.md")
	args := append([]string{"export", "--format", "markdown", "--out", mdPath}, tempArgs(t)...)
	if err := run(context.Background(), args, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(export md) error = %v", err)
	}
	content, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "Design Premium Landing Page") {
		t.Fatalf("expected task in markdown export, got %q", content)
	}

	args = append([]string{"export", "--format", "html", "--out", dir}, tempArgs(t)...)
	if err := run(context.Background(), args, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(export html) error = %v", err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "TaskFlow-Report-*.html"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one dated html export, got %v (err=%v)", matches, err)
	}

	args = append([]string{"export", "--format", "pdf"}, tempArgs(t)...)
	if err := run(context.Background(), args, io.Discard, io.Discard); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

// TestRenderExportUsesDateFormat verifies the configured date layout reaches the text export.
func TestRenderExportUsesDateFormat(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	svc := app.NewService(memory.New(), func() string { return "id" }, func() time.Time { return now }, app.ServiceConfig{})
	if err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	out, err := renderExport(context.Background(), svc, report.FormatText, "YYYY-MM-DD", now)
	if err != nil {
		t.Fatalf("renderExport() error = %v", err)
	}
	if !strings.Contains(string(out), "2026-02-21") {
		t.Fatalf("expected ISO date in text export, got %q", out)
	}
}

// TestRunReportCommand verifies the summary table.
func TestRunReportCommand(t *testing.T) {
	var out strings.Builder
	args := append([]string{"report"}, tempArgs(t)...)
	if err := run(context.Background(), args, &out, io.Discard); err != nil {
		t.Fatalf("run(report) error = %v", err)
	}
	for _, want := range []string{"Metric", "Total tasks", "33%", "High priority"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in report table, got %q", want, out.String())
		}
	}
}

// TestRunPathsCommand verifies resolved paths are printed.
func TestRunPathsCommand(t *testing.T) {
	var out strings.Builder
	if err := run(context.Background(), []string{"paths", "--app", "taskflow-test"}, &out, io.Discard); err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	for _, want := range []string{"app: taskflow-test", "config:", "db:", "exports:"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in paths output, got %q", want, out.String())
		}
	}
}

// TestRunSessionCommands verifies sign-in state persists in sqlite across runs.
func TestRunSessionCommands(t *testing.T) {
	base := tempArgs(t)
	runSession := func(args ...string) string {
		t.Helper()
		var out strings.Builder
		if err := run(context.Background(), append(append([]string{"session"}, args...), base...), &out, io.Discard); err != nil {
			t.Fatalf("run(session %v) error = %v", args, err)
		}
		return out.String()
	}

	if got := runSession("whoami"); !strings.Contains(got, "not signed in") {
		t.Fatalf("expected signed out, got %q", got)
	}
	if got := runSession("signin", "--email", "jane.doe@example.com"); !strings.Contains(got, "Jane Doe") {
		t.Fatalf("expected derived display name, got %q", got)
	}
	if got := runSession("whoami"); !strings.Contains(got, "Jane Doe <jane.doe@example.com>") {
		t.Fatalf("expected persisted user, got %q", got)
	}
	runSession("signout")
	if got := runSession("whoami"); !strings.Contains(got, "not signed in") {
		t.Fatalf("expected signed out after signout, got %q", got)
	}
}

// TestRunSessionSignInRequiresEmail verifies credential validation.
func TestRunSessionSignInRequiresEmail(t *testing.T) {
	args := append([]string{"session", "signin", "--ephemeral"}, tempArgs(t)...)
	err := run(context.Background(), args, io.Discard, io.Discard)
	if !errors.Is(err, session.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

// TestRunEphemeralSessionSkipsDBFile verifies --ephemeral keeps sqlite in memory.
func TestRunEphemeralSessionSkipsDBFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "taskflow.db")
	args := []string{"session", "signin", "--ephemeral", "--email", "sam.rivera@example.com", "--db", dbPath, "--config", filepath.Join(dir, "config.toml")}
	var out strings.Builder
	if err := run(context.Background(), args, &out, io.Discard); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "signed in as Sam Rivera <sam.rivera@example.com>") {
		t.Fatalf("unexpected signin output %q", out.String())
	}
	if _, err := os.Stat(dbPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no db file at %q, stat err = %v", dbPath, err)
	}
}

// TestRunServeWiresConfigAndMetrics verifies serve reads config, applies flags and counts changes.
func TestRunServeWiresConfigAndMetrics(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[server]\nhttp_bind = \"127.0.0.1:9999\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var gotCfg server.Config
	var changes float64
	orig := serveCommandRunner
	t.Cleanup(func() { serveCommandRunner = orig })
	serveCommandRunner = func(ctx context.Context, cfg server.Config, deps server.Dependencies) error {
		gotCfg = cfg
		if deps.Board == nil || deps.Metrics == nil {
			return errors.New("missing dependencies")
		}
		if _, err := deps.Board.MoveTask(ctx, servercommon.MoveTaskRequest{ID: "1", Status: domain.StatusDone}); err != nil {
			return err
		}
		families, err := deps.Metrics.Registry().Gather()
		if err != nil {
			return err
		}
		for _, family := range families {
			if family.GetName() == "taskflow_changes_total" {
				for _, metric := range family.GetMetric() {
					changes += metric.GetCounter().GetValue()
				}
			}
		}
		return nil
	}

	args := []string{"serve", "--mcp-endpoint", "/agent", "--config", cfgPath, "--db", filepath.Join(dir, "taskflow.db")}
	if err := run(context.Background(), args, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(serve) error = %v", err)
	}
	if gotCfg.HTTPBind != "127.0.0.1:9999" || gotCfg.APIEndpoint != "/api/v1" || gotCfg.MCPEndpoint != "/agent" {
		t.Fatalf("unexpected serve config %#v", gotCfg)
	}
	if changes != 1 {
		t.Fatalf("expected one counted change, got %v", changes)
	}
}

// TestRunRejectsInvalidLoggingLevelFromConfig verifies config validation errors surface.
func TestRunRejectsInvalidLoggingLevelFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[logging]\nlevel = \"verbose\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	err := run(context.Background(), []string{"report", "--config", cfgPath, "--db", filepath.Join(dir, "taskflow.db")}, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "logging.level") {
		t.Fatalf("expected logging level error, got %v", err)
	}
}

// TestRunConfigAndDBEnvOverrides verifies env vars stand in for flags.
func TestRunConfigAndDBEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "env", "taskflow.db")
	t.Setenv("TASKFLOW_CONFIG", filepath.Join(dir, "config.toml"))
	t.Setenv("TASKFLOW_DB_PATH", dbPath)
	if err := run(context.Background(), []string{"session", "signin", "--email", "lee@example.com"}, io.Discard, io.Discard); err != nil {
		t.Fatalf("run(session signin) error = %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected sqlite file at env path, error = %v", err)
	}
}

// TestRunLoadsDotEnv verifies a .env file in the working directory feeds env defaults.
func TestRunLoadsDotEnv(t *testing.T) {
	t.Setenv("TASKFLOW_APP_NAME", "")
	_ = os.Unsetenv("TASKFLOW_APP_NAME")
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TASKFLOW_APP_NAME=flow-from-env\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	var out strings.Builder
	if err := run(context.Background(), []string{"paths"}, &out, io.Discard); err != nil {
		t.Fatalf("run(paths) error = %v", err)
	}
	if !strings.Contains(out.String(), "app: flow-from-env") {
		t.Fatalf("expected app name from .env, got %q", out.String())
	}
}

// TestParseBoolEnv verifies boolean env parsing.
func TestParseBoolEnv(t *testing.T) {
	t.Setenv("TASKFLOW_TEST_BOOL", "true")
	if v, ok := parseBoolEnv("TASKFLOW_TEST_BOOL"); !ok || !v {
		t.Fatalf("expected true, got %v/%v", v, ok)
	}
	t.Setenv("TASKFLOW_TEST_BOOL", "nope")
	if _, ok := parseBoolEnv("TASKFLOW_TEST_BOOL"); ok {
		t.Fatal("expected invalid value to be ignored")
	}
	if _, ok := parseBoolEnv("TASKFLOW_TEST_UNSET"); ok {
		t.Fatal("expected unset value to be ignored")
	}
}

// TestRunDevModeCreatesWorkspaceLogFile verifies dev mode writes a workspace-local log file.
func TestRunDevModeCreatesWorkspaceLogFile(t *testing.T) {
	stubProgram(t, fakeProgram{}, nil)
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, "go.mod"), []byte("module example.com/test\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Chdir(workspace)

	args := []string{"--dev", "--db", filepath.Join(workspace, "taskflow.db"), "--config", filepath.Join(workspace, "config.toml")}
	var console bytes.Buffer
	if err := run(context.Background(), args, io.Discard, &console); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(workspace, ".taskflow", "log"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].Name(), ".log") {
		t.Fatalf("expected one log file, got %v", entries)
	}
	content, err := os.ReadFile(filepath.Join(workspace, ".taskflow", "log", entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "starting tui program loop") {
		t.Fatalf("expected tui start in log file, got %q", content)
	}
	if strings.Contains(console.String(), "starting tui program loop") {
		t.Fatal("expected console sink muted while the tui runs")
	}
}

// TestWorkspaceRootFromUsesNearestMarker verifies marker discovery.
func TestWorkspaceRootFromUsesNearestMarker(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/test\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	nested := filepath.Join(root, "cmd", "taskflow")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if got := workspaceRootFrom(nested); filepath.Clean(got) != filepath.Clean(root) {
		t.Fatalf("expected workspace root %q, got %q", root, got)
	}
}

// TestDevLogFilePathNaming verifies absolute dirs and sanitized file names.
func TestDevLogFilePathNaming(t *testing.T) {
	dir := t.TempDir()
	got, err := devLogFilePath(dir, "task flow/dev", time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("devLogFilePath() error = %v", err)
	}
	if want := filepath.Join(dir, "task-flow-dev-20260222.log"); got != want {
		t.Fatalf("devLogFilePath() = %q, want %q", got, want)
	}
	if got := sanitizeLogFileStem(" / "); got != "taskflow" {
		t.Fatalf("sanitizeLogFileStem() = %q", got)
	}
}

// TestRuntimeLoggerCanMuteConsoleSink verifies console output can be suppressed.
func TestRuntimeLoggerCanMuteConsoleSink(t *testing.T) {
	var console bytes.Buffer
	logger, err := newRuntimeLogger(&console, "taskflow", false, config.Default("/tmp/taskflow.db").Logging, func() time.Time {
		return time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("newRuntimeLogger() error = %v", err)
	}

	logger.Info("before")
	logger.SetConsoleEnabled(false)
	logger.Info("during")
	logger.SetConsoleEnabled(true)
	logger.Warn("after")
	logger.Debug("hidden")

	out := console.String()
	if !strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Fatalf("expected console log to include before and after, got %q", out)
	}
	if strings.Contains(out, "during") {
		t.Fatalf("expected muted console log to omit 'during', got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug below info level to be dropped, got %q", out)
	}
}

// TestSummaryTable verifies the table layout.
func TestSummaryTable(t *testing.T) {
	out := summaryTable(report.Summary{Total: 4, Done: 2, CompletionRate: 50, ByPriority: map[domain.Priority]int{domain.PriorityLow: 1}})
	for _, want := range []string{"Metric", "Value", "Completion rate", "50%", "Low priority"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table, got %q", want, out)
		}
	}
}
