package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/evanschultz/taskflow/internal/adapters/server"
	servercommon "github.com/evanschultz/taskflow/internal/adapters/server/common"
	"github.com/evanschultz/taskflow/internal/adapters/storage/memory"
	"github.com/evanschultz/taskflow/internal/adapters/storage/sqlite"
	"github.com/evanschultz/taskflow/internal/app"
	"github.com/evanschultz/taskflow/internal/board"
	"github.com/evanschultz/taskflow/internal/config"
	"github.com/evanschultz/taskflow/internal/domain"
	"github.com/evanschultz/taskflow/internal/metrics"
	"github.com/evanschultz/taskflow/internal/platform"
	"github.com/evanschultz/taskflow/internal/report"
	"github.com/evanschultz/taskflow/internal/session"
	"github.com/evanschultz/taskflow/internal/translator"
	"github.com/evanschultz/taskflow/internal/tui"
)

var version = "dev"

type program interface {
	Run() (tea.Model, error)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg server.Config, deps server.Dependencies) error {
	return server.Run(ctx, cfg, deps)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
	ephemeral  bool
}

// run executes one CLI invocation.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	if args == nil {
		args = []string{}
	}
	if err := loadDotEnv(".env"); err != nil {
		return err
	}

	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// loadDotEnv loads KEY=value pairs without overriding the process environment.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{appName: platform.DefaultAppName}
	if envApp := strings.TrimSpace(os.Getenv("TASKFLOW_APP_NAME")); envApp != "" {
		opts.appName = envApp
	}
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("TASKFLOW_DEV_MODE"); ok {
		defaultDevMode = envDev
	}

	root := &cobra.Command{
		Use:   "taskflow",
		Short: "A kanban board for the terminal",
		Long:  "TaskFlow is a kanban board with drag and drop, analytics, reports and an activity feed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd.Context(), opts, stderr)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to the session sqlite database")
	flags.StringVar(&opts.appName, "app", opts.appName, "application name for config/data path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")
	flags.BoolVar(&opts.ephemeral, "ephemeral", false, "keep the session in memory instead of sqlite")

	root.AddCommand(
		newServeCommand(opts, stderr),
		newExportCommand(opts, stdout, stderr),
		newReportCommand(opts, stdout, stderr),
		newPathsCommand(opts, stdout),
		newSessionCommand(opts, stdout, stderr),
	)
	return root
}

// runtimeEnv is the resolved configuration of one command run.
type runtimeEnv struct {
	opts       *rootOptions
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	stderr     io.Writer
}

// prepare resolves paths, loads config and configures logging.
func prepare(opts *rootOptions, stderr io.Writer, command string) (*runtimeEnv, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return nil, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("TASKFLOW_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}
	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("TASKFLOW_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// The board owns the terminal; runtime logs go to the dev file only.
		logger.SetConsoleEnabled(false)
	}
	logger.Info("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}
	return &runtimeEnv{
		opts:       opts,
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
		stderr:     stderr,
	}, nil
}

func (r *runtimeEnv) close() {
	if err := r.logger.Close(); err != nil && r.logger.shouldLogToSink(r.logger.consoleSink) {
		_, _ = fmt.Fprintf(r.stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// openSession returns the session over the sqlite file, or over in-memory sqlite with --ephemeral.
func (r *runtimeEnv) openSession() (*session.Session, func(), error) {
	var (
		store *sqlite.Store
		err   error
	)
	if r.opts.ephemeral {
		r.logger.Info("opening in-memory sqlite session store")
		store, err = sqlite.OpenInMemory()
	} else {
		r.logger.Info("opening sqlite session store", "db_path", r.cfg.Database.Path)
		store, err = sqlite.Open(r.cfg.Database.Path)
	}
	if err != nil {
		r.logger.Error("sqlite open failed", "db_path", r.cfg.Database.Path, "err", err)
		return nil, nil, fmt.Errorf("open sqlite session store: %w", err)
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			r.logger.Warn("sqlite close failed", "db_path", r.cfg.Database.Path, "err", err)
		}
	}
	return session.New(store), closeStore, nil
}

// newBoardService builds the seeded in-memory board.
func (r *runtimeEnv) newBoardService(ctx context.Context, onChange func(domain.ChangeEvent)) (*app.Service, error) {
	svc := app.NewService(memory.New(), uuid.NewString, nil, app.ServiceConfig{
		OnChange: func(event domain.ChangeEvent) {
			r.logger.Debug("board change recorded", "operation", event.Operation, "task_id", event.TaskID, "column_id", event.ColumnID)
			if onChange != nil {
				onChange(event)
			}
		},
	})
	if err := svc.Seed(ctx); err != nil {
		return nil, fmt.Errorf("seed board: %w", err)
	}
	return svc, nil
}

func runTUI(ctx context.Context, opts *rootOptions, stderr io.Writer) error {
	rt, err := prepare(opts, stderr, "tui")
	if err != nil {
		return err
	}
	defer rt.close()

	sess, closeSession, err := rt.openSession()
	if err != nil {
		return err
	}
	defer closeSession()
	svc, err := rt.newBoardService(ctx, nil)
	if err != nil {
		return err
	}
	tr, err := translator.New(rt.cfg.Preferences.Language)
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}

	drags := metrics.New()
	m := tui.NewModel(
		svc,
		tui.WithSession(sess),
		tui.WithTranslator(tr),
		tui.WithSettings(rt.cfg),
		tui.WithSaveSettings(func(cfg config.Config) error {
			rt.logger.Info("settings update requested", "config_path", rt.configPath)
			if err := config.UpsertSettings(rt.configPath, cfg); err != nil {
				rt.logger.Error("settings update failed", "config_path", rt.configPath, "err", err)
				return fmt.Errorf("persist settings: %w", err)
			}
			return nil
		}),
		tui.WithExportDirFunc(rt.paths.EnsureExportDir),
		tui.WithNotifier(board.NotifierFunc(func(_ context.Context, n board.Notification) {
			rt.logger.Info("board notification", "level", n.Level, "task_id", n.TaskID, "column_id", n.ColumnID, "message", n.Message)
		})),
		tui.WithOutcomeHook(func(o board.Outcome) {
			rt.logger.Debug("drag gesture finished", "outcome", o.String())
			drags.ObserveDrag(o)
		}),
	)
	rt.logger.Info("starting tui program loop")
	if _, err := programFactory(m).Run(); err != nil {
		rt.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	for outcome, n := range drags.DragTotals() {
		rt.logger.Info("drag outcomes", "outcome", outcome, "count", n)
	}
	rt.logger.Info("command flow complete", "command", "tui")
	return nil
}

func newServeCommand(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var httpBind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board over HTTP JSON and MCP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := prepare(opts, stderr, "serve")
			if err != nil {
				return err
			}
			defer rt.close()

			serverCfg := rt.cfg.Server
			flags := cmd.Flags()
			if flags.Changed("http") {
				serverCfg.HTTPBind = httpBind
			}
			if flags.Changed("api-endpoint") {
				serverCfg.APIEndpoint = apiEndpoint
			}
			if flags.Changed("mcp-endpoint") {
				serverCfg.MCPEndpoint = mcpEndpoint
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			collector := metrics.New()
			svc, err := rt.newBoardService(ctx, collector.ObserveChange)
			if err != nil {
				return err
			}
			unsubscribe := svc.Subscribe(collector.ObserveSnapshot)
			defer unsubscribe()
			snap, err := svc.Snapshot(ctx)
			if err != nil {
				return fmt.Errorf("initial snapshot: %w", err)
			}
			collector.ObserveSnapshot(snap)

			rt.logger.Info("command flow start", "command", "serve", "http", serverCfg.HTTPBind, "api", serverCfg.APIEndpoint, "mcp", serverCfg.MCPEndpoint)
			err = serveCommandRunner(ctx, server.Config{
				HTTPBind:      serverCfg.HTTPBind,
				APIEndpoint:   serverCfg.APIEndpoint,
				MCPEndpoint:   serverCfg.MCPEndpoint,
				ServerName:    opts.appName,
				ServerVersion: version,
			}, server.Dependencies{
				Board:   servercommon.NewAppServiceAdapter(svc, domain.Assignee{}),
				Metrics: collector,
			})
			if err != nil {
				rt.logger.Error("command flow failed", "command", "serve", "err", err)
				return fmt.Errorf("run serve command: %w", err)
			}
			rt.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "HTTP API base endpoint (default from config)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP endpoint (default from config)")
	return cmd
}

func newExportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	var formatRaw, outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the board as json, md, txt or html",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := report.ParseFormat(formatRaw)
			if err != nil {
				return err
			}
			rt, err := prepare(opts, stderr, "export")
			if err != nil {
				return err
			}
			defer rt.close()

			ctx := cmd.Context()
			svc, err := rt.newBoardService(ctx, nil)
			if err != nil {
				return err
			}
			now := time.Now()
			content, err := renderExport(ctx, svc, format, rt.cfg.Preferences.DateFormat, now)
			if err != nil {
				return fmt.Errorf("render %s export: %w", format, err)
			}
			if outPath == "-" {
				if _, err := stdout.Write(content); err != nil {
					return fmt.Errorf("write export to stdout: %w", err)
				}
				return nil
			}
			if info, err := os.Stat(outPath); err == nil && info.IsDir() {
				outPath = filepath.Join(outPath, report.ExportFileName(format, now))
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return fmt.Errorf("create export output dir: %w", err)
			}
			if err := os.WriteFile(outPath, content, 0o644); err != nil {
				return fmt.Errorf("write export file: %w", err)
			}
			rt.logger.Info("export written", "format", format, "path", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&formatRaw, "format", string(report.FormatJSON), "export format: json|md|txt|html")
	cmd.Flags().StringVar(&outPath, "out", "-", "output file or directory ('-' for stdout)")
	return cmd
}

// renderExport renders the board snapshot in one export format.
func renderExport(ctx context.Context, svc *app.Service, format report.Format, dateFormat string, now time.Time) ([]byte, error) {
	snap, err := svc.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if format == report.FormatJSON {
		encoded, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode snapshot json: %w", err)
		}
		return append(encoded, '\n'), nil
	}
	doc := report.NewDocument(snap.Tasks, now)
	doc.DateLayout = report.DateLayout(dateFormat)
	switch format {
	case report.FormatHTML:
		html, err := doc.HTML()
		if err != nil {
			return nil, err
		}
		return []byte(html), nil
	case report.FormatText:
		return []byte(doc.Text()), nil
	default:
		return []byte(doc.Markdown()), nil
	}
}

func newReportCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the board summary as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := prepare(opts, stderr, "report")
			if err != nil {
				return err
			}
			defer rt.close()

			svc, err := rt.newBoardService(cmd.Context(), nil)
			if err != nil {
				return err
			}
			snap, err := svc.Snapshot(cmd.Context())
			if err != nil {
				return fmt.Errorf("load board: %w", err)
			}
			_, err = fmt.Fprintln(stdout, summaryTable(report.Summarize(snap.Tasks, time.Now())))
			return err
		},
	}
}

// summaryTable renders the summary figures as a bordered two-column table.
func summaryTable(s report.Summary) string {
	pct := func(v int) string { return strconv.Itoa(v) + "%" }
	rows := [][]string{
		{"Total tasks", strconv.Itoa(s.Total)},
		{"To Do", strconv.Itoa(s.Todo)},
		{"In Progress", strconv.Itoa(s.InProgress)},
		{"Done", strconv.Itoa(s.Done)},
		{"Completion rate", pct(s.CompletionRate)},
		{"Average progress", pct(s.AverageProgress)},
		{"Created this week", strconv.Itoa(s.ThisWeek)},
		{"Productivity", pct(s.Productivity)},
		{"Critical rate", pct(s.CriticalRate)},
	}
	for _, p := range domain.Priorities() {
		rows = append(rows, []string{strings.ToUpper(string(p)[:1]) + string(p)[1:] + " priority", strconv.Itoa(s.ByPriority[p])})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers("Metric", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true).Foreground(lipgloss.Color("230"))
			}
			if col == 1 {
				return style.Align(lipgloss.Right)
			}
			return style
		})
	return t.Render()
}

func newPathsCommand(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data and export paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := platform.DefaultPathsWithOptions(platform.Options{
				AppName: opts.appName,
				DevMode: opts.devMode,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(stdout, "exports: %s\n", paths.ExportDir)
			return nil
		},
	}
}

func newSessionCommand(opts *rootOptions, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the stored sign-in session",
	}

	// withSession runs fn against the configured session store.
	withSession := func(command string, fn func(context.Context, *session.Session) error) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, _ []string) error {
			rt, err := prepare(opts, stderr, command)
			if err != nil {
				return err
			}
			defer rt.close()
			sess, closeSession, err := rt.openSession()
			if err != nil {
				return err
			}
			defer closeSession()
			return fn(c.Context(), sess)
		}
	}

	var email, name string
	signIn := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with an email and optional display name",
		Args:  cobra.NoArgs,
		RunE: withSession("session signin", func(ctx context.Context, sess *session.Session) error {
			user, err := sess.SignIn(ctx, email, name)
			if err != nil {
				return fmt.Errorf("sign in: %w", err)
			}
			_, err = fmt.Fprintf(stdout, "signed in as %s <%s>\n", user.Name, user.Email)
			return err
		}),
	}
	signIn.Flags().StringVar(&email, "email", "", "account email")
	signIn.Flags().StringVar(&name, "name", "", "display name (derived from the email when empty)")

	signOut := &cobra.Command{
		Use:   "signout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: withSession("session signout", func(ctx context.Context, sess *session.Session) error {
			if err := sess.SignOut(ctx); err != nil {
				return fmt.Errorf("sign out: %w", err)
			}
			_, err := fmt.Fprintln(stdout, "signed out")
			return err
		}),
	}

	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: withSession("session whoami", func(ctx context.Context, sess *session.Session) error {
			user, err := sess.CurrentUser(ctx)
			if errors.Is(err, session.ErrNotSignedIn) {
				_, err = fmt.Fprintln(stdout, "not signed in")
				return err
			}
			if err != nil {
				return fmt.Errorf("read session: %w", err)
			}
			_, err = fmt.Fprintf(stdout, "%s <%s>\n", user.Name, user.Email)
			return err
		}),
	}

	cmd.AddCommand(signIn, signOut, whoami)
	return cmd
}

// parseBoolEnv parses a boolean environment variable; ok is false when unset or invalid.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
