// Command oneagent is an interactive REPL around the tool-calling agent.
// Configuration comes from a YAML file, .env, and environment variables;
// transcripts persist to a local SQLite database.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"oneagent/pkg/agent"
	"oneagent/pkg/agent/llm"
	"oneagent/pkg/agent/middleware/logging"
	"oneagent/pkg/agent/middleware/metrics"
	"oneagent/pkg/config"
	"oneagent/pkg/logx"
	"oneagent/pkg/session"
	"oneagent/pkg/tools"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	providerName := flag.String("provider", "", "provider to use (overrides config)")
	noStream := flag.Bool("no-stream", false, "disable streaming output")
	oneshot := flag.String("c", "", "run a single input and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *providerName != "" {
		cfg.DefaultProvider = *providerName
	}
	if *noStream {
		cfg.Streaming = false
	}

	logger := logx.NewLogger("cli")

	store, err := openStore(cfg.SessionDBPath)
	if err != nil {
		// Persistence is best-effort; the REPL works without it.
		logger.Warn("session store unavailable: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	r, err := newREPL(cfg, store, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *oneshot != "" {
		return r.handleInput(ctx, *oneshot)
	}
	return r.loop(ctx)
}

func openStore(path string) (*session.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return session.Open(path)
}

// repl holds the interactive session state.
type repl struct {
	cfg      *config.Config
	agent    *agent.Agent
	registry *tools.Registry
	store    *session.Store
	sess     session.Session
	logger   *logx.Logger
	rec      *metrics.Recorder
	isTTY    bool
	stream   bool
	current  string // active provider name
}

func newREPL(cfg *config.Config, store *session.Store, logger *logx.Logger) (*repl, error) {
	pc, err := cfg.ActiveProvider()
	if err != nil {
		return nil, err
	}

	rec := metrics.NewRecorder(prometheus.DefaultRegisterer)
	provider, err := buildProvider(pc, rec)
	if err != nil {
		return nil, err
	}

	registry := tools.NewRegistry(enabledTools(cfg)...)
	registry.SetTimeout(cfg.ToolTimeout)

	opts := []agent.Option{
		agent.WithMaxIterations(cfg.MaxIterations),
		agent.WithHistoryLimit(cfg.MaxHistoryMessages),
		agent.WithRequestTimeout(cfg.RequestTimeout),
		agent.WithMetrics(rec),
		agent.WithGeneration(pc.MaxTokens, pc.Temperature),
	}

	r := &repl{
		cfg:      cfg,
		registry: registry,
		store:    store,
		logger:   logger,
		rec:      rec,
		isTTY:    term.IsTerminal(int(os.Stdout.Fd())),
		stream:   cfg.Streaming,
		current:  cfg.DefaultProvider,
	}

	if store != nil {
		sess, err := store.CreateSession(cfg.SessionName)
		if err != nil {
			logger.Warn("failed to create session: %v", err)
		} else {
			r.sess = sess
			opts = append(opts, agent.WithMessageSink(func(msg llm.Message) {
				if err := store.Append(sess.ID, msg); err != nil {
					logger.Warn("failed to persist message: %v", err)
				}
			}))
		}
	}

	r.agent = agent.New(provider, registry, opts...)
	return r, nil
}

func buildProvider(pc config.ProviderConfig, rec *metrics.Recorder) (llm.Provider, error) {
	raw, err := agent.NewProvider(pc)
	if err != nil {
		return nil, err
	}
	return llm.Chain(raw,
		logging.Middleware(logx.NewLogger("llm")),
		metrics.Middleware(pc.Provider, rec),
	), nil
}

func enabledTools(cfg *config.Config) []tools.Tool {
	var list []tools.Tool
	if cfg.EnableCalculator {
		list = append(list, tools.NewCalculatorTool())
	}
	if cfg.EnableReadFile {
		list = append(list, tools.NewReadFileTool())
	}
	if cfg.EnableCurrentTime {
		list = append(list, tools.NewCurrentTimeTool())
	}
	return list
}

func (r *repl) loop(ctx context.Context) error {
	fmt.Printf("oneagent: provider %s (%s). Type /help for commands.\n",
		r.current, r.agent.Provider().ModelName())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if ctx.Err() != nil {
			return nil
		}
		r.prompt()
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if quit := r.handleCommand(input); quit {
				return nil
			}
			continue
		}
		if err := r.handleInput(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func (r *repl) prompt() {
	if r.isTTY {
		fmt.Print("\033[1;36m> \033[0m")
	} else {
		fmt.Print("> ")
	}
}

func (r *repl) handleInput(ctx context.Context, input string) error {
	if r.stream {
		return r.streamInput(ctx, input)
	}
	answer, err := r.agent.Run(ctx, input)
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

func (r *repl) streamInput(ctx context.Context, input string) error {
	ch, err := r.agent.Stream(ctx, input)
	if err != nil {
		return err
	}
	for chunk := range ch {
		if chunk.Err != nil {
			fmt.Println()
			return chunk.Err
		}
		fmt.Print(chunk.Delta)
	}
	fmt.Println()
	return nil
}

// handleCommand dispatches slash commands. Returns true to quit.
func (r *repl) handleCommand(input string) bool {
	fields := strings.Fields(input)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/help":
		fmt.Print(`Commands:
  /reset              clear the conversation (keeps system prompt)
  /history            show the conversation so far
  /tools              list registered tools
  /provider <name>    switch provider (anthropic, openai, glm, kimi, ollama)
  /sessions           list stored sessions
  /export [format] [path]  export this session (json or markdown), to a file when path is given
  /quit               exit
`)

	case "/reset":
		r.agent.Reset()
		fmt.Println("conversation cleared")

	case "/history":
		for _, msg := range r.agent.Messages() {
			line := msg.Content
			if len(line) > 120 {
				line = line[:120] + "..."
			}
			fmt.Printf("[%s] %s", msg.Role, line)
			if len(msg.ToolCalls) > 0 {
				fmt.Printf(" (%d tool calls)", len(msg.ToolCalls))
			}
			fmt.Println()
		}

	case "/tools":
		for _, def := range r.registry.List() {
			fmt.Printf("  %-14s %s\n", def.Name, def.Description)
		}

	case "/provider":
		if len(args) != 1 {
			fmt.Println("usage: /provider <name>")
			break
		}
		r.switchProvider(args[0])

	case "/sessions":
		r.listSessions()

	case "/export":
		format := session.FormatMarkdown
		if len(args) > 0 && (args[0] == "json" || args[0] == "markdown") {
			if args[0] == "json" {
				format = session.FormatJSON
			}
			args = args[1:]
		}
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		r.exportSession(format, path)

	default:
		fmt.Printf("unknown command %s (try /help)\n", cmd)
	}
	return false
}

func (r *repl) switchProvider(name string) {
	pc, ok := r.cfg.Providers[name]
	if !ok {
		fmt.Printf("no configuration for provider %q\n", name)
		return
	}
	provider, err := buildProvider(pc, r.rec)
	if err != nil {
		fmt.Printf("failed to build provider: %v\n", err)
		return
	}
	r.agent.SetProvider(provider)
	r.current = name
	fmt.Printf("switched to %s (%s)\n", name, provider.ModelName())
}

func (r *repl) listSessions() {
	if r.store == nil {
		fmt.Println("session store unavailable")
		return
	}
	sessions, err := r.store.ListSessions()
	if err != nil {
		fmt.Printf("failed to list sessions: %v\n", err)
		return
	}
	for _, s := range sessions {
		marker := " "
		if s.ID == r.sess.ID {
			marker = "*"
		}
		fmt.Printf("%s %s  %-20s %4d msgs  %s\n", marker, s.ID, s.Title, s.MessageCount, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

// exportSession writes the transcript to path, or prints it when path is empty.
func (r *repl) exportSession(format session.ExportFormat, path string) {
	if r.store == nil {
		fmt.Println("session store unavailable")
		return
	}
	if path != "" {
		if err := r.store.ExportToFile(r.sess.ID, path, format); err != nil {
			fmt.Printf("export failed: %v\n", err)
			return
		}
		fmt.Printf("exported to %s\n", path)
		return
	}
	out, err := r.store.Export(r.sess.ID, format)
	if err != nil {
		fmt.Printf("export failed: %v\n", err)
		return
	}
	fmt.Println(out)
}
