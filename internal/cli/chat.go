package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/soyeahso/dewey/internal/channel"
	"github.com/soyeahso/dewey/internal/config"
	"github.com/soyeahso/dewey/internal/domain"
	"github.com/soyeahso/dewey/internal/logging"
	"github.com/soyeahso/dewey/internal/render"
	"github.com/soyeahso/dewey/internal/routing"
	"github.com/soyeahso/dewey/internal/session"
	"github.com/soyeahso/dewey/internal/store"
	"github.com/soyeahso/dewey/internal/telemetry"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.Server.URL = serverURL
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			// Interactive output owns the terminal, so logs go to a file.
			if cfg.Logging.File != "" {
				fileLog, err := logging.NewFile(cfg.Logging.File, cfg.Logging.Level)
				if err != nil {
					return fmt.Errorf("opening log file: %w", err)
				}
				log = fileLog
			}

			db, err := store.Open(paths.DBPath(cfg), log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			registry, err := store.NewRegistryStore(store.NewSQLiteKV(db), log)
			if err != nil {
				return fmt.Errorf("loading chats: %w", err)
			}

			var recorder *telemetry.Recorder
			if cfg.Telemetry.IsEnabled() {
				recorder = telemetry.NewRecorder(cfg.Telemetry.Window)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client := channel.NewClient(cfg.Server.URL, log)
			if err := client.Connect(ctx); err != nil {
				return fmt.Errorf("connecting to %s: %w", cfg.Server.URL, err)
			}
			defer client.Close()

			router := routing.NewRouter(registry, recorder, printNotifier{}, log)
			go router.Run(client.Events())

			registry.Subscribe(newTailPrinter(os.Stdout).print)

			input := bufio.NewScanner(os.Stdin)
			var confirm session.Confirmer
			if cfg.Session.ShouldConfirmClose() {
				confirm = &stdinConfirmer{in: input}
			}

			manager := session.NewManager(registry, confirm, log)
			if err := manager.Init(); err != nil {
				return err
			}
			composer := session.NewComposer(registry, client, log)

			fmt.Println(render.Tabs(registry.Snapshot()))
			return runPrompt(ctx, input, registry, manager, composer, recorder)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "override backend websocket URL")
	return cmd
}

// runPrompt reads user input until EOF, /quit or a signal. Lines starting
// with a slash are commands; everything else is sent to the active chat.
func runPrompt(ctx context.Context, input *bufio.Scanner, registry *store.RegistryStore,
	manager *session.Manager, composer *session.Composer, recorder *telemetry.Recorder) error {
	for {
		fmt.Print("> ")
		if !input.Scan() {
			return input.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(input.Text())
		if !strings.HasPrefix(line, "/") {
			if err := composer.Send(line); err != nil {
				return err
			}
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "/quit", "/exit":
			return nil

		case "/new":
			if _, err := manager.NewChat(); err != nil {
				return err
			}
			fmt.Println(render.Tabs(registry.Snapshot()))

		case "/switch":
			id, err := resolveChat(registry, arg)
			if err != nil {
				fmt.Println(render.Notice(err.Error()))
				continue
			}
			if err := manager.SwitchTo(id); err != nil {
				fmt.Println(render.Notice(err.Error()))
				continue
			}
			reg := registry.Snapshot()
			fmt.Println(render.Tabs(reg))
			if sess, ok := reg.Active(); ok {
				fmt.Print(render.Transcript(sess))
			}

		case "/close":
			target := arg
			if target == "" {
				target = registry.Snapshot().ActiveID
			}
			id, err := resolveChat(registry, target)
			if err != nil {
				fmt.Println(render.Notice(err.Error()))
				continue
			}
			closed, err := manager.Close(id)
			if err != nil {
				fmt.Println(render.Notice(err.Error()))
				continue
			}
			if closed {
				fmt.Println(render.Tabs(registry.Snapshot()))
			}

		case "/chats":
			fmt.Println(render.Tabs(registry.Snapshot()))

		case "/stats":
			if recorder == nil {
				fmt.Println(render.Notice("telemetry disabled"))
				continue
			}
			if sample, ok := recorder.Latest(); ok {
				fmt.Println(render.Resources(sample))
			} else {
				fmt.Println(render.Notice("no resource samples yet"))
			}

		default:
			fmt.Println(render.Notice("unknown command " + cmd))
		}
	}
}

// resolveChat accepts either a 1-based position from the tab list or a
// full chat id.
func resolveChat(registry *store.RegistryStore, arg string) (string, error) {
	if arg == "" {
		return "", fmt.Errorf("chat id required")
	}
	reg := registry.Snapshot()
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(reg.Order) {
		return reg.Order[n-1], nil
	}
	if _, ok := reg.Get(arg); ok {
		return arg, nil
	}
	return "", fmt.Errorf("no chat %q", arg)
}

// printNotifier surfaces backend errors inline on the terminal.
type printNotifier struct{}

func (printNotifier) Notify(message string) {
	fmt.Println(render.Notice(message))
}

// stdinConfirmer asks a yes/no question on the same reader as the prompt.
type stdinConfirmer struct {
	in *bufio.Scanner
}

func (c *stdinConfirmer) Confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	if !c.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(c.in.Text()))
	return answer == "y" || answer == "yes"
}

// tailPrinter renders content appended to the active chat as store
// notifications arrive: new thoughts as they stream in and assistant
// replies when they land.
type tailPrinter struct {
	out      *os.File
	chatID   string
	messages int
	thoughts int
}

func newTailPrinter(out *os.File) *tailPrinter {
	return &tailPrinter{out: out}
}

func (p *tailPrinter) print(reg domain.Registry) {
	sess, ok := reg.Active()
	if !ok {
		return
	}
	if reg.ActiveID != p.chatID {
		// Switched chats: the transcript was just reprinted, start
		// tailing from the current end.
		p.chatID = reg.ActiveID
		p.messages = len(sess.Messages)
		p.thoughts = countThoughts(sess)
		return
	}

	flat := flattenThoughts(sess)
	for _, t := range flat[min(p.thoughts, len(flat)):] {
		fmt.Fprintln(p.out, render.Thought(t))
	}
	p.thoughts = len(flat)

	for _, msg := range sess.Messages[min(p.messages, len(sess.Messages)):] {
		if !msg.IsUser {
			fmt.Fprintln(p.out, render.Message(msg))
		}
	}
	p.messages = len(sess.Messages)
}

func flattenThoughts(sess *domain.ChatSession) []domain.Thought {
	var out []domain.Thought
	for _, sec := range sess.ThinkingSections {
		out = append(out, sec.Thoughts...)
	}
	return out
}

func countThoughts(sess *domain.ChatSession) int {
	n := 0
	for _, sec := range sess.ThinkingSections {
		n += len(sec.Thoughts)
	}
	return n
}
