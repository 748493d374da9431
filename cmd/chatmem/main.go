package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/dotsetgreg/chatmem/pkg/bus"
	"github.com/dotsetgreg/chatmem/pkg/config"
	"github.com/dotsetgreg/chatmem/pkg/cron"
	"github.com/dotsetgreg/chatmem/pkg/memory"
	"github.com/dotsetgreg/chatmem/pkg/provider"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
	goVersion string
)

const appName = "chatmem"

func formatVersion() string {
	v := version
	if gitCommit != "" {
		v += fmt.Sprintf(" (git: %s)", gitCommit)
	}
	return v
}

func printVersion() {
	fmt.Printf("%s %s\n", appName, formatVersion())
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
	goVer := goVersion
	if goVer == "" {
		goVer = runtime.Version()
	}
	fmt.Printf("  Go: %s\n", goVer)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".chatmem", "config.json")
}

func main() {
	if err := executeCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildResponder() *provider.ScriptedResponder {
	r := provider.NewScriptedResponder()
	r.AddRule("hello", "Hello! How can I help you today?")
	r.AddRule("hi ", "Hello! How can I help you today?")
	r.AddRule("weather", "I can't check live weather, but I hope it's pleasant where you are.")
	r.AddRule("bye", "Goodbye!")
	r.SetFallback("Understood.")
	return r
}

func runChat(cfg *config.Config, sessionID string, debug bool) error {
	if strings.TrimSpace(sessionID) == "" {
		sessionID = cfg.Chat.SessionID
	}

	mgrCfg := memory.Config{
		LongTermCapacity:   cfg.Memory.LongTermCapacity,
		RetentionThreshold: cfg.Memory.RetentionThresholdChars,
		ShortTermCap:       cfg.Memory.ShortTermCap,
		SessionCacheSize:   cfg.Memory.SessionCacheSize,
		JournalBuffer:      cfg.Memory.JournalBuffer,
	}

	if cfg.Store.Enabled {
		store, err := memory.NewSQLiteStore(cfg.StorePath())
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		mgrCfg.Store = store
	}

	var events *bus.MemoryBus
	if debug {
		events = bus.NewMemoryBus()
		mgrCfg.Bus = events
	}

	mgr, err := memory.NewManager(mgrCfg)
	if err != nil {
		return err
	}
	defer mgr.Close()

	if debug {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			for {
				ev, ok := events.Subscribe(ctx)
				if !ok {
					return
				}
				fmt.Printf("[%s] %s %s\n", ev.Kind, ev.SessionID, ev.Detail)
			}
		}()
	}

	if cfg.Sweep.Enabled {
		idle := time.Duration(cfg.Sweep.IdleMinutes) * time.Minute
		sweeper, err := cron.NewScheduler(cfg.Sweep.Schedule, func() {
			mgr.SweepIdle(idle)
		})
		if err != nil {
			return err
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	if _, err := mgr.GetOrCreateSession(sessionID); err != nil {
		return err
	}

	responder := buildResponder()

	fmt.Printf("%s session %q (type 'exit' to quit, '/memory' or '/history' to inspect state)\n", appName, sessionID)
	return interactiveLoop(mgr, responder, sessionID)
}

func interactiveLoop(mgr *memory.Manager, responder provider.Responder, sessionID string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".chatmem_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			return nil
		}
		if handled, err := handleInspect(mgr, sessionID, input); handled {
			if err != nil {
				fmt.Printf("Error: %v\n", err)
			}
			continue
		}

		if err := runTurn(mgr, responder, sessionID, input); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// runTurn executes one interaction: render context, call the responder
// outside any memory critical section, then re-enter to append the exchange
// and evaluate retention on the input.
func runTurn(mgr *memory.Manager, responder provider.Responder, sessionID, input string) error {
	pc, err := mgr.BuildPromptContext(sessionID, input)
	if err != nil {
		return err
	}

	reply, err := responder.Reply(context.Background(), pc)
	if err != nil {
		return err
	}

	if err := mgr.AppendTurn(sessionID, memory.Turn{Role: memory.RoleUser, Text: input}); err != nil {
		return err
	}
	if err := mgr.AppendTurn(sessionID, memory.Turn{Role: memory.RoleAssistant, Text: reply}); err != nil {
		return err
	}
	if _, err := mgr.RecordForLongTerm(sessionID, input); err != nil {
		return err
	}

	fmt.Printf("\n%s> %s\n\n", appName, reply)
	return nil
}

func handleInspect(mgr *memory.Manager, sessionID, input string) (bool, error) {
	switch input {
	case "/memory":
		longTerm, err := mgr.RenderLongTerm(sessionID)
		if err != nil {
			return true, err
		}
		if longTerm == "" {
			fmt.Println("(long-term memory is empty)")
			return true, nil
		}
		fmt.Println(longTerm)
		return true, nil
	case "/history":
		turns, err := mgr.RenderShortTerm(sessionID)
		if err != nil {
			return true, err
		}
		if len(turns) == 0 {
			fmt.Println("(no turns yet)")
			return true, nil
		}
		for _, turn := range turns {
			fmt.Printf("%s: %s\n", turn.Role, turn.Text)
		}
		return true, nil
	}
	return false, nil
}
