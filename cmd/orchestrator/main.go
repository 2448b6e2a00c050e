package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/app"
	"github.com/hoangsonww/AI-Agents-Orchestrator/internal/events"
)

func main() {
	task := flag.String("task", "", "Task for the agents to work on")
	sessionName := flag.String("session", "default", "Session name")
	workflowName := flag.String("workflow", "default", "Workflow to run")
	configPath := flag.String("config", "", "Optional config file path")
	maxIterations := flag.Int("max-iterations", 0, "Override the workflow's iteration cap")
	followup := flag.Bool("followup", false, "Continue the previous task in this session")
	forceNew := flag.Bool("new", false, "Start a new task, ignoring session history")
	listSessions := flag.Bool("list-sessions", false, "List stored sessions and exit")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(*logLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if *listSessions {
		sessions, err := app.ListSessions(ctx, *configPath)
		if err != nil {
			log.Fatalf("list sessions failed: %v", err)
		}
		if len(sessions) == 0 {
			fmt.Println("no stored sessions")
			return
		}
		for _, s := range sessions {
			fmt.Printf("%-30s %s\n", s.Name, s.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return
	}

	if strings.TrimSpace(*task) == "" {
		log.Fatal("a task is required: -task \"create a calculator\"")
	}
	if *followup && *forceNew {
		log.Fatal("-followup and -new are mutually exclusive")
	}

	bus := events.NewBus()
	progress := bus.SubscribeAny(64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range progress {
			switch evt.Type {
			case events.TypeStepStarted:
				fmt.Printf("[iter %d] %s: %s...\n", evt.Iteration, evt.Agent, evt.Message)
			case events.TypeStepSkipped:
				fmt.Printf("[iter %d] %s skipped: %s\n", evt.Iteration, evt.Agent, evt.Message)
			}
		}
	}()

	cmd := app.Command{
		Task:          *task,
		Session:       *sessionName,
		Workflow:      *workflowName,
		ConfigPath:    *configPath,
		Followup:      *followup,
		ForceNew:      *forceNew,
		MaxIterations: *maxIterations,
		Logger:        logger,
		Bus:           bus,
	}

	result, err := cmd.Run(ctx)
	bus.UnsubscribeAny(progress)
	<-done
	if err != nil {
		if errors.Is(err, app.ErrAmbiguousTask) {
			log.Fatalf("%v", err)
		}
		log.Fatalf("run failed: %v", err)
	}

	report := result.Report
	fmt.Printf("\nRun %s finished: %s (%s) after %d iteration(s)\n",
		report.RunID, report.Status, report.StopReason, report.Iterations)
	if len(report.Files) > 0 {
		fmt.Printf("Files touched: %s\n", strings.Join(report.Files, ", "))
	}
	if report.FinalOutput != "" {
		fmt.Println("\n" + report.FinalOutput)
	}
	if result.ReportPath != "" {
		fmt.Printf("\nFull report: %s\n", result.ReportPath)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return cfg.Build()
}
