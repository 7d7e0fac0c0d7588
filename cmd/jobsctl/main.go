// Command jobsctl inspects and drives the background queues.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/procuredesk/procuredesk/internal/app"
	"github.com/procuredesk/procuredesk/jobs"
)

const usage = `usage: jobsctl <command>

commands:
  stats            show queue sizes
  trigger <task>   enqueue a task (reporting:refresh)
  retry-sync       re-run archived request sync tasks`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	cli := NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() {
		if err := cli.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
	}()

	if err := run(context.Background(), cli, os.Args[1:]); err != nil {
		logger.Error("jobsctl", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cli *JobsCLI, args []string) error {
	switch args[0] {
	case "stats":
		for _, queue := range []string{jobs.QueueSync, jobs.QueueDefault} {
			stats, err := cli.InspectQueue(queue)
			if err != nil {
				return err
			}
			fmt.Printf("%-8s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		}
		return nil
	case "trigger":
		if len(args) < 2 {
			return fmt.Errorf("trigger requires a task name")
		}
		info, err := cli.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s (%s)\n", info.ID, info.Queue)
		return nil
	case "retry-sync":
		n, err := cli.RetryArchivedSyncs()
		if err != nil {
			return err
		}
		fmt.Printf("requeued %d sync tasks\n", n)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}
