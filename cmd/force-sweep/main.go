package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/config"
	"github.com/dimitrije/teamroom-api/internal/database"
	"github.com/dimitrije/teamroom-api/internal/logging"
	"github.com/dimitrije/teamroom-api/internal/services"
	"github.com/dimitrije/teamroom-api/internal/workers"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// force-sweep runs a single confirmation sweep and prints what it did. It takes the
// same lease as the server, so it does nothing while a server instance holds it.
func main() {
	if len(os.Args) > 1 {
		fmt.Println("Usage: force-sweep")
		os.Exit(1)
	}

	if err := run(); err != nil {
		log.Fatalf("force-sweep: %v", err)
	}
}

// run owns every resource so that deferred cleanup happens before main exits.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(false, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Setup.SweepTimeout)
	defer cancel()

	db, err := database.New(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	clk := clock.Real()
	roomService := services.NewTeamRoomService(db)
	gate := services.NewWorkflowGate(db, services.NewEmailService(cfg.SMTP), logger)
	setupService := services.NewSetupService(db, gate, clk, cfg.Setup.Duration)
	ledger := services.NewVoteLedger(db)
	outcomes := services.NewOutcomeStore(db, clk)

	coordinator := services.NewCoordinator(setupService, gate, outcomes, logger,
		services.NewToolTrack(db, ledger, outcomes, roomService, clk),
		services.NewRuleTrack(db, ledger, outcomes, roomService, clk),
		services.NewMeetingTrack(ledger, outcomes, roomService, clk, cfg.Setup.MeetingDuration),
	)

	lease := services.NewLease(db, "confirmation-sweeper", leaseHolder(), 2*cfg.Setup.SweepInterval)
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			logger.Warn("failed to release sweeper lease", zap.Error(err))
		}
	}()

	sweeper := workers.NewSweeper(coordinator, lease, clk, logger, nil, cfg.Setup.SweepInterval, cfg.Setup.SweepTimeout)

	report, err := sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	printReport(report)
	return nil
}

// leaseHolder is unique per run, so two concurrent runs never share the lease.
func leaseHolder() string {
	return "force-sweep-" + uuid.NewString()
}

func printReport(report *workers.SweepReport) {
	if report.Skipped {
		fmt.Println("Sweep skipped: another instance holds the sweeper lease")
		return
	}

	fmt.Printf("Scanned %d expired setup(s)\n", report.SetupsScanned)
	for _, r := range report.Results {
		fmt.Printf("team room %s\n", r.TeamRoomID)
		for _, s := range r.Subjects {
			if s.Err != nil {
				fmt.Printf("  %-8s failed: %v\n", s.Subject, s.Err)
				continue
			}
			fmt.Printf("  %-8s confirmed\n", s.Subject)
		}
		switch {
		case r.WorkflowErr != nil:
			fmt.Printf("  workflow failed: %v\n", r.WorkflowErr)
		case r.WorkflowCompleted:
			fmt.Println("  workflow COMPLETED")
		}
	}
}
