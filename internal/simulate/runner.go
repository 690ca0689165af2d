package simulate

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/slate/pkg/logger"
)

// Run executes the complete simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting slate simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("tasks", config.NumTasks),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("waitTimeout", config.WaitTimeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Watch the live feed while the simulation runs
	watcher := watchFeed(ctx, config)

	// Step 3: Generate the workload
	subs, err := generateSubmissions(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("workload generation failed: %w", err)
	}

	// Step 4: Submit concurrently
	if err := submitTasks(ctx, config, subs, stats); err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}

	// Step 5: Wait for every task to settle
	completed, err := awaitSettlement(ctx, config, subs, stats)
	if err != nil {
		return fmt.Errorf("settlement failed: %w", err)
	}

	// Step 6: Verify board histories
	if err := verifyBoards(ctx, config, completed, stats); err != nil {
		return fmt.Errorf("board verification failed: %w", err)
	}

	// Step 7: Fold in feed counters
	watcher.stop(stats)

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var completionRate, tasksPerSecond float64

	if stats.TasksAccepted > 0 {
		completionRate = float64(stats.TasksCompleted) / float64(stats.TasksAccepted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		tasksPerSecond = float64(stats.TasksSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("tasksGenerated", stats.TasksGenerated),
		logger.Int("tasksSubmitted", stats.TasksSubmitted),
		logger.Int("tasksAccepted", stats.TasksAccepted),
		logger.Int("tasksDuplicate", stats.TasksDuplicate),
		logger.Int("tasksRejected", stats.TasksRejected),
		logger.Int("tasksCompleted", stats.TasksCompleted),
		logger.Int("tasksFailed", stats.TasksFailed),
		logger.Int("tasksUnsettled", stats.TasksUnsettled),
		logger.Int("boardsVerified", stats.BoardsVerified),
		logger.Any("feedBoardWrites", stats.FeedBoardWrites),
		logger.Any("feedPhases", stats.FeedPhases),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("completionRate", completionRate),
		logger.Float64("tasksPerSecond", tasksPerSecond))
}
