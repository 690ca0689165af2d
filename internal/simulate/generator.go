package simulate

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/slate/pkg/logger"
)

// generateSubmissions builds the simulated workload. Every submission seeds
// a fresh task with a task.request event; every DuplicateEvery-th submission
// reuses the previous submission id to exercise the idempotency path.
func generateSubmissions(ctx context.Context, config *Config, stats *Stats) ([]Submission, error) {
	if config.NumTasks <= 0 {
		return nil, fmt.Errorf("number of tasks must be positive, got %d", config.NumTasks)
	}

	logger.Get().Info(ctx, "generating task submissions", logger.Int("numTasks", config.NumTasks))

	subs := make([]Submission, 0, config.NumTasks+config.NumTasks/DuplicateEvery)
	for i := 0; i < config.NumTasks; i++ {
		sub := Submission{
			TaskID:       "sim-" + uuid.NewString(),
			EventType:    "task.request",
			SubmissionID: uuid.NewString(),
			Payload: map[string]any{
				"goal":     fmt.Sprintf("simulated goal %d", i),
				"sequence": i,
			},
		}
		subs = append(subs, sub)

		// Replay an identical submission now and then; the service must
		// acknowledge it as a duplicate, not run the task twice.
		if (i+1)%DuplicateEvery == 0 {
			subs = append(subs, sub)
		}
	}

	stats.TasksGenerated = len(subs)
	logger.Get().Info(ctx, "generated submissions", logger.Int("count", len(subs)))
	return subs, nil
}
