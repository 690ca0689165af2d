package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// awaitSettlement polls every submitted task until it reaches a terminal
// phase or the wait budget runs out.
func awaitSettlement(ctx context.Context, config *Config, subs []Submission, stats *Stats) ([]string, error) {
	log.Printf("⏳ Waiting for %d tasks to settle...", stats.TasksAccepted)

	client := newHTTPClient(config.Timeout)
	deadline := time.Now().Add(config.WaitTimeout)

	// Duplicates share a task id with their original; settle each id once.
	pending := make(map[string]struct{}, len(subs))
	for _, sub := range subs {
		pending[sub.TaskID] = struct{}{}
	}

	var completed []string
	for len(pending) > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return completed, ctx.Err()
		case <-time.After(StatusPollInterval):
		}

		for taskID := range pending {
			status, err := fetchStatus(ctx, client, config.BaseURL, taskID)
			if err != nil {
				continue
			}
			switch status.Phase {
			case "completed":
				stats.TasksCompleted++
				completed = append(completed, taskID)
				delete(pending, taskID)
			case "failed":
				stats.TasksFailed++
				if config.Verbose {
					log.Printf("⚠️  Task %s failed: %s", taskID, status.FailureReason)
				}
				delete(pending, taskID)
			}
		}
	}

	stats.TasksUnsettled = len(pending)
	if len(pending) > 0 {
		return completed, fmt.Errorf("%d tasks did not settle within %s", len(pending), config.WaitTimeout)
	}

	log.Printf("✅ All tasks settled (completed: %d, failed: %d)", stats.TasksCompleted, stats.TasksFailed)
	return completed, nil
}

// fetchStatus retrieves one task's status
func fetchStatus(ctx context.Context, client *HTTPClient, baseURL, taskID string) (TaskStatus, error) {
	resp, err := client.Get(ctx, baseURL+"/tasks/"+taskID)
	if err != nil {
		return TaskStatus{}, err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return TaskStatus{}, err
	}
	if resp.StatusCode != StatusOK {
		return TaskStatus{}, fmt.Errorf("status request failed with status: %d", resp.StatusCode)
	}

	var status TaskStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return TaskStatus{}, fmt.Errorf("failed to decode status: %w", err)
	}
	return status, nil
}

// verifyBoards checks the board history of completed tasks: the planner's
// plan.created and the terminal task.result must both be present, and
// versions within one key must be strictly increasing.
func verifyBoards(ctx context.Context, config *Config, completed []string, stats *Stats) error {
	log.Printf("🔍 Verifying board history for %d completed tasks...", len(completed))

	client := newHTTPClient(config.Timeout)
	for _, taskID := range completed {
		resp, err := client.Get(ctx, config.BaseURL+"/tasks/"+taskID+"/history")
		if err != nil {
			return fmt.Errorf("history request for %s failed: %w", taskID, err)
		}
		body, err := readResponseBody(resp)
		if err != nil {
			return fmt.Errorf("history read for %s failed: %w", taskID, err)
		}
		if resp.StatusCode != StatusOK {
			return fmt.Errorf("history request for %s failed with status: %d", taskID, resp.StatusCode)
		}

		var entries []HistoryEntry
		if err := json.Unmarshal(body, &entries); err != nil {
			return fmt.Errorf("failed to decode history for %s: %w", taskID, err)
		}

		if err := checkHistory(entries); err != nil {
			return fmt.Errorf("task %s: %w", taskID, err)
		}
		stats.BoardsVerified++
	}

	log.Printf("✅ Board verification completed (%d boards)", stats.BoardsVerified)
	return nil
}

// checkHistory validates one task's board history
func checkHistory(entries []HistoryEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("empty board history")
	}

	seen := make(map[string]uint64)
	for _, e := range entries {
		if last, ok := seen[e.Key]; ok && e.Version <= last {
			return fmt.Errorf("key %s: version %d not greater than %d", e.Key, e.Version, last)
		}
		seen[e.Key] = e.Version
	}

	if _, ok := seen["plan.created"]; !ok {
		return fmt.Errorf("missing plan.created entry")
	}
	if _, ok := seen["task.result"]; !ok {
		return fmt.Errorf("missing task.result entry")
	}
	return nil
}
