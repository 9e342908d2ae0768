package telegram

import (
	"context"
	"fmt"
	"time"

	"tgbatch/internal/batch"
	"tgbatch/internal/transport"
)

// NotifyReport summarizes a Notify run
type NotifyReport struct {
	Total     int
	Delivered []int64
	Failed    map[int64]string // chat id -> reason
}

// Notify sends the same message to every chat in one batch.
// Failures are per chat and reported in the NotifyReport; the error is only
// set when the batch itself could not run.
func (c *Client) Notify(ctx context.Context, chatIDs []int64, text string, opts *SendOptions) (*NotifyReport, error) {
	start := time.Now()
	report := &NotifyReport{
		Total:  len(chatIDs),
		Failed: make(map[int64]string),
	}
	if len(chatIDs) == 0 {
		return report, nil
	}

	s, err := c.NewBatch()
	if err != nil {
		return nil, err
	}
	defer s.Close()

	chats := make(map[batch.Handle]int64, len(chatIDs))
	for _, chatID := range chatIDs {
		params, err := SendMessageParams(chatID, text, opts)
		if err != nil {
			return nil, err
		}
		h, err := s.Add("sendMessage", params)
		if err != nil {
			return nil, fmt.Errorf("failed to queue chat %d: %w", chatID, err)
		}
		chats[h] = chatID
	}

	results, err := s.Execute(ctx)
	if err != nil {
		return nil, err
	}

	for h, chatID := range chats {
		if reason := failureReason(results[h]); reason != "" {
			report.Failed[chatID] = reason
			continue
		}
		report.Delivered = append(report.Delivered, chatID)
	}

	event := c.logger.Info()
	msg := "notify finished"
	if len(report.Failed) > 0 {
		event = c.logger.Warn()
		msg = "notify finished with failures"
	}
	event.
		Int("total", report.Total).
		Int("failed", len(report.Failed)).
		Dur("dur", time.Since(start)).
		Msg(msg)

	return report, nil
}

// failureReason returns why a sendMessage result is not a delivery, or "" if it is
func failureReason(r batch.Result) string {
	if !r.OK() {
		return r.Description
	}
	env, err := transport.ParseEnvelope(r.Value)
	if err != nil {
		return batch.InvalidJSONResponse
	}
	if !env.OK {
		if env.Description != "" {
			return env.Description
		}
		return fmt.Sprintf("error code %d", env.ErrorCode)
	}
	return ""
}
