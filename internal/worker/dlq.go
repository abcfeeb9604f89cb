package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

// DLQPrefix names the dead letter list of a queue: dlq:{queue}
const DLQPrefix = "dlq:"

// DLQEntry wraps a failed job with metadata for debugging. Raw holds the
// undecodable message (base64 in JSON) when the envelope itself was invalid.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Raw           []byte          `json:"raw,omitempty"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"`
	Attempts      int             `json:"attempts"`
}

// SendToDLQ moves a failed job to the dead letter queue for manual
// inspection.
func SendToDLQ(ctx context.Context, q Queue, queue string, job Job, reason string) {
	pushDLQ(ctx, q, DLQEntry{
		OriginalQueue: queue,
		JobType:       job.Type,
		Payload:       job.Payload,
		Reason:        reason,
		Attempts:      job.Attempts,
	})
}

// SendRawToDLQ dead-letters a message that could not be decoded as a Job,
// keeping its bytes untouched.
func SendRawToDLQ(ctx context.Context, q Queue, queue string, raw []byte, reason string) {
	pushDLQ(ctx, q, DLQEntry{
		OriginalQueue: queue,
		JobType:       "unknown",
		Raw:           raw,
		Reason:        reason,
	})
}

func pushDLQ(ctx context.Context, q Queue, entry DLQEntry) {
	log := logger.Channel(logger.ChannelWorker).WithFields(logrus.Fields{
		"queue":    entry.OriginalQueue,
		"job_type": entry.JobType,
	})

	entry.FailedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(entry)
	if err != nil {
		log.WithError(err).Error("dlq: failed to marshal entry")
		return
	}

	if err := q.Push(ctx, DLQPrefix+entry.OriginalQueue, data); err != nil {
		log.WithError(err).Error("dlq: failed to push entry")
		return
	}

	log.WithFields(logrus.Fields{
		"reason":   entry.Reason,
		"attempts": entry.Attempts,
	}).Warn("dlq: job moved to dead letter queue")
}
