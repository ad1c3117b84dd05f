package notify

import (
	"context"
	"log"
	"time"

	"attendtrack/internal/metrics"
	"attendtrack/internal/queue"
)

// Message types carried on the notification queue.
const (
	MsgNotice       = "notice"
	MsgAbsenceCheck = "absence_check"
)

const publishTimeout = 2 * time.Second

type absenceCheck struct {
	StudentID string `json:"student_id"`
}

// QueueSink publishes notices and absence checks for the worker to process.
// Publishing failures are logged and never surface to the caller.
type QueueSink struct {
	q queue.Queue
}

// NewQueueSink creates a sink on q.
func NewQueueSink(q queue.Queue) *QueueSink {
	return &QueueSink{q: q}
}

// Notify enqueues n.
func (s *QueueSink) Notify(ctx context.Context, n Notice) {
	s.publish(ctx, MsgNotice, n)
}

// CheckAbsences enqueues an absence pattern check for studentID.
func (s *QueueSink) CheckAbsences(ctx context.Context, studentID string) {
	s.publish(ctx, MsgAbsenceCheck, absenceCheck{StudentID: studentID})
}

func (s *QueueSink) publish(ctx context.Context, typ string, body any) {
	msg, err := queue.NewMessage(typ, body)
	if err != nil {
		log.Printf("notify: encode %s: %v", typ, err)
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}
	// The request may finish before the publish does.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.q.Publish(ctx, msg); err != nil {
		log.Printf("notify: publish %s: %v", typ, err)
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}
	metrics.Notifications.WithLabelValues("published").Inc()
}
