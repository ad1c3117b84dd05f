package notify

import (
	"context"
	"fmt"
	"log"

	"attendtrack/internal/queue"
)

// Worker drains the notification queue into the service.
type Worker struct {
	svc *Service
}

// NewWorker creates a worker.
func NewWorker(svc *Service) *Worker {
	return &Worker{svc: svc}
}

// Run consumes q until ctx is cancelled. Failed messages are logged and dropped.
func (w *Worker) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	log.Println("notification worker started")
	for msg := range messages {
		if err := w.Handle(ctx, msg); err != nil {
			log.Printf("notify worker: %s: %v", msg.Type, err)
		}
	}
	log.Println("notification worker stopped")
	return nil
}

// Handle processes one queue message.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	switch msg.Type {
	case MsgNotice:
		var n Notice
		if err := msg.Decode(&n); err != nil {
			return fmt.Errorf("decode notice: %w", err)
		}
		_, err := w.svc.Create(ctx, n)
		return err
	case MsgAbsenceCheck:
		var req absenceCheck
		if err := msg.Decode(&req); err != nil {
			return fmt.Errorf("decode absence check: %w", err)
		}
		report, err := w.svc.CheckAbsencePatterns(ctx, req.StudentID)
		if err != nil {
			return err
		}
		if report.Warned {
			log.Printf("absence check %s: %d absences, %d escalations", report.StudentID, report.Absences, report.Escalations)
		}
		return nil
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}
