package attendance

import (
	"fmt"
	"strings"
	"time"
)

// Status is the attendance outcome of one student in one slot.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusExcused Status = "excused"
	StatusLate    Status = "late"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusPresent, StatusAbsent, StatusExcused, StatusLate}

// ParseStatus normalises s to a known status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range Statuses {
		if v == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown attendance status %q", s)
}

// Record is the attendance of one student in one class slot. There is at most
// one record per (slot, student) pair.
type Record struct {
	ID         string     `json:"id"`
	SlotID     string     `json:"slot_id"`
	StudentID  string     `json:"student_id"`
	Status     Status     `json:"status"`
	Method     string     `json:"method,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
	MarkedBy   *string    `json:"marked_by,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Filter narrows record listings. From and To are inclusive.
type Filter struct {
	StudentID string
	SlotID    string
	Status    Status
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
