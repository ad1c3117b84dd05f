package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"attendtrack/internal/apperr"
	"attendtrack/internal/store"
)

// Repository persists class slots.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const slotSelect = `
	SELECT s.id, s.lecturer_id, s.course_id, c.code, c.name, s.classroom, s.day_of_week,
	       s.start_minute, s.end_minute, s.created_at, s.updated_at
	FROM class_slots s JOIN courses c ON c.id = s.course_id`

func scanSlot(row interface{ Scan(...any) error }) (Slot, error) {
	var (
		s          Slot
		day        string
		start, end int
	)
	err := row.Scan(&s.ID, &s.LecturerID, &s.CourseID, &s.CourseCode, &s.CourseName, &s.Classroom, &day,
		&start, &end, &s.CreatedAt, &s.UpdatedAt)
	s.Day, s.Start, s.End = Weekday(day), Clock(start), Clock(end)
	return s, err
}

// Create inserts s and returns it with its id and timestamps.
func (r *Repository) Create(ctx context.Context, s Slot) (Slot, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO class_slots (id, lecturer_id, course_id, classroom, day_of_week, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.LecturerID, s.CourseID, s.Classroom, string(s.Day), int(s.Start), int(s.End))
	if err != nil {
		return Slot{}, store.Classify(err)
	}
	return r.Get(ctx, s.ID)
}

// Get returns a slot by id.
func (r *Repository) Get(ctx context.Context, id string) (Slot, error) {
	s, err := scanSlot(r.db.QueryRowContext(ctx, slotSelect+` WHERE s.id = $1`, id))
	if err != nil {
		return Slot{}, store.NotFoundAs(err, "class slot not found")
	}
	return s, nil
}

// List returns slots matching f in timetable order.
func (r *Repository) List(ctx context.Context, f Filter) ([]Slot, error) {
	var (
		clauses []string
		args    []any
	)
	if f.LecturerID != "" {
		args = append(args, f.LecturerID)
		clauses = append(clauses, fmt.Sprintf("s.lecturer_id = $%d", len(args)))
	}
	if f.CourseID != "" {
		args = append(args, f.CourseID)
		clauses = append(clauses, fmt.Sprintf("s.course_id = $%d", len(args)))
	}
	if f.Day != "" {
		args = append(args, string(f.Day))
		clauses = append(clauses, fmt.Sprintf("s.day_of_week = $%d", len(args)))
	}
	query := slotSelect
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	return r.query(ctx, query, args...)
}

// ForStudent returns the slots of every course studentID is a member of.
func (r *Repository) ForStudent(ctx context.Context, studentID string) ([]Slot, error) {
	return r.query(ctx, slotSelect+`
		JOIN course_members m ON m.course_id = s.course_id
		WHERE m.user_id = $1`, studentID)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Slot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()
	var res []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, store.Classify(err)
		}
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Classify(err)
	}
	SortTimetable(res)
	return res, nil
}

// Update writes every mutable field of s.
func (r *Repository) Update(ctx context.Context, s Slot) (Slot, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE class_slots
		SET lecturer_id = $2, course_id = $3, classroom = $4, day_of_week = $5,
		    start_minute = $6, end_minute = $7, updated_at = NOW()
		WHERE id = $1
	`, s.ID, s.LecturerID, s.CourseID, s.Classroom, string(s.Day), int(s.Start), int(s.End))
	if err != nil {
		return Slot{}, store.Classify(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Slot{}, store.Classify(err)
	} else if n == 0 {
		return Slot{}, apperr.NotFound("class slot not found")
	}
	return r.Get(ctx, s.ID)
}

// Delete removes a slot. Slots with attendance records cannot be removed.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_slots WHERE id = $1`, id)
	if err != nil {
		if err = store.Classify(err); apperr.Is(err, apperr.KindConflict) {
			return apperr.Conflict("class slot has attendance records")
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return store.Classify(err)
	}
	if n == 0 {
		return apperr.NotFound("class slot not found")
	}
	return nil
}

// SortTimetable orders slots by weekday and then start time.
func SortTimetable(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		di, dj := slots[i].Day.Index(), slots[j].Day.Index()
		if di != dj {
			return di < dj
		}
		return slots[i].Start < slots[j].Start
	})
}
