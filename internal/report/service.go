package report

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"attendtrack/internal/apperr"
	"attendtrack/internal/auth"
	"attendtrack/internal/store"
	"attendtrack/internal/users"
)

// Store is the query surface the service needs.
type Store interface {
	CountByStatus(ctx context.Context, f Filter) ([]StatusCount, error)
	CountByCourse(ctx context.Context, f Filter) ([]CourseCount, error)
	CountStudents(ctx context.Context, departmentID string) (int, error)
}

// Directory resolves the users and departments a report is about.
type Directory interface {
	GetUser(ctx context.Context, id string) (users.User, error)
	GetDepartment(ctx context.Context, id string) (users.Department, error)
}

// Service builds attendance reports.
type Service struct {
	store Store
	dir   Directory
	now   func() time.Time
}

// NewService creates a service.
func NewService(store Store, dir Directory) *Service {
	return &Service{store: store, dir: dir, now: time.Now}
}

// AttendanceReport is the summary of an arbitrary filter.
type AttendanceReport struct {
	Summary
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// StudentReport is one student's overall and per-course attendance.
type StudentReport struct {
	StudentID   string          `json:"student_id"`
	Name        string          `json:"name"`
	Overall     Summary         `json:"overall"`
	Courses     []CourseSummary `json:"courses"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// DepartmentReport is the attendance of a department's students.
type DepartmentReport struct {
	Department   users.Department `json:"department"`
	StudentCount int              `json:"student_count"`
	Summary      Summary          `json:"summary"`
	TopCourses   []CourseSummary  `json:"top_courses"`
	From         *time.Time       `json:"from,omitempty"`
	To           *time.Time       `json:"to,omitempty"`
}

// Attendance aggregates the records matching f. Staff only.
func (s *Service) Attendance(ctx context.Context, actor auth.Actor, f Filter) (AttendanceReport, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin, auth.RoleLecturer, auth.RoleTutor); err != nil {
		return AttendanceReport{}, err
	}
	if err := checkRange(f.From, f.To); err != nil {
		return AttendanceReport{}, err
	}
	if f.DepartmentID != "" {
		if _, err := s.dir.GetDepartment(ctx, f.DepartmentID); err != nil {
			return AttendanceReport{}, err
		}
	}
	counts, err := s.store.CountByStatus(ctx, f)
	if err != nil {
		return AttendanceReport{}, err
	}
	return AttendanceReport{Summary: Summarize(counts), From: f.From, To: f.To}, nil
}

// Student reports one student's attendance. The student or staff may read it.
func (s *Service) Student(ctx context.Context, actor auth.Actor, studentID string) (StudentReport, error) {
	if err := auth.RequireSelfOr(actor, studentID, auth.RoleAdmin, auth.RoleLecturer, auth.RoleTutor); err != nil {
		return StudentReport{}, err
	}
	u, err := s.dir.GetUser(ctx, studentID)
	if err != nil {
		return StudentReport{}, store.NotFoundAs(err, "student not found")
	}
	if u.Role != auth.RoleStudent {
		return StudentReport{}, apperr.NotFound("student not found")
	}

	f := Filter{StudentIDs: []string{studentID}}
	var (
		overall []StatusCount
		courses []CourseCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		overall, err = s.store.CountByStatus(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		courses, err = s.store.CountByCourse(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return StudentReport{}, err
	}
	return StudentReport{
		StudentID:   u.ID,
		Name:        u.FullName(),
		Overall:     Summarize(overall),
		Courses:     ByCourse(courses),
		GeneratedAt: s.now().UTC(),
	}, nil
}

// Department reports the attendance of a department's students with its top courses. Staff only.
func (s *Service) Department(ctx context.Context, actor auth.Actor, departmentID string, from, to *time.Time) (DepartmentReport, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin, auth.RoleLecturer, auth.RoleTutor); err != nil {
		return DepartmentReport{}, err
	}
	if err := checkRange(from, to); err != nil {
		return DepartmentReport{}, err
	}
	dept, err := s.dir.GetDepartment(ctx, departmentID)
	if err != nil {
		return DepartmentReport{}, err
	}

	f := Filter{DepartmentID: dept.ID, From: from, To: to}
	var (
		students int
		overall  []StatusCount
		courses  []CourseCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		students, err = s.store.CountStudents(gctx, dept.ID)
		return err
	})
	g.Go(func() (err error) {
		overall, err = s.store.CountByStatus(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		courses, err = s.store.CountByCourse(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return DepartmentReport{}, err
	}
	return DepartmentReport{
		Department:   dept,
		StudentCount: students,
		Summary:      Summarize(overall),
		TopCourses:   RankCourses(ByCourse(courses), TopCourses),
		From:         from,
		To:           to,
	}, nil
}

func checkRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return apperr.Validation("from must not be after to", map[string]string{"from": "must not be after to"})
	}
	return nil
}
