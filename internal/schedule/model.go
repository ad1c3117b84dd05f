package schedule

import "time"

// Slot is a recurring weekly class taught by one lecturer.
type Slot struct {
	ID         string    `json:"id"`
	LecturerID string    `json:"lecturer_id"`
	CourseID   string    `json:"course_id"`
	CourseCode string    `json:"course_code,omitempty"`
	CourseName string    `json:"course_name,omitempty"`
	Classroom  string    `json:"classroom"`
	Day        Weekday   `json:"day_of_week"`
	Start      Clock     `json:"start_time"`
	End        Clock     `json:"end_time"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Filter narrows slot listings.
type Filter struct {
	LecturerID string
	CourseID   string
	Day        Weekday
}
