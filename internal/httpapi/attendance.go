package httpapi

import (
	"github.com/gin-gonic/gin"

	"attendtrack/internal/attendance"
	"attendtrack/internal/auth"
	"attendtrack/internal/report"
)

func (h *handler) checkIn(c *gin.Context) {
	var in attendance.CheckInInput
	if !bindJSON(c, &in) {
		return
	}
	rec, err := h.Attendance.CheckIn(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, rec)
}

func (h *handler) verify(c *gin.Context) {
	rec, err := h.Attendance.Verify(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rec)
}

func (h *handler) listAttendance(c *gin.Context) {
	f := attendance.Filter{StudentID: c.Query("student_id"), SlotID: c.Query("slot_id")}
	if v := c.Query("status"); v != "" {
		st, err := attendance.ParseStatus(v)
		if err != nil {
			fail(c, invalid("status", err))
			return
		}
		f.Status = st
	}
	var err error
	if f.From, f.To, err = queryRange(c); err != nil {
		fail(c, err)
		return
	}
	if f.Limit, err = queryInt(c, "limit", 0); err != nil {
		fail(c, err)
		return
	}
	if f.Offset, err = queryInt(c, "offset", 0); err != nil {
		fail(c, err)
		return
	}
	records, err := h.Attendance.List(c.Request.Context(), auth.ActorFrom(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"records": records})
}

func (h *handler) createAttendance(c *gin.Context) {
	var in attendance.RecordInput
	if !bindJSON(c, &in) {
		return
	}
	rec, err := h.Attendance.Create(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, rec)
}

func (h *handler) getAttendance(c *gin.Context) {
	rec, err := h.Attendance.Get(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rec)
}

func (h *handler) updateAttendance(c *gin.Context) {
	var in attendance.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	rec, err := h.Attendance.Update(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rec)
}

func (h *handler) deleteAttendance(c *gin.Context) {
	if err := h.Attendance.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) attendanceReport(c *gin.Context) {
	f := report.Filter{
		StudentIDs:   queryList(c, "student_ids"),
		SlotIDs:      queryList(c, "slot_ids"),
		Course:       c.Query("course"),
		DepartmentID: c.Query("department_id"),
	}
	var err error
	if f.From, f.To, err = queryRange(c); err != nil {
		fail(c, err)
		return
	}
	rep, err := h.Reports.Attendance(c.Request.Context(), auth.ActorFrom(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rep)
}

func (h *handler) studentReport(c *gin.Context) {
	rep, err := h.Reports.Student(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rep)
}

func (h *handler) departmentReport(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		fail(c, err)
		return
	}
	rep, err := h.Reports.Department(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), from, to)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rep)
}
