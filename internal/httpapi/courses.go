package httpapi

import (
	"github.com/gin-gonic/gin"

	"attendtrack/internal/auth"
	"attendtrack/internal/courses"
	"attendtrack/internal/schedule"
	"attendtrack/internal/validation"
)

func (h *handler) listCourses(c *gin.Context) {
	list, err := h.Courses.List(c.Request.Context(), courses.Filter{
		DepartmentID: c.Query("department_id"),
		Search:       c.Query("search"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"courses": list})
}

func (h *handler) createCourse(c *gin.Context) {
	var in courses.Input
	if !bindJSON(c, &in) {
		return
	}
	course, err := h.Courses.Create(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, course)
}

func (h *handler) getCourse(c *gin.Context) {
	course, err := h.Courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, course)
}

func (h *handler) updateCourse(c *gin.Context) {
	var in courses.Input
	if !bindJSON(c, &in) {
		return
	}
	course, err := h.Courses.Update(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, course)
}

func (h *handler) deleteCourse(c *gin.Context) {
	if err := h.Courses.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) listMembers(c *gin.Context) {
	members, err := h.Courses.Members(c.Request.Context(), c.Param("id"), c.Query("role"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"members": members})
}

func (h *handler) addMember(c *gin.Context) {
	var in courses.MemberInput
	if !bindJSON(c, &in) {
		return
	}
	m, err := h.Courses.AddMember(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, m)
}

func (h *handler) removeMember(c *gin.Context) {
	if err := h.Courses.RemoveMember(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) userCourses(c *gin.Context) {
	list, err := h.Courses.ForUser(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"courses": list})
}

func (h *handler) listSlots(c *gin.Context) {
	f := schedule.Filter{LecturerID: c.Query("lecturer_id"), CourseID: c.Query("course_id")}
	if v := c.Query("day"); v != "" {
		day, err := schedule.ParseWeekday(v)
		if err != nil {
			fail(c, invalid("day", err))
			return
		}
		f.Day = day
	}
	slots, err := h.Schedule.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"slots": slots})
}

func (h *handler) createSlot(c *gin.Context) {
	var in schedule.Input
	if !bindJSON(c, &in) {
		return
	}
	slot, err := h.Schedule.Create(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, slot)
}

func (h *handler) getSlot(c *gin.Context) {
	slot, err := h.Schedule.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, slot)
}

func (h *handler) updateSlot(c *gin.Context) {
	var in schedule.Input
	if !bindJSON(c, &in) {
		return
	}
	slot, err := h.Schedule.Update(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, slot)
}

func (h *handler) deleteSlot(c *gin.Context) {
	if err := h.Schedule.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

type conflictQuery struct {
	LecturerID string `form:"lecturer_id" binding:"required"`
	Day        string `form:"day" binding:"required,weekday"`
	Start      string `form:"start_time" binding:"required,clock"`
	End        string `form:"end_time" binding:"required,clock"`
	ExcludeID  string `form:"exclude_id"`
}

func (h *handler) checkConflict(c *gin.Context) {
	var q conflictQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, validation.FromError(err))
		return
	}
	day, err := schedule.ParseWeekday(q.Day)
	if err != nil {
		fail(c, invalid("day", err))
		return
	}
	start, err := schedule.ParseClock(q.Start)
	if err != nil {
		fail(c, invalid("start_time", err))
		return
	}
	end, err := schedule.ParseClock(q.End)
	if err != nil {
		fail(c, invalid("end_time", err))
		return
	}
	conflict, err := h.Schedule.HasConflict(c.Request.Context(), q.LecturerID, day, start, end, q.ExcludeID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"conflict": conflict})
}

func (h *handler) studentSchedule(c *gin.Context) {
	slots, err := h.Schedule.StudentSchedule(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"slots": slots})
}
