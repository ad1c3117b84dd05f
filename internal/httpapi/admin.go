package httpapi

import (
	"github.com/gin-gonic/gin"

	"attendtrack/internal/activity"
	"attendtrack/internal/auth"
)

func (h *handler) listActivity(c *gin.Context) {
	from, to, err := queryRange(c)
	if err != nil {
		fail(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		fail(c, err)
		return
	}
	list, err := h.Activity.List(c.Request.Context(), auth.ActorFrom(c), activity.Filter{
		AdminID: c.Query("admin_id"),
		Action:  activity.Action(c.Query("action")),
		From:    from,
		To:      to,
		Limit:   limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"activity": list})
}

func (h *handler) getActivity(c *gin.Context) {
	e, err := h.Activity.Get(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, e)
}
