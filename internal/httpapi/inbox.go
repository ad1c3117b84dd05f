package httpapi

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/auth"
	"attendtrack/internal/messaging"
)

func (h *handler) listNotifications(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		fail(c, err)
		return
	}
	unread, err := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	if err != nil {
		fail(c, invalid("unread", err))
		return
	}
	list, err := h.Notifications.List(c.Request.Context(), auth.ActorFrom(c), unread, limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"notifications": list})
}

func (h *handler) markRead(c *gin.Context) {
	n, err := h.Notifications.MarkRead(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, n)
}

func (h *handler) absenceCheck(c *gin.Context) {
	rep, err := h.Notifications.RequestCheck(c.Request.Context(), auth.ActorFrom(c), c.Param("studentId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rep)
}

func (h *handler) inbox(c *gin.Context) {
	list, err := h.Messages.Inbox(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"messages": list})
}

func (h *handler) sentMessages(c *gin.Context) {
	list, err := h.Messages.Sent(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"messages": list})
}

func (h *handler) sendMessage(c *gin.Context) {
	var in messaging.SendInput
	if !bindJSON(c, &in) {
		return
	}
	m, err := h.Messages.Send(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, m)
}

func (h *handler) thread(c *gin.Context) {
	list, err := h.Messages.Thread(c.Request.Context(), auth.ActorFrom(c), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"messages": list})
}

func (h *handler) getMessage(c *gin.Context) {
	m, err := h.Messages.Get(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, m)
}
