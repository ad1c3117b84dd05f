package httpapi

import (
	"github.com/gin-gonic/gin"

	"attendtrack/internal/auth"
	"attendtrack/internal/faq"
	"attendtrack/internal/support"
	"attendtrack/internal/validation"
)

func (h *handler) listFAQs(c *gin.Context) {
	list, err := h.FAQs.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"faqs": list})
}

func (h *handler) createFAQ(c *gin.Context) {
	var in faq.Input
	if !bindJSON(c, &in) {
		return
	}
	f, err := h.FAQs.Create(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, f)
}

func (h *handler) getFAQ(c *gin.Context) {
	f, err := h.FAQs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, f)
}

func (h *handler) updateFAQ(c *gin.Context) {
	var in faq.Input
	if !bindJSON(c, &in) {
		return
	}
	f, err := h.FAQs.Update(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, f)
}

func (h *handler) deleteFAQ(c *gin.Context) {
	if err := h.FAQs.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) listTickets(c *gin.Context) {
	var in support.ListInput
	if err := c.ShouldBindQuery(&in); err != nil {
		fail(c, validation.FromError(err))
		return
	}
	list, err := h.Support.List(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"tickets": list})
}

func (h *handler) createTicket(c *gin.Context) {
	var in support.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.Support.Create(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, t)
}

func (h *handler) getTicket(c *gin.Context) {
	t, err := h.Support.Get(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, t)
}

func (h *handler) deleteTicket(c *gin.Context) {
	if err := h.Support.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) resolveTicket(c *gin.Context) {
	var in support.ResolveInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.Support.Resolve(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, t)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *handler) setTicketStatus(c *gin.Context) {
	var in statusRequest
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.Support.SetStatus(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in.Status)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, t)
}
