package httpapi

import (
	"github.com/gin-gonic/gin"

	"attendtrack/internal/auth"
	"attendtrack/internal/users"
)

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *handler) register(c *gin.Context) {
	var in users.RegisterInput
	if !bindJSON(c, &in) {
		return
	}
	u, err := h.Users.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, u)
}

func (h *handler) login(c *gin.Context) {
	var in credentials
	if !bindJSON(c, &in) {
		return
	}
	session, err := h.Users.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, session)
}

func (h *handler) refresh(c *gin.Context) {
	var in refreshRequest
	if !bindJSON(c, &in) {
		return
	}
	session, err := h.Users.Refresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, session)
}

func (h *handler) logout(c *gin.Context) {
	var in refreshRequest
	if !bindJSON(c, &in) {
		return
	}
	if err := h.Users.Logout(c.Request.Context(), in.RefreshToken); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) me(c *gin.Context) {
	actor := auth.ActorFrom(c)
	u, err := h.Users.Get(c.Request.Context(), actor, actor.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, u)
}

func (h *handler) updateMe(c *gin.Context) {
	var in users.ProfileInput
	if !bindJSON(c, &in) {
		return
	}
	actor := auth.ActorFrom(c)
	u, err := h.Users.UpdateProfile(c.Request.Context(), actor, actor.UserID, in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, u)
}

func (h *handler) changePassword(c *gin.Context) {
	var in users.PasswordInput
	if !bindJSON(c, &in) {
		return
	}
	if err := h.Users.ChangePassword(c.Request.Context(), auth.ActorFrom(c), in); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) listUsers(c *gin.Context) {
	f := users.ListFilter{DepartmentID: c.Query("department_id"), Search: c.Query("search")}
	if v := c.Query("role"); v != "" {
		role, err := auth.ParseRole(v)
		if err != nil {
			fail(c, invalid("role", err))
			return
		}
		f.Role = role
	}
	list, err := h.Users.List(c.Request.Context(), auth.ActorFrom(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"users": list})
}

func (h *handler) createUser(c *gin.Context) {
	var in users.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	u, err := h.Users.Create(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, u)
}

func (h *handler) getUser(c *gin.Context) {
	u, err := h.Users.Get(c.Request.Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, u)
}

func (h *handler) deleteUser(c *gin.Context) {
	if err := h.Users.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}

func (h *handler) listDepartments(c *gin.Context) {
	list, err := h.Users.Departments(c.Request.Context(), c.Query("faculty"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"departments": list})
}

func (h *handler) createDepartment(c *gin.Context) {
	var in users.DepartmentInput
	if !bindJSON(c, &in) {
		return
	}
	d, err := h.Users.CreateDepartment(c.Request.Context(), auth.ActorFrom(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, d)
}

func (h *handler) getDepartment(c *gin.Context) {
	d, err := h.Users.Department(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, d)
}

func (h *handler) updateDepartment(c *gin.Context) {
	var in users.DepartmentInput
	if !bindJSON(c, &in) {
		return
	}
	d, err := h.Users.UpdateDepartment(c.Request.Context(), auth.ActorFrom(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, d)
}

func (h *handler) deleteDepartment(c *gin.Context) {
	if err := h.Users.DeleteDepartment(c.Request.Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	noContent(c)
}
