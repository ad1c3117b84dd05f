// Package httpapi exposes the services over JSON/HTTP with gin.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attendtrack/internal/activity"
	"attendtrack/internal/attendance"
	"attendtrack/internal/auth"
	"attendtrack/internal/courses"
	"attendtrack/internal/faq"
	"attendtrack/internal/httpmiddleware"
	"attendtrack/internal/messaging"
	"attendtrack/internal/notify"
	"attendtrack/internal/report"
	"attendtrack/internal/schedule"
	"attendtrack/internal/support"
	"attendtrack/internal/users"
	"attendtrack/internal/validation"
)

// Services are the domain services behind the routes.
type Services struct {
	Users         *users.Service
	Courses       *courses.Service
	Schedule      *schedule.Service
	Attendance    *attendance.Service
	Reports       *report.Service
	Notifications *notify.Service
	Messages      *messaging.Service
	FAQs          *faq.Service
	Support       *support.Service
	Activity      *activity.Service
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Options configure the router's middleware.
type Options struct {
	Tokens      auth.Issuer
	CORSOrigins []string
	Limiter     httpmiddleware.Limiter
	Health      map[string]HealthChecker
}

type handler struct {
	Services
}

// NewRouter builds the gin engine serving /api, /healthz and /metrics.
func NewRouter(svc Services, opts Options) *gin.Engine {
	binding.Validator = validation.Gin{}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware(opts.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.Instrument())
	if opts.Limiter != nil {
		r.Use(httpmiddleware.RateLimit(opts.Limiter))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz(opts.Health))

	h := &handler{Services: svc}
	api := r.Group("/api")

	public := api.Group("/auth")
	public.POST("/register", h.register)
	public.POST("/login", h.login)
	public.POST("/refresh", h.refresh)
	public.POST("/logout", h.logout)

	authed := api.Group("", auth.Authenticate(opts.Tokens))

	authed.GET("/users/me", h.me)
	authed.PUT("/users/me", h.updateMe)
	authed.PUT("/users/me/password", h.changePassword)
	authed.GET("/users", h.listUsers)
	authed.POST("/users", h.createUser)
	authed.GET("/users/:id", h.getUser)
	authed.DELETE("/users/:id", h.deleteUser)
	authed.GET("/users/:id/courses", h.userCourses)

	authed.GET("/departments", h.listDepartments)
	authed.POST("/departments", h.createDepartment)
	authed.GET("/departments/:id", h.getDepartment)
	authed.PUT("/departments/:id", h.updateDepartment)
	authed.DELETE("/departments/:id", h.deleteDepartment)

	authed.GET("/courses", h.listCourses)
	authed.POST("/courses", h.createCourse)
	authed.GET("/courses/:id", h.getCourse)
	authed.PUT("/courses/:id", h.updateCourse)
	authed.DELETE("/courses/:id", h.deleteCourse)
	authed.GET("/courses/:id/members", h.listMembers)
	authed.POST("/courses/:id/members", h.addMember)
	authed.DELETE("/courses/:id/members/:userId", h.removeMember)

	authed.GET("/slots", h.listSlots)
	authed.POST("/slots", h.createSlot)
	authed.GET("/slots/conflicts", h.checkConflict)
	authed.GET("/slots/:id", h.getSlot)
	authed.PUT("/slots/:id", h.updateSlot)
	authed.DELETE("/slots/:id", h.deleteSlot)
	authed.GET("/students/:id/schedule", h.studentSchedule)

	authed.POST("/attendance/checkin", auth.Allow(auth.RoleStudent), h.checkIn)
	authed.POST("/attendance/:id/verify", auth.Allow(auth.RoleLecturer), h.verify)
	authed.GET("/attendance", h.listAttendance)
	authed.POST("/attendance", h.createAttendance)
	authed.GET("/attendance/:id", h.getAttendance)
	authed.PUT("/attendance/:id", h.updateAttendance)
	authed.DELETE("/attendance/:id", h.deleteAttendance)

	authed.GET("/reports/attendance", h.attendanceReport)
	authed.GET("/reports/students/:id", h.studentReport)
	authed.GET("/reports/departments/:id", h.departmentReport)

	authed.GET("/notifications", h.listNotifications)
	authed.POST("/notifications/:id/read", h.markRead)
	authed.POST("/notifications/absence-check/:studentId", h.absenceCheck)

	authed.GET("/messages", h.inbox)
	authed.POST("/messages", h.sendMessage)
	authed.GET("/messages/sent", h.sentMessages)
	authed.GET("/messages/thread/:userId", h.thread)
	authed.GET("/messages/:id", h.getMessage)

	authed.GET("/faqs", h.listFAQs)
	authed.POST("/faqs", h.createFAQ)
	authed.GET("/faqs/:id", h.getFAQ)
	authed.PUT("/faqs/:id", h.updateFAQ)
	authed.DELETE("/faqs/:id", h.deleteFAQ)

	authed.GET("/support", h.listTickets)
	authed.POST("/support", h.createTicket)
	authed.GET("/support/:id", h.getTicket)
	authed.DELETE("/support/:id", h.deleteTicket)
	authed.POST("/support/:id/resolve", h.resolveTicket)
	authed.PUT("/support/:id/status", h.setTicketStatus)

	authed.GET("/admin/activity", h.listActivity)
	authed.GET("/admin/activity/:id", h.getActivity)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       24 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func healthz(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{"status": "ok"}
		for name, check := range checks {
			ok := check.Healthy(c.Request.Context())
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	}
}
