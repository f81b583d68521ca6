package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rollbook/internal/attendance"
	"rollbook/internal/auth"
	"rollbook/internal/config"
	"rollbook/internal/roster"
	"rollbook/internal/store"
)

// Handler exposes the web and API surfaces over the domain services.
type Handler struct {
	roster     *roster.Service
	attendance *attendance.Service
	backend    *auth.Backend
	users      auth.UserRepository
	db         *store.DB
	redis      *store.Redis
	cfg        config.App
	log        zerolog.Logger
}

// New creates a handler.
func New(rosterSvc *roster.Service, attSvc *attendance.Service, backend *auth.Backend,
	users auth.UserRepository, db *store.DB, redis *store.Redis, cfg config.App, log zerolog.Logger) *Handler {
	return &Handler{
		roster:     rosterSvc,
		attendance: attSvc,
		backend:    backend,
		users:      users,
		db:         db,
		redis:      redis,
		cfg:        cfg,
		log:        log,
	}
}

// Register wires every route onto the engine. The session resolver runs
// before any gate so each request carries exactly one role.
func (h *Handler) Register(r *gin.Engine) {
	r.Use(auth.ResolveSession(h.users, h.cfg.JWTSigningKey, h.cfg.JWTIssuer))

	r.GET("/healthz", h.Healthz)

	// Web surface. Gates redirect browsers to the login page.
	r.GET("/", h.Index)
	r.GET("/login", h.LoginPage)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)

	web := r.Group("/", auth.RequireAuthenticated(auth.FailRedirect))
	{
		web.GET("/my-attendance", h.MyAttendancePage)

		elevated := web.Group("/", auth.RequireElevated(auth.FailRedirect))
		{
			elevated.GET("/mark-attendance", h.MarkAttendancePage)
			elevated.POST("/mark-attendance", h.MarkAttendance)

			elevated.GET("/attendance/", h.AttendanceListPage)
			elevated.GET("/attendance/add", h.AttendanceFormPage)
			elevated.POST("/attendance/add", h.AttendanceCreate)
			elevated.GET("/attendance/:id/edit", h.AttendanceFormPage)
			elevated.POST("/attendance/:id/edit", h.AttendanceUpdate)
		}

		web.GET("/students/", h.StudentListPage)
		web.GET("/tutors/", h.TutorListPage)

		admin := web.Group("/", auth.RequireAdmin(auth.FailRedirect))
		{
			admin.GET("/students/add", h.StudentFormPage)
			admin.POST("/students/add", h.StudentCreate)
			admin.GET("/students/:id/edit", h.StudentFormPage)
			admin.POST("/students/:id/edit", h.StudentUpdate)
			admin.GET("/students/:id/delete", h.StudentDeletePage)
			admin.POST("/students/:id/delete", h.StudentDelete)

			admin.GET("/tutors/add", h.TutorFormPage)
			admin.POST("/tutors/add", h.TutorCreate)
			admin.GET("/tutors/:id/edit", h.TutorFormPage)
			admin.POST("/tutors/:id/edit", h.TutorUpdate)
			admin.GET("/tutors/:id/delete", h.TutorDeletePage)
			admin.POST("/tutors/:id/delete", h.TutorDelete)

			admin.GET("/courses/", h.CourseListPage)
			admin.GET("/courses/add", h.CourseFormPage)
			admin.POST("/courses/add", h.CourseCreate)
			admin.GET("/courses/:id/edit", h.CourseFormPage)
			admin.POST("/courses/:id/edit", h.CourseUpdate)
			admin.GET("/courses/:id/delete", h.CourseDeletePage)
			admin.POST("/courses/:id/delete", h.CourseDelete)

			admin.GET("/attendance/:id/delete", h.AttendanceDeletePage)
			admin.POST("/attendance/:id/delete", h.AttendanceDelete)
		}
	}

	// API surface. Gates answer with proper status codes.
	api := r.Group("/api")
	{
		api.POST("/login", h.APILogin)

		authed := api.Group("/", auth.RequireAuthenticated(auth.FailJSON))
		{
			authed.GET("/students", h.APIStudentList)
			authed.GET("/students/:id", h.APIStudentDetail)
			authed.GET("/students/:id/attendance", h.APIStudentAttendance)

			authed.GET("/tutors", h.APITutorList)
			authed.GET("/tutors/:id", h.APITutorDetail)
			authed.GET("/tutors/:id/courses", h.APITutorCourses)

			authed.GET("/courses", h.APICourseList)
			authed.GET("/courses/:id", h.APICourseDetail)
			authed.GET("/courses/:id/students", h.APICourseStudents)
			authed.GET("/courses/:id/attendance", h.APICourseAttendance)

			authed.GET("/attendance", h.APIAttendanceList)
			authed.GET("/attendance/:id", h.APIAttendanceDetail)

			authed.GET("/my-attendance", h.APIMyAttendance)
			authed.GET("/stats", h.APIStats)

			elevated := authed.Group("/", auth.RequireElevated(auth.FailJSON))
			{
				elevated.POST("/attendance", h.APIAttendanceCreate)
				elevated.PUT("/attendance/:id", h.APIAttendanceUpdate)
				elevated.POST("/mark-attendance", h.APIBulkMark)
				elevated.DELETE("/attendance/:id", h.APIAttendanceDelete)
			}
		}
	}
}

// Healthz reports db and redis connectivity.
func (h *Handler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	dbHealthy := h.db.Healthy(ctx)
	redisHealthy := h.redis.Healthy(ctx)
	status := http.StatusOK
	if !dbHealthy || !redisHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "db": dbHealthy, "redis": redisHealthy})
}

// apiError maps domain errors onto API status codes per the error taxonomy:
// not-found 404, duplicates 409, validation 400, auth failures a generic
// 401, everything else 500.
func (h *Handler) apiError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, roster.ErrNotFound) || errors.Is(err, attendance.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, roster.ErrDuplicate) || errors.Is(err, attendance.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, roster.ErrInvalid) || errors.Is(err, attendance.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrAuthFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrAuthFailed.Error()})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
