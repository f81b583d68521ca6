package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rollbook/internal/attendance"
	"rollbook/internal/auth"
	"rollbook/internal/roster"
)

type studentPayload struct {
	roster.Student
	FullName             string  `json:"full_name"`
	TotalRecords         int     `json:"total_records"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

func (h *Handler) studentPayload(c *gin.Context, st roster.Student) studentPayload {
	total, pct, err := h.attendance.StudentStats(c.Request.Context(), st.ID)
	if err != nil {
		h.log.Warn().Err(err).Str("student", st.StudentID).Msg("student stats failed")
	}
	return studentPayload{
		Student:              st,
		FullName:             st.FullName(),
		TotalRecords:         total,
		AttendancePercentage: pct,
	}
}

// APIStudentList lists students with optional substring search on
// identifier, names and email.
func (h *Handler) APIStudentList(c *gin.Context) {
	students, err := h.roster.ListStudents(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	payload := make([]studentPayload, 0, len(students))
	for _, st := range students {
		payload = append(payload, h.studentPayload(c, st))
	}
	c.JSON(http.StatusOK, gin.H{"students": payload})
}

func (h *Handler) APIStudentDetail(c *gin.Context) {
	student, err := h.roster.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	if student == nil {
		h.apiError(c, roster.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, h.studentPayload(c, *student))
}

// APIStudentAttendance returns a student's records, optionally narrowed to
// one course.
func (h *Handler) APIStudentAttendance(c *gin.Context) {
	student, err := h.roster.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	if student == nil {
		h.apiError(c, roster.ErrNotFound)
		return
	}
	records, err := h.attendance.List(c.Request.Context(), attendance.Filter{
		StudentPK: student.ID,
		CoursePK:  c.Query("course"),
	})
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance_records": records})
}

func (h *Handler) APITutorList(c *gin.Context) {
	tutors, err := h.roster.ListTutors(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tutors": tutors})
}

func (h *Handler) APITutorDetail(c *gin.Context) {
	tutor, err := h.roster.GetTutor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	if tutor == nil {
		h.apiError(c, roster.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, tutor)
}

func (h *Handler) APITutorCourses(c *gin.Context) {
	tutor, err := h.roster.GetTutor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	if tutor == nil {
		h.apiError(c, roster.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": tutor.Courses})
}

type coursePayload struct {
	roster.Course
	StudentCount int `json:"student_count"`
	TotalRecords int `json:"total_records"`
}

func (h *Handler) coursePayload(c *gin.Context, course roster.Course) coursePayload {
	students, err := h.roster.StudentsInCourse(c.Request.Context(), course.ID)
	if err != nil {
		h.log.Warn().Err(err).Str("course", course.Code).Msg("course student count failed")
	}
	records, err := h.attendance.CourseRecordCount(c.Request.Context(), course.ID)
	if err != nil {
		h.log.Warn().Err(err).Str("course", course.Code).Msg("course record count failed")
	}
	return coursePayload{Course: course, StudentCount: len(students), TotalRecords: records}
}

// APICourseList lists courses with optional substring search on code and
// name.
func (h *Handler) APICourseList(c *gin.Context) {
	courses, err := h.roster.ListCourses(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	payload := make([]coursePayload, 0, len(courses))
	for _, course := range courses {
		payload = append(payload, h.coursePayload(c, course))
	}
	c.JSON(http.StatusOK, gin.H{"courses": payload})
}

func (h *Handler) APICourseDetail(c *gin.Context) {
	course, err := h.roster.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	if course == nil {
		h.apiError(c, roster.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, h.coursePayload(c, *course))
}

func (h *Handler) APICourseStudents(c *gin.Context) {
	course, err := h.roster.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	if course == nil {
		h.apiError(c, roster.ErrNotFound)
		return
	}
	students, err := h.roster.StudentsInCourse(c.Request.Context(), course.ID)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// APICourseAttendance returns a course's records, optionally narrowed by
// semester and week.
func (h *Handler) APICourseAttendance(c *gin.Context) {
	course, err := h.roster.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	if course == nil {
		h.apiError(c, roster.ErrNotFound)
		return
	}
	semester, _ := strconv.Atoi(c.Query("semester"))
	week, _ := strconv.Atoi(c.Query("week"))
	records, err := h.attendance.List(c.Request.Context(), attendance.Filter{
		CoursePK: course.ID,
		Semester: semester,
		Week:     week,
	})
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance_records": records})
}

// APIAttendanceList lists records filtered by student identifier, course
// code, semester, week and status.
func (h *Handler) APIAttendanceList(c *gin.Context) {
	semester, _ := strconv.Atoi(c.Query("semester"))
	week, _ := strconv.Atoi(c.Query("week"))
	records, err := h.attendance.List(c.Request.Context(), attendance.Filter{
		StudentIdentifier: c.Query("student_id"),
		CourseCode:        c.Query("course_code"),
		Semester:          semester,
		Week:              week,
		Status:            attendance.Status(c.Query("status")),
	})
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance_records": records})
}

func (h *Handler) APIAttendanceDetail(c *gin.Context) {
	record, err := h.attendance.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.apiError(c, err)
		return
	}
	if record == nil {
		h.apiError(c, attendance.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) APIAttendanceCreate(c *gin.Context) {
	var in attendance.RecordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := h.attendance.Create(c.Request.Context(), in)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *Handler) APIAttendanceUpdate(c *gin.Context) {
	var in attendance.RecordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := h.attendance.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) APIAttendanceDelete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.apiError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type bulkMarkRequest struct {
	CourseID string                 `json:"course" binding:"required"`
	Semester int                    `json:"semester" binding:"required"`
	Week     int                    `json:"week" binding:"required"`
	Entries  []attendance.MarkEntry `json:"entries" binding:"required"`
}

// APIBulkMark is the JSON flavor of the bulk marking form.
func (h *Handler) APIBulkMark(c *gin.Context) {
	var req bulkMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	marked, err := h.attendance.BulkMark(c.Request.Context(), req.CourseID, req.Semester, req.Week, req.Entries)
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// APIMyAttendance resolves the caller's own student record from the session
// identity.
func (h *Handler) APIMyAttendance(c *gin.Context) {
	user := auth.CurrentUser(c)
	student, err := h.roster.GetStudentByIdentifier(c.Request.Context(), studentIdentifier(user.Username))
	if err != nil {
		h.apiError(c, err)
		return
	}
	if student == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "student profile not found for this user"})
		return
	}
	records, err := h.attendance.List(c.Request.Context(), attendance.Filter{
		StudentPK: student.ID,
		CoursePK:  c.Query("course"),
	})
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"student":            h.studentPayload(c, *student),
		"attendance_records": records,
	})
}

// APIStats returns the aggregate counts and status breakdown.
func (h *Handler) APIStats(c *gin.Context) {
	stats, err := h.attendance.Stats(c.Request.Context())
	if err != nil {
		h.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
