package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"rollbook/internal/attendance"
	"rollbook/internal/auth"
	"rollbook/internal/roster"
)

// render merges the resolved role and user into every template context.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Role"] = auth.CurrentRole(c)
	if user := auth.CurrentUser(c); user != nil {
		data["Username"] = user.Username
	}
	c.HTML(status, name, data)
}

func (h *Handler) webError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, roster.ErrNotFound) || errors.Is(err, attendance.ErrNotFound):
		h.render(c, http.StatusNotFound, "error.html", gin.H{"Message": "not found"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("page error")
		h.render(c, http.StatusInternalServerError, "error.html", gin.H{"Message": "something went wrong"})
	}
}

// Index renders the landing page.
func (h *Handler) Index(c *gin.Context) {
	h.render(c, http.StatusOK, "index.html", gin.H{})
}

// studentIdentifier recovers the roster identifier from the synthesized
// platform username.
func studentIdentifier(username string) string {
	return strings.TrimPrefix(username, "student_")
}

// MyAttendancePage shows the logged-in student's records, filtered by an
// optional course selection.
func (h *Handler) MyAttendancePage(c *gin.Context) {
	user := auth.CurrentUser(c)
	courses, err := h.roster.ListCourses(c.Request.Context(), "")
	if err != nil {
		h.webError(c, err)
		return
	}

	data := gin.H{"Courses": courses}
	if courseID := c.Query("course"); courseID != "" {
		course, err := h.roster.GetCourse(c.Request.Context(), courseID)
		if err != nil {
			h.webError(c, err)
			return
		}
		if course == nil {
			h.webError(c, roster.ErrNotFound)
			return
		}
		records, err := h.attendance.List(c.Request.Context(), attendance.Filter{
			StudentIdentifier: studentIdentifier(user.Username),
			CoursePK:          course.ID,
		})
		if err != nil {
			h.webError(c, err)
			return
		}
		data["SelectedCourse"] = course
		data["Records"] = records
	}
	h.render(c, http.StatusOK, "my_attendance.html", data)
}

// MarkAttendancePage renders the bulk marking form: once a course, semester
// and week are chosen it lists every enrolled student with any existing
// record preselected.
func (h *Handler) MarkAttendancePage(c *gin.Context) {
	courses, err := h.roster.ListCourses(c.Request.Context(), "")
	if err != nil {
		h.webError(c, err)
		return
	}
	weeks := make([]int, 18)
	for i := range weeks {
		weeks[i] = i + 1
	}
	data := gin.H{"Courses": courses, "Weeks": weeks, "Semesters": []int{1, 2}}

	courseID := c.Query("course")
	semester, _ := strconv.Atoi(c.Query("semester"))
	week, _ := strconv.Atoi(c.Query("week"))
	if courseID != "" && semester != 0 && week != 0 {
		course, err := h.roster.GetCourse(c.Request.Context(), courseID)
		if err != nil {
			h.webError(c, err)
			return
		}
		if course == nil {
			h.webError(c, roster.ErrNotFound)
			return
		}
		students, err := h.roster.StudentsInCourse(c.Request.Context(), courseID)
		if err != nil {
			h.webError(c, err)
			return
		}
		records, err := h.attendance.List(c.Request.Context(), attendance.Filter{
			CoursePK: courseID,
			Semester: semester,
			Week:     week,
		})
		if err != nil {
			h.webError(c, err)
			return
		}
		existing := make(map[string]attendance.Record, len(records))
		for _, rec := range records {
			existing[rec.StudentID] = rec
		}
		data["SelectedCourse"] = course
		data["SelectedSemester"] = semester
		data["SelectedWeek"] = week
		data["Students"] = students
		data["Existing"] = existing
	}
	h.render(c, http.StatusOK, "mark_attendance.html", data)
}

// MarkAttendance performs the bulk upsert from the marking form. Students
// whose status field was left empty are skipped.
func (h *Handler) MarkAttendance(c *gin.Context) {
	courseID := c.PostForm("course")
	semester, _ := strconv.Atoi(c.PostForm("semester"))
	week, _ := strconv.Atoi(c.PostForm("week"))
	if courseID == "" || semester == 0 || week == 0 {
		h.render(c, http.StatusBadRequest, "error.html", gin.H{"Message": "course, semester and week are required"})
		return
	}

	students, err := h.roster.StudentsInCourse(c.Request.Context(), courseID)
	if err != nil {
		h.webError(c, err)
		return
	}
	entries := make([]attendance.MarkEntry, 0, len(students))
	for _, st := range students {
		status := c.PostForm("status_" + st.ID)
		if status == "" {
			continue
		}
		entries = append(entries, attendance.MarkEntry{
			StudentID: st.ID,
			Status:    attendance.Status(status),
			Notes:     c.PostForm("notes_" + st.ID),
		})
	}

	if _, err := h.attendance.BulkMark(c.Request.Context(), courseID, semester, week, entries); err != nil {
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound,
		"/mark-attendance?course="+courseID+"&semester="+strconv.Itoa(semester)+"&week="+strconv.Itoa(week))
}

// ---------- Students ----------

func (h *Handler) StudentListPage(c *gin.Context) {
	students, err := h.roster.ListStudents(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.webError(c, err)
		return
	}
	h.render(c, http.StatusOK, "student_list.html", gin.H{"Students": students, "Search": c.Query("search")})
}

func (h *Handler) StudentFormPage(c *gin.Context) {
	courses, err := h.roster.ListCourses(c.Request.Context(), "")
	if err != nil {
		h.webError(c, err)
		return
	}
	data := gin.H{"Courses": courses, "Enrolled": map[string]bool{}}
	if id := c.Param("id"); id != "" {
		student, err := h.roster.GetStudent(c.Request.Context(), id)
		if err != nil {
			h.webError(c, err)
			return
		}
		if student == nil {
			h.webError(c, roster.ErrNotFound)
			return
		}
		data["Student"] = student
		data["Enrolled"] = courseIDSet(student.Courses)
	}
	h.render(c, http.StatusOK, "student_form.html", data)
}

func courseIDSet(courses []roster.Course) map[string]bool {
	set := make(map[string]bool, len(courses))
	for _, course := range courses {
		set[course.ID] = true
	}
	return set
}

func (h *Handler) StudentCreate(c *gin.Context) {
	var in roster.StudentInput
	if err := c.ShouldBind(&in); err != nil {
		h.studentFormError(c, nil, err.Error())
		return
	}
	if _, err := h.roster.CreateStudent(c.Request.Context(), in); err != nil {
		if errors.Is(err, roster.ErrDuplicate) || errors.Is(err, roster.ErrInvalid) {
			h.studentFormError(c, nil, err.Error())
			return
		}
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/students/")
}

func (h *Handler) studentFormError(c *gin.Context, student *roster.Student, msg string) {
	courses, _ := h.roster.ListCourses(c.Request.Context(), "")
	data := gin.H{"Courses": courses, "Error": msg, "Enrolled": map[string]bool{}}
	if student != nil {
		data["Student"] = student
		data["Enrolled"] = courseIDSet(student.Courses)
	}
	h.render(c, http.StatusBadRequest, "student_form.html", data)
}

func (h *Handler) StudentUpdate(c *gin.Context) {
	var in roster.StudentInput
	if err := c.ShouldBind(&in); err != nil {
		h.studentFormError(c, nil, err.Error())
		return
	}
	if _, err := h.roster.UpdateStudent(c.Request.Context(), c.Param("id"), in); err != nil {
		if errors.Is(err, roster.ErrDuplicate) || errors.Is(err, roster.ErrInvalid) {
			h.studentFormError(c, nil, err.Error())
			return
		}
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/students/")
}

func (h *Handler) StudentDeletePage(c *gin.Context) {
	student, err := h.roster.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.webError(c, err)
		return
	}
	if student == nil {
		h.webError(c, roster.ErrNotFound)
		return
	}
	h.render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"Name":   student.FullName() + " (" + student.StudentID + ")",
		"Action": "/students/" + student.ID + "/delete",
		"Back":   "/students/",
	})
}

func (h *Handler) StudentDelete(c *gin.Context) {
	if err := h.roster.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/students/")
}

// ---------- Tutors ----------

func (h *Handler) TutorListPage(c *gin.Context) {
	tutors, err := h.roster.ListTutors(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.webError(c, err)
		return
	}
	h.render(c, http.StatusOK, "tutor_list.html", gin.H{"Tutors": tutors, "Search": c.Query("search")})
}

func (h *Handler) TutorFormPage(c *gin.Context) {
	courses, err := h.roster.ListCourses(c.Request.Context(), "")
	if err != nil {
		h.webError(c, err)
		return
	}
	data := gin.H{"Courses": courses, "Enrolled": map[string]bool{}}
	if id := c.Param("id"); id != "" {
		tutor, err := h.roster.GetTutor(c.Request.Context(), id)
		if err != nil {
			h.webError(c, err)
			return
		}
		if tutor == nil {
			h.webError(c, roster.ErrNotFound)
			return
		}
		data["Tutor"] = tutor
		data["Enrolled"] = courseIDSet(tutor.Courses)
	}
	h.render(c, http.StatusOK, "tutor_form.html", data)
}

func (h *Handler) TutorCreate(c *gin.Context) {
	var in roster.TutorInput
	if err := c.ShouldBind(&in); err != nil {
		h.tutorFormError(c, err.Error())
		return
	}
	if _, err := h.roster.CreateTutor(c.Request.Context(), in); err != nil {
		if errors.Is(err, roster.ErrDuplicate) || errors.Is(err, roster.ErrInvalid) {
			h.tutorFormError(c, err.Error())
			return
		}
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/tutors/")
}

func (h *Handler) tutorFormError(c *gin.Context, msg string) {
	courses, _ := h.roster.ListCourses(c.Request.Context(), "")
	h.render(c, http.StatusBadRequest, "tutor_form.html", gin.H{
		"Courses": courses, "Error": msg, "Enrolled": map[string]bool{},
	})
}

func (h *Handler) TutorUpdate(c *gin.Context) {
	var in roster.TutorInput
	if err := c.ShouldBind(&in); err != nil {
		h.tutorFormError(c, err.Error())
		return
	}
	if _, err := h.roster.UpdateTutor(c.Request.Context(), c.Param("id"), in); err != nil {
		if errors.Is(err, roster.ErrDuplicate) || errors.Is(err, roster.ErrInvalid) {
			h.tutorFormError(c, err.Error())
			return
		}
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/tutors/")
}

func (h *Handler) TutorDeletePage(c *gin.Context) {
	tutor, err := h.roster.GetTutor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.webError(c, err)
		return
	}
	if tutor == nil {
		h.webError(c, roster.ErrNotFound)
		return
	}
	h.render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"Name":   tutor.FullName() + " (" + tutor.TutorID + ")",
		"Action": "/tutors/" + tutor.ID + "/delete",
		"Back":   "/tutors/",
	})
}

func (h *Handler) TutorDelete(c *gin.Context) {
	if err := h.roster.DeleteTutor(c.Request.Context(), c.Param("id")); err != nil {
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/tutors/")
}

// ---------- Courses ----------

func (h *Handler) CourseListPage(c *gin.Context) {
	courses, err := h.roster.ListCourses(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.webError(c, err)
		return
	}
	h.render(c, http.StatusOK, "course_list.html", gin.H{"Courses": courses, "Search": c.Query("search")})
}

func (h *Handler) CourseFormPage(c *gin.Context) {
	data := gin.H{}
	if id := c.Param("id"); id != "" {
		course, err := h.roster.GetCourse(c.Request.Context(), id)
		if err != nil {
			h.webError(c, err)
			return
		}
		if course == nil {
			h.webError(c, roster.ErrNotFound)
			return
		}
		data["Course"] = course
	}
	h.render(c, http.StatusOK, "course_form.html", data)
}

func (h *Handler) CourseCreate(c *gin.Context) {
	var in roster.CourseInput
	if err := c.ShouldBind(&in); err != nil {
		h.render(c, http.StatusBadRequest, "course_form.html", gin.H{"Error": err.Error()})
		return
	}
	if _, err := h.roster.CreateCourse(c.Request.Context(), in); err != nil {
		if errors.Is(err, roster.ErrDuplicate) {
			h.render(c, http.StatusBadRequest, "course_form.html", gin.H{"Error": err.Error()})
			return
		}
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/courses/")
}

func (h *Handler) CourseUpdate(c *gin.Context) {
	var in roster.CourseInput
	if err := c.ShouldBind(&in); err != nil {
		h.render(c, http.StatusBadRequest, "course_form.html", gin.H{"Error": err.Error()})
		return
	}
	if _, err := h.roster.UpdateCourse(c.Request.Context(), c.Param("id"), in); err != nil {
		if errors.Is(err, roster.ErrDuplicate) {
			h.render(c, http.StatusBadRequest, "course_form.html", gin.H{"Error": err.Error()})
			return
		}
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/courses/")
}

func (h *Handler) CourseDeletePage(c *gin.Context) {
	course, err := h.roster.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.webError(c, err)
		return
	}
	if course == nil {
		h.webError(c, roster.ErrNotFound)
		return
	}
	h.render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"Name":   course.Code + " - " + course.Name,
		"Action": "/courses/" + course.ID + "/delete",
		"Back":   "/courses/",
	})
}

func (h *Handler) CourseDelete(c *gin.Context) {
	if err := h.roster.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/courses/")
}

// ---------- Attendance records ----------

func (h *Handler) AttendanceListPage(c *gin.Context) {
	semester, _ := strconv.Atoi(c.Query("semester"))
	week, _ := strconv.Atoi(c.Query("week"))
	records, err := h.attendance.List(c.Request.Context(), attendance.Filter{
		StudentIdentifier: c.Query("student"),
		CourseCode:        c.Query("course"),
		Semester:          semester,
		Week:              week,
		Status:            attendance.Status(c.Query("status")),
	})
	if err != nil {
		h.webError(c, err)
		return
	}
	h.render(c, http.StatusOK, "attendance_list.html", gin.H{"Records": records})
}

func (h *Handler) attendanceFormData(c *gin.Context) (gin.H, error) {
	students, err := h.roster.ListStudents(c.Request.Context(), "")
	if err != nil {
		return nil, err
	}
	courses, err := h.roster.ListCourses(c.Request.Context(), "")
	if err != nil {
		return nil, err
	}
	weeks := make([]int, 18)
	for i := range weeks {
		weeks[i] = i + 1
	}
	return gin.H{
		"Students":  students,
		"Courses":   courses,
		"Weeks":     weeks,
		"Semesters": []int{1, 2},
		"Statuses":  []attendance.Status{attendance.StatusPresent, attendance.StatusAbsent, attendance.StatusLate},
	}, nil
}

func (h *Handler) AttendanceFormPage(c *gin.Context) {
	data, err := h.attendanceFormData(c)
	if err != nil {
		h.webError(c, err)
		return
	}
	if id := c.Param("id"); id != "" {
		record, err := h.attendance.Get(c.Request.Context(), id)
		if err != nil {
			h.webError(c, err)
			return
		}
		if record == nil {
			h.webError(c, attendance.ErrNotFound)
			return
		}
		data["Record"] = record
	}
	h.render(c, http.StatusOK, "attendance_form.html", data)
}

func (h *Handler) AttendanceCreate(c *gin.Context) {
	var in attendance.RecordInput
	if err := c.ShouldBind(&in); err != nil {
		h.attendanceFormError(c, err.Error())
		return
	}
	if _, err := h.attendance.Create(c.Request.Context(), in); err != nil {
		if errors.Is(err, attendance.ErrDuplicate) || errors.Is(err, attendance.ErrInvalid) {
			h.attendanceFormError(c, err.Error())
			return
		}
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/attendance/")
}

func (h *Handler) attendanceFormError(c *gin.Context, msg string) {
	data, err := h.attendanceFormData(c)
	if err != nil {
		h.webError(c, err)
		return
	}
	data["Error"] = msg
	h.render(c, http.StatusBadRequest, "attendance_form.html", data)
}

func (h *Handler) AttendanceUpdate(c *gin.Context) {
	var in attendance.RecordInput
	if err := c.ShouldBind(&in); err != nil {
		h.attendanceFormError(c, err.Error())
		return
	}
	if _, err := h.attendance.Update(c.Request.Context(), c.Param("id"), in); err != nil {
		if errors.Is(err, attendance.ErrDuplicate) || errors.Is(err, attendance.ErrInvalid) {
			h.attendanceFormError(c, err.Error())
			return
		}
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/attendance/")
}

func (h *Handler) AttendanceDeletePage(c *gin.Context) {
	record, err := h.attendance.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.webError(c, err)
		return
	}
	if record == nil {
		h.webError(c, attendance.ErrNotFound)
		return
	}
	h.render(c, http.StatusOK, "confirm_delete.html", gin.H{
		"Name": record.StudentName + " / " + record.CourseCode +
			" sem " + strconv.Itoa(record.Semester) + " week " + strconv.Itoa(record.Week),
		"Action": "/attendance/" + record.ID + "/delete",
		"Back":   "/attendance/",
	})
}

func (h *Handler) AttendanceDelete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.webError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/attendance/")
}
