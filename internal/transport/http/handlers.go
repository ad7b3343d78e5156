package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/explanner/planner-client/internal/api"
	"github.com/explanner/planner-client/internal/auth/model"
	"github.com/explanner/planner-client/internal/auth/session"
	"github.com/explanner/planner-client/internal/auth/store"
)

// User-facing messages, kept in one place so the pages stay consistent.
const (
	msgBadLogin        = "Incorrect login details."
	msgSetsUnavailable = "Certain resources are not available at the moment. Please try again."
	msgPlanFailed      = "Certain resources are out of reach at the time. Please try again."
	msgPlanGenerated   = "The time table has been generated successfully!"
)

// Handler renders the planner pages and forwards form submissions to the
// backend. All backend failures surface as page messages, never as faults.
type Handler struct {
	api      *api.Client
	auth     *session.Controller
	store    *store.Store
	log      *zap.Logger
	validate *validator.Validate
}

func NewHandler(client *api.Client, auth *session.Controller, s *store.Store, log *zap.Logger) *Handler {
	return &Handler{
		api:      client,
		auth:     auth,
		store:    s,
		log:      log,
		validate: validator.New(),
	}
}

// identityFrom reads the identity the session guard injected for the
// request. Zero value on unguarded routes.
func identityFrom(c *gin.Context) model.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(model.Identity); ok {
			return id
		}
	}
	return model.Identity{}
}

func (h *Handler) HomePage(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", gin.H{
		"Authenticated": h.store.Authenticated(),
	})
}

// LoginPage renders the login form. An already-authenticated user is sent
// straight to the planning view.
func (h *Handler) LoginPage(c *gin.Context) {
	if h.store.Authenticated() {
		c.Redirect(http.StatusSeeOther, planPath)
		return
	}
	errMsg := ""
	if h.auth.LastError() != "" {
		errMsg = msgBadLogin
		h.auth.ClearError()
	}
	c.HTML(http.StatusOK, "login.html", gin.H{"Error": errMsg})
}

func (h *Handler) LoginSubmit(c *gin.Context) {
	var form LoginForm
	_ = c.ShouldBind(&form)

	fieldErrors := gin.H{}
	if err := h.validate.Struct(form); err != nil {
		if form.Username == "" {
			fieldErrors["Username"] = "Please fill in your username"
		}
		if form.Password == "" {
			fieldErrors["Password"] = "Please fill in your password"
		}
		c.HTML(http.StatusBadRequest, "login.html", gin.H{
			"FieldErrors": fieldErrors,
			"Username":    form.Username,
		})
		return
	}

	if err := h.auth.Login(c.Request.Context(), form.Username, form.Password); err != nil {
		h.auth.ClearError()
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"Error":    msgBadLogin,
			"Username": form.Username,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, planPath)
}

func (h *Handler) Logout(c *gin.Context) {
	h.auth.Logout()
	c.Redirect(http.StatusSeeOther, loginPath)
}

// PlanPage loads the course and venue sets side by side; the page needs both
// before the form is usable.
func (h *Handler) PlanPage(c *gin.Context) {
	courseSets, venueSets, err := h.loadSets(c)
	data := gin.H{"CourseSets": courseSets, "VenueSets": venueSets, "Identity": identityFrom(c)}
	if err != nil {
		h.log.Warn("failed to load plan resources", zap.Error(err))
		data["Error"] = msgSetsUnavailable
	}
	c.HTML(http.StatusOK, "plan.html", data)
}

func (h *Handler) PlanSubmit(c *gin.Context) {
	courseSets, venueSets, loadErr := h.loadSets(c)
	data := gin.H{"CourseSets": courseSets, "VenueSets": venueSets, "Identity": identityFrom(c)}

	var form PlanForm
	_ = c.ShouldBind(&form)
	data["Form"] = form

	if err := h.validate.Struct(form); err != nil {
		data["Error"] = planFieldMessage(form)
		c.HTML(http.StatusBadRequest, "plan.html", data)
		return
	}
	start, end, err := form.DateRange()
	if err != nil {
		data["Error"] = "End date must be after start date."
		c.HTML(http.StatusBadRequest, "plan.html", data)
		return
	}

	courseSet, okCourses := findCourseSet(courseSets, form.CourseSet)
	venueSet, okVenues := findVenueSet(venueSets, form.VenueSet)
	if loadErr != nil || !okCourses || !okVenues {
		data["Error"] = msgSetsUnavailable
		c.HTML(http.StatusBadRequest, "plan.html", data)
		return
	}

	plan, err := buildPlanRequest(form, courseSet, venueSet, start, end)
	if err != nil {
		h.log.Error("failed to encode plan request", zap.Error(err))
		data["Error"] = msgPlanFailed
		c.HTML(http.StatusInternalServerError, "plan.html", data)
		return
	}

	resp, err := h.api.ProcessTimeTable(c.Request.Context(), plan)
	if err != nil || len(resp.DataDict) == 0 {
		h.log.Warn("plan submission failed", zap.Error(err))
		data["Error"] = msgPlanFailed
		c.HTML(http.StatusBadGateway, "plan.html", data)
		return
	}

	data["Notification"] = msgPlanGenerated
	c.HTML(http.StatusOK, "plan.html", data)
}

func (h *Handler) VenuesPage(c *gin.Context) {
	venues, err := h.api.Venues(c.Request.Context())
	data := gin.H{"Venues": venues, "Identity": identityFrom(c)}
	if err != nil {
		h.log.Warn("failed to fetch venues", zap.Error(err))
		data["Error"] = msgSetsUnavailable
	}
	c.HTML(http.StatusOK, "venues.html", data)
}

func (h *Handler) VenueCreate(c *gin.Context) {
	var form VenueForm
	_ = c.ShouldBind(&form)

	if err := h.validate.Struct(form); err != nil {
		venues, _ := h.api.Venues(c.Request.Context())
		c.HTML(http.StatusBadRequest, "venues.html", gin.H{
			"Venues":   venues,
			"Identity": identityFrom(c),
			"Error":    "Please provide a venue name and a positive capacity.",
		})
		return
	}

	if _, err := h.api.CreateVenue(c.Request.Context(), api.Venue{Name: form.Name, Capacity: form.Capacity}); err != nil {
		h.log.Warn("failed to add venue", zap.Error(err))
		venues, _ := h.api.Venues(c.Request.Context())
		c.HTML(http.StatusBadGateway, "venues.html", gin.H{
			"Venues":   venues,
			"Identity": identityFrom(c),
			"Error":    msgPlanFailed,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, "/venues")
}

func (h *Handler) CoursesPage(c *gin.Context) {
	courses, departments, err := h.loadCourses(c)
	data := gin.H{"Courses": courses, "Departments": departments, "Identity": identityFrom(c)}
	if err != nil {
		h.log.Warn("failed to fetch courses", zap.Error(err))
		data["Error"] = msgSetsUnavailable
	}
	c.HTML(http.StatusOK, "courses.html", data)
}

func (h *Handler) CourseCreate(c *gin.Context) {
	var form CourseForm
	_ = c.ShouldBind(&form)

	if err := h.validate.Struct(form); err != nil {
		courses, departments, _ := h.loadCourses(c)
		c.HTML(http.StatusBadRequest, "courses.html", gin.H{
			"Courses":     courses,
			"Departments": departments,
			"Identity":    identityFrom(c),
			"Error":       "Please fill in all course fields.",
		})
		return
	}

	course := api.Course{
		Title:       form.Title,
		Code:        form.Code,
		Units:       form.Units,
		NumStudents: form.NumStudents,
		Department:  form.Department,
		Level:       form.Level,
	}
	if _, err := h.api.CreateCourse(c.Request.Context(), course); err != nil {
		h.log.Warn("failed to add course", zap.Error(err))
		courses, departments, _ := h.loadCourses(c)
		c.HTML(http.StatusBadGateway, "courses.html", gin.H{
			"Courses":     courses,
			"Departments": departments,
			"Identity":    identityFrom(c),
			"Error":       msgPlanFailed,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, "/courses")
}

// TimeTablePage lists generated timetables, filtered by the search box on
// title or set names.
func (h *Handler) TimeTablePage(c *gin.Context) {
	timetables, err := h.api.TimeTables(c.Request.Context())
	data := gin.H{"Query": c.Query("q"), "TimeTables": timetables, "Identity": identityFrom(c)}
	if err != nil {
		h.log.Warn("failed to fetch timetables", zap.Error(err))
		data["Error"] = "Failed to fetch time table data. Please try again later."
		c.HTML(http.StatusOK, "timetable.html", data)
		return
	}

	if q := strings.ToLower(c.Query("q")); q != "" {
		filtered := timetables[:0]
		for _, tt := range timetables {
			if strings.Contains(strings.ToLower(tt.Title), q) ||
				strings.Contains(strings.ToLower(tt.CourseSetName), q) ||
				strings.Contains(strings.ToLower(tt.VenueSetName), q) {
				filtered = append(filtered, tt)
			}
		}
		timetables = filtered
	}
	data["TimeTables"] = timetables
	c.HTML(http.StatusOK, "timetable.html", data)
}

func (h *Handler) loadSets(c *gin.Context) ([]api.CourseSet, []api.VenueSet, error) {
	var (
		courseSets []api.CourseSet
		venueSets  []api.VenueSet
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		courseSets, err = h.api.CourseSets(ctx)
		return err
	})
	g.Go(func() (err error) {
		venueSets, err = h.api.VenueSets(ctx)
		return err
	})
	return courseSets, venueSets, g.Wait()
}

func (h *Handler) loadCourses(c *gin.Context) ([]api.Course, []api.Department, error) {
	var (
		courses     []api.Course
		departments []api.Department
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		courses, err = h.api.Courses(ctx)
		return err
	})
	g.Go(func() (err error) {
		departments, err = h.api.Departments(ctx)
		return err
	})
	return courses, departments, g.Wait()
}

func findCourseSet(sets []api.CourseSet, name string) (api.CourseSet, bool) {
	for _, s := range sets {
		if s.Name == name {
			return s, true
		}
	}
	return api.CourseSet{}, false
}

func findVenueSet(sets []api.VenueSet, name string) (api.VenueSet, bool) {
	for _, s := range sets {
		if s.Name == name {
			return s, true
		}
	}
	return api.VenueSet{}, false
}

func planFieldMessage(form PlanForm) string {
	switch {
	case strings.TrimSpace(form.Title) == "":
		return "Please enter a time table title."
	case form.CourseSet == "":
		return "Please select a course set."
	case form.VenueSet == "":
		return "Please select a venue set."
	case form.StartDate == "":
		return "Please select a start date."
	case form.EndDate == "":
		return "Please select an end date."
	default:
		return "Please fill in all plan fields."
	}
}

func buildPlanRequest(form PlanForm, courseSet api.CourseSet, venueSet api.VenueSet, start, end time.Time) (api.PlanRequest, error) {
	venueDetails := make([]api.PlanVenueDetail, 0, len(venueSet.Venues))
	for _, v := range venueSet.Venues {
		venueDetails = append(venueDetails, api.PlanVenueDetail{Name: v.Name, Capacity: v.Capacity})
	}
	courseDetails := make([]api.PlanCourseDetail, 0, len(courseSet.Courses))
	for _, crs := range courseSet.Courses {
		courseDetails = append(courseDetails, api.PlanCourseDetail{
			Code:           crs.Code,
			NumStudents:    crs.NumStudents,
			Units:          crs.Units,
			DepartmentName: crs.DepartmentName,
			Level:          crs.Level,
		})
	}

	encodedVenues, err := json.Marshal(venueDetails)
	if err != nil {
		return api.PlanRequest{}, err
	}
	encodedCourses, err := json.Marshal(courseDetails)
	if err != nil {
		return api.PlanRequest{}, err
	}

	return api.PlanRequest{
		Title:         form.Title,
		VenueDetails:  string(encodedVenues),
		CourseDetails: string(encodedCourses),
		StartDate:     start.Format(time.RFC3339),
		EndDate:       end.Format(time.RFC3339),
		Constraints:   form.Constraints,
		CourseSetName: courseSet.Name,
		VenueSetName:  venueSet.Name,
	}, nil
}
