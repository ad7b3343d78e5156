package api

import "github.com/explanner/planner-client/internal/auth/model"

// Credentials is the body posted to the token-issuance endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair is re-exported so callers of the client do not need to import
// the auth model for the wire type.
type TokenPair = model.TokenPair

type Department struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Course struct {
	ID             int    `json:"id,omitempty"`
	Title          string `json:"title"`
	Code           string `json:"code"`
	Units          int    `json:"units"`
	NumStudents    int    `json:"num_students"`
	Department     string `json:"department"`
	DepartmentName string `json:"department_name,omitempty"`
	Level          string `json:"level"`
}

type Venue struct {
	ID       int    `json:"id,omitempty"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type CourseSet struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Courses []Course `json:"courses"`
}

type VenueSet struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Venues []Venue `json:"venues"`
}

// TimeTable is one generated exam timetable as listed by the backend.
type TimeTable struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	CourseSetName string `json:"course_set_name"`
	VenueSetName  string `json:"venue_set_name"`
	StartDate     string `json:"start_date,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	File          string `json:"file,omitempty"`
}

// PlanRequest is the plan submission. venueDetails and courseDetails are
// JSON documents encoded as strings, which is how the backend expects them.
type PlanRequest struct {
	Title         string `json:"title"`
	VenueDetails  string `json:"venueDetails"`
	CourseDetails string `json:"courseDetails"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Constraints   string `json:"constraints"`
	CourseSetName string `json:"course_set_name"`
	VenueSetName  string `json:"venue_set_name"`
}

// PlanResponse carries the generated allocation keyed by exam slot. The
// client treats the contents as opaque; a non-empty DataDict means the
// backend produced a timetable.
type PlanResponse struct {
	DataDict map[string]any `json:"data_dict"`
}

// PlanVenueDetail and PlanCourseDetail are the entries serialized into
// PlanRequest.VenueDetails / CourseDetails.
type PlanVenueDetail struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

type PlanCourseDetail struct {
	Code           string `json:"code"`
	NumStudents    int    `json:"num_students"`
	Units          int    `json:"units"`
	DepartmentName string `json:"department_name"`
	Level          string `json:"level"`
}
