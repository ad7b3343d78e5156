package http

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

type VenueForm struct {
	Name     string `form:"name" validate:"required"`
	Capacity int    `form:"capacity" validate:"required,gt=0"`
}

type CourseForm struct {
	Title       string `form:"title" validate:"required"`
	Code        string `form:"code" validate:"required"`
	Units       int    `form:"units" validate:"required,gt=0"`
	NumStudents int    `form:"num_students" validate:"required,gt=0"`
	Department  string `form:"department" validate:"required"`
	Level       string `form:"level" validate:"required"`
}

type PlanForm struct {
	Title       string `form:"title" validate:"required"`
	CourseSet   string `form:"course_set" validate:"required"`
	VenueSet    string `form:"venue_set" validate:"required"`
	StartDate   string `form:"start_date" validate:"required"`
	EndDate     string `form:"end_date" validate:"required"`
	Constraints string `form:"constraints"`
}

// DateRange parses and orders the plan dates. The backend expects RFC 3339
// timestamps, but the form posts plain dates.
func (f PlanForm) DateRange() (start, end time.Time, err error) {
	start, err = time.Parse(dateLayout, f.StartDate)
	if err != nil {
		return start, end, fmt.Errorf("start date: %w", err)
	}
	end, err = time.Parse(dateLayout, f.EndDate)
	if err != nil {
		return start, end, fmt.Errorf("end date: %w", err)
	}
	if start.After(end) {
		return start, end, fmt.Errorf("end date must be after start date")
	}
	return start, end, nil
}
