package gradeitem

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

// defaults
const (
	DefaultWeight   = 1.0
	DefaultMaxScore = 100.0
)

type GradeItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CourseID   string    `json:"course_id"`
	CourseName string    `json:"course_name,omitempty"`
	Weight     float64   `json:"weight"`
	MaxScore   float64   `json:"max_score"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// NewGradeItem contains information needed to create a new GradeItem.
// Weight & MaxScore are pointers so an explicit 0 weight can be told apart from a missing one.
type NewGradeItem struct {
	Name     string   `json:"name" validate:"required,notblank,max=200"`
	CourseID string   `json:"course_id" validate:"required"`
	Weight   *float64 `json:"weight" validate:"omitempty,min=0,max=1"`
	MaxScore *float64 `json:"max_score" validate:"omitempty,gt=0"`
}

func (ni *NewGradeItem) Validate(validate *validator.Validate) error {
	ni.Name = core.CleanString(ni.Name)
	ni.CourseID = core.CleanString(ni.CourseID)
	if ni.Weight == nil {
		w := DefaultWeight
		ni.Weight = &w
	}
	if ni.MaxScore == nil {
		m := DefaultMaxScore
		ni.MaxScore = &m
	}
	return validate.Struct(ni)
}

// DeleteResult reports the grades removed along with a GradeItem.
type DeleteResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	DeletedGrades int    `json:"deleted_grades_count"`
	CourseName    string `json:"course_name"`
}
