package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

// DefaultClass is the class label given to students created without one.
const DefaultClass = "A"

type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StudentID string    `json:"student_id"` // school-issued identifier; unique per course
	Email     string    `json:"email,omitempty"`
	Class     string    `json:"class"`
	CourseID  string    `json:"course_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name      string `json:"name" validate:"required,notblank"`
	StudentID string `json:"student_id" validate:"required,notblank"`
	Email     string `json:"email" validate:"omitempty,email"`
	Class     string `json:"class"`
	CourseID  string `json:"course_id" validate:"required"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Class = core.CleanString(ns.Class)
	ns.CourseID = core.CleanString(ns.CourseID)
	if ns.Class == "" {
		ns.Class = DefaultClass
	}
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// An empty Class keeps the current one.
type UpdateStudent struct {
	Name      string `json:"name" validate:"required,notblank"`
	StudentID string `json:"student_id" validate:"required,notblank"`
	Email     string `json:"email" validate:"omitempty,email"`
	Class     string `json:"class"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.StudentID = core.CleanString(us.StudentID)
	us.Email = core.CleanString(us.Email, true /* lower */)
	us.Class = core.CleanString(us.Class)
	return validate.Struct(us)
}

type QueryFilter struct {
	Class    string `query:"class"`
	CourseID string `query:"courseId"`
}

func (qf *QueryFilter) Clean() {
	qf.Class = core.CleanString(qf.Class)
	qf.CourseID = core.CleanString(qf.CourseID)
}

// DeleteResult reports the rows removed along with a Student.
type DeleteResult struct {
	Message            string `json:"message"`
	DeletedGrades      int    `json:"deleted_grades_count"`
	DeletedMemberships int    `json:"deleted_memberships_count"`
}
