package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
)

type Course struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Code           string    `json:"code,omitempty"`
	Description    string    `json:"description,omitempty"`
	StudentCount   int       `json:"student_count"`
	GroupCount     int       `json:"group_count"`
	GradeItemCount int       `json:"grade_item_count"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name        string `json:"name" validate:"required,notblank,max=200"`
	Code        string `json:"code" validate:"max=50"`
	Description string `json:"description"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}
