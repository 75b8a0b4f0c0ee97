package group

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/student"
)

// Roles
const (
	RoleDirector       = "director"
	RoleModeler        = "modeler"
	RolePostProduction = "post-production"
	RoleAnimator       = "animator"
)

var AllRoles = []string{RoleDirector, RoleModeler, RolePostProduction, RoleAnimator}

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CourseID    string    `json:"course_id"`
	Members     []Member  `json:"members"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// MemberIDs returns the IDs of the students belonging to the group.
func (g Group) MemberIDs() []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.StudentID)
	}
	return ids
}

// Member links a Student to a Group.
type Member struct {
	StudentID string           `json:"student_id"`
	Role      string           `json:"role,omitempty"`
	Student   *student.Student `json:"student,omitempty"`
}

// Membership is a Student's Member row seen from the course: used to enforce one group per student per course.
type Membership struct {
	GroupID     string `db:"group_id"`
	GroupName   string `db:"group_name"`
	StudentID   string `db:"student_id"`
	StudentName string `db:"student_name"`
	StudentNo   string `db:"student_no"`
}

// NewMember references an existing Student by ID with an optional role.
type NewMember struct {
	ID   string `json:"id" validate:"required"`
	Role string `json:"role" validate:"omitempty,grouprole"`
}

func cleanMembers(members []NewMember) {
	for i := range members {
		members[i].ID = core.CleanString(members[i].ID)
		members[i].Role = core.CleanString(members[i].Role, true /* lower */)
	}
}

func memberIDs(members []NewMember) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids
}

// NewGroup contains information needed to create a new Group. The name is generated.
type NewGroup struct {
	CourseID string      `json:"course_id" validate:"required"`
	Students []NewMember `json:"students" validate:"required,min=1,unique=ID,dive"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.CourseID = core.CleanString(ng.CourseID)
	cleanMembers(ng.Students)
	return validate.Struct(ng)
}

// UpdateGroup defines what information may be provided to modify an existing Group.
type UpdateGroup struct {
	Name        string `json:"name" validate:"required,notblank"`
	Description string `json:"description"`
}

func (ug *UpdateGroup) Validate(validate *validator.Validate) error {
	ug.Name = core.CleanString(ug.Name)
	ug.Description = core.CleanString(ug.Description)
	return validate.Struct(ug)
}

// MembersUpdate replaces the whole membership of a Group. An empty list removes every member.
type MembersUpdate struct {
	Students []NewMember `json:"students" validate:"required,unique=ID,dive"`
}

func (mu *MembersUpdate) Validate(validate *validator.Validate) error {
	cleanMembers(mu.Students)
	return validate.Struct(mu)
}

// DeleteResult reports the rows removed along with a Group.
type DeleteResult struct {
	Message            string `json:"message"`
	DeletedMemberships int    `json:"deleted_memberships_count"`
}
