package grade

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/gradeitem"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/student"
)

// Grade is one student's score for one grade item. The (StudentID, GradeItemID) pair is unique.
type Grade struct {
	ID          string               `json:"id"`
	StudentID   string               `json:"student_id"`
	GradeItemID string               `json:"grade_item_id"`
	Score       float64              `json:"score"`
	Student     *student.Student     `json:"student,omitempty"`
	GradeItem   *gradeitem.GradeItem `json:"grade_item,omitempty"`
	CreatedAt   time.Time            `json:"created_at"` // UTC
	UpdatedAt   time.Time            `json:"updated_at"` // UTC
}

// NewGrade records (or overwrites) the score of a student for a grade item.
type NewGrade struct {
	StudentID   string   `json:"student_id" validate:"required"`
	GradeItemID string   `json:"grade_item_id" validate:"required"`
	Score       *float64 `json:"score" validate:"required,min=0"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.StudentID = core.CleanString(ng.StudentID)
	ng.GradeItemID = core.CleanString(ng.GradeItemID)
	return validate.Struct(ng)
}

// NewGroupGrade records the same score for every member of a group.
type NewGroupGrade struct {
	GroupID     string   `json:"group_id" validate:"required"`
	GradeItemID string   `json:"grade_item_id" validate:"required"`
	Score       *float64 `json:"score" validate:"required,min=0"`
}

func (ng *NewGroupGrade) Validate(validate *validator.Validate) error {
	ng.GroupID = core.CleanString(ng.GroupID)
	ng.GradeItemID = core.CleanString(ng.GradeItemID)
	return validate.Struct(ng)
}

type QueryFilter struct {
	CourseID    string `query:"courseId"`
	GradeItemID string `query:"gradeItemId"`
	StudentID   string `query:"studentId"`
}

func (f *QueryFilter) Clean() {
	f.CourseID = core.CleanString(f.CourseID)
	f.GradeItemID = core.CleanString(f.GradeItemID)
	f.StudentID = core.CleanString(f.StudentID)
}

type GroupGradeResult struct {
	Success          bool    `json:"success"`
	Message          string  `json:"message"`
	AffectedStudents int     `json:"affected_students"`
	GroupName        string  `json:"group_name"`
	GradeItemName    string  `json:"grade_item_name"`
	Score            float64 `json:"score"`
}

// Gradebook is the course-wide view of every student's recorded scores and weighted total.
type Gradebook struct {
	Course     course.Course         `json:"course"`
	GradeItems []gradeitem.GradeItem `json:"grade_items"`
	Students   []StudentTotal        `json:"students"`
}

type StudentTotal struct {
	Student student.Student    `json:"student"`
	Scores  map[string]float64 `json:"scores"` // by grade item ID; missing items are not recorded
	Total   float64            `json:"total"`
	Letter  string             `json:"letter"`
}

// ItemReport describes the recorded grades of one grade item.
type ItemReport struct {
	GradeItem    gradeitem.GradeItem `json:"grade_item"`
	Grades       []Grade             `json:"grades"`
	Stats        grading.Stats       `json:"stats"`
	Distribution map[string]int      `json:"distribution"`
}

// Export is a filled-in spreadsheet template.
type Export struct {
	FileName    string
	ContentType string
	Data        []byte
	Updated     int
	NotFound    []string
}
