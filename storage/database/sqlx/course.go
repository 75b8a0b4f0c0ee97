package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/storage/database"
)

const courseSelect = `
SELECT c.id, c.name, c.code, c.description, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM student s WHERE s.course_id = c.id) AS student_count,
	(SELECT COUNT(*) FROM "group" g WHERE g.course_id = c.id) AS group_count,
	(SELECT COUNT(*) FROM grade_item gi WHERE gi.course_id = c.id) AS grade_item_count
FROM course c`

type courseRow struct {
	ID             string      `db:"id"`
	Name           string      `db:"name"`
	Code           null.String `db:"code"`
	Description    null.String `db:"description"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
	StudentCount   int         `db:"student_count"`
	GroupCount     int         `db:"group_count"`
	GradeItemCount int         `db:"grade_item_count"`
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:             r.ID,
		Name:           r.Name,
		Code:           r.Code.String,
		Description:    r.Description.String,
		StudentCount:   r.StudentCount,
		GroupCount:     r.GroupCount,
		GradeItemCount: r.GradeItemCount,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DB) course.Repository {
	return &courseRepository{repository{db: db}}
}

func (repo courseRepository) CourseNameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM course WHERE name = $1)`, name)
	return exists, errors.Wrap(err, "checking course name")
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.New().String()
	_, err := repo.db.ExecContext(
		ctx,
		`INSERT INTO course (id, name, code, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Name,
		null.NewString(c.Code, c.Code != ""),
		null.NewString(c.Description, c.Description != ""),
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return course.Course{}, course.ErrNameExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, courseSelect+` ORDER BY c.created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !isUUID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, courseSelect+` WHERE c.id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "getting course")
	}
	return row.course(), nil
}
