package gradeitem

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("grade item not found")
	ErrNameExists     = core.NewConflictError("name", "a grade item with this name already exists in this course")
	ErrCourseRequired = core.NewValidationError(nil, core.FieldError{Field: "courseId", Error: "courseId is required"})
)

type (
	Repository interface {
		GradeItemNameExists(ctx context.Context, name, courseID string) (bool, error)
		CreateGradeItem(ctx context.Context, gi GradeItem) (GradeItem, error)
		// QueryGradeItems returns the grade items of a course, oldest first.
		QueryGradeItems(ctx context.Context, courseID string) ([]GradeItem, error)
		// GetGradeItem returns the grade item with its course name.
		GetGradeItem(ctx context.Context, id string) (GradeItem, error)
		// DeleteGradeItem deletes the grade item along with its grades.
		DeleteGradeItem(ctx context.Context, id string) (grades int, err error)
	}

	Service struct {
		repo    Repository
		courses course.Repository
	}
)

func NewService(repo Repository, courses course.Repository) *Service {
	return &Service{repo: repo, courses: courses}
}

func (svc *Service) Create(ctx context.Context, ni NewGradeItem) (GradeItem, error) {
	c, err := svc.courses.GetCourse(ctx, ni.CourseID)
	if err != nil {
		return GradeItem{}, errors.Wrap(err, "getting course")
	}
	exists, err := svc.repo.GradeItemNameExists(ctx, ni.Name, ni.CourseID)
	if err != nil {
		return GradeItem{}, errors.Wrap(err, "checking grade item name uniqueness")
	}
	if exists {
		return GradeItem{}, ErrNameExists
	}

	now := time.Now().UTC()
	gi := GradeItem{
		Name:      ni.Name,
		CourseID:  ni.CourseID,
		Weight:    DefaultWeight,
		MaxScore:  DefaultMaxScore,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ni.Weight != nil {
		gi.Weight = *ni.Weight
	}
	if ni.MaxScore != nil {
		gi.MaxScore = *ni.MaxScore
	}
	gi, err = svc.repo.CreateGradeItem(ctx, gi)
	if err != nil {
		return GradeItem{}, errors.Wrap(err, "creating grade item")
	}
	gi.CourseName = c.Name
	return gi, nil
}

func (svc *Service) Query(ctx context.Context, courseID string) ([]GradeItem, error) {
	if courseID == "" {
		return nil, ErrCourseRequired
	}
	items, err := svc.repo.QueryGradeItems(ctx, courseID)
	return items, errors.Wrap(err, "querying grade items")
}

func (svc *Service) Get(ctx context.Context, id string) (GradeItem, error) {
	gi, err := svc.repo.GetGradeItem(ctx, id)
	return gi, errors.Wrap(err, "getting grade item")
}

func (svc *Service) Delete(ctx context.Context, id string) (DeleteResult, error) {
	gi, err := svc.repo.GetGradeItem(ctx, id)
	if err != nil {
		return DeleteResult{}, errors.Wrap(err, "getting grade item")
	}
	grades, err := svc.repo.DeleteGradeItem(ctx, gi.ID)
	if err != nil {
		return DeleteResult{}, errors.Wrap(err, "deleting grade item")
	}
	return DeleteResult{
		Success:       true,
		Message:       fmt.Sprintf("grade item %q deleted along with %d grade(s)", gi.Name, grades),
		DeletedGrades: grades,
		CourseName:    gi.CourseName,
	}, nil
}
