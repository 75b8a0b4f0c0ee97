package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("course not found")
	ErrNameExists = core.NewConflictError("name", "a course with this name already exists")
)

type (
	Repository interface {
		CourseNameExists(ctx context.Context, name string) (bool, error)
		CreateCourse(ctx context.Context, c Course) (Course, error)
		// QueryCourses returns all courses with their student, group & grade item counts, newest first.
		QueryCourses(ctx context.Context) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	exists, err := svc.repo.CourseNameExists(ctx, nc.Name)
	if err != nil {
		return Course{}, errors.Wrap(err, "checking course name uniqueness")
	}
	if exists {
		return Course{}, ErrNameExists
	}

	now := time.Now().UTC()
	c := Course{
		Name:        nc.Name,
		Code:        nc.Code,
		Description: nc.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	c, err = svc.repo.CreateCourse(ctx, c)
	return c, errors.Wrap(err, "creating course")
}

func (svc *Service) Query(ctx context.Context) ([]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx)
	return courses, errors.Wrap(err, "querying courses")
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	return c, errors.Wrap(err, "getting course")
}
