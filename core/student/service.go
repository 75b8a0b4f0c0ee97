package student

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
	ErrNotFound        = core.NewNotFoundError("student not found")
	ErrSomeNotFound    = core.NewNotFoundError("some students do not exist")
	ErrStudentIDExists = core.NewConflictError("student_id", "a student with this student_id already exists in this course")
)

// OrderingFields are the fields students can be ordered by.
var OrderingFields = map[string]bool{
	"name":       true,
	"student_id": true,
	"class":      true,
	"created_at": true,
}

type (
	Repository interface {
		// StudentIDExists checks the (studentID, courseID) pair, ignoring the students in excludedIDs.
		StudentIDExists(ctx context.Context, studentID, courseID string, excludedIDs ...string) (bool, error)
		CreateStudent(ctx context.Context, s Student) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields; newest first unless ordering is set.
		QueryStudents(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		GetStudentsByID(ctx context.Context, ids []string) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		// DeleteStudent deletes the student along with their grades & group memberships.
		DeleteStudent(ctx context.Context, id string) (grades, memberships int, err error)
	}

	Service struct {
		repo    Repository
		courses course.Repository
	}
)

func NewService(repo Repository, courses course.Repository) *Service {
	return &Service{repo: repo, courses: courses}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if _, err := svc.courses.GetCourse(ctx, ns.CourseID); err != nil {
		return Student{}, errors.Wrap(err, "getting course")
	}
	if err := svc.checkUniqueness(ctx, ns.StudentID, ns.CourseID); err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	s := Student{
		Name:      ns.Name,
		StudentID: ns.StudentID,
		Email:     ns.Email,
		Class:     ns.Class,
		CourseID:  ns.CourseID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s, err := svc.repo.CreateStudent(ctx, s)
	return s, errors.Wrap(err, "creating student")
}

func (svc *Service) checkUniqueness(ctx context.Context, studentID, courseID string, excludedIDs ...string) error {
	exists, err := svc.repo.StudentIDExists(ctx, studentID, courseID, excludedIDs...)
	if err != nil {
		return errors.Wrap(err, "checking student_id uniqueness")
	}
	if exists {
		return ErrStudentIDExists
	}
	return nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	for _, ord := range ordering {
		if !OrderingFields[ord.Field] {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: "ordering",
				Error: fmt.Sprintf("cannot order by %q", ord.Field),
			})
		}
	}
	students, err := svc.repo.QueryStudents(ctx, filter, ordering)
	return students, errors.Wrap(err, "querying students")
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, id)
	return s, errors.Wrap(err, "getting student")
}

// GetMany returns the students with the given IDs, or ErrSomeNotFound if any of them does not exist.
func (svc *Service) GetMany(ctx context.Context, ids []string) ([]Student, error) {
	students, err := svc.repo.GetStudentsByID(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting students by ID")
	}
	if len(students) != len(uniq(ids)) {
		return nil, ErrSomeNotFound
	}
	return students, nil
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, errors.Wrap(err, "getting student")
	}
	// the pair is unique within the student's own course only
	if err = svc.checkUniqueness(ctx, us.StudentID, s.CourseID, s.ID); err != nil {
		return Student{}, err
	}

	s.Name = us.Name
	s.StudentID = us.StudentID
	s.Email = us.Email
	if us.Class != "" {
		s.Class = us.Class
	}
	s.UpdatedAt = time.Now().UTC()
	s, err = svc.repo.UpdateStudent(ctx, s)
	return s, errors.Wrap(err, "updating student")
}

func (svc *Service) Delete(ctx context.Context, id string) (DeleteResult, error) {
	s, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return DeleteResult{}, errors.Wrap(err, "getting student")
	}
	grades, memberships, err := svc.repo.DeleteStudent(ctx, s.ID)
	if err != nil {
		return DeleteResult{}, errors.Wrap(err, "deleting student")
	}
	return DeleteResult{
		Message:            fmt.Sprintf("student %q deleted", s.Name),
		DeletedGrades:      grades,
		DeletedMemberships: memberships,
	}, nil
}

func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
