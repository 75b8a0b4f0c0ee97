package dummydb

import (
	"context"

	"github.com/trezcool/gradebook/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

// withCounts returns a copy of c with its related row counts. Callers must hold the lock.
func (repo *courseRepository) withCounts(c *course.Course) course.Course {
	res := *c
	res.StudentCount, res.GroupCount, res.GradeItemCount = 0, 0, 0
	for _, s := range repo.db.student {
		if s.CourseID == c.ID {
			res.StudentCount++
		}
	}
	for _, g := range repo.db.group {
		if g.CourseID == c.ID {
			res.GroupCount++
		}
	}
	for _, gi := range repo.db.gradeItem {
		if gi.CourseID == c.ID {
			res.GradeItemCount++
		}
	}
	return res
}

func (repo *courseRepository) CourseNameExists(_ context.Context, name string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.course {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.course {
		if existing.Name == c.Name {
			return course.Course{}, course.ErrNameExists
		}
	}
	c.ID = repo.db.newID()
	repo.db.course[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]string, 0, len(repo.db.course))
	for id := range repo.db.course {
		ids = append(ids, id)
	}
	repo.db.newerFirst(ids)

	courses := make([]course.Course, 0, len(ids))
	for _, id := range ids {
		courses = append(courses, repo.withCounts(repo.db.course[id]))
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.course[id]; ok {
		return repo.withCounts(c), nil
	}
	return course.Course{}, course.ErrNotFound
}
