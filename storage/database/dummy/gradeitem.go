package dummydb

import (
	"context"

	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/gradeitem"
)

type gradeItemRepository struct {
	db *DB
}

var _ gradeitem.Repository = (*gradeItemRepository)(nil) // interface compliance check

func NewGradeItemRepository(db *DB) gradeitem.Repository {
	return &gradeItemRepository{db: db}
}

// withCourseName returns a copy of gi with the name of its course. Callers must hold the lock.
func (repo *gradeItemRepository) withCourseName(gi *gradeitem.GradeItem) gradeitem.GradeItem {
	res := *gi
	if c, ok := repo.db.course[gi.CourseID]; ok {
		res.CourseName = c.Name
	}
	return res
}

func (repo *gradeItemRepository) nameExists(name, courseID string) bool {
	for _, gi := range repo.db.gradeItem {
		if gi.Name == name && gi.CourseID == courseID {
			return true
		}
	}
	return false
}

func (repo *gradeItemRepository) GradeItemNameExists(_ context.Context, name, courseID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.nameExists(name, courseID), nil
}

func (repo *gradeItemRepository) CreateGradeItem(_ context.Context, gi gradeitem.GradeItem) (gradeitem.GradeItem, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.course[gi.CourseID]; !ok {
		return gradeitem.GradeItem{}, course.ErrNotFound
	}
	if repo.nameExists(gi.Name, gi.CourseID) {
		return gradeitem.GradeItem{}, gradeitem.ErrNameExists
	}
	gi.ID = repo.db.newID()
	repo.db.gradeItem[gi.ID] = &gi
	return repo.withCourseName(&gi), nil
}

func (repo *gradeItemRepository) QueryGradeItems(_ context.Context, courseID string) ([]gradeitem.GradeItem, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]string, 0)
	for id, gi := range repo.db.gradeItem {
		if gi.CourseID == courseID {
			ids = append(ids, id)
		}
	}
	repo.db.newerFirst(ids)

	// oldest first
	items := make([]gradeitem.GradeItem, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		items = append(items, repo.withCourseName(repo.db.gradeItem[ids[i]]))
	}
	return items, nil
}

func (repo *gradeItemRepository) GetGradeItem(_ context.Context, id string) (gradeitem.GradeItem, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if gi, ok := repo.db.gradeItem[id]; ok {
		return repo.withCourseName(gi), nil
	}
	return gradeitem.GradeItem{}, gradeitem.ErrNotFound
}

func (repo *gradeItemRepository) DeleteGradeItem(_ context.Context, id string) (grades int, err error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.gradeItem[id]; !ok {
		return 0, gradeitem.ErrNotFound
	}
	for key, g := range repo.db.grade {
		if g.GradeItemID == id {
			delete(repo.db.grade, key)
			grades++
		}
	}
	delete(repo.db.gradeItem, id)
	return grades, nil
}
