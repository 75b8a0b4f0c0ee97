package dummydb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/gradeitem"
	"github.com/trezcool/gradebook/core/student"
)

type gradeRepository struct {
	db *DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db}
}

func (repo *gradeRepository) UpsertGrades(_ context.Context, grades []grade.Grade) ([]grade.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// all or nothing: check every reference before the first write
	for _, g := range grades {
		if _, ok := repo.db.student[g.StudentID]; !ok {
			return nil, errors.Wrapf(student.ErrNotFound, "upserting grade of %s", g.StudentID)
		}
		if _, ok := repo.db.gradeItem[g.GradeItemID]; !ok {
			return nil, errors.Wrapf(gradeitem.ErrNotFound, "upserting grade for %s", g.GradeItemID)
		}
	}

	stored := make([]grade.Grade, 0, len(grades))
	for _, g := range grades {
		key := gradeKey(g.StudentID, g.GradeItemID)
		if existing, ok := repo.db.grade[key]; ok {
			existing.Score = g.Score
			existing.UpdatedAt = g.UpdatedAt
			stored = append(stored, *existing)
			continue
		}
		g.ID = repo.db.newID()
		g.Student, g.GradeItem = nil, nil
		repo.db.grade[key] = &g
		stored = append(stored, g)
	}
	return stored, nil
}

func (repo *gradeRepository) QueryGrades(_ context.Context, filter grade.QueryFilter) ([]grade.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]string, 0)
	byID := make(map[string]*grade.Grade)
	for _, g := range repo.db.grade {
		if filter.GradeItemID != "" && g.GradeItemID != filter.GradeItemID {
			continue
		}
		if filter.StudentID != "" && g.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && repo.db.student[g.StudentID].CourseID != filter.CourseID {
			continue
		}
		ids = append(ids, g.ID)
		byID[g.ID] = g
	}
	repo.db.newerFirst(ids)

	grades := make([]grade.Grade, 0, len(ids))
	for _, id := range ids {
		g := *byID[id]
		s := *repo.db.student[g.StudentID]
		gi := *repo.db.gradeItem[g.GradeItemID]
		g.Student = &s
		g.GradeItem = &gi
		grades = append(grades, g)
	}
	return grades, nil
}
