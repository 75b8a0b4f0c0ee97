package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) exists(studentID, courseID string, excludedIDs ...string) bool {
	for _, s := range repo.db.student {
		if s.StudentID == studentID && s.CourseID == courseID && !isExcluded(s.ID, excludedIDs) {
			return true
		}
	}
	return false
}

func (repo *studentRepository) StudentIDExists(_ context.Context, studentID, courseID string, excludedIDs ...string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.exists(studentID, courseID, excludedIDs...), nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.course[s.CourseID]; !ok {
		return student.Student{}, course.ErrNotFound
	}
	if repo.exists(s.StudentID, s.CourseID) {
		return student.Student{}, student.ErrStudentIDExists
	}
	s.ID = repo.db.newID()
	repo.db.student[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) QueryStudents(
	_ context.Context,
	filter student.QueryFilter,
	ordering []core.DBOrdering,
) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := make([]string, 0, len(repo.db.student))
	for id, s := range repo.db.student {
		if filter.Class != "" && s.Class != filter.Class {
			continue
		}
		if filter.CourseID != "" && s.CourseID != filter.CourseID {
			continue
		}
		ids = append(ids, id)
	}
	repo.db.newerFirst(ids)

	students := make([]student.Student, 0, len(ids))
	for _, id := range ids {
		students = append(students, *repo.db.student[id])
	}
	if len(ordering) > 0 {
		sort.SliceStable(students, func(i, j int) bool { return lessStudent(students[i], students[j], ordering) })
	}
	return students, nil
}

func studentField(s student.Student, field string) string {
	switch field {
	case "name":
		return s.Name
	case "student_id":
		return s.StudentID
	case "class":
		return s.Class
	case "created_at":
		return s.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000")
	}
	return ""
}

func lessStudent(a, b student.Student, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		va, vb := studentField(a, ord.Field), studentField(b, ord.Field)
		if va == vb {
			continue
		}
		if ord.Ascending {
			return va < vb
		}
		return va > vb
	}
	return false
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.student[id]; ok {
		return *s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentsByID(_ context.Context, ids []string) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[string]bool, len(ids))
	students := make([]student.Student, 0, len(ids))
	for _, id := range ids {
		if s, ok := repo.db.student[id]; ok && !seen[id] {
			seen[id] = true
			students = append(students, *s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].StudentID < students[j].StudentID })
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.student[s.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	if repo.exists(s.StudentID, s.CourseID, s.ID) {
		return student.Student{}, student.ErrStudentIDExists
	}
	repo.db.student[s.ID] = &s
	return s, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) (grades, memberships int, err error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.student[id]; !ok {
		return 0, 0, student.ErrNotFound
	}
	for key, g := range repo.db.grade {
		if g.StudentID == id {
			delete(repo.db.grade, key)
			grades++
		}
	}
	for key, m := range repo.db.member {
		if m.StudentID == id {
			delete(repo.db.member, key)
			memberships++
		}
	}
	delete(repo.db.student, id)
	return grades, memberships, nil
}
