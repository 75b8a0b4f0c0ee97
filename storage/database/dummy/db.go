// Package dummydb implements the core repositories in memory. Used by tests and by the API when
// `databaseInMemory` is set.
package dummydb

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/gradeitem"
	"github.com/trezcool/gradebook/core/group"
	"github.com/trezcool/gradebook/core/student"
)

type (
	// DB is guarded by a single lock so that multi-table writes (cascades, batches) are atomic.
	DB struct {
		sync.RWMutex
		course    map[string]*course.Course
		student   map[string]*student.Student
		group     map[string]*group.Group
		member    map[string]*memberRecord
		gradeItem map[string]*gradeitem.GradeItem
		grade     map[string]*grade.Grade

		seq   int
		order map[string]int // insertion order of every row, by ID
	}

	memberRecord struct {
		StudentID string
		GroupID   string
		Role      string
	}
)

func Open() (*DB, error) {
	db := &DB{
		course:    make(map[string]*course.Course),
		student:   make(map[string]*student.Student),
		group:     make(map[string]*group.Group),
		member:    make(map[string]*memberRecord),
		gradeItem: make(map[string]*gradeitem.GradeItem),
		grade:     make(map[string]*grade.Grade),
		order:     make(map[string]int),
	}
	return db, nil
}

// newID returns a fresh UUID and records its insertion order. Callers must hold the write lock.
func (db *DB) newID() string {
	id := uuid.New().String()
	db.seq++
	db.order[id] = db.seq
	return id
}

// newerFirst sorts ids by descending insertion order.
func (db *DB) newerFirst(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return db.order[ids[i]] > db.order[ids[j]] })
}

func memberKey(studentID, groupID string) string {
	return studentID + "|" + groupID
}

func gradeKey(studentID, gradeItemID string) string {
	return studentID + "|" + gradeItemID
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, excl := range excludedIDs {
		if id == excl {
			return true
		}
	}
	return false
}
