package testutil

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/gradeitem"
	"github.com/trezcool/gradebook/core/group"
	"github.com/trezcool/gradebook/core/student"
	"github.com/trezcool/gradebook/storage/database"
	dummydb "github.com/trezcool/gradebook/storage/database/dummy"
)

// Repos bundles one repository per entity.
type Repos struct {
	Courses    course.Repository
	Students   student.Repository
	Groups     group.Repository
	GradeItems gradeitem.Repository
	Grades     grade.Repository
}

// DummyRepos returns repositories backed by a fresh in-memory database.
func DummyRepos(t *testing.T) Repos {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	return Repos{
		Courses:    dummydb.NewCourseRepository(db),
		Students:   dummydb.NewStudentRepository(db),
		Groups:     dummydb.NewGroupRepository(db),
		GradeItems: dummydb.NewGradeItemRepository(db),
		Grades:     dummydb.NewGradeRepository(db),
	}
}

// PrepareDB opens the postgres database at TEST_DATABASE_URL and resets its schema.
// The test is skipped when TEST_DATABASE_URL is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.OpenURL(dbURL)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, "reset"); err != nil {
		t.Fatalf("PrepareDB() failed to reset: %v", err)
	}
	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("PrepareDB() failed to migrate: %v", err)
	}
	return db
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	group.InitValidators(validate, translator)
	return validate, translator
}

func stamp(createdAt []time.Time) time.Time {
	if len(createdAt) > 0 {
		return createdAt[0].UTC()
	}
	return time.Now().UTC()
}

func CreateCourse(t *testing.T, repo course.Repository, name string, createdAt ...time.Time) course.Course {
	tstamp := stamp(createdAt)
	c, err := repo.CreateCourse(context.Background(), course.Course{
		Name:      name,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func CreateStudent(t *testing.T, repo student.Repository, courseID, name, studentID string, createdAt ...time.Time) student.Student {
	tstamp := stamp(createdAt)
	s, err := repo.CreateStudent(context.Background(), student.Student{
		Name:      name,
		StudentID: studentID,
		Class:     student.DefaultClass,
		CourseID:  courseID,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

func CreateGradeItem(t *testing.T, repo gradeitem.Repository, courseID, name string, weight, maxScore float64) gradeitem.GradeItem {
	tstamp := time.Now().UTC()
	gi, err := repo.CreateGradeItem(context.Background(), gradeitem.GradeItem{
		Name:      name,
		CourseID:  courseID,
		Weight:    weight,
		MaxScore:  maxScore,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateGradeItem() failed: %v", err)
	}
	return gi
}

func CreateGroup(t *testing.T, repo group.Repository, courseID, name string, members ...student.Student) group.Group {
	tstamp := time.Now().UTC()
	g := group.Group{
		Name:      name,
		CourseID:  courseID,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	for _, s := range members {
		g.Members = append(g.Members, group.Member{StudentID: s.ID})
	}
	g, err := repo.CreateGroup(context.Background(), g)
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return g
}

func SetGrade(t *testing.T, repo grade.Repository, studentID, gradeItemID string, score float64) grade.Grade {
	tstamp := time.Now().UTC()
	grades, err := repo.UpsertGrades(context.Background(), []grade.Grade{{
		StudentID:   studentID,
		GradeItemID: gradeItemID,
		Score:       score,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}})
	if err != nil {
		t.Fatalf("SetGrade() failed: %v", err)
	}
	return grades[0]
}

// NewTemplate returns an xlsx document whose first sheet, named sheet, holds rows.
func NewTemplate(t *testing.T, sheet string, rows ...[]interface{}) []byte {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		t.Fatalf("SetSheetName() failed: %v", err)
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			t.Fatalf("SetSheetRow(%s) failed: %v", cell, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() failed: %v", err)
	}
	return buf.Bytes()
}

// ReadSheet returns the name and the raw rows of the first sheet of an xlsx document.
func ReadSheet(t *testing.T, data []byte) (string, [][]string) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() failed: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("GetRows(%s) failed: %v", sheet, err)
	}
	return sheet, rows
}
