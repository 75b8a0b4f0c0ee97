package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/gradeitem"
	"github.com/trezcool/gradebook/core/student"
)

const gradeColumns = `id, score, student_id, grade_item_id, created_at, updated_at`

const gradeSelect = `
SELECT g.id, g.score, g.student_id, g.grade_item_id, g.created_at, g.updated_at,
	s.name AS student_name, s.student_id AS student_no, s.email AS student_email,
	s.class AS student_class, s.course_id AS student_course_id,
	gi.name AS item_name, gi.weight AS item_weight, gi.max_score AS item_max_score, gi.course_id AS item_course_id
FROM grade g
	JOIN student s ON s.id = g.student_id
	JOIN grade_item gi ON gi.id = g.grade_item_id`

type gradeRow struct {
	ID          string    `db:"id"`
	Score       float64   `db:"score"`
	StudentID   string    `db:"student_id"`
	GradeItemID string    `db:"grade_item_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r gradeRow) grade() grade.Grade {
	return grade.Grade{
		ID:          r.ID,
		StudentID:   r.StudentID,
		GradeItemID: r.GradeItemID,
		Score:       r.Score,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type gradeDetailRow struct {
	gradeRow
	StudentName     string      `db:"student_name"`
	StudentNo       string      `db:"student_no"`
	StudentEmail    null.String `db:"student_email"`
	StudentClass    string      `db:"student_class"`
	StudentCourseID string      `db:"student_course_id"`
	ItemName        string      `db:"item_name"`
	ItemWeight      float64     `db:"item_weight"`
	ItemMaxScore    float64     `db:"item_max_score"`
	ItemCourseID    string      `db:"item_course_id"`
}

func (r gradeDetailRow) grade() grade.Grade {
	g := r.gradeRow.grade()
	g.Student = &student.Student{
		ID:        r.StudentID,
		Name:      r.StudentName,
		StudentID: r.StudentNo,
		Email:     r.StudentEmail.String,
		Class:     r.StudentClass,
		CourseID:  r.StudentCourseID,
	}
	g.GradeItem = &gradeitem.GradeItem{
		ID:       r.GradeItemID,
		Name:     r.ItemName,
		CourseID: r.ItemCourseID,
		Weight:   r.ItemWeight,
		MaxScore: r.ItemMaxScore,
	}
	return g
}

type gradeRepository struct {
	repository
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db core.DB) grade.Repository {
	return &gradeRepository{repository{db: db}}
}

func (repo gradeRepository) UpsertGrades(ctx context.Context, grades []grade.Grade) ([]grade.Grade, error) {
	stored := make([]grade.Grade, 0, len(grades))
	err := repo.withTx(ctx, func(tx core.DBTransactor) error {
		for _, g := range grades {
			var row gradeRow
			err := tx.GetContext(
				ctx, &row,
				`INSERT INTO grade (`+gradeColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (student_id, grade_item_id)
				DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at
				RETURNING `+gradeColumns,
				uuid.New().String(), g.Score, g.StudentID, g.GradeItemID, g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
			)
			if err != nil {
				return errors.Wrap(err, "upserting grade")
			}
			stored = append(stored, row.grade())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (repo gradeRepository) QueryGrades(ctx context.Context, filter grade.QueryFilter) ([]grade.Grade, error) {
	var w where
	for _, f := range []struct{ cond, val string }{
		{"s.course_id = ?", filter.CourseID},
		{"g.grade_item_id = ?", filter.GradeItemID},
		{"g.student_id = ?", filter.StudentID},
	} {
		if f.val == "" {
			continue
		}
		if !isUUID(f.val) {
			return []grade.Grade{}, nil
		}
		w.add(f.cond, f.val)
	}

	var rows []gradeDetailRow
	q := repo.db.Rebind(gradeSelect + w.String() + ` ORDER BY g.updated_at DESC`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]grade.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, r.grade())
	}
	return grades, nil
}
