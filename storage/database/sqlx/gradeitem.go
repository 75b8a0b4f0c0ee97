package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/gradeitem"
	"github.com/trezcool/gradebook/storage/database"
)

const gradeItemSelect = `
SELECT gi.id, gi.name, gi.weight, gi.max_score, gi.course_id, c.name AS course_name, gi.created_at, gi.updated_at
FROM grade_item gi JOIN course c ON c.id = gi.course_id`

type gradeItemRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Weight     float64   `db:"weight"`
	MaxScore   float64   `db:"max_score"`
	CourseID   string    `db:"course_id"`
	CourseName string    `db:"course_name"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r gradeItemRow) gradeItem() gradeitem.GradeItem {
	return gradeitem.GradeItem{
		ID:         r.ID,
		Name:       r.Name,
		CourseID:   r.CourseID,
		CourseName: r.CourseName,
		Weight:     r.Weight,
		MaxScore:   r.MaxScore,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type gradeItemRepository struct {
	repository
}

var _ gradeitem.Repository = (*gradeItemRepository)(nil) // interface compliance check

func NewGradeItemRepository(db core.DB) gradeitem.Repository {
	return &gradeItemRepository{repository{db: db}}
}

func (repo gradeItemRepository) GradeItemNameExists(ctx context.Context, name, courseID string) (bool, error) {
	if !isUUID(courseID) {
		return false, nil
	}
	var exists bool
	err := repo.db.GetContext(
		ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM grade_item WHERE name = $1 AND course_id = $2)`,
		name, courseID,
	)
	return exists, errors.Wrap(err, "checking grade item name")
}

func (repo gradeItemRepository) CreateGradeItem(ctx context.Context, gi gradeitem.GradeItem) (gradeitem.GradeItem, error) {
	gi.ID = uuid.New().String()
	_, err := repo.db.ExecContext(
		ctx,
		`INSERT INTO grade_item (id, name, weight, max_score, course_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		gi.ID, gi.Name, gi.Weight, gi.MaxScore, gi.CourseID, gi.CreatedAt.UTC(), gi.UpdatedAt.UTC(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return gradeitem.GradeItem{}, gradeitem.ErrNameExists
		}
		return gradeitem.GradeItem{}, errors.Wrap(err, "inserting grade item")
	}
	return gi, nil
}

func (repo gradeItemRepository) QueryGradeItems(ctx context.Context, courseID string) ([]gradeitem.GradeItem, error) {
	if !isUUID(courseID) {
		return []gradeitem.GradeItem{}, nil
	}
	var rows []gradeItemRow
	err := repo.db.SelectContext(ctx, &rows, gradeItemSelect+` WHERE gi.course_id = $1 ORDER BY gi.created_at`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying grade items")
	}
	items := make([]gradeitem.GradeItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.gradeItem())
	}
	return items, nil
}

func (repo gradeItemRepository) GetGradeItem(ctx context.Context, id string) (gradeitem.GradeItem, error) {
	if !isUUID(id) {
		return gradeitem.GradeItem{}, gradeitem.ErrNotFound
	}
	var row gradeItemRow
	if err := repo.db.GetContext(ctx, &row, gradeItemSelect+` WHERE gi.id = $1`, id); err != nil {
		return gradeitem.GradeItem{}, trapNoRowsErr(err, gradeitem.ErrNotFound, "getting grade item")
	}
	return row.gradeItem(), nil
}

func (repo gradeItemRepository) DeleteGradeItem(ctx context.Context, id string) (grades int, err error) {
	if !isUUID(id) {
		return 0, gradeitem.ErrNotFound
	}
	err = repo.withTx(ctx, func(tx core.DBTransactor) error {
		if err := tx.GetContext(ctx, &grades, `SELECT COUNT(*) FROM grade WHERE grade_item_id = $1`, id); err != nil {
			return errors.Wrap(err, "counting grades")
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM grade_item WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "deleting grade item")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return gradeitem.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return grades, nil
}
