package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/student"
	"github.com/trezcool/gradebook/storage/database"
)

const studentColumns = `id, name, student_id, email, class, course_id, created_at, updated_at`

type studentRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	StudentID string      `db:"student_id"`
	Email     null.String `db:"email"`
	Class     string      `db:"class"`
	CourseID  string      `db:"course_id"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (r studentRow) student() student.Student {
	return student.Student{
		ID:        r.ID,
		Name:      r.Name,
		StudentID: r.StudentID,
		Email:     r.Email.String,
		Class:     r.Class,
		CourseID:  r.CourseID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func studentsFromRows(rows []studentRow) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.student())
	}
	return students
}

type studentRepository struct {
	repository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DB) student.Repository {
	return &studentRepository{repository{db: db}}
}

func (repo studentRepository) StudentIDExists(ctx context.Context, studentID, courseID string, excludedIDs ...string) (bool, error) {
	if !isUUID(courseID) {
		return false, nil
	}
	var exists bool
	err := repo.db.GetContext(
		ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM student WHERE student_id = $1 AND course_id = $2 AND NOT (id = ANY($3::uuid[])))`,
		studentID, courseID, pq.Array(validUUIDs(excludedIDs)),
	)
	return exists, errors.Wrap(err, "checking student_id")
}

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	s.ID = uuid.New().String()
	_, err := repo.db.ExecContext(
		ctx,
		`INSERT INTO student (`+studentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.Name, s.StudentID, null.NewString(s.Email, s.Email != ""), s.Class, s.CourseID,
		s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return student.Student{}, student.ErrStudentIDExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

func (repo studentRepository) QueryStudents(
	ctx context.Context,
	filter student.QueryFilter,
	ordering []core.DBOrdering,
) ([]student.Student, error) {
	var w where
	if filter.Class != "" {
		w.add("class = ?", filter.Class)
	}
	if filter.CourseID != "" {
		if !isUUID(filter.CourseID) {
			return []student.Student{}, nil
		}
		w.add("course_id = ?", filter.CourseID)
	}

	orderBy := "created_at DESC"
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			if student.OrderingFields[ord.Field] {
				orderList = append(orderList, ord.String())
			}
		}
		if len(orderList) > 0 {
			orderBy = strings.Join(orderList, ", ")
		}
	}

	var rows []studentRow
	q := repo.db.Rebind(`SELECT ` + studentColumns + ` FROM student` + w.String() + ` ORDER BY ` + orderBy)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return studentsFromRows(rows), nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if !isUUID(id) {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+studentColumns+` FROM student WHERE id = $1`, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "getting student")
	}
	return row.student(), nil
}

func (repo studentRepository) GetStudentsByID(ctx context.Context, ids []string) ([]student.Student, error) {
	var rows []studentRow
	err := repo.db.SelectContext(
		ctx, &rows,
		`SELECT `+studentColumns+` FROM student WHERE id = ANY($1::uuid[]) ORDER BY student_id`,
		pq.Array(validUUIDs(ids)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "getting students by ID")
	}
	return studentsFromRows(rows), nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	res, err := repo.db.ExecContext(
		ctx,
		`UPDATE student SET name = $2, student_id = $3, email = $4, class = $5, updated_at = $6 WHERE id = $1`,
		s.ID, s.Name, s.StudentID, null.NewString(s.Email, s.Email != ""), s.Class, s.UpdatedAt.UTC(),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return student.Student{}, student.ErrStudentIDExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id string) (grades, memberships int, err error) {
	if !isUUID(id) {
		return 0, 0, student.ErrNotFound
	}
	err = repo.withTx(ctx, func(tx core.DBTransactor) error {
		if err := tx.GetContext(ctx, &grades, `SELECT COUNT(*) FROM grade WHERE student_id = $1`, id); err != nil {
			return errors.Wrap(err, "counting grades")
		}
		if err := tx.GetContext(ctx, &memberships, `SELECT COUNT(*) FROM student_group WHERE student_id = $1`, id); err != nil {
			return errors.Wrap(err, "counting memberships")
		}
		// grades & memberships go along by cascade
		res, err := tx.ExecContext(ctx, `DELETE FROM student WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "deleting student")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return student.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return grades, memberships, nil
}
