package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/group"
	"github.com/trezcool/gradebook/storage/database"
)

const (
	groupColumns = `id, name, description, course_id, created_at, updated_at`

	groupNameConstraint    = "group_name_course_key"
	onePerCourseConstraint = "student_group_one_per_course"
)

type groupRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	CourseID    string      `db:"course_id"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r groupRow) group() group.Group {
	return group.Group{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		CourseID:    r.CourseID,
		Members:     []group.Member{},
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type memberRow struct {
	GroupID string      `db:"group_id"`
	Role    null.String `db:"role"`
	studentRow
}

type groupRepository struct {
	repository
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db core.DB) group.Repository {
	return &groupRepository{repository{db: db}}
}

func (repo groupRepository) GroupNameExists(ctx context.Context, name, courseID string, excludedIDs ...string) (bool, error) {
	if !isUUID(courseID) {
		return false, nil
	}
	var exists bool
	err := repo.db.GetContext(
		ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM "group" WHERE name = $1 AND course_id = $2 AND NOT (id = ANY($3::uuid[])))`,
		name, courseID, pq.Array(validUUIDs(excludedIDs)),
	)
	return exists, errors.Wrap(err, "checking group name")
}

func (repo groupRepository) GroupNames(ctx context.Context, courseID string) ([]string, error) {
	names := make([]string, 0)
	if !isUUID(courseID) {
		return names, nil
	}
	err := repo.db.SelectContext(ctx, &names, `SELECT name FROM "group" WHERE course_id = $1`, courseID)
	return names, errors.Wrap(err, "getting group names")
}

func (repo groupRepository) CourseMemberships(ctx context.Context, courseID string, studentIDs []string) ([]group.Membership, error) {
	memberships := make([]group.Membership, 0)
	if !isUUID(courseID) {
		return memberships, nil
	}
	err := repo.db.SelectContext(
		ctx, &memberships,
		`SELECT sg.group_id, g.name AS group_name, sg.student_id, s.name AS student_name, s.student_id AS student_no
		FROM student_group sg
			JOIN "group" g ON g.id = sg.group_id
			JOIN student s ON s.id = sg.student_id
		WHERE g.course_id = $1 AND sg.student_id = ANY($2::uuid[])
		ORDER BY g.name, s.student_id`,
		courseID, pq.Array(validUUIDs(studentIDs)),
	)
	return memberships, errors.Wrap(err, "getting course memberships")
}

// insertMembers adds members to a group. A student already in another group of the course yields
// group.ErrMemberTaken.
func insertMembers(ctx context.Context, exec core.DBExecutor, groupID, courseID string, members []group.Member, now time.Time) error {
	for _, m := range members {
		_, err := exec.ExecContext(
			ctx,
			`INSERT INTO student_group (id, student_id, group_id, course_id, role, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), m.StudentID, groupID, courseID, null.NewString(m.Role, m.Role != ""), now.UTC(),
		)
		if err != nil {
			if database.IsUniqueViolation(err, onePerCourseConstraint) {
				return group.ErrMemberTaken
			}
			return errors.Wrap(err, "inserting group member")
		}
	}
	return nil
}

func (repo groupRepository) CreateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	g.ID = uuid.New().String()
	err := repo.withTx(ctx, func(tx core.DBTransactor) error {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO "group" (`+groupColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
			g.ID, g.Name, null.NewString(g.Description, g.Description != ""), g.CourseID,
			g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
		)
		if err != nil {
			if database.IsUniqueViolation(err, groupNameConstraint) {
				return group.ErrNameExists
			}
			return errors.Wrap(err, "inserting group")
		}
		return insertMembers(ctx, tx, g.ID, g.CourseID, g.Members, g.CreatedAt)
	})
	if err != nil {
		return group.Group{}, err
	}
	return g, nil
}

// attachMembers loads the members of groups, along with their students.
func (repo groupRepository) attachMembers(ctx context.Context, groups []group.Group) error {
	if len(groups) == 0 {
		return nil
	}
	ids := make([]string, 0, len(groups))
	index := make(map[string]int, len(groups))
	for i, g := range groups {
		ids = append(ids, g.ID)
		index[g.ID] = i
	}

	var rows []memberRow
	err := repo.db.SelectContext(
		ctx, &rows,
		`SELECT sg.group_id, sg.role,
			s.id, s.name, s.student_id, s.email, s.class, s.course_id, s.created_at, s.updated_at
		FROM student_group sg JOIN student s ON s.id = sg.student_id
		WHERE sg.group_id = ANY($1::uuid[])
		ORDER BY s.student_id`,
		pq.Array(ids),
	)
	if err != nil {
		return errors.Wrap(err, "getting group members")
	}
	for _, r := range rows {
		s := r.student()
		i := index[r.GroupID]
		groups[i].Members = append(groups[i].Members, group.Member{StudentID: s.ID, Role: r.Role.String, Student: &s})
	}
	return nil
}

func (repo groupRepository) QueryGroups(ctx context.Context, courseID string) ([]group.Group, error) {
	var w where
	if courseID != "" {
		if !isUUID(courseID) {
			return []group.Group{}, nil
		}
		w.add("course_id = ?", courseID)
	}

	var rows []groupRow
	q := repo.db.Rebind(`SELECT ` + groupColumns + ` FROM "group"` + w.String() + ` ORDER BY created_at DESC`)
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	groups := make([]group.Group, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, r.group())
	}
	if err := repo.attachMembers(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (repo groupRepository) GetGroup(ctx context.Context, id string) (group.Group, error) {
	if !isUUID(id) {
		return group.Group{}, group.ErrNotFound
	}
	var row groupRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+groupColumns+` FROM "group" WHERE id = $1`, id); err != nil {
		return group.Group{}, trapNoRowsErr(err, group.ErrNotFound, "getting group")
	}
	groups := []group.Group{row.group()}
	if err := repo.attachMembers(ctx, groups); err != nil {
		return group.Group{}, err
	}
	return groups[0], nil
}

func (repo groupRepository) UpdateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	res, err := repo.db.ExecContext(
		ctx,
		`UPDATE "group" SET name = $2, description = $3, updated_at = $4 WHERE id = $1`,
		g.ID, g.Name, null.NewString(g.Description, g.Description != ""), g.UpdatedAt.UTC(),
	)
	if err != nil {
		if database.IsUniqueViolation(err, groupNameConstraint) {
			return group.Group{}, group.ErrNameExists
		}
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return group.Group{}, group.ErrNotFound
	}
	return g, nil
}

func (repo groupRepository) ReplaceMembers(ctx context.Context, groupID string, members []group.Member) error {
	if !isUUID(groupID) {
		return group.ErrNotFound
	}
	return repo.withTx(ctx, func(tx core.DBTransactor) error {
		var courseID string
		if err := tx.GetContext(ctx, &courseID, `SELECT course_id FROM "group" WHERE id = $1 FOR UPDATE`, groupID); err != nil {
			return trapNoRowsErr(err, group.ErrNotFound, "getting group")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM student_group WHERE group_id = $1`, groupID); err != nil {
			return errors.Wrap(err, "deleting group members")
		}
		return insertMembers(ctx, tx, groupID, courseID, members, time.Now())
	})
}

func (repo groupRepository) DeleteGroup(ctx context.Context, id string) (memberships int, err error) {
	if !isUUID(id) {
		return 0, group.ErrNotFound
	}
	err = repo.withTx(ctx, func(tx core.DBTransactor) error {
		if err := tx.GetContext(ctx, &memberships, `SELECT COUNT(*) FROM student_group WHERE group_id = $1`, id); err != nil {
			return errors.Wrap(err, "counting memberships")
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM "group" WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(err, "deleting group")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return group.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return memberships, nil
}
