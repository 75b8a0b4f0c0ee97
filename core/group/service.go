package group

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/student"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("group not found")
	ErrNameExists  = core.NewConflictError("name", "a group with this name already exists in this course")
	ErrMemberTaken = core.NewConflictError("students", "a student is already in another group of this course")
)

// nameAttempts bounds how many "Group N" slots Create tries when concurrent creates take the same one.
const nameAttempts = 5

type (
	Repository interface {
		// GroupNameExists checks the (name, courseID) pair, ignoring the groups in excludedIDs.
		GroupNameExists(ctx context.Context, name, courseID string, excludedIDs ...string) (bool, error)
		GroupNames(ctx context.Context, courseID string) ([]string, error)
		// CourseMemberships returns the memberships of the given students in the groups of courseID.
		CourseMemberships(ctx context.Context, courseID string, studentIDs []string) ([]Membership, error)
		// CreateGroup inserts the group and its members atomically.
		CreateGroup(ctx context.Context, g Group) (Group, error)
		// QueryGroups returns the groups with their members, newest first. An empty courseID matches every course.
		QueryGroups(ctx context.Context, courseID string) ([]Group, error)
		GetGroup(ctx context.Context, id string) (Group, error)
		UpdateGroup(ctx context.Context, g Group) (Group, error)
		// ReplaceMembers swaps the whole membership of a group atomically.
		ReplaceMembers(ctx context.Context, groupID string, members []Member) error
		DeleteGroup(ctx context.Context, id string) (memberships int, err error)
	}

	Service struct {
		repo     Repository
		courses  course.Repository
		students *student.Service
	}
)

func NewService(repo Repository, courses course.Repository, students *student.Service) *Service {
	return &Service{repo: repo, courses: courses, students: students}
}

// Create adds a group named after the first free "Group N" slot of the course.
// Every student must belong to the course and to no other group of it.
func (svc *Service) Create(ctx context.Context, ng NewGroup) (Group, error) {
	if _, err := svc.courses.GetCourse(ctx, ng.CourseID); err != nil {
		return Group{}, errors.Wrap(err, "getting course")
	}
	members, err := svc.checkMembers(ctx, ng.CourseID, "", ng.Students)
	if err != nil {
		return Group{}, err
	}

	// the repository re-checks names and memberships atomically; a name taken meanwhile moves on to the next slot
	for attempt := 1; ; attempt++ {
		names, err := svc.repo.GroupNames(ctx, ng.CourseID)
		if err != nil {
			return Group{}, errors.Wrap(err, "getting group names")
		}

		now := time.Now().UTC()
		g, err := svc.repo.CreateGroup(ctx, Group{
			Name:      NextName(names),
			CourseID:  ng.CourseID,
			Members:   members,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if errors.Cause(err) == ErrNameExists && attempt < nameAttempts {
			continue
		}
		return g, errors.Wrap(err, "creating group")
	}
}

// checkMembers resolves the requested members, ignoring the memberships of excludedGroupID.
func (svc *Service) checkMembers(ctx context.Context, courseID, excludedGroupID string, nms []NewMember) ([]Member, error) {
	members := make([]Member, 0, len(nms))
	if len(nms) == 0 {
		return members, nil
	}

	ids := memberIDs(nms)
	students, err := svc.students.GetMany(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting students")
	}
	byID := make(map[string]student.Student, len(students))
	for _, s := range students {
		if s.CourseID != courseID {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: "students",
				Error: fmt.Sprintf("student %s (%s) does not belong to this course", s.Name, s.StudentID),
			})
		}
		byID[s.ID] = s
	}

	memberships, err := svc.repo.CourseMemberships(ctx, courseID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting course memberships")
	}
	var taken []string
	for _, m := range memberships {
		if m.GroupID == excludedGroupID {
			continue
		}
		taken = append(taken, fmt.Sprintf("%s (%s) is already in %s", m.StudentName, m.StudentNo, m.GroupName))
	}
	if len(taken) > 0 {
		return nil, core.NewConflictError("students", "students already in a group: "+strings.Join(taken, ", "))
	}

	for _, nm := range nms {
		s := byID[nm.ID]
		members = append(members, Member{StudentID: nm.ID, Role: nm.Role, Student: &s})
	}
	return members, nil
}

func (svc *Service) Query(ctx context.Context, courseID string) ([]Group, error) {
	groups, err := svc.repo.QueryGroups(ctx, courseID)
	return groups, errors.Wrap(err, "querying groups")
}

func (svc *Service) Get(ctx context.Context, id string) (Group, error) {
	g, err := svc.repo.GetGroup(ctx, id)
	return g, errors.Wrap(err, "getting group")
}

func (svc *Service) Update(ctx context.Context, id string, ug UpdateGroup) (Group, error) {
	g, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		return Group{}, errors.Wrap(err, "getting group")
	}
	exists, err := svc.repo.GroupNameExists(ctx, ug.Name, g.CourseID, g.ID)
	if err != nil {
		return Group{}, errors.Wrap(err, "checking group name uniqueness")
	}
	if exists {
		return Group{}, ErrNameExists
	}

	g.Name = ug.Name
	g.Description = ug.Description
	g.UpdatedAt = time.Now().UTC()
	g, err = svc.repo.UpdateGroup(ctx, g)
	return g, errors.Wrap(err, "updating group")
}

// ReplaceMembers sets the members of a group to exactly the requested students.
func (svc *Service) ReplaceMembers(ctx context.Context, id string, mu MembersUpdate) (Group, error) {
	g, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		return Group{}, errors.Wrap(err, "getting group")
	}
	members, err := svc.checkMembers(ctx, g.CourseID, g.ID, mu.Students)
	if err != nil {
		return Group{}, err
	}
	if err = svc.repo.ReplaceMembers(ctx, g.ID, members); err != nil {
		return Group{}, errors.Wrap(err, "replacing group members")
	}
	g, err = svc.repo.GetGroup(ctx, g.ID)
	return g, errors.Wrap(err, "getting group")
}

func (svc *Service) Delete(ctx context.Context, id string) (DeleteResult, error) {
	g, err := svc.repo.GetGroup(ctx, id)
	if err != nil {
		return DeleteResult{}, errors.Wrap(err, "getting group")
	}
	memberships, err := svc.repo.DeleteGroup(ctx, g.ID)
	if err != nil {
		return DeleteResult{}, errors.Wrap(err, "deleting group")
	}
	return DeleteResult{
		Message:            fmt.Sprintf("group %q deleted", g.Name),
		DeletedMemberships: memberships,
	}, nil
}
