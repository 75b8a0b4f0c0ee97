package grade

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/gradeitem"
	"github.com/trezcool/gradebook/core/gradesheet"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/group"
	"github.com/trezcool/gradebook/core/student"
)

// exportTimeFormat mimics an ISO-8601 timestamp without the characters file systems dislike.
const exportTimeFormat = "2006-01-02T15-04-05.000Z"

var (
	// errors
	ErrNoMembers   = core.NewValidationError(nil, core.FieldError{Field: "group_id", Error: "the group has no members"})
	ErrNoTemplate  = core.NewValidationError(nil, core.FieldError{Field: "template", Error: "a template file is required"})
	ErrWrongCourse = core.NewValidationError(nil, core.FieldError{
		Field: "grade_item_id",
		Error: "the grade item does not belong to the course of the student",
	})
)

type (
	Repository interface {
		// UpsertGrades creates or overwrites the grades keyed on (StudentID, GradeItemID), all or nothing.
		UpsertGrades(ctx context.Context, grades []Grade) ([]Grade, error)
		// QueryGrades applies AND operation on available QueryFilter fields, most recently updated first.
		// Grades come with their Student & GradeItem.
		QueryGrades(ctx context.Context, filter QueryFilter) ([]Grade, error)
	}

	Service struct {
		repo     Repository
		courses  course.Repository
		students student.Repository
		items    gradeitem.Repository
		groups   group.Repository
		sheet    core.Spreadsheet
		scanRows int
	}
)

func NewService(
	repo Repository,
	courses course.Repository,
	students student.Repository,
	items gradeitem.Repository,
	groups group.Repository,
	sheet core.Spreadsheet,
	cfg *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		courses:  courses,
		students: students,
		items:    items,
		groups:   groups,
		sheet:    sheet,
		scanRows: cfg.Export.HeaderScanRows,
	}
}

func checkScore(score float64, gi gradeitem.GradeItem) error {
	if score < 0 || score > gi.MaxScore {
		return core.NewValidationError(nil, core.FieldError{
			Field: "score",
			Error: fmt.Sprintf("score must be between 0 and %v", gi.MaxScore),
		})
	}
	return nil
}

// Upsert records the score of a student for a grade item, overwriting any previous score.
func (svc *Service) Upsert(ctx context.Context, ng NewGrade) (Grade, error) {
	s, err := svc.students.GetStudent(ctx, ng.StudentID)
	if err != nil {
		return Grade{}, errors.Wrap(err, "getting student")
	}
	gi, err := svc.items.GetGradeItem(ctx, ng.GradeItemID)
	if err != nil {
		return Grade{}, errors.Wrap(err, "getting grade item")
	}
	if gi.CourseID != s.CourseID {
		return Grade{}, ErrWrongCourse
	}
	if err = checkScore(*ng.Score, gi); err != nil {
		return Grade{}, err
	}

	now := time.Now().UTC()
	grades, err := svc.repo.UpsertGrades(ctx, []Grade{{
		StudentID:   s.ID,
		GradeItemID: gi.ID,
		Score:       *ng.Score,
		CreatedAt:   now,
		UpdatedAt:   now,
	}})
	if err != nil {
		return Grade{}, errors.Wrap(err, "upserting grade")
	}
	g := grades[0]
	g.Student = &s
	g.GradeItem = &gi
	return g, nil
}

// UpsertForGroup records the same score for every member of a group, in a single transaction.
func (svc *Service) UpsertForGroup(ctx context.Context, ng NewGroupGrade) (GroupGradeResult, error) {
	grp, err := svc.groups.GetGroup(ctx, ng.GroupID)
	if err != nil {
		return GroupGradeResult{}, errors.Wrap(err, "getting group")
	}
	gi, err := svc.items.GetGradeItem(ctx, ng.GradeItemID)
	if err != nil {
		return GroupGradeResult{}, errors.Wrap(err, "getting grade item")
	}
	memberIDs := grp.MemberIDs()
	if len(memberIDs) == 0 {
		return GroupGradeResult{}, ErrNoMembers
	}
	if gi.CourseID != grp.CourseID {
		return GroupGradeResult{}, core.NewValidationError(nil, core.FieldError{
			Field: "grade_item_id",
			Error: "the grade item does not belong to the course of the group",
		})
	}
	if err = checkScore(*ng.Score, gi); err != nil {
		return GroupGradeResult{}, err
	}

	now := time.Now().UTC()
	grades := make([]Grade, 0, len(memberIDs))
	for _, id := range memberIDs {
		grades = append(grades, Grade{
			StudentID:   id,
			GradeItemID: gi.ID,
			Score:       *ng.Score,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if _, err = svc.repo.UpsertGrades(ctx, grades); err != nil {
		return GroupGradeResult{}, errors.Wrap(err, "upserting group grades")
	}

	return GroupGradeResult{
		Success:          true,
		Message:          fmt.Sprintf("scored %d student(s) of %s", len(grades), grp.Name),
		AffectedStudents: len(grades),
		GroupName:        grp.Name,
		GradeItemName:    gi.Name,
		Score:            *ng.Score,
	}, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Grade, error) {
	grades, err := svc.repo.QueryGrades(ctx, filter)
	return grades, errors.Wrap(err, "querying grades")
}

// Gradebook computes the weighted total of every student of a course.
func (svc *Service) Gradebook(ctx context.Context, courseID string) (Gradebook, error) {
	c, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return Gradebook{}, errors.Wrap(err, "getting course")
	}
	items, err := svc.items.QueryGradeItems(ctx, c.ID)
	if err != nil {
		return Gradebook{}, errors.Wrap(err, "querying grade items")
	}
	students, err := svc.students.QueryStudents(ctx, student.QueryFilter{CourseID: c.ID}, nil)
	if err != nil {
		return Gradebook{}, errors.Wrap(err, "querying students")
	}
	grades, err := svc.repo.QueryGrades(ctx, QueryFilter{CourseID: c.ID})
	if err != nil {
		return Gradebook{}, errors.Wrap(err, "querying grades")
	}

	itemsByID := make(map[string]gradeitem.GradeItem, len(items))
	for _, gi := range items {
		itemsByID[gi.ID] = gi
	}
	byStudent := make(map[string][]Grade, len(students))
	for _, g := range grades {
		byStudent[g.StudentID] = append(byStudent[g.StudentID], g)
	}

	sort.SliceStable(students, func(i, j int) bool { return students[i].StudentID < students[j].StudentID })
	totals := make([]StudentTotal, 0, len(students))
	for _, s := range students {
		st := StudentTotal{Student: s, Scores: make(map[string]float64)}
		var scores []grading.Score
		for _, g := range byStudent[s.ID] {
			gi, ok := itemsByID[g.GradeItemID]
			if !ok {
				continue
			}
			st.Scores[gi.ID] = g.Score
			scores = append(scores, grading.Score{Score: g.Score, MaxScore: gi.MaxScore, Weight: gi.Weight})
		}
		st.Total = grading.WeightedTotal(scores)
		st.Letter = grading.Letter(st.Total, 100)
		totals = append(totals, st)
	}

	return Gradebook{Course: c, GradeItems: items, Students: totals}, nil
}

// ItemReport returns the grades of a grade item along with their statistics & letter distribution.
func (svc *Service) ItemReport(ctx context.Context, itemID string) (ItemReport, error) {
	gi, err := svc.items.GetGradeItem(ctx, itemID)
	if err != nil {
		return ItemReport{}, errors.Wrap(err, "getting grade item")
	}
	grades, err := svc.repo.QueryGrades(ctx, QueryFilter{GradeItemID: gi.ID})
	if err != nil {
		return ItemReport{}, errors.Wrap(err, "querying grades")
	}
	sort.SliceStable(grades, func(i, j int) bool { return studentNo(grades[i]) < studentNo(grades[j]) })

	scores := make([]float64, 0, len(grades))
	for _, g := range grades {
		scores = append(scores, g.Score)
	}
	return ItemReport{
		GradeItem:    gi,
		Grades:       grades,
		Stats:        grading.Statistics(scores),
		Distribution: grading.Distribution(scores, gi.MaxScore),
	}, nil
}

func studentNo(g Grade) string {
	if g.Student == nil {
		return ""
	}
	return g.Student.StudentID
}

// UnfinishedGroups returns the groups of the grade item's course having at least one member without a score.
// Groups without members are left out.
func (svc *Service) UnfinishedGroups(ctx context.Context, itemID string) ([]group.Group, error) {
	gi, err := svc.items.GetGradeItem(ctx, itemID)
	if err != nil {
		return nil, errors.Wrap(err, "getting grade item")
	}
	groups, err := svc.groups.QueryGroups(ctx, gi.CourseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	grades, err := svc.repo.QueryGrades(ctx, QueryFilter{GradeItemID: gi.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}

	graded := make(map[string]bool, len(grades))
	for _, g := range grades {
		graded[g.StudentID] = true
	}
	unfinished := make([]group.Group, 0, len(groups))
	for _, grp := range groups {
		for _, id := range grp.MemberIDs() {
			if !graded[id] {
				unfinished = append(unfinished, grp)
				break
			}
		}
	}
	return unfinished, nil
}

// Export fills the spreadsheet template read from r with the stored scores of a grade item.
func (svc *Service) Export(ctx context.Context, itemID string, r io.Reader) (Export, error) {
	if r == nil {
		return Export{}, ErrNoTemplate
	}
	wb, err := svc.sheet.Open(r)
	if err != nil {
		return Export{}, &gradesheet.TemplateError{Message: "the template could not be read", Detail: err.Error()}
	}
	defer func() { _ = wb.Close() }()

	rows, err := wb.Rows()
	if err != nil {
		return Export{}, &gradesheet.TemplateError{Message: "the template could not be read", Detail: err.Error()}
	}
	if len(rows) == 0 {
		return Export{}, gradesheet.ErrEmptyTemplate
	}
	// template errors take precedence over an unknown grade item
	if _, _, ok := gradesheet.FindHeader(rows, svc.scanRows); !ok {
		return Export{}, gradesheet.NoHeaderError(rows)
	}

	gi, err := svc.items.GetGradeItem(ctx, itemID)
	if err != nil {
		return Export{}, errors.Wrap(err, "getting grade item")
	}
	grades, err := svc.repo.QueryGrades(ctx, QueryFilter{GradeItemID: gi.ID})
	if err != nil {
		return Export{}, errors.Wrap(err, "querying grades")
	}
	scores := make(map[string]float64, len(grades))
	for _, g := range grades {
		if no := studentNo(g); no != "" {
			scores[no] = g.Score
		}
	}

	res, err := gradesheet.Merge(rows, scores, gi.Name, svc.scanRows)
	if err != nil {
		return Export{}, err
	}
	for _, c := range res.Cells {
		if err = wb.SetCell(c.Row, c.Col, c.Value); err != nil {
			return Export{}, errors.Wrap(err, "filling template")
		}
	}
	data, err := wb.Bytes()
	if err != nil {
		return Export{}, errors.Wrap(err, "writing spreadsheet")
	}

	ts := strings.ReplaceAll(time.Now().UTC().Format(exportTimeFormat), ".", "-")
	return Export{
		FileName:    fmt.Sprintf("%s_%s_%s%s", gi.CourseName, gi.Name, ts, svc.sheet.Ext()),
		ContentType: svc.sheet.ContentType(),
		Data:        data,
		Updated:     res.Updated,
		NotFound:    res.NotFound,
	}, nil
}
