package grade_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/gradeitem"
	"github.com/trezcool/gradebook/core/gradesheet"
	"github.com/trezcool/gradebook/core/group"
	"github.com/trezcool/gradebook/core/student"
	spreadsheetsvc "github.com/trezcool/gradebook/services/spreadsheet"
	"github.com/trezcool/gradebook/testutil"
)

type fixture struct {
	svc        *grade.Service
	repos      testutil.Repos
	sheet      core.Spreadsheet
	course     course.Course
	midterm    gradeitem.GradeItem
	final      gradeitem.GradeItem
	alice, bob student.Student
	carol      student.Student
}

func setUp(t *testing.T) fixture {
	repos := testutil.DummyRepos(t)
	sheet := spreadsheetsvc.NewExcelizeSpreadsheet()
	f := fixture{
		svc:    grade.NewService(repos.Grades, repos.Courses, repos.Students, repos.GradeItems, repos.Groups, sheet, core.NewTestConfig()),
		repos:  repos,
		sheet:  sheet,
		course: testutil.CreateCourse(t, repos.Courses, "Animation 101"),
	}
	f.midterm = testutil.CreateGradeItem(t, repos.GradeItems, f.course.ID, "Midterm", 0.4, 100)
	f.final = testutil.CreateGradeItem(t, repos.GradeItems, f.course.ID, "Final", 0.6, 50)
	f.alice = testutil.CreateStudent(t, repos.Students, f.course.ID, "Alice", "S001")
	f.bob = testutil.CreateStudent(t, repos.Students, f.course.ID, "Bob", "S002")
	f.carol = testutil.CreateStudent(t, repos.Students, f.course.ID, "Carol", "S003")
	return f
}

func score(v float64) *float64 { return &v }

func TestService_Upsert(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)

	g, err := f.svc.Upsert(ctx, grade.NewGrade{StudentID: f.alice.ID, GradeItemID: f.midterm.ID, Score: score(70)})
	require.NoError(t, err)
	assert.Equal(t, 70.0, g.Score)
	require.NotNil(t, g.Student)
	assert.Equal(t, "S001", g.Student.StudentID)

	// overwriting keeps a single grade per (student, item)
	g2, err := f.svc.Upsert(ctx, grade.NewGrade{StudentID: f.alice.ID, GradeItemID: f.midterm.ID, Score: score(85)})
	require.NoError(t, err)
	assert.Equal(t, g.ID, g2.ID)
	assert.Equal(t, 85.0, g2.Score)

	grades, err := f.svc.Query(ctx, grade.QueryFilter{StudentID: f.alice.ID})
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, 85.0, grades[0].Score)
}

func TestService_Upsert_invalid(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)
	other := testutil.CreateCourse(t, f.repos.Courses, "Modeling 201")
	otherItem := testutil.CreateGradeItem(t, f.repos.GradeItems, other.ID, "Quiz", 1, 10)

	tests := []struct {
		name    string
		ng      grade.NewGrade
		checkFn func(t *testing.T, err error)
	}{
		{
			name: "score above max",
			ng:   grade.NewGrade{StudentID: f.alice.ID, GradeItemID: f.final.ID, Score: score(51)},
			checkFn: func(t *testing.T, err error) {
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, "score", vErr.Fields[0].Field)
			},
		},
		{
			name: "negative score",
			ng:   grade.NewGrade{StudentID: f.alice.ID, GradeItemID: f.final.ID, Score: score(-1)},
			checkFn: func(t *testing.T, err error) {
				var vErr *core.ValidationError
				assert.True(t, errors.As(err, &vErr))
			},
		},
		{
			name: "unknown student",
			ng:   grade.NewGrade{StudentID: "nope", GradeItemID: f.final.ID, Score: score(10)},
			checkFn: func(t *testing.T, err error) {
				assert.Equal(t, student.ErrNotFound, errors.Cause(err))
			},
		},
		{
			name: "unknown grade item",
			ng:   grade.NewGrade{StudentID: f.alice.ID, GradeItemID: "nope", Score: score(10)},
			checkFn: func(t *testing.T, err error) {
				assert.Equal(t, gradeitem.ErrNotFound, errors.Cause(err))
			},
		},
		{
			name: "grade item of another course",
			ng:   grade.NewGrade{StudentID: f.alice.ID, GradeItemID: otherItem.ID, Score: score(10)},
			checkFn: func(t *testing.T, err error) {
				assert.Equal(t, grade.ErrWrongCourse, errors.Cause(err))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Upsert(ctx, tc.ng)
			require.Error(t, err)
			tc.checkFn(t, err)
		})
	}

	grades, err := f.svc.Query(ctx, grade.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, grades)
}

func TestService_UpsertForGroup(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)
	g1 := testutil.CreateGroup(t, f.repos.Groups, f.course.ID, "Group 1", f.alice, f.bob)
	empty := testutil.CreateGroup(t, f.repos.Groups, f.course.ID, "Group 2")

	t.Run("every member is scored", func(t *testing.T) {
		testutil.SetGrade(t, f.repos.Grades, f.alice.ID, f.midterm.ID, 10)

		res, err := f.svc.UpsertForGroup(ctx, grade.NewGroupGrade{GroupID: g1.ID, GradeItemID: f.midterm.ID, Score: score(90)})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 2, res.AffectedStudents)
		assert.Equal(t, "Group 1", res.GroupName)
		assert.Equal(t, "Midterm", res.GradeItemName)
		assert.Equal(t, 90.0, res.Score)

		grades, err := f.svc.Query(ctx, grade.QueryFilter{GradeItemID: f.midterm.ID})
		require.NoError(t, err)
		require.Len(t, grades, 2)
		for _, g := range grades {
			assert.Equal(t, 90.0, g.Score)
		}
	})

	t.Run("group without members", func(t *testing.T) {
		_, err := f.svc.UpsertForGroup(ctx, grade.NewGroupGrade{GroupID: empty.ID, GradeItemID: f.final.ID, Score: score(40)})
		assert.Equal(t, grade.ErrNoMembers, errors.Cause(err))
	})

	t.Run("score out of range writes nothing", func(t *testing.T) {
		_, err := f.svc.UpsertForGroup(ctx, grade.NewGroupGrade{GroupID: g1.ID, GradeItemID: f.final.ID, Score: score(60)})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))

		grades, err := f.svc.Query(ctx, grade.QueryFilter{GradeItemID: f.final.ID})
		require.NoError(t, err)
		assert.Empty(t, grades)
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := f.svc.UpsertForGroup(ctx, grade.NewGroupGrade{GroupID: "nope", GradeItemID: f.final.ID, Score: score(40)})
		assert.Equal(t, group.ErrNotFound, errors.Cause(err))
	})
}

func TestService_Gradebook(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)
	testutil.SetGrade(t, f.repos.Grades, f.alice.ID, f.midterm.ID, 80) // 80%
	testutil.SetGrade(t, f.repos.Grades, f.alice.ID, f.final.ID, 45)   // 90%
	testutil.SetGrade(t, f.repos.Grades, f.bob.ID, f.midterm.ID, 55)   // 55%, final missing

	gb, err := f.svc.Gradebook(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, f.course.ID, gb.Course.ID)
	assert.Len(t, gb.GradeItems, 2)
	require.Len(t, gb.Students, 3)

	alice, bob, carol := gb.Students[0], gb.Students[1], gb.Students[2]
	assert.Equal(t, "S001", alice.Student.StudentID)
	assert.InDelta(t, 86.0, alice.Total, 1e-9)
	assert.Equal(t, "B", alice.Letter)
	assert.Equal(t, map[string]float64{f.midterm.ID: 80, f.final.ID: 45}, alice.Scores)

	assert.InDelta(t, 55.0, bob.Total, 1e-9, "missing items are left out of the weights")
	assert.Equal(t, "F", bob.Letter)

	assert.Equal(t, 0.0, carol.Total)
	assert.Empty(t, carol.Scores)

	_, err = f.svc.Gradebook(ctx, "nope")
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
}

func TestService_ItemReport(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)
	testutil.SetGrade(t, f.repos.Grades, f.bob.ID, f.final.ID, 30)   // D
	testutil.SetGrade(t, f.repos.Grades, f.alice.ID, f.final.ID, 46) // A
	testutil.SetGrade(t, f.repos.Grades, f.carol.ID, f.final.ID, 20) // F

	report, err := f.svc.ItemReport(ctx, f.final.ID)
	require.NoError(t, err)
	assert.Equal(t, "Animation 101", report.GradeItem.CourseName)
	require.Len(t, report.Grades, 3)
	assert.Equal(t, "S001", report.Grades[0].Student.StudentID)
	assert.Equal(t, "S003", report.Grades[2].Student.StudentID)
	assert.Equal(t, 3, report.Stats.Count)
	assert.InDelta(t, 32.0, report.Stats.Mean, 1e-9)
	assert.Equal(t, 46.0, report.Stats.Max)
	assert.Equal(t, 20.0, report.Stats.Min)
	assert.Equal(t, map[string]int{"A": 1, "B": 0, "C": 0, "D": 1, "F": 1}, report.Distribution)

	_, err = f.svc.ItemReport(ctx, "nope")
	assert.Equal(t, gradeitem.ErrNotFound, errors.Cause(err))
}

func TestService_UnfinishedGroups(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)
	dave := testutil.CreateStudent(t, f.repos.Students, f.course.ID, "Dave", "S004")
	done := testutil.CreateGroup(t, f.repos.Groups, f.course.ID, "Group 1", f.alice)
	partial := testutil.CreateGroup(t, f.repos.Groups, f.course.ID, "Group 2", f.bob, f.carol)
	pending := testutil.CreateGroup(t, f.repos.Groups, f.course.ID, "Group 3", dave)
	testutil.CreateGroup(t, f.repos.Groups, f.course.ID, "Group 4")
	testutil.SetGrade(t, f.repos.Grades, f.alice.ID, f.midterm.ID, 80)
	testutil.SetGrade(t, f.repos.Grades, f.bob.ID, f.midterm.ID, 80)

	groups, err := f.svc.UnfinishedGroups(ctx, f.midterm.ID)
	require.NoError(t, err)
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	assert.ElementsMatch(t, []string{partial.ID, pending.ID}, ids)
	assert.NotContains(t, ids, done.ID)
}

func TestService_Export(t *testing.T) {
	ctx := context.Background()
	f := setUp(t)
	testutil.SetGrade(t, f.repos.Grades, f.alice.ID, f.midterm.ID, 88.5)
	testutil.SetGrade(t, f.repos.Grades, f.bob.ID, f.midterm.ID, 70)

	template := func(t *testing.T, rows ...[]interface{}) *bytes.Reader {
		return bytes.NewReader(testutil.NewTemplate(t, "Roster", rows...))
	}

	t.Run("scores are merged", func(t *testing.T) {
		r := template(t,
			[]interface{}{"Animation 101 roster"},
			[]interface{}{"姓名", "Class", "學號"},
			[]interface{}{"Alice", "A", "S001"},
			[]interface{}{"Bob", "A", "S002"},
			[]interface{}{"Zed", "A", "S999"},
		)
		exp, err := f.svc.Export(ctx, f.midterm.ID, r)
		require.NoError(t, err)
		assert.Equal(t, 2, exp.Updated)
		assert.Equal(t, []string{"S999"}, exp.NotFound)
		assert.True(t, strings.HasPrefix(exp.FileName, "Animation 101_Midterm_"), exp.FileName)
		assert.True(t, strings.HasSuffix(exp.FileName, ".xlsx"), exp.FileName)
		assert.NotContains(t, strings.TrimSuffix(exp.FileName, ".xlsx"), ".")
		assert.Equal(t, f.sheet.ContentType(), exp.ContentType)

		sheet, rows := testutil.ReadSheet(t, exp.Data)
		assert.Equal(t, "Roster", sheet)
		assert.Equal(t, []string{"姓名", "Class", "學號", "Midterm"}, rows[1])
		assert.Equal(t, []string{"Alice", "A", "S001", "88.5"}, rows[2])
		assert.Equal(t, []string{"Bob", "A", "S002", "70"}, rows[3])
		assert.Equal(t, []string{"Zed", "A", "S999"}, rows[4])
	})

	t.Run("untouched cells keep their value and type", func(t *testing.T) {
		xf := excelize.NewFile()
		require.NoError(t, xf.SetSheetRow("Sheet1", "A1", &[]interface{}{"StudentID", "Name", "Score", "Credits"}))
		require.NoError(t, xf.SetSheetRow("Sheet1", "A2", &[]interface{}{"S001", "Alice", 10, 3}))
		require.NoError(t, xf.SetSheetRow("Sheet1", "A3", &[]interface{}{1001, "Dan", 85.678, 3}))
		intStyle, err := xf.NewStyle(&excelize.Style{NumFmt: 1})
		require.NoError(t, err)
		require.NoError(t, xf.SetCellStyle("Sheet1", "C3", "C3", intStyle))
		buf, err := xf.WriteToBuffer()
		require.NoError(t, err)
		require.NoError(t, xf.Close())

		exp, err := f.svc.Export(ctx, f.midterm.ID, bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, 1, exp.Updated)
		assert.Equal(t, []string{"1001"}, exp.NotFound)

		out, err := excelize.OpenReader(bytes.NewReader(exp.Data))
		require.NoError(t, err)
		defer func() { _ = out.Close() }()

		for cell, want := range map[string]string{"C2": "88.5", "D2": "3", "A3": "1001", "C3": "85.678", "D3": "3"} {
			raw, err := out.GetCellValue("Sheet1", cell, excelize.Options{RawCellValue: true})
			require.NoError(t, err)
			assert.Equal(t, want, raw, cell)
			typ, err := out.GetCellType("Sheet1", cell)
			require.NoError(t, err)
			assert.Contains(t, []excelize.CellType{excelize.CellTypeNumber, excelize.CellTypeUnset}, typ, "%s is numeric", cell)
		}
		style, err := out.GetCellStyle("Sheet1", "C3")
		require.NoError(t, err)
		assert.Equal(t, intStyle, style)
	})

	t.Run("no template", func(t *testing.T) {
		_, err := f.svc.Export(ctx, f.midterm.ID, nil)
		assert.Equal(t, grade.ErrNoTemplate, errors.Cause(err))
	})

	t.Run("unreadable template", func(t *testing.T) {
		_, err := f.svc.Export(ctx, f.midterm.ID, strings.NewReader("not a spreadsheet"))
		var tErr *gradesheet.TemplateError
		assert.True(t, errors.As(err, &tErr))
	})

	t.Run("no identifier column", func(t *testing.T) {
		r := template(t, []interface{}{"Name", "Class"}, []interface{}{"Alice", "A"})
		_, err := f.svc.Export(ctx, "nope", r)
		var tErr *gradesheet.TemplateError
		require.True(t, errors.As(err, &tErr), "template errors come before an unknown grade item")
		assert.Equal(t, [][]string{{"Name", "Class"}, {"Alice", "A"}}, tErr.FoundRows)
	})

	t.Run("unknown grade item", func(t *testing.T) {
		r := template(t, []interface{}{"StudentID"}, []interface{}{"S001"})
		_, err := f.svc.Export(ctx, "nope", r)
		assert.Equal(t, gradeitem.ErrNotFound, errors.Cause(err))
	})
}
