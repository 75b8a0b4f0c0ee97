package tests

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/gradeitem"
	"github.com/trezcool/gradebook/testutil"
)

func Test_gradeItemApi_create(t *testing.T) {
	server, repos := setup(t)
	c := testutil.CreateCourse(t, repos.Courses, "Animation 101")
	testutil.CreateGradeItem(t, repos.GradeItems, c.ID, "Midterm", 0.4, 100)

	tests := []httpTest{
		{name: "no name", method: http.MethodPost, path: "/api/grade-items", body: []byte(fmt.Sprintf(`{"course_id": %q}`, c.ID)), wantCode: http.StatusBadRequest, wantData: marshalObj(t, required("name"))},
		{name: "no course", method: http.MethodPost, path: "/api/grade-items", body: []byte(`{"name": "Final"}`), wantCode: http.StatusBadRequest, wantData: marshalObj(t, required("course_id"))},
		{name: "weight above 1", method: http.MethodPost, path: "/api/grade-items", body: []byte(fmt.Sprintf(`{"name": "Final", "course_id": %q, "weight": 1.2}`, c.ID)), wantCode: http.StatusBadRequest},
		{name: "zero max score", method: http.MethodPost, path: "/api/grade-items", body: []byte(fmt.Sprintf(`{"name": "Final", "course_id": %q, "max_score": 0}`, c.ID)), wantCode: http.StatusBadRequest},
		{
			name: "name taken", method: http.MethodPost, path: "/api/grade-items", body: []byte(fmt.Sprintf(`{"name": "Midterm", "course_id": %q}`, c.ID)),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{
				Error:  gradeitem.ErrNameExists.Error(),
				Fields: map[string]string{"name": gradeitem.ErrNameExists.Error()},
			}),
		},
		{
			name: "course not found", method: http.MethodPost, path: "/api/grade-items", body: []byte(`{"name": "Final", "course_id": "nope"}`),
			wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "course not found"}),
		},
	}
	run(t, server, tests)

	var gi gradeitem.GradeItem
	rec := do(t, server, http.MethodPost, "/api/grade-items", []byte(fmt.Sprintf(`{"name": "Final", "course_id": %q}`, c.ID)), &gi)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, gradeitem.DefaultWeight, gi.Weight)
	assert.Equal(t, gradeitem.DefaultMaxScore, gi.MaxScore)
	assert.Equal(t, "Animation 101", gi.CourseName)

	rec = do(t, server, http.MethodPost, "/api/grade-items", []byte(fmt.Sprintf(`{"name": "Quiz", "course_id": %q, "weight": 0, "max_score": 10}`, c.ID)), &gi)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 0.0, gi.Weight)
	assert.Equal(t, 10.0, gi.MaxScore)
}

func Test_gradeItemApi_query(t *testing.T) {
	server, repos := setup(t)
	c := testutil.CreateCourse(t, repos.Courses, "Animation 101")
	midterm := testutil.CreateGradeItem(t, repos.GradeItems, c.ID, "Midterm", 0.4, 100)
	final := testutil.CreateGradeItem(t, repos.GradeItems, c.ID, "Final", 0.6, 100)
	midterm.CourseName, final.CourseName = c.Name, c.Name

	run(t, server, []httpTest{
		{name: "by course", path: "/api/grade-items?courseId=" + c.ID, wantData: marshalList(t, midterm, final)},
		{name: "unknown course", path: "/api/grade-items?courseId=nope", wantData: marshalList(t)},
		{
			name: "no course", path: "/api/grade-items", wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "courseId is required", Fields: map[string]string{"courseId": "courseId is required"}}),
		},
	})
}

func Test_gradeItemApi_reportAndDestroy(t *testing.T) {
	server, repos := setup(t)
	c := testutil.CreateCourse(t, repos.Courses, "Animation 101")
	item := testutil.CreateGradeItem(t, repos.GradeItems, c.ID, "Midterm", 1, 100)
	bob := testutil.CreateStudent(t, repos.Students, c.ID, "Bob", "S002")
	alice := testutil.CreateStudent(t, repos.Students, c.ID, "Alice", "S001")
	testutil.SetGrade(t, repos.Grades, bob.ID, item.ID, 72)
	testutil.SetGrade(t, repos.Grades, alice.ID, item.ID, 95)

	var report grade.ItemReport
	rec := do(t, server, http.MethodGet, "/api/grade-items/"+item.ID, nil, &report)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Animation 101", report.GradeItem.CourseName)
	require.Len(t, report.Grades, 2)
	assert.Equal(t, alice.ID, report.Grades[0].StudentID)
	assert.Equal(t, bob.ID, report.Grades[1].StudentID)
	assert.Equal(t, 2, report.Stats.Count)
	assert.InDelta(t, 83.5, report.Stats.Mean, 1e-9)
	assert.Equal(t, 95.0, report.Stats.Max)
	assert.Equal(t, 72.0, report.Stats.Min)
	assert.Equal(t, map[string]int{"A": 1, "B": 0, "C": 1, "D": 0, "F": 0}, report.Distribution)

	run(t, server, []httpTest{
		{name: "report (not found)", path: "/api/grade-items/nope", wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "grade item not found"})},
		{
			name: "destroy", method: http.MethodDelete, path: "/api/grade-items/" + item.ID,
			wantData: marshalObj(t, gradeitem.DeleteResult{
				Success:       true,
				Message:       `grade item "Midterm" deleted along with 2 grade(s)`,
				DeletedGrades: 2,
				CourseName:    "Animation 101",
			}),
		},
		{name: "destroy (not found)", method: http.MethodDelete, path: "/api/grade-items/" + item.ID, wantCode: http.StatusNotFound},
		{name: "grades are gone", path: "/api/grades?studentId=" + alice.ID, wantData: marshalList(t)},
	})
}

// newTemplateRequest returns a multipart request uploading rows as an xlsx template.
func newTemplateRequest(t *testing.T, path string, rows ...[]interface{}) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("template", "roster.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(testutil.NewTemplate(t, "Roster", rows...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req, httptest.NewRecorder()
}

func Test_gradeItemApi_export(t *testing.T) {
	server, repos := setup(t)
	c := testutil.CreateCourse(t, repos.Courses, "Animation 101")
	item := testutil.CreateGradeItem(t, repos.GradeItems, c.ID, "Midterm", 1, 100)
	alice := testutil.CreateStudent(t, repos.Students, c.ID, "Alice", "S001")
	bob := testutil.CreateStudent(t, repos.Students, c.ID, "Bob", "S002")
	testutil.SetGrade(t, repos.Grades, alice.ID, item.ID, 88.5)
	testutil.SetGrade(t, repos.Grades, bob.ID, item.ID, 61)
	path := "/api/grade-items/" + item.ID + "/export"

	t.Run("export", func(t *testing.T) {
		req, rec := newTemplateRequest(t, path,
			[]interface{}{"Class roster"},
			[]interface{}{"Name", "StudentID", "Score"},
			[]interface{}{"Alice", "S001"},
			[]interface{}{"Bob", "S002", "10"},
			[]interface{}{"Zoé", "學生9"},
		)
		server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		h := rec.Header()
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", h.Get(echo.HeaderContentType))
		assert.True(t, strings.HasPrefix(h.Get(echo.HeaderContentDisposition), `attachment; filename="Animation%20101_Midterm_`), h.Get(echo.HeaderContentDisposition))
		assert.Equal(t, "2", h.Get("X-Updated-Count"))
		assert.Equal(t, "1", h.Get("X-Not-Found-Count"))
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("學生9")), h.Get("X-Not-Found-Students"))

		_, rows := testutil.ReadSheet(t, rec.Body.Bytes())
		require.Len(t, rows, 5)
		assert.Equal(t, []string{"Name", "StudentID", "Score"}, rows[1])
		assert.Equal(t, []string{"Alice", "S001", "88.5"}, rows[2])
		assert.Equal(t, []string{"Bob", "S002", "61"}, rows[3])
		assert.Equal(t, []string{"Zoé", "學生9"}, rows[4])
	})

	t.Run("everyone found", func(t *testing.T) {
		req, rec := newTemplateRequest(t, path, []interface{}{"學號"}, []interface{}{"S001"})
		server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "1", rec.Header().Get("X-Updated-Count"))
		assert.Equal(t, "0", rec.Header().Get("X-Not-Found-Count"))
		assert.Empty(t, rec.Header().Get("X-Not-Found-Students"))
	})

	t.Run("no identifier column", func(t *testing.T) {
		req, rec := newTemplateRequest(t, path, []interface{}{"Name", "Class"}, []interface{}{"Alice", "A"})
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{
				Error:     "no student identifier column found in the template",
				Details:   `the template must have a "學號", "Student NO" or "StudentID" column`,
				FoundRows: [][]string{{"Name", "Class"}, {"Alice", "A"}},
			}),
		}, rec)
	})

	t.Run("unknown grade item", func(t *testing.T) {
		req, rec := newTemplateRequest(t, "/api/grade-items/nope/export", []interface{}{"StudentID"}, []interface{}{"S001"})
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "grade item not found"})}, rec)
	})

	run(t, server, []httpTest{
		{
			name: "no template", method: http.MethodPost, path: path, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{
				Error:  "a template file is required",
				Fields: map[string]string{"template": "a template file is required"},
			}),
		},
	})
}
