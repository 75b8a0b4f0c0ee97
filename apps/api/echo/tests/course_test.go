package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/testutil"
)

func Test_home(t *testing.T) {
	server, _ := setup(t)

	rec := do(t, server, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Gradebook API!", rec.Body.String())
}

func Test_courseApi_create(t *testing.T) {
	server, repos := setup(t)
	testutil.CreateCourse(t, repos.Courses, "Modeling 201")

	tests := []httpTest{
		{name: "no data", method: http.MethodPost, path: "/api/courses", body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: marshalObj(t, required("name"))},
		{
			name: "blank name", method: http.MethodPost, path: "/api/courses", body: []byte(`{"name": "   "}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, required("name")),
		},
		{
			name: "name taken", method: http.MethodPost, path: "/api/courses", body: []byte(`{"name": " Modeling 201 "}`),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{
				Error:  course.ErrNameExists.Error(),
				Fields: map[string]string{"name": course.ErrNameExists.Error()},
			}),
		},
		{name: "malformed body", method: http.MethodPost, path: "/api/courses", body: []byte(`{"name": `), wantCode: http.StatusBadRequest},
	}
	run(t, server, tests)

	var c course.Course
	rec := do(t, server, http.MethodPost, "/api/courses", []byte(`{"name": " Animation 101 ", "code": "AN101", "description": "Intro"}`), &c)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Animation 101", c.Name)
	assert.Equal(t, "AN101", c.Code)
	assert.Equal(t, "Intro", c.Description)
}

func Test_courseApi_queryAndRetrieve(t *testing.T) {
	server, repos := setup(t)
	c1 := testutil.CreateCourse(t, repos.Courses, "Animation 101")
	c2 := testutil.CreateCourse(t, repos.Courses, "Modeling 201")
	alice := testutil.CreateStudent(t, repos.Students, c1.ID, "Alice", "S001")
	testutil.CreateStudent(t, repos.Students, c1.ID, "Bob", "S002")
	testutil.CreateGroup(t, repos.Groups, c1.ID, "Group 1", alice)
	testutil.CreateGradeItem(t, repos.GradeItems, c1.ID, "Midterm", 1, 100)

	withCounts := func(c course.Course, students, groups, items int) course.Course {
		c.StudentCount, c.GroupCount, c.GradeItemCount = students, groups, items
		return c
	}

	tests := []httpTest{
		{name: "query", path: "/api/courses", wantData: marshalList(t, c2, withCounts(c1, 2, 1, 1))},
		{name: "retrieve", path: "/api/courses/" + c1.ID, wantData: marshalObj(t, withCounts(c1, 2, 1, 1))},
		{name: "retrieve (trailing slash)", path: "/api/courses/" + c2.ID + "/", wantData: marshalObj(t, c2)},
		{name: "not found", path: "/api/courses/nope", wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "course not found"})},
	}
	run(t, server, tests)
}

func Test_courseApi_gradebook(t *testing.T) {
	server, repos := setup(t)
	c := testutil.CreateCourse(t, repos.Courses, "Animation 101")
	midterm := testutil.CreateGradeItem(t, repos.GradeItems, c.ID, "Midterm", 0.4, 100)
	final := testutil.CreateGradeItem(t, repos.GradeItems, c.ID, "Final", 0.6, 50)
	bob := testutil.CreateStudent(t, repos.Students, c.ID, "Bob", "S002")
	alice := testutil.CreateStudent(t, repos.Students, c.ID, "Alice", "S001")
	testutil.SetGrade(t, repos.Grades, alice.ID, midterm.ID, 80)
	testutil.SetGrade(t, repos.Grades, alice.ID, final.ID, 45)
	testutil.SetGrade(t, repos.Grades, bob.ID, final.ID, 50)

	var gb grade.Gradebook
	rec := do(t, server, http.MethodGet, "/api/courses/"+c.ID+"/gradebook", nil, &gb)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, c.ID, gb.Course.ID)
	require.Len(t, gb.GradeItems, 2)
	assert.Equal(t, midterm.ID, gb.GradeItems[0].ID)
	require.Len(t, gb.Students, 2)
	assert.Equal(t, alice.ID, gb.Students[0].Student.ID)
	assert.InDelta(t, 86.0, gb.Students[0].Total, 1e-9)
	assert.Equal(t, "B", gb.Students[0].Letter)
	assert.Equal(t, bob.ID, gb.Students[1].Student.ID)
	assert.InDelta(t, 100.0, gb.Students[1].Total, 1e-9)
	assert.Equal(t, "A", gb.Students[1].Letter)

	run(t, server, []httpTest{
		{name: "not found", path: "/api/courses/nope/gradebook", wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "course not found"})},
	})
}
