package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	echoapi "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/course"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/gradeitem"
	"github.com/trezcool/gradebook/core/group"
	"github.com/trezcool/gradebook/core/student"
	logsvc "github.com/trezcool/gradebook/services/logger"
	spreadsheetsvc "github.com/trezcool/gradebook/services/spreadsheet"
	"github.com/trezcool/gradebook/testutil"
)

func setup(t *testing.T) (*echoapi.Server, testutil.Repos) {
	conf := core.NewTestConfig()
	repos := testutil.DummyRepos(t)
	validate, translator := testutil.NewValidator()

	// set up services
	studentSvc := student.NewService(repos.Students, repos.Courses)
	gradeSvc := grade.NewService(
		repos.Grades,
		repos.Courses,
		repos.Students,
		repos.GradeItems,
		repos.Groups,
		spreadsheetsvc.NewExcelizeSpreadsheet(),
		conf,
	)

	// set up server
	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:         conf,
		Logger:       logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
		CourseSvc:    course.NewService(repos.Courses),
		StudentSvc:   studentSvc,
		GroupSvc:     group.NewService(repos.Groups, repos.Courses, studentSvc),
		GradeItemSvc: gradeitem.NewService(repos.GradeItems, repos.Courses),
		GradeSvc:     gradeSvc,
		Validate:     validate,
		Translator:   translator,
	})
	t.Cleanup(func() { _ = server.Close() })
	return server, repos
}

type httpErr struct {
	Error     string            `json:"error"`
	Details   string            `json:"details,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	FoundRows [][]string        `json:"found_rows,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

// run serves every test with server, checking codes & payloads.
func run(t *testing.T, server http.Handler, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			wantCode := tt.wantCode
			if wantCode == 0 {
				wantCode = http.StatusOK
			}

			req, rec := newRequest(method, tt.path, tt.body)
			server.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: wantCode, wantData: tt.wantData}, rec)
		})
	}
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

// do serves a single request and decodes the JSON response into dest, if any.
func do(t *testing.T, server http.Handler, method, path string, body []byte, dest interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newRequest(method, path, body)
	server.ServeHTTP(rec, req)
	if dest != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
			t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
		}
	}
	return rec
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	return marshalObj(t, objs)
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func required(field string) httpErr {
	return httpErr{Error: "this field is required", Fields: map[string]string{field: "this field is required"}}
}
