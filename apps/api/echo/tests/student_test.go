package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/academia-app/academia/core"
	"github.com/academia-app/academia/core/student"
	testutil "github.com/academia-app/academia/tests"
)

func getStudent(t *testing.T, id int) student.Student {
	t.Helper()
	stud, err := studRepo.GetStudentByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetStudentByID(): %v", err)
	}
	return stud
}

func Test_studentApi_studentQuery(t *testing.T) {
	testutil.ResetDB(t, db)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", true)
	adminToken := getToken(t, admin)

	grp := testutil.CreateGroup(t, grpRepo, "Beginners", "Mon & Wed")
	s1 := testutil.CreateStudent(t, studRepo, "Maria Perez")
	s2 := testutil.CreateStudent(t, studRepo, "Juan Gomez")
	s3 := testutil.CreateStudent(t, studRepo, "Lucia Diaz")
	testutil.AddStudentToGroup(t, grpRepo, grp.ID, s1.ID)
	testutil.AddStudentToGroup(t, grpRepo, grp.ID, s3.ID)

	// memberships are materialized on reads
	s1 = getStudent(t, s1.ID)
	s3 = getStudent(t, s3.ID)

	tests := []httpTest{
		{name: "auth required", path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "get all", path: "/v1/students", token: adminToken, wantData: marchallList(t, 3, s1, s2, s3)},
		{
			name: "filter by group", path: "/v1/students?group_id=" + strconv.Itoa(grp.ID), token: adminToken,
			wantData: marchallList(t, 2, s1, s3),
		},
		{
			name: "filter by unknown group", path: "/v1/students?group_id=999", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "group not found"}),
		},
		// pagination: count stays the size of the full filtered set
		{name: "skip & limit", path: "/v1/students?skip=1&limit=1", token: adminToken, wantData: marchallList(t, 3, s2)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_studentCreate(t *testing.T) {
	testutil.ResetDB(t, db)

	usr := testutil.CreateUser(t, usrRepo, "Jane Siya", "jane@test.cd", "", false)
	usrToken := getToken(t, usr)

	grp := testutil.CreateGroup(t, grpRepo, "Beginners", "Mon & Wed")

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "required fields", token: usrToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, student.NewStudent{}),
			wantData: marchallObj(t, map[string]string{"full_name": "this field is required"}),
		},
		{
			name: "phone must be digits only", token: usrToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, student.NewStudent{FullName: "Maria Perez", ResponsibleAdultPhoneNumber: "+549 11 5555"}),
			wantData: marchallObj(t, map[string]string{"responsible_adult_phone_number": "only digits are allowed"}),
		},
		{
			name: "unknown group", token: usrToken, wantCode: http.StatusNotFound,
			body:     marchallObj(t, student.NewStudent{FullName: "Maria Perez", Groups: []int{999}}),
			wantData: marchallObj(t, httpErr{Error: "group not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/students"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("unknown group leaves nothing behind", func(t *testing.T) {
		count, err := studRepo.CountStudents(context.Background(), nil)
		if err != nil {
			t.Fatalf("CountStudents(): %v", err)
		}
		if count != 0 {
			t.Errorf("failed! count = %d; want 0", count)
		}
	})

	t.Run("student created with memberships", func(t *testing.T) {
		body := marchallObj(t, student.NewStudent{
			FullName:                    " Maria Perez ",
			City:                        "Rosario",
			ResponsibleAdultFullName:    "Carla Perez",
			ResponsibleAdultPhoneNumber: "5491155556666",
			Groups:                      []int{grp.ID},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", usrToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusCreated)
		}
		var respData student.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if respData.FullName != "Maria Perez" || respData.City != "Rosario" {
			t.Errorf("failed! data = %v", rec.Body.String())
		}
		if len(respData.GroupLinks) != 1 || respData.GroupLinks[0].GroupID != grp.ID {
			t.Errorf("failed! group links = %+v", respData.GroupLinks)
		}

		// the response mirrors the stored student
		stored := getStudent(t, respData.ID)
		tt := httpTest{wantCode: http.StatusCreated, wantData: marchallObj(t, stored)}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_studentApi_studentDetail(t *testing.T) {
	testutil.ResetDB(t, db)

	usr := testutil.CreateUser(t, usrRepo, "Jane Siya", "jane@test.cd", "", false)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.cd", "", true)
	usrToken := getToken(t, usr)
	adminToken := getToken(t, admin)

	grp := testutil.CreateGroup(t, grpRepo, "Beginners", "Mon & Wed")
	stud := testutil.CreateStudent(t, studRepo, "Maria Perez")
	testutil.AddStudentToGroup(t, grpRepo, grp.ID, stud.ID)
	stud = getStudent(t, stud.ID)
	studPath := "/v1/students/" + strconv.Itoa(stud.ID)

	notFound := marchallObj(t, httpErr{Error: "student not found"})

	tests := []httpTest{
		{name: "auth required", method: http.MethodGet, path: studPath, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},

		// an unknown id reads as 404 whatever the caller's privileges
		{name: "retrieve: unknown id wins over permissions", method: http.MethodGet, path: "/v1/students/999", token: usrToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "retrieve: superuser required", method: http.MethodGet, path: studPath, token: usrToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied)},
		{name: "retrieve", method: http.MethodGet, path: studPath, token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, stud)},

		{name: "update: unknown id", method: http.MethodPut, path: "/v1/students/999", token: usrToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "delete: unknown id", method: http.MethodDelete, path: "/v1/students/999", token: usrToken, wantCode: http.StatusNotFound, wantData: notFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("update keeps memberships when groups are absent", func(t *testing.T) {
		body := marchallObj(t, student.UpdateStudent{City: "Rosario"})
		req, rec := newAuthRequest(http.MethodPut, studPath, usrToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var respData student.Student
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if respData.City != "Rosario" || respData.FullName != stud.FullName {
			t.Errorf("failed! data = %v", rec.Body.String())
		}
		if len(respData.GroupLinks) != 1 {
			t.Errorf("failed! group links = %+v", respData.GroupLinks)
		}
	})

	t.Run("delete cascades to memberships and payments", func(t *testing.T) {
		testutil.CreatePayment(t, pmtRepo, stud.ID, 1500, core.Today())
		req, rec := newAuthRequest(http.MethodDelete, studPath, usrToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
		if _, err := studRepo.GetStudentByID(context.Background(), stud.ID); err != student.ErrNotFound {
			t.Errorf("GetStudentByID() error = %v, want %v", err, student.ErrNotFound)
		}
		links, err := grpRepo.GetStudentLinksByStudent(context.Background(), stud.ID)
		if err != nil {
			t.Fatalf("GetStudentLinksByStudent(): %v", err)
		}
		if len(links) != 0 {
			t.Errorf("failed! links = %+v; want none", links)
		}
		count, err := pmtRepo.CountPayments(context.Background(), nil)
		if err != nil {
			t.Fatalf("CountPayments(): %v", err)
		}
		if count != 0 {
			t.Errorf("failed! payments = %d; want 0", count)
		}
	})
}
