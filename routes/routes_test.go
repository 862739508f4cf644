package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/UnExplainableFish52/reliant-learners-academy/configs"
	"github.com/UnExplainableFish52/reliant-learners-academy/handlers"
	"github.com/UnExplainableFish52/reliant-learners-academy/middleware"
	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/UnExplainableFish52/reliant-learners-academy/routes"
	"github.com/UnExplainableFish52/reliant-learners-academy/services"
	"github.com/UnExplainableFish52/reliant-learners-academy/session"
	"github.com/UnExplainableFish52/reliant-learners-academy/store"
	"github.com/UnExplainableFish52/reliant-learners-academy/store/storetest"
	"github.com/UnExplainableFish52/reliant-learners-academy/websocket"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const secret = "test-secret"

type idleScheduler struct{}

func (idleScheduler) Every(time.Duration, func()) func() { return func() {} }

type testApp struct {
	app   *fiber.App
	db    *gorm.DB
	store *store.Store
	users map[string]models.User
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := storetest.DB(t)
	st := store.New(db)
	hub := websocket.NewHub()
	mgr := session.NewManager(st, idleScheduler{}, hub)
	t.Cleanup(mgr.Close)

	cfg := config.Settings{JWTSecret: secret, TokenTTL: time.Hour}
	h := handlers.New(db, st, mgr, hub, services.NewResultSheets(""), cfg)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	routes.AuthRoutes(app, h)
	routes.AdminRoutes(app, h)
	routes.ExamRoutes(app, h)
	routes.SocketRoutes(app, h)

	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ta := &testApp{app: app, db: db, store: st, users: map[string]models.User{}}
	for _, u := range []models.User{
		{FullName: "Admin", Email: "admin@academy.test", Role: models.RoleAdmin},
		{FullName: "Faculty One", Email: "faculty@academy.test", Role: models.RoleFaculty},
		{FullName: "Amina Yusuf", Email: "amina@academy.test", Role: models.RoleStudent, Papers: []string{"FR"}},
	} {
		u.Password = string(hash)
		u.IsActive = true
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("create user: %v", err)
		}
		ta.users[u.Role] = u
	}
	return ta
}

func (ta *testApp) token(t *testing.T, role string) string {
	t.Helper()
	tok, err := middleware.IssueToken(secret, ta.users[role], time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

func (ta *testApp) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, out
}

func frTest(locked bool) map[string]any {
	return map[string]any{
		"title": "FR Mock", "paper": "FR", "status": "Published", "durationMinutes": 30, "isLocked": locked,
		"questions": []map[string]any{{
			"id": 1, "type": "MCQ", "questionText": "Pick B", "points": 10,
			"mcqOptions": []map[string]any{
				{"id": 1, "text": "A", "isCorrect": false},
				{"id": 2, "text": "B", "isCorrect": true},
			},
		}},
	}
}

func TestLogin(t *testing.T) {
	ta := newTestApp(t)

	code, body := ta.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "amina@academy.test", "password": "password1"})
	if code != http.StatusOK || body["token"] == "" {
		t.Fatalf("login = %d %v", code, body)
	}
	p, err := middleware.ParseToken(secret, body["token"].(string))
	if err != nil || p.Role != models.RoleStudent || !p.Enrolled("FR") {
		t.Fatalf("token principal = %+v, %v", p, err)
	}

	code, _ = ta.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "amina@academy.test", "password": "wrong"})
	if code != http.StatusUnauthorized {
		t.Fatalf("bad password = %d", code)
	}
}

func TestRoleGuards(t *testing.T) {
	ta := newTestApp(t)
	cases := []struct {
		name   string
		method string
		path   string
		role   string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/faculty/tests", "", http.StatusBadRequest},
		{"student on faculty route", http.MethodGet, "/api/v1/faculty/tests", models.RoleStudent, http.StatusForbidden},
		{"faculty on student route", http.MethodGet, "/api/v1/student/tests", models.RoleFaculty, http.StatusForbidden},
		{"faculty on admin route", http.MethodPost, "/api/v1/admin/users", models.RoleFaculty, http.StatusForbidden},
		{"faculty lists tests", http.MethodGet, "/api/v1/faculty/tests", models.RoleFaculty, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tok := ""
			if tc.role != "" {
				tok = ta.token(t, tc.role)
			}
			if code, _ := ta.do(t, tc.method, tc.path, tok, nil); code != tc.want {
				t.Fatalf("status = %d, want %d", code, tc.want)
			}
		})
	}
}

func TestCreateTestValidatesMCQ(t *testing.T) {
	ta := newTestApp(t)
	tok := ta.token(t, models.RoleFaculty)

	bad := frTest(false)
	bad["questions"].([]map[string]any)[0]["mcqOptions"] = []map[string]any{
		{"id": 1, "text": "A", "isCorrect": true},
		{"id": 2, "text": "B", "isCorrect": true},
	}
	if code, body := ta.do(t, http.MethodPost, "/api/v1/faculty/tests", tok, bad); code != http.StatusBadRequest {
		t.Fatalf("two correct options = %d %v", code, body)
	}

	code, body := ta.do(t, http.MethodPost, "/api/v1/faculty/tests", tok, frTest(false))
	if code != http.StatusCreated || body["id"].(float64) != 1 {
		t.Fatalf("create = %d %v", code, body)
	}
}

func TestStudentAttemptFlow(t *testing.T) {
	ta := newTestApp(t)
	faculty := ta.token(t, models.RoleFaculty)
	student := ta.token(t, models.RoleStudent)

	if code, _ := ta.do(t, http.MethodPost, "/api/v1/faculty/tests", faculty, frTest(false)); code != http.StatusCreated {
		t.Fatalf("create test = %d", code)
	}

	code, body := ta.do(t, http.MethodPost, "/api/v1/student/tests/1/start", student, nil)
	if code != http.StatusOK {
		t.Fatalf("start = %d %v", code, body)
	}
	subID := int64(body["submissionId"].(float64))
	opts := body["test"].(map[string]any)["questions"].([]any)[0].(map[string]any)["mcqOptions"].([]any)
	if _, leaked := opts[1].(map[string]any)["isCorrect"]; leaked {
		t.Fatal("isCorrect sent to student")
	}

	code, body = ta.do(t, http.MethodPost, "/api/v1/student/tests/1/start", student, nil)
	if code != http.StatusOK || int64(body["submissionId"].(float64)) != subID {
		t.Fatalf("second start = %d %v", code, body)
	}

	if code, _ := ta.do(t, http.MethodPut, "/api/v1/student/tests/1/answers/1", student, map[string]int{"selectedOptionId": 2}); code != http.StatusOK {
		t.Fatalf("answer = %d", code)
	}
	if code, _ := ta.do(t, http.MethodPut, "/api/v1/student/tests/1/answers/1", student, map[string]int{"selectedOptionId": 7}); code != http.StatusBadRequest {
		t.Fatalf("unknown option = %d", code)
	}
	if code, _ := ta.do(t, http.MethodPost, "/api/v1/student/tests/1/finish", student, map[string]bool{"confirmed": false}); code != http.StatusBadRequest {
		t.Fatalf("unconfirmed finish = %d", code)
	}

	code, body = ta.do(t, http.MethodPost, "/api/v1/student/tests/1/finish", student, map[string]bool{"confirmed": true})
	review := fmt.Sprintf("/review-test/%d", subID)
	if code != http.StatusOK || body["redirect"] != review {
		t.Fatalf("finish = %d %v", code, body)
	}

	code, body = ta.do(t, http.MethodGet, "/api/v1/student/tests/1/session", student, nil)
	if code != http.StatusConflict || body["redirect"] != session.RouteTestList {
		t.Fatalf("session after finish = %d %v", code, body)
	}
	code, body = ta.do(t, http.MethodPost, "/api/v1/student/tests/1/start", student, nil)
	if code != http.StatusConflict || body["redirect"] != review {
		t.Fatalf("start after finish = %d %v", code, body)
	}

	code, body = ta.do(t, http.MethodGet, "/api/v1"+review, student, nil)
	if code != http.StatusOK || body["awarded"].(float64) != 10 || body["possible"].(float64) != 10 {
		t.Fatalf("review = %d %v", code, body)
	}
}

func TestLockCompletesLiveAttempt(t *testing.T) {
	ta := newTestApp(t)
	faculty := ta.token(t, models.RoleFaculty)
	student := ta.token(t, models.RoleStudent)

	ta.do(t, http.MethodPost, "/api/v1/faculty/tests", faculty, frTest(false))
	code, body := ta.do(t, http.MethodPost, "/api/v1/student/tests/1/start", student, nil)
	if code != http.StatusOK {
		t.Fatalf("start = %d %v", code, body)
	}
	subID := int64(body["submissionId"].(float64))

	if code, _ := ta.do(t, http.MethodPatch, "/api/v1/faculty/tests/1/lock", faculty, map[string]bool{"isLocked": true}); code != http.StatusOK {
		t.Fatalf("lock = %d", code)
	}

	rec, ok := store.FindSubmission(context.Background(), ta.store, subID)
	if !ok || rec.Status != models.SubmissionCompleted || rec.CompletionReason != string(session.ReasonLocked) {
		t.Fatalf("submission = %+v", rec)
	}
	code, _ = ta.do(t, http.MethodPut, "/api/v1/student/tests/1/answers/1", student, map[string]int{"selectedOptionId": 2})
	if code != http.StatusConflict {
		t.Fatalf("answer after lock = %d", code)
	}
}

func TestStartUnavailableTest(t *testing.T) {
	ta := newTestApp(t)
	faculty := ta.token(t, models.RoleFaculty)
	student := ta.token(t, models.RoleStudent)

	ta.do(t, http.MethodPost, "/api/v1/faculty/tests", faculty, frTest(true))
	code, body := ta.do(t, http.MethodPost, "/api/v1/student/tests/1/start", student, nil)
	if code != http.StatusForbidden || body["redirect"] != session.RouteTestList {
		t.Fatalf("start locked = %d %v", code, body)
	}
	code, _ = ta.do(t, http.MethodGet, "/api/v1/student/tests/1/session", student, nil)
	if code != http.StatusConflict {
		t.Fatalf("session without attempt = %d", code)
	}
}

func TestEnrollmentReadFromUserRecord(t *testing.T) {
	ta := newTestApp(t)
	faculty := ta.token(t, models.RoleFaculty)
	student := ta.token(t, models.RoleStudent)
	ta.do(t, http.MethodPost, "/api/v1/faculty/tests", faculty, frTest(false))

	// the token still claims FR after the student is unenrolled
	u := ta.users[models.RoleStudent]
	u.Papers = []string{"AA"}
	if err := ta.db.Save(&u).Error; err != nil {
		t.Fatalf("save user: %v", err)
	}

	code, body := ta.do(t, http.MethodPost, "/api/v1/student/tests/1/start", student, nil)
	if code != http.StatusForbidden || body["redirect"] != session.RouteTestList {
		t.Fatalf("start after unenrolling = %d %v", code, body)
	}

	u.Papers = []string{"AA", "FR"}
	if err := ta.db.Save(&u).Error; err != nil {
		t.Fatalf("save user: %v", err)
	}
	if code, body := ta.do(t, http.MethodPost, "/api/v1/student/tests/1/start", student, nil); code != http.StatusOK {
		t.Fatalf("start after enrolling = %d %v", code, body)
	}
}
