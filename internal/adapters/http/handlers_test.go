package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskmaster/tracker/internal/adapters/repository/memory"
	"github.com/taskmaster/tracker/internal/application/services"
	"github.com/taskmaster/tracker/internal/application/validation"
	"github.com/taskmaster/tracker/internal/infrastructure/config"
	"github.com/taskmaster/tracker/internal/infrastructure/logger"
)

type testAPI struct {
	e *echo.Echo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	log := logger.NewNop()
	users := memory.NewUserRepository()
	tasks := memory.NewTaskRepository()

	authService := services.NewAuthService(
		users,
		config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "test"},
		config.AuthConfig{BcryptCost: bcrypt.MinCost},
		log,
	)
	taskService := services.NewTaskService(tasks, services.NewOwnerEnricher(users, nil, 0, log), nil, log)

	e := echo.New()
	e.Validator = validation.Validator{}
	e.HTTPErrorHandler = ErrorHandler(log)
	RegisterRoutes(e, NewAuthHandler(authService, log), NewTaskHandler(taskService, log), Authenticate(authService, log))

	return &testAPI{e: e}
}

type envelope struct {
	Success    bool                    `json:"success"`
	Message    string                  `json:"message"`
	Data       json.RawMessage         `json:"data"`
	Pagination map[string]int          `json:"pagination"`
	Errors     []validation.FieldError `json:"errors"`
}

func (a *testAPI) do(t *testing.T, method, path, token, body string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

type authData struct {
	User  map[string]interface{} `json:"user"`
	Token string                 `json:"token"`
}

type taskData struct {
	ID        string                 `json:"_id"`
	Title     string                 `json:"title"`
	Status    string                 `json:"status"`
	Priority  string                 `json:"priority"`
	DueDate   *time.Time             `json:"dueDate"`
	CreatedBy map[string]interface{} `json:"createdBy"`
}

func (a *testAPI) register(t *testing.T, name, email string) (string, string) {
	t.Helper()

	body := `{"name":"` + name + `","email":"` + email + `","password":"secret123"}`
	code, env := a.do(t, http.MethodPost, "/auth/register", "", body)
	if code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, code, env.Message)
	}

	var data authData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatal(err)
	}
	return data.Token, data.User["_id"].(string)
}

func (a *testAPI) createTask(t *testing.T, token, body string) taskData {
	t.Helper()

	code, env := a.do(t, http.MethodPost, "/tasks", token, body)
	if code != http.StatusCreated {
		t.Fatalf("create task: %d %s", code, env.Message)
	}

	var task taskData
	if err := json.Unmarshal(env.Data, &task); err != nil {
		t.Fatal(err)
	}
	return task
}

func TestRegisterResponse(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(t, http.MethodPost, "/auth/register", "", `{"name":"Ana","email":"ana@example.com","password":"secret123"}`)
	if code != http.StatusCreated || !env.Success || env.Message != "User registered successfully" {
		t.Fatalf("got %d %+v", code, env)
	}

	var data authData
	_ = json.Unmarshal(env.Data, &data)
	if data.Token == "" {
		t.Error("token missing")
	}
	if data.User["email"] != "ana@example.com" || data.User["name"] != "Ana" {
		t.Errorf("user = %v", data.User)
	}
	for _, key := range []string{"password", "passwordHash", "PasswordHash"} {
		if _, leaked := data.User[key]; leaked {
			t.Errorf("user exposes %q", key)
		}
	}
}

func TestRegisterFailures(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "Ana", "ana@example.com")

	tests := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{"duplicate", `{"name":"Ana","email":"ana@example.com","password":"secret123"}`, http.StatusConflict, "User with this email already exists"},
		{"bad email", `{"name":"Ana","email":"nope","password":"secret123"}`, http.StatusBadRequest, "Please provide a valid email"},
		{"short password", `{"name":"Ana","email":"b@example.com","password":"123"}`, http.StatusBadRequest, "Password must be at least 6 characters"},
		{"malformed", `{"name":`, http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := api.do(t, http.MethodPost, "/auth/register", "", tt.body)
			if code != tt.code || env.Success || env.Message != tt.message {
				t.Errorf("got %d %q, want %d %q", code, env.Message, tt.code, tt.message)
			}
		})
	}
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "Ana", "ana@example.com")

	codeUnknown, unknown := api.do(t, http.MethodPost, "/auth/login", "", `{"email":"who@example.com","password":"secret123"}`)
	codeWrong, wrong := api.do(t, http.MethodPost, "/auth/login", "", `{"email":"ana@example.com","password":"wrong-pass"}`)

	if codeUnknown != http.StatusUnauthorized || codeWrong != http.StatusUnauthorized {
		t.Fatalf("codes = %d, %d", codeUnknown, codeWrong)
	}
	if unknown.Message != wrong.Message {
		t.Errorf("messages differ: %q vs %q", unknown.Message, wrong.Message)
	}

	code, env := api.do(t, http.MethodPost, "/auth/login", "", `{"email":"ana@example.com","password":"secret123"}`)
	if code != http.StatusOK || env.Message != "Login successful" {
		t.Errorf("login = %d %q", code, env.Message)
	}
}

func TestTasksRequireToken(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(t, http.MethodGet, "/tasks", "", "")
	if code != http.StatusUnauthorized || env.Message != "Not authorized, no token" {
		t.Errorf("no token: %d %q", code, env.Message)
	}

	code, env = api.do(t, http.MethodGet, "/tasks", "garbage", "")
	if code != http.StatusUnauthorized || env.Message != "Not authorized, token failed" {
		t.Errorf("bad token: %d %q", code, env.Message)
	}

	code, _ = api.do(t, http.MethodGet, "/auth/me", "", "")
	if code != http.StatusUnauthorized {
		t.Errorf("me without token: %d", code)
	}
}

func TestCreateTaskForcesOwner(t *testing.T) {
	api := newTestAPI(t)
	token, me := api.register(t, "Ana", "ana@example.com")
	_, other := api.register(t, "Ben", "ben@example.com")

	task := api.createTask(t, token, `{"title":"Write report","createdBy":"`+other+`"}`)

	if task.CreatedBy["_id"] != me {
		t.Errorf("createdBy = %v, want %s", task.CreatedBy["_id"], me)
	}
	if task.CreatedBy["name"] != "Ana" || task.CreatedBy["email"] != "ana@example.com" {
		t.Errorf("owner not embedded: %v", task.CreatedBy)
	}
	if task.Status != "pending" || task.Priority != "medium" {
		t.Errorf("defaults = %s/%s", task.Status, task.Priority)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "Ana", "ana@example.com")

	code, env := api.do(t, http.MethodPost, "/tasks", token, `{"description":"no title"}`)
	if code != http.StatusBadRequest || env.Message != "Title is required" {
		t.Errorf("got %d %q", code, env.Message)
	}
	if len(env.Errors) == 0 || env.Errors[0].Field != "title" {
		t.Errorf("errors = %+v", env.Errors)
	}

	code, _ = api.do(t, http.MethodPost, "/tasks", token, `{"title":"x","status":"done"}`)
	if code != http.StatusBadRequest {
		t.Errorf("bad status accepted: %d", code)
	}
}

func TestListTasksEnvelope(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "Ana", "ana@example.com")
	otherToken, _ := api.register(t, "Ben", "ben@example.com")

	for _, title := range []string{"Alpha report", "Beta", "Gamma report"} {
		api.createTask(t, token, `{"title":"`+title+`"}`)
	}
	api.createTask(t, otherToken, `{"title":"Ben's report"}`)

	code, env := api.do(t, http.MethodGet, "/tasks?limit=2", token, "")
	if code != http.StatusOK || env.Message != "Tasks retrieved successfully" {
		t.Fatalf("got %d %q", code, env.Message)
	}

	var tasks []taskData
	_ = json.Unmarshal(env.Data, &tasks)
	if len(tasks) != 2 || tasks[0].Title != "Gamma report" {
		t.Errorf("tasks = %+v", tasks)
	}
	want := map[string]int{"total": 3, "page": 1, "limit": 2, "pages": 2}
	for k, v := range want {
		if env.Pagination[k] != v {
			t.Errorf("pagination[%s] = %d, want %d", k, env.Pagination[k], v)
		}
	}

	_, env = api.do(t, http.MethodGet, "/tasks?search=REPORT&status=bogus&page=abc", token, "")
	_ = json.Unmarshal(env.Data, &tasks)
	if len(tasks) != 2 || env.Pagination["page"] != 1 {
		t.Errorf("search: %d tasks, pagination %v", len(tasks), env.Pagination)
	}

	_, env = api.do(t, http.MethodGet, "/tasks?page=9", token, "")
	if string(env.Data) != "[]" {
		t.Errorf("past-the-end data = %s, want []", env.Data)
	}
}

func TestListTasksHugePaging(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "Ana", "ana@example.com")
	api.createTask(t, token, `{"title":"One"}`)
	api.createTask(t, token, `{"title":"Two"}`)

	tests := []struct {
		name      string
		query     string
		wantTasks int
		wantPages int
	}{
		{"page past the end", "page=922337203685477582&limit=10", 0, 1},
		{"huge limit", "limit=9223372036854775807", 2, 1},
		{"huge page and limit", "page=9223372036854775807&limit=9223372036854775807", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := api.do(t, http.MethodGet, "/tasks?"+tt.query, token, "")
			if code != http.StatusOK {
				t.Fatalf("got %d %q", code, env.Message)
			}

			var tasks []taskData
			if err := json.Unmarshal(env.Data, &tasks); err != nil || tasks == nil {
				t.Fatalf("data = %s, want a list", env.Data)
			}
			if len(tasks) != tt.wantTasks {
				t.Errorf("got %d tasks, want %d", len(tasks), tt.wantTasks)
			}
			if env.Pagination["total"] != 2 || env.Pagination["pages"] != tt.wantPages {
				t.Errorf("pagination = %v", env.Pagination)
			}
		})
	}
}

func TestForeignTaskIsNotFound(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "Ana", "ana@example.com")
	otherToken, _ := api.register(t, "Ben", "ben@example.com")
	task := api.createTask(t, token, `{"title":"private"}`)

	requests := []struct {
		method string
		body   string
	}{
		{http.MethodGet, ""},
		{http.MethodPut, `{"title":"mine now"}`},
		{http.MethodDelete, ""},
	}
	for _, r := range requests {
		code, env := api.do(t, r.method, "/tasks/"+task.ID, otherToken, r.body)
		if code != http.StatusNotFound || env.Message != "Task not found" {
			t.Errorf("%s: %d %q", r.method, code, env.Message)
		}
	}

	code, _ := api.do(t, http.MethodGet, "/tasks/not-an-id", token, "")
	if code != http.StatusNotFound {
		t.Errorf("malformed id: %d", code)
	}

	code, env := api.do(t, http.MethodGet, "/tasks/"+task.ID, token, "")
	if code != http.StatusOK || env.Message != "Task retrieved successfully" {
		t.Errorf("owner get: %d %q", code, env.Message)
	}
}

func TestUpdateTask(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "Ana", "ana@example.com")
	task := api.createTask(t, token, `{"title":"draft","dueDate":"2030-01-15"}`)
	if task.DueDate == nil {
		t.Fatal("due date not stored")
	}

	code, env := api.do(t, http.MethodPut, "/tasks/"+task.ID, token, `{"status":"completed","dueDate":null}`)
	if code != http.StatusOK || env.Message != "Task updated successfully" {
		t.Fatalf("update: %d %q", code, env.Message)
	}
	var updated taskData
	_ = json.Unmarshal(env.Data, &updated)
	if updated.Status != "completed" || updated.Title != "draft" || updated.DueDate != nil {
		t.Errorf("updated = %+v", updated)
	}

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"empty", `{}`, "At least one field must be provided for update"},
		{"unknown field", `{"createdBy":"x"}`, `"createdBy" is not allowed`},
		{"empty title", `{"title":""}`, "Title is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := api.do(t, http.MethodPut, "/tasks/"+task.ID, token, tt.body)
			if code != http.StatusBadRequest || env.Message != tt.message {
				t.Errorf("got %d %q, want 400 %q", code, env.Message, tt.message)
			}
		})
	}
}

func TestDeleteTaskTwice(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "Ana", "ana@example.com")
	task := api.createTask(t, token, `{"title":"temp"}`)

	code, env := api.do(t, http.MethodDelete, "/tasks/"+task.ID, token, "")
	if code != http.StatusOK || env.Message != "Task deleted successfully" || env.Data != nil {
		t.Fatalf("delete: %d %+v", code, env)
	}

	code, _ = api.do(t, http.MethodDelete, "/tasks/"+task.ID, token, "")
	if code != http.StatusNotFound {
		t.Errorf("second delete: %d", code)
	}
}

func TestStatsAndMe(t *testing.T) {
	api := newTestAPI(t)
	token, me := api.register(t, "Ana", "ana@example.com")
	api.createTask(t, token, `{"title":"a","priority":"high"}`)
	api.createTask(t, token, `{"title":"b","status":"completed"}`)

	code, env := api.do(t, http.MethodGet, "/tasks/stats", token, "")
	if code != http.StatusOK {
		t.Fatalf("stats: %d %q", code, env.Message)
	}
	var stats struct {
		Total      int            `json:"total"`
		ByStatus   map[string]int `json:"byStatus"`
		ByPriority map[string]int `json:"byPriority"`
	}
	_ = json.Unmarshal(env.Data, &stats)
	if stats.Total != 2 || stats.ByStatus["completed"] != 1 || stats.ByPriority["high"] != 1 || stats.ByPriority["low"] != 0 {
		t.Errorf("stats = %+v", stats)
	}

	code, env = api.do(t, http.MethodGet, "/auth/me", token, "")
	var user map[string]interface{}
	_ = json.Unmarshal(env.Data, &user)
	if code != http.StatusOK || user["_id"] != me {
		t.Errorf("me: %d %v", code, user)
	}
}
