package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"regapi/internal/http/middleware"
	"regapi/internal/model"
	"regapi/internal/service"
	serviceMocks "regapi/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})

	t.Run("no database", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(nil))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
}

func decodeStudent(t *testing.T, body io.Reader) (envelope, model.Student) {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	var st model.Student
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, &st))
	}
	return env, st
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return req
}

func TestRegisterStudent(t *testing.T) {
	mockSvc := new(serviceMocks.MockStudentService)
	app := fiber.New()
	app.Post("/api/students", RegisterStudent(mockSvc))

	t.Run("success", func(t *testing.T) {
		pid := uuid.NewString()
		created := &model.Student{ID: 1, PID: pid, StudentData: model.StudentData{FirstName: "Asha", LastName: "Rai", Email: "asha@example.com"}}
		mockSvc.On("Register", mock.Anything, mock.MatchedBy(func(in *model.StudentInput) bool {
			_, hasAddresses := in.Addresses.Get()
			return in.FirstName == "Asha" && hasAddresses
		})).Return(created, nil).Once()

		body := `{"first_name":"Asha","last_name":"Rai","email":"asha@example.com","addresses":[]}`
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/students", body))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		env, st := decodeStudent(t, resp.Body)
		assert.True(t, env.Success)
		assert.Equal(t, "student registered", env.Message)
		assert.Equal(t, pid, st.PID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/students", `{"first_name":`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_BODY", res.Error.Code)
	})

	t.Run("validation failure lists fields", func(t *testing.T) {
		verr := &service.ValidationError{Fields: []service.FieldError{{Field: "email", Rule: "required"}}}
		mockSvc.On("Register", mock.Anything, mock.Anything).Return(nil, verr).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/students", `{"first_name":"Asha"}`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res struct {
			Error struct {
				Code    string               `json:"code"`
				Details []service.FieldError `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, "VALIDATION_FAILED", res.Error.Code)
		assert.Equal(t, verr.Fields, res.Error.Details)
		mockSvc.AssertExpectations(t)
	})
}

func TestListStudents(t *testing.T) {
	mockSvc := new(serviceMocks.MockStudentService)
	app := fiber.New()
	app.Get("/api/students", ListStudents(mockSvc))

	t.Run("success", func(t *testing.T) {
		expected := &service.StudentListResult{
			Items: []model.Student{{ID: 1, PID: uuid.NewString()}},
			Total: 3,
		}
		mockSvc.On("List", mock.Anything, 1, 2).Return(expected, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students?limit=1&offset=2", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var env envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		var items []model.Student
		require.NoError(t, json.Unmarshal(env.Data, &items))
		assert.Len(t, items, 1)
		require.NotNil(t, env.Count)
		assert.Equal(t, 3, *env.Count)
		mockSvc.AssertExpectations(t)
	})

	t.Run("defaults to everything", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, 0, 0).Return(&service.StudentListResult{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students?limit=abc", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_LIMIT", body.Error.Code)
	})

	t.Run("invalid offset", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students?offset=-1", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_OFFSET", body.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, 0, 0).Return(nil, errors.New("service error")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetStudent(t *testing.T) {
	mockSvc := new(serviceMocks.MockStudentService)
	app := fiber.New()
	app.Get("/api/students/:pid", GetStudent(mockSvc))

	t.Run("success", func(t *testing.T) {
		pid := uuid.NewString()
		mockSvc.On("Get", mock.Anything, pid).Return(&model.Student{ID: 4, PID: pid}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students/"+pid, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_, st := decodeStudent(t, resp.Body)
		assert.Equal(t, pid, st.PID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		pid := uuid.NewString()
		mockSvc.On("Get", mock.Anything, pid).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students/"+pid, nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("pid is canonicalized", func(t *testing.T) {
		pid := uuid.NewString()
		mockSvc.On("Get", mock.Anything, pid).Return(&model.Student{PID: pid}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students/"+strings.ToUpper(pid), nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid pid", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_PID", res.Error.Code)
	})
}

func TestUpdateStudent(t *testing.T) {
	mockSvc := new(serviceMocks.MockStudentService)
	app := fiber.New()
	app.Put("/api/students/:pid", UpdateStudent(mockSvc))

	t.Run("success", func(t *testing.T) {
		pid := uuid.NewString()
		mockSvc.On("Update", mock.Anything, pid, mock.MatchedBy(func(in *model.StudentInput) bool {
			docs, ok := in.Documents.Get()
			return ok && len(docs) == 0
		})).Return(&model.Student{PID: pid, Version: 2}, nil).Once()

		body := `{"first_name":"Asha","last_name":"Rai","email":"asha@example.com","documents":null}`
		resp, _ := app.Test(jsonRequest(http.MethodPut, "/api/students/"+pid, body))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_, st := decodeStudent(t, resp.Body)
		assert.Equal(t, 2, st.Version)
		mockSvc.AssertExpectations(t)
	})

	t.Run("conflict", func(t *testing.T) {
		pid := uuid.NewString()
		mockSvc.On("Update", mock.Anything, pid, mock.Anything).Return(nil, fmt.Errorf("update: %w", service.ErrConflict)).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPut, "/api/students/"+pid, `{}`))

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "CONFLICT", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

type formFile struct {
	field, name, body string
}

func multipartRequest(t *testing.T, method, target string, files ...formFile) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadFiles(t *testing.T) {
	mockSvc := new(serviceMocks.MockStudentService)
	app := fiber.New()
	app.Post("/api/students/:pid/upload-files", UploadFiles(mockSvc))
	app.Put("/api/students/:pid/update-files", UploadFiles(mockSvc))

	t.Run("builds the bundle", func(t *testing.T) {
		pid := uuid.NewString()
		var got service.FileBundle
		mockSvc.On("SyncFiles", mock.Anything, pid, mock.AnythingOfType("service.FileBundle")).
			Run(func(args mock.Arguments) {
				got = args.Get(2).(service.FileBundle)
				body, err := io.ReadAll(got.Photo.Reader)
				require.NoError(t, err)
				assert.Equal(t, "jpeg-bytes", string(body))
			}).
			Return(&model.Student{PID: pid, PhotoPath: "students/photos/x.jpg"}, nil).Once()

		req := multipartRequest(t, http.MethodPost, "/api/students/"+pid+"/upload-files",
			formFile{"photo_file", "me.jpg", "jpeg-bytes"},
			formFile{"signature_file", "sig.png", ""},
			formFile{"marksheet_files", "see.pdf", "1"},
			formFile{"marksheet_files", "plus2.pdf", "2"},
		)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotNil(t, got.Photo)
		assert.Equal(t, "me.jpg", got.Photo.Filename)
		assert.Equal(t, int64(len("jpeg-bytes")), got.Photo.Size)
		assert.Nil(t, got.Signature, "empty part counts as absent")
		require.Len(t, got.Marksheets, 2)
		assert.Equal(t, 0, got.Marksheets[0].Ordinal)
		assert.Equal(t, "see.pdf", got.Marksheets[0].File.Filename)
		assert.Equal(t, 1, got.Marksheets[1].Ordinal)
		mockSvc.AssertExpectations(t)
	})

	t.Run("indexed marksheets on update", func(t *testing.T) {
		pid := uuid.NewString()
		mockSvc.On("SyncFiles", mock.Anything, pid, mock.MatchedBy(func(b service.FileBundle) bool {
			return len(b.Marksheets) == 1 && b.Marksheets[0].Ordinal == 3 && b.Marksheets[0].File.Filename == "m3.pdf"
		})).Return(&model.Student{PID: pid}, nil).Once()

		req := multipartRequest(t, http.MethodPut, "/api/students/"+pid+"/update-files",
			formFile{"marksheet_files[3]", "m3.pdf", "3"},
		)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not multipart", func(t *testing.T) {
		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/students/"+uuid.NewString()+"/upload-files", `{}`))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_FORM", res.Error.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		pid := uuid.NewString()
		serr := &service.StorageError{Op: "store", Path: "photos", Err: errors.New("bucket down")}
		mockSvc.On("SyncFiles", mock.Anything, pid, mock.Anything).Return(nil, serr).Once()

		req := multipartRequest(t, http.MethodPost, "/api/students/"+pid+"/upload-files",
			formFile{"photo_file", "me.jpg", "x"},
		)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "STORAGE_ERROR", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestDeleteStudent(t *testing.T) {
	mockSvc := new(serviceMocks.MockStudentService)
	app := fiber.New()
	app.Delete("/api/students/:pid", DeleteStudent(mockSvc))

	t.Run("success", func(t *testing.T) {
		pid := uuid.NewString()
		mockSvc.On("Delete", mock.Anything, pid).Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/students/"+pid, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var env envelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
		assert.True(t, env.Success)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		pid := uuid.NewString()
		mockSvc.On("Delete", mock.Anything, pid).Return(service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/students/"+pid, nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestStudentFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockStudentService)
	app := fiber.New()
	app.Get("/api/students/:pid/files/:slot", StudentFile(mockSvc))

	t.Run("redirects", func(t *testing.T) {
		pid := uuid.NewString()
		mockSvc.On("FileURL", mock.Anything, pid, "photo").Return("https://blobs.example/p.jpg?sig=1", nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students/"+pid+"/files/photo", nil))

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "https://blobs.example/p.jpg?sig=1", resp.Header.Get("Location"))
		mockSvc.AssertExpectations(t)
	})

	t.Run("empty slot", func(t *testing.T) {
		pid := uuid.NewString()
		mockSvc.On("FileURL", mock.Anything, pid, "signature").Return("", service.ErrFileNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students/"+pid+"/files/signature", nil))

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "FILE_NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"pid", service.ErrPIDRequired, http.StatusBadRequest, "PID_REQUIRED"},
		{"unknown slot", fmt.Errorf("%w: %w %q", service.ErrValidation, service.ErrUnknownSlot, "x"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"not found", service.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"conflict", service.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"storage", &service.StorageError{Op: "delete", Path: "p", Err: errors.New("boom")}, http.StatusBadGateway, "STORAGE_ERROR"},
		{"partial sync", &service.PartialSyncError{
			Orphaned: []string{"a", "b"},
			Err:      &service.StorageError{Op: "delete", Path: "a", Err: errors.New("boom")},
		}, http.StatusInternalServerError, "PARTIAL_SYNC"},
		{"unexpected", errors.New("db exploded"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Use(middleware.RequestID())
			app.Get("/", func(c *fiber.Ctx) error { return writeServiceError(c, tc.err) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(middleware.RequestIDHeader, "req-1")
			resp, _ := app.Test(req)

			assert.Equal(t, tc.status, resp.StatusCode)
			var res errorPayload
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
			assert.False(t, res.Success)
			assert.Equal(t, tc.code, res.Error.Code)
			assert.Equal(t, "req-1", res.RequestID)
			assert.NotContains(t, res.Message, "boom")
			assert.NotContains(t, res.Message, "exploded")
		})
	}
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockStudentService)
	RegisterRoutes(app, nil, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})

	t.Run("student routes are mounted", func(t *testing.T) {
		pid := uuid.NewString()
		mockSvc.On("Get", mock.Anything, pid).Return(&model.Student{PID: pid}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students/"+pid, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("list is not taken for a pid", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, 0, 0).Return(&service.StudentListResult{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/students/all", nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("register", func(t *testing.T) {
		mockSvc.On("Register", mock.Anything, mock.Anything).Return(&model.Student{PID: uuid.NewString()}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/students/register", `{"first_name":"A"}`))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestMarksheetIndex(t *testing.T) {
	n, ok := marksheetIndex("marksheet_files[2]")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	for _, key := range []string{"marksheet_files", "marksheet_files[]", "marksheet_files[-1]", "marksheet_files[x]", "photo_file"} {
		_, ok := marksheetIndex(key)
		assert.False(t, ok, key)
	}
}
