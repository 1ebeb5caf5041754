package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"regapi/internal/model"
	"regapi/internal/service"
)

// response is the success envelope shared by the student endpoints.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

func ok(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(response{Success: true, Message: message, Data: data})
}

// pidParam returns the :pid route parameter in canonical lowercase form when
// it is a well-formed UUID.
func pidParam(c *fiber.Ctx) (string, bool) {
	u, err := uuid.Parse(c.Params("pid"))
	if err != nil {
		return "", false
	}
	return u.String(), true
}

func parseInput(c *fiber.Ctx) (*model.StudentInput, error) {
	var in model.StudentInput
	if err := c.BodyParser(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

// RegisterStudent creates a new student record from a JSON body.
//
// @Summary  Register a student
// @Tags     students
// @Accept   json
// @Produce  json
// @Param    body body model.StudentInput true "Registration data"
// @Success  201 {object} response
// @Failure  400 {object} errorPayload
// @Router   /api/students/register [post]
func RegisterStudent(svc service.StudentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := parseInput(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		st, err := svc.Register(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return ok(c, fiber.StatusCreated, "student registered", st)
	}
}

// ListStudents lists registrations newest first with limit & offset.
//
// @Summary  List students
// @Tags     students
// @Produce  json
// @Param    limit  query int false "Page size, 0 for all"
// @Param    offset query int false "Rows to skip"
// @Success  200 {object} response
// @Failure  400 {object} errorPayload
// @Router   /api/students/all [get]
func ListStudents(svc service.StudentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "0"))
		if err != nil || limit < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil || offset < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(response{
			Success: true,
			Message: "students retrieved",
			Data:    res.Items,
			Count:   &res.Total,
		})
	}
}

// GetStudent returns one student record by PID.
//
// @Summary  Get a student
// @Tags     students
// @Produce  json
// @Param    pid path string true "Student PID"
// @Success  200 {object} response
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /api/students/{pid} [get]
func GetStudent(svc service.StudentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pid, valid := pidParam(c)
		if !valid {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PID", "invalid pid format")
		}
		st, err := svc.Get(c.UserContext(), pid)
		if err != nil {
			return writeServiceError(c, err)
		}
		return ok(c, fiber.StatusOK, "student retrieved", st)
	}
}

// UpdateStudent overwrites the supplied parts of a student record.
//
// @Summary  Update a student
// @Tags     students
// @Accept   json
// @Produce  json
// @Param    pid  path string            true "Student PID"
// @Param    body body model.StudentInput true "Fields to overwrite"
// @Success  200 {object} response
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Router   /api/students/{pid} [put]
func UpdateStudent(svc service.StudentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pid, valid := pidParam(c)
		if !valid {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PID", "invalid pid format")
		}
		in, err := parseInput(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		st, err := svc.Update(c.UserContext(), pid, in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return ok(c, fiber.StatusOK, "student updated", st)
	}
}

// UploadFiles stores the multipart files of a student and links them to the record.
// The same handler serves first uploads and replacements.
//
// @Summary  Upload or replace student files
// @Tags     students
// @Accept   multipart/form-data
// @Produce  json
// @Param    pid                        path     string true  "Student PID"
// @Param    photo_file                 formData file   false "Photo"
// @Param    signature_file             formData file   false "Signature"
// @Param    citizenship_file           formData file   false "Citizenship document"
// @Param    character_certificate_file formData file   false "Character certificate"
// @Param    marksheet_files            formData file   false "Marksheets, one per academic history"
// @Success  200 {object} response
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Failure  502 {object} errorPayload
// @Router   /api/students/{pid}/upload-files [post]
// @Router   /api/students/{pid}/update-files [put]
func UploadFiles(svc service.StudentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pid, valid := pidParam(c)
		if !valid {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PID", "invalid pid format")
		}
		bundle, closeFiles, err := parseFileBundle(c)
		defer closeFiles()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FORM", "invalid multipart form")
		}

		st, err := svc.SyncFiles(c.UserContext(), pid, bundle)
		if err != nil {
			return writeServiceError(c, err)
		}
		return ok(c, fiber.StatusOK, "files synced", st)
	}
}

// DeleteStudent removes a student record and every file it references.
//
// @Summary  Delete a student
// @Tags     students
// @Produce  json
// @Param    pid path string true "Student PID"
// @Success  200 {object} response
// @Failure  404 {object} errorPayload
// @Failure  502 {object} errorPayload
// @Router   /api/students/{pid} [delete]
func DeleteStudent(svc service.StudentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pid, valid := pidParam(c)
		if !valid {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PID", "invalid pid format")
		}
		if err := svc.Delete(c.UserContext(), pid); err != nil {
			return writeServiceError(c, err)
		}
		return ok(c, fiber.StatusOK, "student deleted", nil)
	}
}

// StudentFile redirects to a short-lived download URL for one file slot.
//
// @Summary  Download a student file
// @Tags     students
// @Param    pid  path string true "Student PID"
// @Param    slot path string true "photo, signature, citizenship, character-certificate or marksheet-N"
// @Success  302
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /api/students/{pid}/files/{slot} [get]
func StudentFile(svc service.StudentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pid, valid := pidParam(c)
		if !valid {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PID", "invalid pid format")
		}
		url, err := svc.FileURL(c.UserContext(), pid, c.Params("slot"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Redirect(url, fiber.StatusFound)
	}
}
