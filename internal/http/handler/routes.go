package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"regapi/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.StudentService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	students := app.Group("/api/students")
	students.Post("/register", RegisterStudent(svc))
	students.Get("/all", ListStudents(svc))
	students.Get("/:pid", GetStudent(svc))
	students.Put("/:pid", UpdateStudent(svc))
	students.Delete("/:pid", DeleteStudent(svc))
	students.Post("/:pid/upload-files", UploadFiles(svc))
	students.Put("/:pid/update-files", UploadFiles(svc))
	students.Get("/:pid/files/:slot", StudentFile(svc))
}
