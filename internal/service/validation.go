package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"regapi/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names so field errors match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type fieldErrors []FieldError

func (fe *fieldErrors) check(prefix string, v any) {
	err := validate.Struct(v)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		*fe = append(*fe, FieldError{Field: prefix, Rule: err.Error()})
		return
	}
	for _, e := range verrs {
		field := e.Field()
		if prefix != "" {
			field = prefix + "." + field
		}
		*fe = append(*fe, FieldError{Field: field, Rule: e.Tag()})
	}
}

func checkGroup[T any](fe *fieldErrors, name string, o model.Optional[T]) {
	if o.Set {
		fe.check(name, o.Value)
	}
}

func checkList[T any](fe *fieldErrors, name string, o model.Optional[[]T]) {
	if !o.Set {
		return
	}
	for i, v := range o.Value {
		fe.check(fmt.Sprintf("%s[%d]", name, i), v)
	}
}

// Validate checks an incoming record. Only supplied groups and collections
// are checked. The returned error is a *ValidationError.
func Validate(in *model.StudentInput) error {
	if in == nil {
		return &ValidationError{Fields: []FieldError{{Field: "body", Rule: "required"}}}
	}

	var fe fieldErrors
	fe.check("", in.StudentData)

	checkGroup(&fe, "personal_details", in.PersonalDetails)
	checkGroup(&fe, "contact_detail", in.ContactDetail)
	checkGroup(&fe, "financial_detail", in.FinancialDetail)
	checkGroup(&fe, "bank_detail", in.BankDetail)
	checkGroup(&fe, "citizenship_detail", in.CitizenshipDetail)
	checkGroup(&fe, "academic_enrollment", in.AcademicEnrollment)
	checkGroup(&fe, "declaration", in.Declaration)

	checkList(&fe, "addresses", in.Addresses)
	checkList(&fe, "emergency_contacts", in.EmergencyContacts)
	checkList(&fe, "disability_details", in.DisabilityDetails)
	checkList(&fe, "parent_guardians", in.ParentGuardians)
	checkList(&fe, "academic_histories", in.AcademicHistories)
	checkList(&fe, "extracurricular_details", in.ExtracurricularDetails)
	checkList(&fe, "documents", in.Documents)

	// At most one live record per fixed document type; Photo belongs on the root.
	seen := make(map[model.DocumentType]bool)
	for i, d := range in.Documents.Value {
		field := fmt.Sprintf("documents[%d].document_type", i)
		switch {
		case d.DocumentType == "":
			// already reported as required
		case !d.DocumentType.Valid():
			fe = append(fe, FieldError{Field: field, Rule: "oneof"})
		case d.DocumentType.IsFixed() && seen[d.DocumentType]:
			fe = append(fe, FieldError{Field: field, Rule: "unique"})
		}
		seen[d.DocumentType] = true
	}

	// A file path may back only one slot.
	paths := make(map[string]bool)
	claim := func(field, path string) {
		if path == "" {
			return
		}
		if paths[path] {
			fe = append(fe, FieldError{Field: field, Rule: "unique"})
		}
		paths[path] = true
	}
	for i, d := range in.Documents.Value {
		claim(fmt.Sprintf("documents[%d].file_path", i), d.FilePath)
	}
	for i, h := range in.AcademicHistories.Value {
		claim(fmt.Sprintf("academic_histories[%d].marksheet_path", i), h.MarksheetPath)
	}

	if len(fe) > 0 {
		return &ValidationError{Fields: fe}
	}
	return nil
}
