package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"regapi/internal/model"
)

// student_details.kind values.
const (
	kindPersonal    = "personal"
	kindContact     = "contact"
	kindFinancial   = "financial"
	kindBank        = "bank"
	kindCitizenship = "citizenship"
	kindEnrollment  = "enrollment"
	kindDeclaration = "declaration"
)

// student_collection_items.collection values.
const (
	collAddresses         = "addresses"
	collEmergencyContacts = "emergency_contacts"
	collDisabilities      = "disability_details"
	collGuardians         = "parent_guardians"
	collExtracurriculars  = "extracurricular_details"
)

type detailRow struct {
	kind  string
	owned *model.Owned
	data  any
}

func detailRows(s *model.Student) []detailRow {
	var rows []detailRow
	add := func(kind string, owned *model.Owned, data any) {
		rows = append(rows, detailRow{kind: kind, owned: owned, data: data})
	}
	if d := s.PersonalDetails; d != nil {
		add(kindPersonal, &d.Owned, d.PersonalData)
	}
	if d := s.ContactDetail; d != nil {
		add(kindContact, &d.Owned, d.ContactData)
	}
	if d := s.FinancialDetail; d != nil {
		add(kindFinancial, &d.Owned, d.FinancialData)
	}
	if d := s.BankDetail; d != nil {
		add(kindBank, &d.Owned, d.BankData)
	}
	if d := s.CitizenshipDetail; d != nil {
		add(kindCitizenship, &d.Owned, d.CitizenshipData)
	}
	if d := s.AcademicEnrollment; d != nil {
		add(kindEnrollment, &d.Owned, d.EnrollmentData)
	}
	if d := s.Declaration; d != nil {
		add(kindDeclaration, &d.Owned, d.DeclarationData)
	}
	return rows
}

type itemRow struct {
	owned *model.Owned
	data  any
}

type collection struct {
	name string
	rows []itemRow
}

func itemsOf[E any](list []E, row func(*E) itemRow) []itemRow {
	rows := make([]itemRow, 0, len(list))
	for i := range list {
		rows = append(rows, row(&list[i]))
	}
	return rows
}

// collections lists the JSON-backed collections in a fixed write order.
func collections(s *model.Student) []collection {
	return []collection{
		{collAddresses, itemsOf(s.Addresses, func(a *model.Address) itemRow {
			return itemRow{&a.Owned, a.AddressData}
		})},
		{collEmergencyContacts, itemsOf(s.EmergencyContacts, func(c *model.EmergencyContact) itemRow {
			return itemRow{&c.Owned, c.EmergencyContactData}
		})},
		{collDisabilities, itemsOf(s.DisabilityDetails, func(d *model.DisabilityDetail) itemRow {
			return itemRow{&d.Owned, d.DisabilityData}
		})},
		{collGuardians, itemsOf(s.ParentGuardians, func(g *model.ParentGuardian) itemRow {
			return itemRow{&g.Owned, g.GuardianData}
		})},
		{collExtracurriculars, itemsOf(s.ExtracurricularDetails, func(e *model.ExtracurricularDetail) itemRow {
			return itemRow{&e.Owned, e.ExtracurricularData}
		})},
	}
}

// saveChildren writes every child of s. With reconcile set, stored rows
// whose IDs are no longer present in s are deleted first so that fixed
// document types never collide with their replacements.
func saveChildren(ctx context.Context, q querier, s *model.Student, reconcile bool) error {
	for _, d := range detailRows(s) {
		if err := upsertDetail(ctx, q, s, d); err != nil {
			return fmt.Errorf("save %s details: %w", d.kind, err)
		}
	}

	for _, c := range collections(s) {
		if reconcile {
			keep := make([]int64, 0, len(c.rows))
			for _, row := range c.rows {
				keep = appendID(keep, row.owned.ID)
			}
			if err := deleteMissing(ctx, q, "student_collection_items", "student_id = $1 AND collection = $2",
				[]any{s.ID, c.name}, keep); err != nil {
				return fmt.Errorf("prune %s: %w", c.name, err)
			}
		}
		for pos, row := range c.rows {
			if err := saveItem(ctx, q, s, c.name, pos, row); err != nil {
				return fmt.Errorf("save %s: %w", c.name, err)
			}
		}
	}

	if reconcile {
		keep := make([]int64, 0, len(s.AcademicHistories))
		for _, h := range s.AcademicHistories {
			keep = appendID(keep, h.ID)
		}
		if err := deleteMissing(ctx, q, "academic_histories", "student_id = $1", []any{s.ID}, keep); err != nil {
			return fmt.Errorf("prune academic histories: %w", err)
		}
	}
	for i := range s.AcademicHistories {
		if err := saveHistory(ctx, q, s, &s.AcademicHistories[i]); err != nil {
			return fmt.Errorf("save academic history: %w", err)
		}
	}

	if reconcile {
		keep := make([]int64, 0, len(s.Documents))
		for _, d := range s.Documents {
			keep = appendID(keep, d.ID)
		}
		if err := deleteMissing(ctx, q, "student_documents", "student_id = $1", []any{s.ID}, keep); err != nil {
			return fmt.Errorf("prune documents: %w", err)
		}
	}
	for i := range s.Documents {
		if err := saveDocument(ctx, q, s, &s.Documents[i]); err != nil {
			return fmt.Errorf("save document: %w", err)
		}
	}
	return nil
}

func appendID(ids []int64, id int64) []int64 {
	if id == 0 {
		return ids
	}
	return append(ids, id)
}

// deleteMissing deletes rows matching scope whose id is not in keep.
// table and scope are package constants, never caller input.
func deleteMissing(ctx context.Context, q querier, table, scope string, args []any, keep []int64) error {
	query := "DELETE FROM " + table + " WHERE " + scope
	if len(keep) > 0 {
		ph := make([]string, len(keep))
		for i, id := range keep {
			args = append(args, id)
			ph[i] = "$" + strconv.Itoa(len(args))
		}
		query += " AND id NOT IN (" + strings.Join(ph, ", ") + ")"
	}
	_, err := q.ExecContext(ctx, query, args...)
	return err
}

func upsertDetail(ctx context.Context, q querier, s *model.Student, d detailRow) error {
	payload, err := json.Marshal(d.data)
	if err != nil {
		return err
	}
	const qUpsert = `
		INSERT INTO student_details (student_id, kind, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, kind) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	d.owned.StudentID = s.ID
	return q.QueryRowContext(ctx, qUpsert,
		s.ID,
		d.kind,
		string(payload),
		d.owned.CreatedAt,
		d.owned.UpdatedAt,
	).Scan(&d.owned.ID)
}

func saveItem(ctx context.Context, q querier, s *model.Student, name string, pos int, row itemRow) error {
	payload, err := json.Marshal(row.data)
	if err != nil {
		return err
	}
	row.owned.StudentID = s.ID
	if row.owned.ID == 0 {
		const qInsert = `
			INSERT INTO student_collection_items (student_id, collection, position, payload, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`
		return q.QueryRowContext(ctx, qInsert,
			s.ID,
			name,
			pos,
			string(payload),
			row.owned.CreatedAt,
			row.owned.UpdatedAt,
		).Scan(&row.owned.ID)
	}
	const qUpdate = `
		UPDATE student_collection_items
		SET position = $1, payload = $2, updated_at = $3
		WHERE id = $4 AND student_id = $5
	`
	_, err = q.ExecContext(ctx, qUpdate, pos, string(payload), row.owned.UpdatedAt, row.owned.ID, s.ID)
	return err
}

func saveHistory(ctx context.Context, q querier, s *model.Student, h *model.AcademicHistory) error {
	h.StudentID = s.ID
	if h.ID == 0 {
		const qInsert = `
			INSERT INTO academic_histories (student_id, qualification, institution, board, passed_year, gpa, marksheet_path, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`
		return q.QueryRowContext(ctx, qInsert,
			s.ID,
			string(h.Qualification),
			h.Institution,
			h.Board,
			h.PassedYear,
			h.GPA,
			h.MarksheetPath,
			h.CreatedAt,
			h.UpdatedAt,
		).Scan(&h.ID)
	}
	const qUpdate = `
		UPDATE academic_histories
		SET qualification = $1, institution = $2, board = $3, passed_year = $4, gpa = $5,
		    marksheet_path = $6, updated_at = $7
		WHERE id = $8 AND student_id = $9
	`
	_, err := q.ExecContext(ctx, qUpdate,
		string(h.Qualification),
		h.Institution,
		h.Board,
		h.PassedYear,
		h.GPA,
		h.MarksheetPath,
		h.UpdatedAt,
		h.ID,
		s.ID,
	)
	return err
}

func saveDocument(ctx context.Context, q querier, s *model.Student, d *model.StudentDocument) error {
	d.StudentID = s.ID
	if d.ID == 0 {
		const qInsert = `
			INSERT INTO student_documents (student_id, document_type, file_path, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		return q.QueryRowContext(ctx, qInsert,
			s.ID,
			string(d.DocumentType),
			d.FilePath,
			d.CreatedAt,
			d.UpdatedAt,
		).Scan(&d.ID)
	}
	const qUpdate = `
		UPDATE student_documents
		SET document_type = $1, file_path = $2, updated_at = $3
		WHERE id = $4 AND student_id = $5
	`
	_, err := q.ExecContext(ctx, qUpdate, string(d.DocumentType), d.FilePath, d.UpdatedAt, d.ID, s.ID)
	return err
}

// loadChildren populates every child of s from its tables.
func loadChildren(ctx context.Context, q querier, s *model.Student) error {
	if err := loadDetails(ctx, q, s); err != nil {
		return fmt.Errorf("load details: %w", err)
	}
	if err := loadItems(ctx, q, s); err != nil {
		return fmt.Errorf("load collections: %w", err)
	}
	if err := loadHistories(ctx, q, s); err != nil {
		return fmt.Errorf("load academic histories: %w", err)
	}
	if err := loadDocuments(ctx, q, s); err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	return nil
}

func loadDetails(ctx context.Context, q querier, s *model.Student) error {
	const qSelect = `
		SELECT id, kind, payload, created_at, updated_at
		FROM student_details
		WHERE student_id = $1
	`
	rows, err := q.QueryContext(ctx, qSelect, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			kind    string
			payload []byte
			owned   = model.Owned{StudentID: s.ID}
		)
		if err := rows.Scan(&owned.ID, &kind, &payload, &owned.CreatedAt, &owned.UpdatedAt); err != nil {
			return err
		}
		if err := decodeDetail(s, kind, owned, payload); err != nil {
			return err
		}
	}
	return rows.Err()
}

func decodeOne[E, D any](dst **E, payload []byte, build func(D) *E) error {
	var d D
	if err := json.Unmarshal(payload, &d); err != nil {
		return err
	}
	*dst = build(d)
	return nil
}

func decodeDetail(s *model.Student, kind string, o model.Owned, payload []byte) error {
	switch kind {
	case kindPersonal:
		return decodeOne(&s.PersonalDetails, payload, func(d model.PersonalData) *model.PersonalDetails {
			return &model.PersonalDetails{Owned: o, PersonalData: d}
		})
	case kindContact:
		return decodeOne(&s.ContactDetail, payload, func(d model.ContactData) *model.ContactDetail {
			return &model.ContactDetail{Owned: o, ContactData: d}
		})
	case kindFinancial:
		return decodeOne(&s.FinancialDetail, payload, func(d model.FinancialData) *model.FinancialDetail {
			return &model.FinancialDetail{Owned: o, FinancialData: d}
		})
	case kindBank:
		return decodeOne(&s.BankDetail, payload, func(d model.BankData) *model.BankDetail {
			return &model.BankDetail{Owned: o, BankData: d}
		})
	case kindCitizenship:
		return decodeOne(&s.CitizenshipDetail, payload, func(d model.CitizenshipData) *model.CitizenshipDetail {
			return &model.CitizenshipDetail{Owned: o, CitizenshipData: d}
		})
	case kindEnrollment:
		return decodeOne(&s.AcademicEnrollment, payload, func(d model.EnrollmentData) *model.AcademicEnrollment {
			return &model.AcademicEnrollment{Owned: o, EnrollmentData: d}
		})
	case kindDeclaration:
		return decodeOne(&s.Declaration, payload, func(d model.DeclarationData) *model.Declaration {
			return &model.Declaration{Owned: o, DeclarationData: d}
		})
	}
	return fmt.Errorf("unknown detail kind %q", kind)
}

func loadItems(ctx context.Context, q querier, s *model.Student) error {
	const qSelect = `
		SELECT id, collection, payload, created_at, updated_at
		FROM student_collection_items
		WHERE student_id = $1
		ORDER BY collection, position, id
	`
	rows, err := q.QueryContext(ctx, qSelect, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name    string
			payload []byte
			owned   = model.Owned{StudentID: s.ID}
		)
		if err := rows.Scan(&owned.ID, &name, &payload, &owned.CreatedAt, &owned.UpdatedAt); err != nil {
			return err
		}
		if err := decodeItem(s, name, owned, payload); err != nil {
			return err
		}
	}
	return rows.Err()
}

func appendDecoded[E, D any](list *[]E, payload []byte, build func(D) E) error {
	var d D
	if err := json.Unmarshal(payload, &d); err != nil {
		return err
	}
	*list = append(*list, build(d))
	return nil
}

func decodeItem(s *model.Student, name string, o model.Owned, payload []byte) error {
	switch name {
	case collAddresses:
		return appendDecoded(&s.Addresses, payload, func(d model.AddressData) model.Address {
			return model.Address{Owned: o, AddressData: d}
		})
	case collEmergencyContacts:
		return appendDecoded(&s.EmergencyContacts, payload, func(d model.EmergencyContactData) model.EmergencyContact {
			return model.EmergencyContact{Owned: o, EmergencyContactData: d}
		})
	case collDisabilities:
		return appendDecoded(&s.DisabilityDetails, payload, func(d model.DisabilityData) model.DisabilityDetail {
			return model.DisabilityDetail{Owned: o, DisabilityData: d}
		})
	case collGuardians:
		return appendDecoded(&s.ParentGuardians, payload, func(d model.GuardianData) model.ParentGuardian {
			return model.ParentGuardian{Owned: o, GuardianData: d}
		})
	case collExtracurriculars:
		return appendDecoded(&s.ExtracurricularDetails, payload, func(d model.ExtracurricularData) model.ExtracurricularDetail {
			return model.ExtracurricularDetail{Owned: o, ExtracurricularData: d}
		})
	}
	return fmt.Errorf("unknown collection %q", name)
}

func loadHistories(ctx context.Context, q querier, s *model.Student) error {
	const qSelect = `
		SELECT id, qualification, institution, board, passed_year, gpa, marksheet_path, created_at, updated_at
		FROM academic_histories
		WHERE student_id = $1
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, qSelect, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		h := model.AcademicHistory{Owned: model.Owned{StudentID: s.ID}}
		var qualification string
		if err := rows.Scan(
			&h.ID,
			&qualification,
			&h.Institution,
			&h.Board,
			&h.PassedYear,
			&h.GPA,
			&h.MarksheetPath,
			&h.CreatedAt,
			&h.UpdatedAt,
		); err != nil {
			return err
		}
		h.Qualification = model.Qualification(qualification)
		s.AcademicHistories = append(s.AcademicHistories, h)
	}
	return rows.Err()
}

func loadDocuments(ctx context.Context, q querier, s *model.Student) error {
	const qSelect = `
		SELECT id, document_type, file_path, created_at, updated_at
		FROM student_documents
		WHERE student_id = $1
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, qSelect, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		d := model.StudentDocument{Owned: model.Owned{StudentID: s.ID}}
		var docType string
		if err := rows.Scan(&d.ID, &docType, &d.FilePath, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return err
		}
		d.DocumentType = model.DocumentType(docType)
		s.Documents = append(s.Documents, d)
	}
	return rows.Err()
}
