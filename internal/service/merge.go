package service

import (
	"time"

	"github.com/google/uuid"

	"regapi/internal/model"
)

type owner[E any] interface {
	*E
	Base() *model.Owned
}

// mergeOne overwrites a one-to-one child when the group is present, creating
// it stamped with the root ID when it does not exist yet.
func mergeOne[E, D any, PE owner[E]](cur PE, in model.Optional[D], rootID int64, now time.Time, set func(PE, D)) PE {
	if !in.Set {
		return cur
	}
	if cur == nil {
		cur = PE(new(E))
		cur.Base().Stamp(rootID, now)
	}
	set(cur, in.Value)
	cur.Base().UpdatedAt = now
	return cur
}

// rebuild replaces a whole collection when it is present. Every rebuilt
// element is a new child: no ID, owned by rootID, fresh timestamps.
func rebuild[E, D any, PE owner[E]](cur []E, in model.Optional[[]D], rootID int64, now time.Time, build func(D) E) []E {
	if !in.Set {
		return cur
	}
	out := make([]E, 0, len(in.Value))
	for _, d := range in.Value {
		e := build(d)
		PE(&e).Base().Stamp(rootID, now)
		out = append(out, e)
	}
	return out
}

// heldRefs records the file paths each slot kind held before an update. A
// client may echo a path back only into the same kind of slot, and only once.
type heldRefs struct {
	docs       map[model.DocumentType]map[string]struct{}
	marksheets map[string]struct{}
	claimed    map[string]struct{}
}

func newHeldRefs(s *model.Student) *heldRefs {
	h := &heldRefs{
		docs:       make(map[model.DocumentType]map[string]struct{}),
		marksheets: make(map[string]struct{}),
		claimed:    make(map[string]struct{}),
	}
	for _, d := range s.Documents {
		if d.FilePath == "" {
			continue
		}
		if h.docs[d.DocumentType] == nil {
			h.docs[d.DocumentType] = make(map[string]struct{})
		}
		h.docs[d.DocumentType][d.FilePath] = struct{}{}
	}
	for _, m := range s.AcademicHistories {
		if m.MarksheetPath != "" {
			h.marksheets[m.MarksheetPath] = struct{}{}
		}
	}
	return h
}

// keep returns path if it is in held and not yet claimed by this update, "" otherwise.
func (h *heldRefs) keep(held map[string]struct{}, path string) string {
	if path == "" {
		return ""
	}
	if _, ok := held[path]; !ok {
		return ""
	}
	if _, dup := h.claimed[path]; dup {
		return ""
	}
	h.claimed[path] = struct{}{}
	return path
}

// ApplyUpdate merges in into existing and returns it. Root scalars are always
// overwritten; absent groups and collections are left as they are. It never
// touches blob storage; released paths are found by comparing FileRefs.
func ApplyUpdate(existing *model.Student, in *model.StudentInput, now time.Time) *model.Student {
	held := newHeldRefs(existing)
	id := existing.ID

	existing.StudentData = in.StudentData

	existing.PersonalDetails = mergeOne(existing.PersonalDetails, in.PersonalDetails, id, now,
		func(e *model.PersonalDetails, d model.PersonalData) { e.PersonalData = d })
	existing.ContactDetail = mergeOne(existing.ContactDetail, in.ContactDetail, id, now,
		func(e *model.ContactDetail, d model.ContactData) { e.ContactData = d })
	existing.FinancialDetail = mergeOne(existing.FinancialDetail, in.FinancialDetail, id, now,
		func(e *model.FinancialDetail, d model.FinancialData) { e.FinancialData = d })
	existing.BankDetail = mergeOne(existing.BankDetail, in.BankDetail, id, now,
		func(e *model.BankDetail, d model.BankData) { e.BankData = d })
	existing.CitizenshipDetail = mergeOne(existing.CitizenshipDetail, in.CitizenshipDetail, id, now,
		func(e *model.CitizenshipDetail, d model.CitizenshipData) { e.CitizenshipData = d })
	existing.AcademicEnrollment = mergeOne(existing.AcademicEnrollment, in.AcademicEnrollment, id, now,
		func(e *model.AcademicEnrollment, d model.EnrollmentData) { e.EnrollmentData = d })
	existing.Declaration = mergeOne(existing.Declaration, in.Declaration, id, now,
		func(e *model.Declaration, d model.DeclarationData) { e.DeclarationData = d })

	existing.Addresses = rebuild(existing.Addresses, in.Addresses, id, now,
		func(d model.AddressData) model.Address { return model.Address{AddressData: d} })
	existing.EmergencyContacts = rebuild(existing.EmergencyContacts, in.EmergencyContacts, id, now,
		func(d model.EmergencyContactData) model.EmergencyContact {
			return model.EmergencyContact{EmergencyContactData: d}
		})
	existing.DisabilityDetails = rebuild(existing.DisabilityDetails, in.DisabilityDetails, id, now,
		func(d model.DisabilityData) model.DisabilityDetail { return model.DisabilityDetail{DisabilityData: d} })
	existing.ParentGuardians = rebuild(existing.ParentGuardians, in.ParentGuardians, id, now,
		func(d model.GuardianData) model.ParentGuardian { return model.ParentGuardian{GuardianData: d} })
	existing.AcademicHistories = rebuild(existing.AcademicHistories, in.AcademicHistories, id, now,
		func(d model.AcademicHistoryInput) model.AcademicHistory {
			return model.AcademicHistory{
				AcademicHistoryData: d.AcademicHistoryData,
				MarksheetPath:       held.keep(held.marksheets, d.MarksheetPath),
			}
		})
	existing.ExtracurricularDetails = rebuild(existing.ExtracurricularDetails, in.ExtracurricularDetails, id, now,
		func(d model.ExtracurricularData) model.ExtracurricularDetail {
			return model.ExtracurricularDetail{ExtracurricularData: d}
		})
	existing.Documents = rebuild(existing.Documents, in.Documents, id, now,
		func(d model.DocumentInput) model.StudentDocument {
			return model.StudentDocument{DocumentType: d.DocumentType, FilePath: held.keep(held.docs[d.DocumentType], d.FilePath)}
		})

	existing.UpdatedAt = now
	return existing
}

// NewStudent materializes a fresh aggregate for registration. It carries a
// new PID and no file references; any path in the input is dropped.
func NewStudent(in *model.StudentInput, now time.Time) *model.Student {
	s := &model.Student{
		PID:       uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return ApplyUpdate(s, in, now)
}
