package model

// StudentInput is a full registration record as submitted by a client.
// Root scalars are always applied. Every nested group and collection is an
// Optional so that "not supplied" and "supplied empty" stay distinguishable.
type StudentInput struct {
	StudentData

	PersonalDetails    Optional[PersonalData]    `json:"personal_details"`
	ContactDetail      Optional[ContactData]     `json:"contact_detail"`
	FinancialDetail    Optional[FinancialData]   `json:"financial_detail"`
	BankDetail         Optional[BankData]        `json:"bank_detail"`
	CitizenshipDetail  Optional[CitizenshipData] `json:"citizenship_detail"`
	AcademicEnrollment Optional[EnrollmentData]  `json:"academic_enrollment"`
	Declaration        Optional[DeclarationData] `json:"declaration"`

	Addresses              Optional[[]AddressData]          `json:"addresses"`
	EmergencyContacts      Optional[[]EmergencyContactData] `json:"emergency_contacts"`
	DisabilityDetails      Optional[[]DisabilityData]       `json:"disability_details"`
	ParentGuardians        Optional[[]GuardianData]         `json:"parent_guardians"`
	AcademicHistories      Optional[[]AcademicHistoryInput] `json:"academic_histories"`
	ExtracurricularDetails Optional[[]ExtracurricularData]  `json:"extracurricular_details"`
	Documents              Optional[[]DocumentInput]        `json:"documents"`
}

// AcademicHistoryInput may echo back a marksheet path from a previous
// projection. The path survives only if the aggregate already references it.
type AcademicHistoryInput struct {
	AcademicHistoryData
	MarksheetPath string `json:"marksheet_path,omitempty"`
}

// DocumentInput may echo back a file path from a previous projection, with
// the same retention rule as AcademicHistoryInput.
type DocumentInput struct {
	DocumentType DocumentType `json:"document_type" validate:"required"`
	FilePath     string       `json:"file_path,omitempty"`
}
