package model

import "time"

// Owned carries the bookkeeping shared by every child entity of a Student.
// A zero ID means the row has not been persisted yet.
type Owned struct {
	ID        int64     `json:"id"`
	StudentID int64     `json:"student_id"`
	CreatedAt time.Time `json:"created_on"`
	UpdatedAt time.Time `json:"updated_on"`
}

// Base exposes the embedded bookkeeping so generic code can reach any child's Owned.
func (o *Owned) Base() *Owned { return o }

// Stamp sets the owner and both timestamps, as done for freshly constructed children.
func (o *Owned) Stamp(studentID int64, now time.Time) {
	o.ID = 0
	o.StudentID = studentID
	o.CreatedAt = now
	o.UpdatedAt = now
}

// StudentData holds the root scalars that an update always overwrites.
type StudentData struct {
	FirstName  string `json:"first_name" validate:"required,max=100"`
	MiddleName string `json:"middle_name,omitempty" validate:"max=100"`
	LastName   string `json:"last_name" validate:"required,max=100"`
	Email      string `json:"email" validate:"required,email"`
	IsActive   bool   `json:"is_active"`
}

// Student is the aggregate root of a registration record.
// PhotoPath is a root attribute and never appears among Documents.
type Student struct {
	ID  int64  `json:"id"`
	PID string `json:"pid"`
	StudentData
	PhotoPath string    `json:"photo_path"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_on"`
	UpdatedAt time.Time `json:"updated_on"`

	PersonalDetails    *PersonalDetails    `json:"personal_details"`
	ContactDetail      *ContactDetail      `json:"contact_detail"`
	FinancialDetail    *FinancialDetail    `json:"financial_detail"`
	BankDetail         *BankDetail         `json:"bank_detail"`
	CitizenshipDetail  *CitizenshipDetail  `json:"citizenship_detail"`
	AcademicEnrollment *AcademicEnrollment `json:"academic_enrollment"`
	Declaration        *Declaration        `json:"declaration"`

	Addresses              []Address               `json:"addresses"`
	EmergencyContacts      []EmergencyContact      `json:"emergency_contacts"`
	DisabilityDetails      []DisabilityDetail      `json:"disability_details"`
	ParentGuardians        []ParentGuardian        `json:"parent_guardians"`
	AcademicHistories      []AcademicHistory       `json:"academic_histories"`
	ExtracurricularDetails []ExtracurricularDetail `json:"extracurricular_details"`
	Documents              []StudentDocument       `json:"documents"`
}

type PersonalData struct {
	DateOfBirth   string        `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender        Gender        `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	BloodGroup    BloodGroup    `json:"blood_group,omitempty" validate:"omitempty,oneof=A_Positive A_Negative B_Positive B_Negative AB_Positive AB_Negative O_Positive O_Negative"`
	MaritalStatus MaritalStatus `json:"marital_status,omitempty" validate:"omitempty,oneof=Single Married Divorced Widowed"`
	Nationality   string        `json:"nationality,omitempty" validate:"max=50"`
}

type PersonalDetails struct {
	Owned
	PersonalData
}

type ContactData struct {
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	PrimaryMobile   string `json:"primary_mobile" validate:"omitempty,max=20"`
	SecondaryMobile string `json:"secondary_mobile,omitempty" validate:"max=20"`
}

type ContactDetail struct {
	Owned
	ContactData
}

type FinancialData struct {
	AnnualFamilyIncome  string `json:"annual_family_income,omitempty"`
	FeeCategory         string `json:"fee_category,omitempty" validate:"omitempty,oneof=Regular SelfFinanced Scholarship Quota"`
	ScholarshipType     string `json:"scholarship_type,omitempty"`
	ScholarshipProvider string `json:"scholarship_provider,omitempty" validate:"max=150"`
}

type FinancialDetail struct {
	Owned
	FinancialData
}

type BankData struct {
	BankName          string `json:"bank_name,omitempty"`
	AccountHolderName string `json:"account_holder_name,omitempty" validate:"max=150"`
	AccountNumber     string `json:"account_number,omitempty" validate:"max=40"`
	Branch            string `json:"branch,omitempty" validate:"max=100"`
}

type BankDetail struct {
	Owned
	BankData
}

type CitizenshipData struct {
	CitizenshipNumber string `json:"citizenship_number,omitempty" validate:"max=50"`
	IssueDate         string `json:"issue_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	IssueDistrict     string `json:"issue_district,omitempty" validate:"max=100"`
}

type CitizenshipDetail struct {
	Owned
	CitizenshipData
}

type EnrollmentData struct {
	Faculty            string `json:"faculty,omitempty"`
	Program            string `json:"program,omitempty"`
	Level              string `json:"level,omitempty"`
	AcademicYear       int    `json:"academic_year,omitempty"`
	Semester           string `json:"semester,omitempty"`
	Section            string `json:"section,omitempty"`
	RollNumber         string `json:"roll_number,omitempty" validate:"max=30"`
	RegistrationNumber string `json:"registration_number,omitempty" validate:"max=50"`
	EnrollDate         string `json:"enroll_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AcademicStatus     string `json:"academic_status,omitempty" validate:"omitempty,oneof=Active OnHold Completed DroppedOut"`
}

type AcademicEnrollment struct {
	Owned
	EnrollmentData
}

type DeclarationData struct {
	Agreed bool   `json:"agreed"`
	Place  string `json:"place,omitempty" validate:"max=100"`
	Date   string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type Declaration struct {
	Owned
	DeclarationData
}

type AddressData struct {
	AddressType  AddressType `json:"address_type" validate:"required,oneof=Permanent Temporary"`
	Province     string      `json:"province,omitempty" validate:"max=100"`
	District     string      `json:"district,omitempty" validate:"max=100"`
	Municipality string      `json:"municipality,omitempty" validate:"max=100"`
	WardNumber   int         `json:"ward_number,omitempty" validate:"gte=0"`
	Tole         string      `json:"tole,omitempty" validate:"max=100"`
}

type Address struct {
	Owned
	AddressData
}

type EmergencyContactData struct {
	Name     string `json:"name" validate:"required,max=150"`
	Relation string `json:"relation,omitempty" validate:"max=50"`
	Phone    string `json:"phone" validate:"required,max=20"`
}

type EmergencyContact struct {
	Owned
	EmergencyContactData
}

type DisabilityData struct {
	DisabilityType string `json:"disability_type" validate:"required"`
	Percentage     int    `json:"percentage,omitempty" validate:"gte=0,lte=100"`
	Description    string `json:"description,omitempty" validate:"max=500"`
}

type DisabilityDetail struct {
	Owned
	DisabilityData
}

type GuardianData struct {
	GuardianType GuardianType `json:"guardian_type" validate:"required,oneof=Father Mother Guardian Other"`
	FullName     string       `json:"full_name" validate:"required,max=150"`
	Occupation   string       `json:"occupation,omitempty" validate:"max=100"`
	Phone        string       `json:"phone,omitempty" validate:"max=20"`
	Email        string       `json:"email,omitempty" validate:"omitempty,email"`
	AnnualIncome string       `json:"annual_income,omitempty"`
}

type ParentGuardian struct {
	Owned
	GuardianData
}

type AcademicHistoryData struct {
	Qualification Qualification `json:"qualification" validate:"required,oneof=SEE SLC PlusTwo Bachelor Master PhD Other"`
	Institution   string        `json:"institution" validate:"required,max=200"`
	Board         string        `json:"board,omitempty" validate:"max=100"`
	PassedYear    int           `json:"passed_year,omitempty" validate:"omitempty,gte=1900,lte=2200"`
	GPA           float64       `json:"gpa,omitempty" validate:"gte=0"`
}

// AcademicHistory optionally references one marksheet blob.
type AcademicHistory struct {
	Owned
	AcademicHistoryData
	MarksheetPath string `json:"marksheet_path"`
}

type ExtracurricularData struct {
	Activity    string `json:"activity" validate:"required,max=150"`
	Level       string `json:"level,omitempty" validate:"max=50"`
	Achievement string `json:"achievement,omitempty" validate:"max=300"`
}

type ExtracurricularDetail struct {
	Owned
	ExtracurricularData
}

// StudentDocument is a typed attachment owned by a Student.
type StudentDocument struct {
	Owned
	DocumentType DocumentType `json:"document_type"`
	FilePath     string       `json:"file_path"`
}
