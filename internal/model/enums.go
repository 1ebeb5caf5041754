package model

// DocumentType tags a StudentDocument.
type DocumentType string

const (
	DocumentPhoto                DocumentType = "Photo"
	DocumentSignature            DocumentType = "Signature"
	DocumentCitizenship          DocumentType = "Citizenship"
	DocumentCharacterCertificate DocumentType = "CharacterCertificate"
	DocumentOther                DocumentType = "Other"
)

// FixedDocumentTypes lists the types limited to one live record per student.
var FixedDocumentTypes = []DocumentType{
	DocumentSignature,
	DocumentCitizenship,
	DocumentCharacterCertificate,
}

// IsFixed reports whether at most one document of this type may exist per student.
func (t DocumentType) IsFixed() bool {
	for _, f := range FixedDocumentTypes {
		if t == f {
			return true
		}
	}
	return false
}

// Valid reports whether t may be stored as a document record. Photo is a
// root attribute of Student, so it is not a valid document type.
func (t DocumentType) Valid() bool {
	return t.IsFixed() || t == DocumentOther
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

type BloodGroup string

const (
	BloodAPositive  BloodGroup = "A_Positive"
	BloodANegative  BloodGroup = "A_Negative"
	BloodBPositive  BloodGroup = "B_Positive"
	BloodBNegative  BloodGroup = "B_Negative"
	BloodABPositive BloodGroup = "AB_Positive"
	BloodABNegative BloodGroup = "AB_Negative"
	BloodOPositive  BloodGroup = "O_Positive"
	BloodONegative  BloodGroup = "O_Negative"
)

type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "Single"
	MaritalMarried  MaritalStatus = "Married"
	MaritalDivorced MaritalStatus = "Divorced"
	MaritalWidowed  MaritalStatus = "Widowed"
)

type AddressType string

const (
	AddressPermanent AddressType = "Permanent"
	AddressTemporary AddressType = "Temporary"
)

type GuardianType string

const (
	GuardianFather   GuardianType = "Father"
	GuardianMother   GuardianType = "Mother"
	GuardianGuardian GuardianType = "Guardian"
	GuardianOther    GuardianType = "Other"
)

type Qualification string

const (
	QualificationSEE      Qualification = "SEE"
	QualificationSLC      Qualification = "SLC"
	QualificationPlusTwo  Qualification = "PlusTwo"
	QualificationBachelor Qualification = "Bachelor"
	QualificationMaster   Qualification = "Master"
	QualificationPhD      Qualification = "PhD"
	QualificationOther    Qualification = "Other"
)
