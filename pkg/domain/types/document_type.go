package types

import "fmt"

// DocumentType represents the kind of clinical document a note holds
type DocumentType string

const (
	DocumentTypeClinicalNote          DocumentType = "clinical_note"
	DocumentTypeDifferentialDiagnosis DocumentType = "differential_diagnosis"
	DocumentTypeDiagnosticWorkup      DocumentType = "diagnostic_workup"
	DocumentTypeConsult               DocumentType = "consult"
	DocumentTypeProgressNote          DocumentType = "progress_note"
	DocumentTypeDischargeSummary      DocumentType = "discharge_summary"
)

// AllDocumentTypes returns all valid document types
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeClinicalNote,
		DocumentTypeDifferentialDiagnosis,
		DocumentTypeDiagnosticWorkup,
		DocumentTypeConsult,
		DocumentTypeProgressNote,
		DocumentTypeDischargeSummary,
	}
}

// IsValid checks if the document type is valid
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentTypeClinicalNote,
		DocumentTypeDifferentialDiagnosis,
		DocumentTypeDiagnosticWorkup,
		DocumentTypeConsult,
		DocumentTypeProgressNote,
		DocumentTypeDischargeSummary:
		return true
	default:
		return false
	}
}

// Label returns a human readable name used in LLM prompts
func (d DocumentType) Label() string {
	switch d {
	case DocumentTypeClinicalNote:
		return "clinical note"
	case DocumentTypeDifferentialDiagnosis:
		return "differential diagnosis"
	case DocumentTypeDiagnosticWorkup:
		return "diagnostic workup"
	case DocumentTypeConsult:
		return "consult note"
	case DocumentTypeProgressNote:
		return "progress note"
	case DocumentTypeDischargeSummary:
		return "discharge summary"
	default:
		return string(d)
	}
}

// String returns the string representation of the document type
func (d DocumentType) String() string {
	return string(d)
}

// ParseDocumentType parses a string into a DocumentType
func ParseDocumentType(s string) (DocumentType, error) {
	d := DocumentType(s)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid document type: %s", s)
	}
	return d, nil
}
