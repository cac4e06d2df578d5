package constants

import "strings"

// DocumentType tags the kind of proof a user submitted.
type DocumentType string

const (
	StudentID       DocumentType = "student_id"
	AdmissionLetter DocumentType = "admission_letter"
	FeeReceipt      DocumentType = "fee_receipt"
)

var allDocumentTypes = []DocumentType{
	StudentID,
	AdmissionLetter,
	FeeReceipt,
}

// DocumentTypesAsStrings returns the known document types in declaration order.
func DocumentTypesAsStrings() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// ParseDocumentType canonicalizes input. Unknown values are returned as-is with ok=false.
func ParseDocumentType(input string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]DocumentType{
		"student-id":       StudentID,
		"id_card":          StudentID,
		"admission-letter": AdmissionLetter,
		"admission":        AdmissionLetter,
		"fee-receipt":      FeeReceipt,
		"receipt":          FeeReceipt,
	}
	if dt, ok := synonyms[normalized]; ok {
		return dt, true
	}

	for _, dt := range allDocumentTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}
	return DocumentType(normalized), false
}
