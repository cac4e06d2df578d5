package analysis

import (
	"strings"

	"github.com/joseph-ayodele/docverify/constants"
)

// Field names reported in detectedFields.
const (
	FieldStudentID     = "studentId"
	FieldAdmissionYear = "admissionYear"
	FieldProgram       = "program"
	FieldAmount        = "amount"
	FieldReceiptNumber = "receiptNumber"
)

// MaxInstitutionLen bounds an accepted institution line.
const MaxInstitutionLen = 150

// InstitutionKeywords are institution-type nouns (Latin and Devanagari script)
// plus well-known institutional abbreviations.
var InstitutionKeywords = []string{
	"university", "college", "institute", "school", "academy",
	"विश्वविद्यालय", "महाविद्यालय", "संस्थान",
	"IIT", "NIT", "IIIT", "IIM", "AIIMS",
}

// ProgramAbbreviations are matched in list order; the first one contained in
// the text wins, so "BA" also hits inside "MBA".
var ProgramAbbreviations = []string{
	"B.Tech", "M.Tech", "B.Sc", "M.Sc", "BA", "MA", "BBA", "MBA", "B.E", "M.E",
}

// Rules maps a document type to its ordered field rules.
type Rules map[constants.DocumentType][]FieldRule

func stripCommas(s string) string { return strings.ReplaceAll(s, ",", "") }

// DefaultRules returns the built-in extraction grammar.
func DefaultRules() Rules {
	return Rules{
		constants.StudentID: {
			{Field: FieldStudentID, Matchers: []Matcher{
				Regex(`(?i)\bID[\s:]+([A-Z0-9\-]+)`),
				Regex(`(?i)\bStudent\s+ID[\s:]+([A-Z0-9\-]+)`),
				Regex(`(?i)\bRoll\s+No[\s:.]+([A-Z0-9\-]+)`),
				Regex(`(?i)\bEnrollment[\s:]+([A-Z0-9\-]+)`),
			}},
		},
		constants.AdmissionLetter: {
			{Field: FieldAdmissionYear, Matchers: []Matcher{
				Regex(`20\d{2}`),
			}},
			{Field: FieldProgram, Matchers: []Matcher{
				Literal(ProgramAbbreviations...),
			}},
		},
		constants.FeeReceipt: {
			{Field: FieldAmount, Matchers: []Matcher{
				Regex(`₹\s*([0-9][0-9,]*)`, stripCommas),
				Regex(`(?i)\bRs\.?\s*([0-9][0-9,]*)`, stripCommas),
				Regex(`(?i)\bAmount[\s:]+([0-9][0-9,]*)`, stripCommas),
				Regex(`(?i)\bTotal[\s:]+([0-9][0-9,]*)`, stripCommas),
			}},
			{Field: FieldReceiptNumber, Matchers: []Matcher{
				Regex(`(?i)\bReceipt[\s#:]+([A-Z0-9\-]+)`),
				Regex(`(?i)\bTransaction[\s#:]+([A-Z0-9\-]+)`),
				Regex(`(?i)\bRef[\s#:]+([A-Z0-9\-]+)`),
			}},
		},
	}
}
