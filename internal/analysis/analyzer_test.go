package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docverify/constants"
)

func TestAnalyze_StudentID(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"id label", "Student ID: 2021CS1234", "2021CS1234"},
		{"lowercase label", "id: ab-99", "ab-99"},
		{"roll number", "Roll No. 17-ABC", "17-ABC"},
		{"roll number with colon", "Roll No: ABC123", "ABC123"},
		{"enrollment", "Enrollment: EN2020X", "EN2020X"},
		{"label inside word is ignored", "Valid: 2025\nEnrollment 42", "42"},
	}
	a := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Analyze(tt.text, constants.StudentID)
			assert.Equal(t, tt.want, res.DetectedFields[FieldStudentID])
		})
	}
}

func TestAnalyze_StudentIDMissing(t *testing.T) {
	res := New().Analyze("Name: Priya Sharma\nBranch: Civil", constants.StudentID)
	_, ok := res.DetectedFields[FieldStudentID]
	assert.False(t, ok)
}

func TestAnalyze_AdmissionLetter(t *testing.T) {
	text := "Admission Letter\nABC Institute of Technology\nWe are pleased to offer you admission to the B.Tech programme for 2023-24."

	res := New().Analyze(text, constants.AdmissionLetter)

	assert.Equal(t, "2023", res.DetectedFields[FieldAdmissionYear])
	assert.Equal(t, "B.Tech", res.DetectedFields[FieldProgram])
	require.NotNil(t, res.DetectedInstitution)
	assert.Equal(t, "ABC Institute of Technology", *res.DetectedInstitution)
	_, hasAmount := res.DetectedFields[FieldAmount]
	assert.False(t, hasAmount, "fee rules must not run for admission letters")
}

func TestAnalyze_FeeReceipt(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		amount  string
		receipt string
	}{
		{"rupee sign", "Paid ₹ 1,25,000 on 01/08", "125000", ""},
		{"rs prefix", "Fee: Rs. 45,000\nReceipt #: R-5521", "45000", "R-5521"},
		{"amount label", "Amount: 12000\nTransaction: TXN-77", "12000", "TXN-77"},
		{"total label", "Total 900\nRef # ABC123", "900", "ABC123"},
		{"total with colon and commas", "Total: 12,500", "12500", ""},
	}
	a := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Analyze(tt.text, constants.FeeReceipt)
			assert.Equal(t, tt.amount, res.DetectedFields[FieldAmount])
			assert.Equal(t, tt.receipt, res.DetectedFields[FieldReceiptNumber])
		})
	}
}

func TestAnalyze_InstitutionDetection(t *testing.T) {
	long := strings.Repeat("x", 160) + " University"
	tests := []struct {
		name string
		text string
		want *string
	}{
		{"english", "Certificate\nGreenfield College of Arts\nFees", ptr("Greenfield College of Arts")},
		{"devanagari", "प्रमाण पत्र\nदिल्ली विश्वविद्यालय\n", ptr("दिल्ली विश्वविद्यालय")},
		{"abbreviation", "IIT Bombay\nHostel fee", ptr("IIT Bombay")},
		{"first match wins", "State School\nCity University", ptr("State School")},
		{"too long line skipped", long + "\nRiver Academy", ptr("River Academy")},
		{"none", "Hello\nWorld", nil},
	}
	a := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Analyze(tt.text, constants.StudentID)
			if tt.want == nil {
				assert.Nil(t, res.DetectedInstitution)
				return
			}
			require.NotNil(t, res.DetectedInstitution)
			assert.Equal(t, *tt.want, *res.DetectedInstitution)
			assert.LessOrEqual(t, len([]rune(*res.DetectedInstitution)), MaxInstitutionLen)
		})
	}
}

func TestAnalyze_Counts(t *testing.T) {
	res := New().Analyze("  one two\n\nthree  ", constants.StudentID)
	assert.Equal(t, 3, res.WordCount)
	assert.False(t, res.HasContent)
	assert.Equal(t, constants.ConfidenceLow, res.ConfidenceLevel)

	empty := New().Analyze("", constants.FeeReceipt)
	assert.Equal(t, 0, empty.WordCount)
	assert.Equal(t, 0, empty.TextLength)
	assert.NotNil(t, empty.DetectedFields)
	assert.Empty(t, empty.DetectedFields)
}

func TestAnalyze_UnknownTypeOnlyGeneralChecks(t *testing.T) {
	res := New().Analyze("Student ID: 55\nNorth University", constants.DocumentType("passport"))
	assert.Empty(t, res.DetectedFields)
	require.NotNil(t, res.DetectedInstitution)
}

func TestAnalyze_Deterministic(t *testing.T) {
	text := "XYZ University\nStudent ID: 2021CS1234\nRs. 5,000"
	a := New()
	first := a.Analyze(text, constants.FeeReceipt)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, a.Analyze(text, constants.FeeReceipt))
	}
}

func TestLevelForWords(t *testing.T) {
	assert.Equal(t, constants.ConfidenceLow, LevelForWords(0))
	assert.Equal(t, constants.ConfidenceLow, LevelForWords(30))
	assert.Equal(t, constants.ConfidenceMedium, LevelForWords(31))
	assert.Equal(t, constants.ConfidenceMedium, LevelForWords(100))
	assert.Equal(t, constants.ConfidenceHigh, LevelForWords(101))
}

func TestWithRules_Extends(t *testing.T) {
	a := New(WithRules(constants.StudentID, FieldRule{
		Field:    "bloodGroup",
		Matchers: []Matcher{Regex(`(?i)Blood\s+Group[\s:]+([ABO]{1,2}[+-])`)},
	}))
	res := a.Analyze("Roll No: ABC123\nBlood Group: O+", constants.StudentID)
	assert.Equal(t, "O+", res.DetectedFields["bloodGroup"])
	assert.Equal(t, "ABC123", res.DetectedFields[FieldStudentID], "built-in rules keep running")

	// the default table is untouched
	assert.Len(t, DefaultRules()[constants.StudentID], 1)
}

func ptr(s string) *string { return &s }
