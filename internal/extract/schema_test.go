package extract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docverify/constants"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"filePath":"/docs/a.pdf","documentType":"student_id"}`, false},
		{"fee receipt", `{"filePath":"b.png","documentType":"fee_receipt"}`, false},
		{"missing type", `{"filePath":"/docs/a.pdf"}`, true},
		{"empty path", `{"filePath":"","documentType":"student_id"}`, true},
		{"unknown type", `{"filePath":"a.pdf","documentType":"passport"}`, true},
		{"extra property", `{"filePath":"a.pdf","documentType":"student_id","x":1}`, true},
		{"not json", `{"filePath":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateResponse(t *testing.T) {
	inst := "XYZ University"
	ok := Response{
		Success:             true,
		ExtractedText:       "XYZ University",
		TextLength:          14,
		Confidence:          95,
		WordCount:           2,
		LineCount:           1,
		DetectedInstitution: &inst,
		DetectedFields:      map[string]string{"studentId": "42"},
		ConfidenceFlag:      string(constants.ConfidenceLow),
		Pages:               1,
		Method:              constants.MethodDirect,
	}
	require.NoError(t, ValidateResponse(ok))

	bad := ok
	bad.Confidence = 140
	assert.Error(t, ValidateResponse(bad))

	assert.NoError(t, ValidateResponse(Failure("run-1", errors.New("boom"))))
}

func TestFailure(t *testing.T) {
	resp := Failure("run-1", errors.New("unsupported file format: .txt"))

	assert.False(t, resp.Success)
	assert.Equal(t, "unsupported file format: .txt", resp.Error)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Empty(t, resp.ExtractedText)
	assert.Zero(t, resp.Confidence)
	assert.NotNil(t, resp.DetectedFields)
	assert.NotEmpty(t, resp.ProcessingTime)

	assert.Equal(t, "unknown error", Failure("", nil).Error)
}

func TestPageOutcome_Contributed(t *testing.T) {
	text, blank := "hello", "  \n"
	assert.True(t, PageOutcome{Text: &text}.Contributed())
	assert.False(t, PageOutcome{Text: &blank}.Contributed())
	assert.False(t, PageOutcome{Text: &text, Err: "OCR failed"}.Contributed())
	assert.False(t, PageOutcome{}.Contributed())
}
