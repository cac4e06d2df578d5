package constants

// Method records how the text of a document was obtained.
type Method string

// Stable values (returned to callers verbatim).
const (
	MethodDirect  Method = "direct"  // embedded text layer was sufficient
	MethodOCR     Method = "ocr"     // rasterized pages or image went through OCR
	MethodPartial Method = "partial" // rasterization unavailable; embedded text only
)

// ConfidenceLevel is the coarse trust bucket derived from word count.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// Fixed confidence scores on the 0..100 scale.
const (
	DirectConfidence  = 95.0
	PartialConfidence = 50.0
)
