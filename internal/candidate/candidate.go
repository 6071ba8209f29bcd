package candidate

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reason names the failure mode a sentinel candidate encodes.
type Reason string

const (
	ReasonAPIKeyMissing    Reason = "API Key Missing"
	ReasonNoResponse       Reason = "API No Response"
	ReasonEmptyResponse    Reason = "Empty AI Response"
	ReasonParseFailed      Reason = "JSON Parse Failed"
	ReasonContentBlocked   Reason = "Content Blocked"
	ReasonInsufficientText Reason = "Insufficient Text"
	ReasonProcessingError  Reason = "Processing Error"
)

const (
	// StatusOK marks candidates produced from a successful classification.
	StatusOK = "ok"

	ResumeURLNone   = "N/A"
	ResumeURLFailed = "Upload Failed"
)

// Fields is the normalized, fully-populated candidate data without the
// identity and storage attributes assigned by the pipeline.
type Fields struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Location   string   `json:"location"`
	JobTitle   string   `json:"jobTitle"`
	Education  string   `json:"education"`
	Score      int      `json:"score"`
	ParsedText string   `json:"parsedText"`
	Skills     []string `json:"skills"`
	Experience int      `json:"experience"`
}

// Candidate is the canonical output record for one submitted document.
type Candidate struct {
	ID string `json:"id"`
	Fields
	Approved   bool      `json:"approved"`
	ResumeURL  string    `json:"resumeUrl"`
	UploadedAt time.Time `json:"uploadedAt"`
	FileName   string    `json:"fileName,omitempty"`
	Status     string    `json:"status,omitempty"`
}

// Outcome is the tagged result of classifying a document: Ok when Reason is
// empty, a sentinel otherwise. Fields are normalized in both cases.
type Outcome struct {
	Fields Fields
	Reason Reason
	Detail string
}

// OK reports whether the outcome carries extracted data rather than a sentinel.
func (o Outcome) OK() bool {
	return o.Reason == ""
}

// Status returns the value stored in Candidate.Status for this outcome.
func (o Outcome) Status() string {
	if o.OK() {
		return StatusOK
	}
	return string(o.Reason)
}

// Ok wraps extracted fields into a successful outcome.
func Ok(fields Fields) Outcome {
	return Outcome{Fields: fields}
}

// Sentinel builds a normalized record that encodes a failure mode instead of
// extracted data.
func Sentinel(reason Reason, detail string) Outcome {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		detail = string(reason)
	}

	fields := Normalize(Extraction{
		Name:       string(reason),
		Email:      PlaceholderEmail(reason),
		Score:      0,
		ParsedText: detail,
		Experience: 0,
	})

	return Outcome{Fields: fields, Reason: reason, Detail: detail}
}

// PlaceholderEmail returns a randomized, syntactically valid address used for
// records that never had a chance to carry a real one.
func PlaceholderEmail(reason Reason) string {
	slug := strings.ToLower(strings.Join(strings.Fields(string(reason)), "-"))
	if slug == "" {
		slug = "candidate"
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s@example.com", slug, suffix)
}

// Finalize assembles the candidate record. It is the only place where the
// identity, storage URL and timestamp are attached.
func Finalize(id string, outcome Outcome, resumeURL string, uploadedAt time.Time) Candidate {
	if strings.TrimSpace(resumeURL) == "" {
		resumeURL = ResumeURLNone
	}

	fields := outcome.Fields
	skills := make([]string, len(fields.Skills))
	copy(skills, fields.Skills)
	fields.Skills = skills

	return Candidate{
		ID:         id,
		Fields:     fields,
		Approved:   false,
		ResumeURL:  resumeURL,
		UploadedAt: uploadedAt.UTC(),
		Status:     outcome.Status(),
	}
}

// IsSentinel reports whether the candidate encodes the given failure mode.
func (c Candidate) IsSentinel(reason Reason) bool {
	return c.Status == string(reason) || (c.Status == "" && c.Name == string(reason))
}
