package candidate

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestSentinel(t *testing.T) {
	t.Parallel()

	out := Sentinel(ReasonParseFailed, "unexpected end of JSON input")

	if out.OK() {
		t.Fatalf("expected sentinel outcome")
	}
	if out.Fields.Name != "JSON Parse Failed" {
		t.Fatalf("unexpected name %q", out.Fields.Name)
	}
	if out.Fields.Score != 0 {
		t.Fatalf("expected score 0, got %d", out.Fields.Score)
	}
	if !strings.HasPrefix(out.Fields.Email, "json-parse-failed-") || !ValidEmail(out.Fields.Email) {
		t.Fatalf("unexpected placeholder email %q", out.Fields.Email)
	}
	if out.Fields.ParsedText != "unexpected end of JSON input" {
		t.Fatalf("unexpected parsed text %q", out.Fields.ParsedText)
	}
	if out.Status() != "JSON Parse Failed" {
		t.Fatalf("unexpected status %q", out.Status())
	}
}

func TestSentinelWithoutDetailUsesReason(t *testing.T) {
	t.Parallel()

	out := Sentinel(ReasonEmptyResponse, "  ")
	if out.Fields.ParsedText != "Empty AI Response" {
		t.Fatalf("unexpected parsed text %q", out.Fields.ParsedText)
	}
}

func TestPlaceholderEmailIsRandomized(t *testing.T) {
	t.Parallel()

	a := PlaceholderEmail(ReasonNoResponse)
	b := PlaceholderEmail(ReasonNoResponse)
	if a == b {
		t.Fatalf("expected distinct placeholders, got %q twice", a)
	}

	shape := regexp.MustCompile(`^api-no-response-[0-9a-f]{8}@example\.com$`)
	for _, email := range []string{a, b} {
		if !shape.MatchString(email) || !ValidEmail(email) {
			t.Fatalf("unexpected placeholder %q", email)
		}
	}
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	uploaded := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
	out := Ok(Normalize(Extraction{Name: "Ada", Score: 91, Skills: []string{"Go"}}))

	c := Finalize("id-1", out, "", uploaded)

	if c.ID != "id-1" || c.Name != "Ada" || c.Score != 91 {
		t.Fatalf("unexpected candidate %+v", c)
	}
	if c.Approved {
		t.Fatalf("expected approved to be false")
	}
	if c.ResumeURL != ResumeURLNone {
		t.Fatalf("expected %q, got %q", ResumeURLNone, c.ResumeURL)
	}
	if c.UploadedAt.Location() != time.UTC || !c.UploadedAt.Equal(uploaded) {
		t.Fatalf("unexpected uploadedAt %v", c.UploadedAt)
	}
	if c.Status != StatusOK {
		t.Fatalf("unexpected status %q", c.Status)
	}

	out.Fields.Skills[0] = "mutated"
	if c.Skills[0] != "Go" {
		t.Fatalf("expected finalized skills to be detached from the outcome")
	}
}

func TestCandidateJSONShape(t *testing.T) {
	t.Parallel()

	c := Finalize("abc", Sentinel(ReasonInsufficientText, "too short"), ResumeURLFailed, time.Unix(0, 0))

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, key := range []string{"id", "name", "email", "phone", "location", "jobTitle", "education", "score", "parsedText", "skills", "experience", "approved", "resumeUrl", "uploadedAt"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("expected key %q in %s", key, data)
		}
	}
	if decoded["resumeUrl"] != "Upload Failed" {
		t.Fatalf("unexpected resumeUrl %v", decoded["resumeUrl"])
	}
	if !c.IsSentinel(ReasonInsufficientText) {
		t.Fatalf("expected insufficient text sentinel")
	}
}
