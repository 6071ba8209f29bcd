package candidate

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	defaultName       = "Unknown"
	defaultText       = "N/A"
	defaultParsedText = "No summary provided."
	syntheticDomain   = "gmail.com"

	minScore = 0
	maxScore = 100
)

var (
	validEmail   = regexp.MustCompile(`(?i)^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)
	invalidLocal = regexp.MustCompile(`[^a-z0-9._%+-]`)
)

// Extraction is the loosely-typed, possibly partial record a classifier
// produces. Any field may hold any JSON value or be nil.
type Extraction struct {
	Name       any `mapstructure:"name"`
	Email      any `mapstructure:"email"`
	Phone      any `mapstructure:"phone"`
	Location   any `mapstructure:"location"`
	JobTitle   any `mapstructure:"jobTitle"`
	Education  any `mapstructure:"education"`
	Score      any `mapstructure:"score"`
	ParsedText any `mapstructure:"parsedText"`
	Skills     any `mapstructure:"skills"`
	Experience any `mapstructure:"experienceYears"`
}

// DecodeExtraction maps a parsed model response onto an Extraction. Keys are
// matched case-insensitively; unknown keys are ignored.
func DecodeExtraction(data map[string]any) Extraction {
	var out Extraction
	if len(data) == 0 {
		return out
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &out,
		TagName: "mapstructure",
	})
	if err != nil {
		return out
	}

	// Decoding into interface fields cannot fail on value types.
	_ = decoder.Decode(data)

	if out.Experience == nil {
		if v, ok := lookupFold(data, "experience"); ok {
			out.Experience = v
		}
	}

	return out
}

// Normalize converts an extraction into a canonical record. It never fails:
// malformed input degrades to per-field defaults.
func Normalize(in Extraction) Fields {
	name := textOr(in.Name, defaultName)

	return Fields{
		Name:       name,
		Email:      normalizeEmail(in.Email, name),
		Phone:      textOr(in.Phone, defaultText),
		Location:   textOr(in.Location, defaultText),
		JobTitle:   textOr(in.JobTitle, defaultText),
		Education:  textOr(in.Education, defaultText),
		Score:      normalizeScore(in.Score),
		ParsedText: summaryOr(in.ParsedText),
		Skills:     normalizeSkills(in.Skills),
		Experience: normalizeExperience(in.Experience),
	}
}

// ValidEmail reports whether s is an address the normalizer would keep.
func ValidEmail(s string) bool {
	return validEmail.MatchString(s)
}

func textOr(v any, fallback string) string {
	s := toText(v)
	if s == "" || strings.EqualFold(s, "n/a") {
		return fallback
	}
	return s
}

func summaryOr(v any) string {
	s := toText(v)
	if s == "" {
		return defaultParsedText
	}
	return s
}

func normalizeEmail(v any, name string) string {
	email := strings.ToLower(toText(v))
	if validEmail.MatchString(email) {
		return email
	}

	local := strings.ToLower(strings.Join(strings.Fields(name), ""))
	local = invalidLocal.ReplaceAllString(local, "")
	if local == "" {
		local = strings.ToLower(defaultName)
	}

	return local + "@" + syntheticDomain
}

func normalizeScore(v any) int {
	f, ok := toNumber(v)
	if !ok {
		return 0
	}

	score := math.Round(f)
	switch {
	case score < minScore:
		return minScore
	case score > maxScore:
		return maxScore
	default:
		return int(score)
	}
}

func normalizeExperience(v any) int {
	f, ok := toNumber(v)
	if !ok || f < 0 {
		return 0
	}

	years := math.Round(f)
	if years > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(years)
}

func normalizeSkills(v any) []string {
	skills := make([]string, 0)

	switch list := v.(type) {
	case []string:
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				skills = append(skills, s)
			}
		}
	case []any:
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				skills = append(skills, s)
			}
		}
	}

	return skills
}

// toNumber accepts numeric values and numeric strings. NaN and infinities are
// treated as non-numeric.
func toNumber(v any) (float64, bool) {
	var f float64

	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int, int64, bool, json.Number:
		return fmt.Sprint(val)
	default:
		bytes, err := json.Marshal(v)
		if err != nil || string(bytes) == "null" {
			return ""
		}
		return strings.TrimSpace(string(bytes))
	}
}

func lookupFold(data map[string]any, key string) (any, bool) {
	for k, v := range data {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}
