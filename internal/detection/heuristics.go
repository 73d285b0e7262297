package detection

import (
	"fmt"
	"strings"
)

const (
	EntropyThreshold = 4.0
	LongValueBytes   = 20
)

var sensitiveTerms = []string{
	"token",
	"apikey",
	"api_key",
	"secret",
	"passwd",
	"password",
	"auth",
	"access_token",
	"jwt",
}

var sensitiveAutocomplete = []string{"cc-", "password", "one-time-code"}

var csrfTerms = []string{"csrf", "xsrf", "authenticity_token", "__requestverificationtoken"}

// IsSensitiveName reports whether the field's identity alone marks it as a
// credential: name, id or type attribute containing a sensitive term,
// type=password, or a credential-like autocomplete hint.
func IsSensitiveName(f *InputField) bool {
	if f.Name != nil && containsAny(*f.Name, sensitiveTerms) {
		return true
	}
	if f.ID != nil && containsAny(*f.ID, sensitiveTerms) {
		return true
	}
	if typ, ok := f.Attr("type"); ok {
		if strings.EqualFold(strings.TrimSpace(typ), "password") || containsAny(typ, sensitiveTerms) {
			return true
		}
	}
	if f.Autocomplete != nil && containsAny(*f.Autocomplete, sensitiveAutocomplete) {
		return true
	}
	return false
}

func IsLikelyCSRFToken(f *InputField) bool {
	if f.Name != nil && containsAny(*f.Name, csrfTerms) {
		return true
	}
	return f.ID != nil && containsAny(*f.ID, csrfTerms)
}

// Evaluate classifies a field and returns the scored copy. It never consults
// anything but the field itself, and evaluating an already evaluated field
// returns an equal result.
func Evaluate(f InputField) InputField {
	if f.ProbableSecret {
		return f
	}

	f.Notes = append([]string(nil), f.Notes...)
	f.LikelyCSRFToken = IsLikelyCSRFToken(&f)

	if IsSensitiveName(&f) {
		f.ProbableSecret = true
		f.Notes = addNote(f.Notes, "sensitive name")
		f.Notes = annotateMatches(f.Notes, f.Value)
		return f
	}

	if f.Value == nil {
		return f
	}

	value := *f.Value
	entropy := ShannonEntropy(value)
	f.SecretEntropy = &entropy

	if entropy > EntropyThreshold {
		f.ProbableSecret = true
		f.Notes = addNote(f.Notes, fmt.Sprintf("high entropy (%.2f bits)", entropy))
	}
	if len(value) > LongValueBytes {
		f.ProbableSecret = true
		f.Notes = addNote(f.Notes, fmt.Sprintf("long value (%d bytes)", len(value)))
	}
	f.Notes = annotateMatches(f.Notes, f.Value)

	return f
}

// EvaluateAll scores fields in place, preserving order.
func EvaluateAll(fields []InputField) {
	for i := range fields {
		fields[i] = Evaluate(fields[i])
	}
}

func annotateMatches(notes []string, value *string) []string {
	if value == nil {
		return notes
	}
	for _, m := range MatchSecrets(*value) {
		notes = addNote(notes, fmt.Sprintf("matches %s (%s): %s", m.Name, m.Severity, m.Redacted))
	}
	return notes
}

func addNote(notes []string, note string) []string {
	for _, n := range notes {
		if n == note {
			return notes
		}
	}
	return append(notes, note)
}

func containsAny(s string, terms []string) bool {
	s = strings.ToLower(s)
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
