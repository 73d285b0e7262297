package detection

import (
	"math"
	"regexp"
	"strings"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SecretPattern recognises a well-known credential format inside a field value.
type SecretPattern struct {
	Name     string
	Pattern  *regexp.Regexp
	Severity Severity
}

type SecretMatch struct {
	Name     string
	Severity Severity
	Redacted string
}

// Patterns match the bare credential, as found in a form value.
var Patterns = []SecretPattern{
	{
		Name:     "AWS Access Key",
		Pattern:  regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		Severity: SeverityCritical,
	},
	{
		Name:     "Private Key",
		Pattern:  regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----`),
		Severity: SeverityCritical,
	},
	{
		Name:     "JWT Token",
		Pattern:  regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
		Severity: SeverityHigh,
	},
	{
		Name:     "Slack Token",
		Pattern:  regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}-[a-zA-Z0-9]{24,}`),
		Severity: SeverityHigh,
	},
	{
		Name:     "Google API Key",
		Pattern:  regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`),
		Severity: SeverityHigh,
	},
	{
		Name:     "GitHub Token",
		Pattern:  regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,255}`),
		Severity: SeverityCritical,
	},
	{
		Name:     "Stripe Secret Key",
		Pattern:  regexp.MustCompile(`sk_live_[0-9a-zA-Z]{24,}`),
		Severity: SeverityCritical,
	},
	{
		Name:     "Stripe Publishable Key",
		Pattern:  regexp.MustCompile(`pk_live_[0-9a-zA-Z]{24,}`),
		Severity: SeverityLow,
	},
	{
		Name:     "Database Connection String",
		Pattern:  regexp.MustCompile(`(?i)(postgres|mysql|mongodb|redis)://[^\s"']+:[^\s"']+@[^\s"']+`),
		Severity: SeverityCritical,
	},
	{
		Name:     "Mailgun API Key",
		Pattern:  regexp.MustCompile(`key-[0-9a-zA-Z]{32}`),
		Severity: SeverityHigh,
	},
}

// ShannonEntropy returns -Σ p(b)·log2 p(b) over the byte distribution of s.
// The empty string has entropy 0.
func ShannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}

	var freq [256]int
	for i := 0; i < len(s); i++ {
		freq[s[i]]++
	}

	entropy := 0.0
	length := float64(len(s))
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}

	return entropy
}

// MatchSecrets returns every known credential format found in value, at most
// once per pattern.
func MatchSecrets(value string) []SecretMatch {
	if value == "" {
		return nil
	}

	var found []SecretMatch
	for _, pattern := range Patterns {
		match := pattern.Pattern.FindString(value)
		if match == "" {
			continue
		}
		found = append(found, SecretMatch{
			Name:     pattern.Name,
			Severity: pattern.Severity,
			Redacted: RedactSecret(match),
		})
	}
	return found
}

func RedactSecret(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
