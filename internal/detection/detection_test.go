package detection

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSecretFixtures builds fake credential strings at runtime
// so they never appear as complete credential-format strings in source code.
func testSecretFixtures() map[string]string {
	return map[string]string{
		"aws_key": "AK" + "IA" + "IOSFODNN7" + "TESTONLY1",
		"jwt": strings.Join([]string{
			"eyJhbGciOiJ" + "IUzI1NiJ9",
			"eyJzdWIiOiIx" + "MjM0NTY3ODkwIn0",
			"dXKzGiMqQAW" + "lZQsCSJkOoY8Gs_test",
		}, "."),
		"google_api": "AI" + "za" + "SyTESTONLY234567890abcdefghijklm_ox",
	}
}

func strPtr(s string) *string { return &s }

func TestShannonEntropy(t *testing.T) {
	assert.Equal(t, 0.0, ShannonEntropy(""))
	assert.Equal(t, 0.0, ShannonEntropy("aaaa"))
	assert.InDelta(t, 1.0, ShannonEntropy("abab"), 1e-9)
	assert.InDelta(t, 2.0, ShannonEntropy("abcd"), 1e-9)
}

func TestShannonEntropy_RandomHex(t *testing.T) {
	buf := make([]byte, 32)
	_, err := rand.Read(buf)
	require.NoError(t, err)

	value := hex.EncodeToString(buf)
	require.Len(t, value, 64)
	assert.Greater(t, ShannonEntropy(value), 3.5)
}

func TestShannonEntropy_CountsBytesNotRunes(t *testing.T) {
	// "é" is two distinct bytes, so a single rune still has 1 bit of entropy.
	assert.InDelta(t, 1.0, ShannonEntropy("é"), 1e-9)
}

func TestEvaluate_NameHeuristic(t *testing.T) {
	tests := []struct {
		name  string
		field InputField
	}{
		{"api_key name", InputField{TagName: "input", Name: strPtr("api_key"), Value: strPtr("x")}},
		{"mixed case name", InputField{TagName: "input", Name: strPtr("User_PASSWORD")}},
		{"id match", InputField{TagName: "input", ID: strPtr("authField")}},
		{"password type", InputField{TagName: "input", Name: strPtr("pw"), Attributes: map[string]string{"type": "password"}}},
		{"autocomplete cc", InputField{TagName: "input", Autocomplete: strPtr("cc-number")}},
		{"autocomplete otp", InputField{TagName: "input", Autocomplete: strPtr("one-time-code")}},
		{"autocomplete password", InputField{TagName: "input", Autocomplete: strPtr("current-password")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.field)
			assert.True(t, got.ProbableSecret)
			assert.Nil(t, got.SecretEntropy, "entropy is skipped when the name heuristic fires")
			assert.Contains(t, got.Notes, "sensitive name")
		})
	}
}

func TestEvaluate_NameHeuristicIgnoresValue(t *testing.T) {
	got := Evaluate(InputField{TagName: "input", Name: strPtr("api_key"), Value: strPtr("")})
	assert.True(t, got.ProbableSecret)

	got = Evaluate(InputField{TagName: "input", Name: strPtr("api_key")})
	assert.True(t, got.ProbableSecret)
}

func TestEvaluate_EntropyHeuristic(t *testing.T) {
	low := Evaluate(InputField{TagName: "input", Name: strPtr("city"), Value: strPtr("Paris")})
	assert.False(t, low.ProbableSecret)
	require.NotNil(t, low.SecretEntropy)
	assert.InDelta(t, ShannonEntropy("Paris"), *low.SecretEntropy, 1e-9)

	long := Evaluate(InputField{TagName: "input", Name: strPtr("comment"), Value: strPtr(strings.Repeat("a", 21))})
	assert.True(t, long.ProbableSecret)
	require.NotNil(t, long.SecretEntropy)
	assert.Equal(t, 0.0, *long.SecretEntropy)

	exact := Evaluate(InputField{TagName: "input", Name: strPtr("comment"), Value: strPtr(strings.Repeat("a", 20))})
	assert.False(t, exact.ProbableSecret)

	// 17 distinct bytes: log2(17) > 4 while staying under the length threshold.
	high := Evaluate(InputField{TagName: "input", Name: strPtr("x"), Value: strPtr("abcdefghijklmnopq")})
	assert.True(t, high.ProbableSecret)
	assert.Greater(t, *high.SecretEntropy, EntropyThreshold)
}

func TestEvaluate_EmptyValue(t *testing.T) {
	got := Evaluate(InputField{TagName: "input", Name: strPtr("q"), Value: strPtr("")})
	assert.False(t, got.ProbableSecret)
	require.NotNil(t, got.SecretEntropy)
	assert.Equal(t, 0.0, *got.SecretEntropy)
}

func TestEvaluate_NoValue(t *testing.T) {
	got := Evaluate(InputField{TagName: "select", Name: strPtr("country")})
	assert.False(t, got.ProbableSecret)
	assert.Nil(t, got.SecretEntropy)
	assert.Empty(t, got.Notes)
}

func TestEvaluate_Idempotent(t *testing.T) {
	fields := []InputField{
		{TagName: "input", Name: strPtr("api_key")},
		{TagName: "input", Name: strPtr("city"), Value: strPtr("Paris")},
		{TagName: "input", Name: strPtr("blob"), Value: strPtr(testSecretFixtures()["jwt"])},
		{TagName: "textarea"},
	}

	for _, f := range fields {
		once := Evaluate(f)
		twice := Evaluate(once)
		assert.Equal(t, once.ProbableSecret, twice.ProbableSecret)
		assert.Equal(t, once.SecretEntropy, twice.SecretEntropy)
		assert.Equal(t, once.Notes, twice.Notes)
	}
}

func TestEvaluate_AlreadyFlaggedIsNoop(t *testing.T) {
	in := InputField{TagName: "input", Name: strPtr("city"), Value: strPtr("Paris"), ProbableSecret: true}
	got := Evaluate(in)
	assert.True(t, got.ProbableSecret)
	assert.Nil(t, got.SecretEntropy)
	assert.Empty(t, got.Notes)
}

func TestEvaluate_DoesNotMutateInputNotes(t *testing.T) {
	notes := make([]string, 1, 4)
	notes[0] = "seen"
	in := InputField{TagName: "input", Name: strPtr("token"), Notes: notes}
	got := Evaluate(in)

	assert.Equal(t, []string{"seen", "sensitive name"}, got.Notes)
	assert.Equal(t, "", notes[:2][1], "input backing array must stay untouched")
	assert.Len(t, in.Notes, 1)
}

func TestEvaluate_SecretPatternNotes(t *testing.T) {
	fix := testSecretFixtures()
	got := Evaluate(InputField{TagName: "input", Name: strPtr("x"), Value: strPtr(fix["aws_key"])})
	assert.True(t, got.ProbableSecret)

	found := false
	for _, n := range got.Notes {
		if strings.HasPrefix(n, "matches AWS Access Key") {
			found = true
			assert.NotContains(t, n, fix["aws_key"], "note must carry the redacted value")
		}
	}
	assert.True(t, found, "expected AWS pattern note, got %v", got.Notes)
}

func TestEvaluate_CSRFToken(t *testing.T) {
	got := Evaluate(InputField{TagName: "input", Name: strPtr("csrfmiddlewaretoken"), Value: strPtr("abc")})
	assert.True(t, got.LikelyCSRFToken)
	assert.True(t, got.ProbableSecret, "token term still classifies it as sensitive")

	got = Evaluate(InputField{TagName: "input", Name: strPtr("email")})
	assert.False(t, got.LikelyCSRFToken)
}

func TestMatchSecrets(t *testing.T) {
	fix := testSecretFixtures()

	assert.Empty(t, MatchSecrets(""))
	assert.Empty(t, MatchSecrets("Just some regular text"))

	matches := MatchSecrets(fix["google_api"])
	require.Len(t, matches, 1)
	assert.Equal(t, "Google API Key", matches[0].Name)
	assert.Equal(t, SeverityHigh, matches[0].Severity)

	matches = MatchSecrets(fix["aws_key"] + " " + fix["jwt"])
	assert.Len(t, matches, 2)
}

func TestRedactSecret(t *testing.T) {
	assert.Equal(t, "****", RedactSecret("abcd"))
	assert.Equal(t, "abcd**mnop", RedactSecret("abcdefmnop"))
}

func TestInputFieldString(t *testing.T) {
	f := InputField{TagName: "input", Name: strPtr("pw"), InputType: strPtr("password"), ProbableSecret: true}
	assert.Equal(t, `<input name="pw" id=- type="password" sensitive=true>`, f.String())
}
