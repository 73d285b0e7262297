package detection

import (
	"strings"
	"testing"
)

func BenchmarkShannonEntropy(b *testing.B) {
	value := strings.Repeat("0123456789abcdef", 4)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ShannonEntropy(value)
	}
}

func BenchmarkEvaluate_ValueOnly(b *testing.B) {
	name := "session_blob"
	value := "c29tZSBvcGFxdWUgdmFsdWUgdGhhdCBpcyBsb25n"
	field := InputField{TagName: "input", Name: &name, Value: &value}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Evaluate(field)
	}
}

func BenchmarkMatchSecrets_NoMatch(b *testing.B) {
	content := strings.Repeat("Lorem ipsum dolor sit amet ", 10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MatchSecrets(content)
	}
}
