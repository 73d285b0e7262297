package scanner

import "github.com/rachel/recon/internal/detection"

type Task struct {
	URL string
}

// Result is the outcome of fetching and analyzing one URL. StatusCode is 0
// when the request never completed.
type Result struct {
	URL         string                 `json:"url" yaml:"url"`
	StatusCode  int                    `json:"status_code" yaml:"status_code"`
	BodySnippet string                 `json:"body_snippet,omitempty" yaml:"body_snippet,omitempty"`
	InputFields []detection.InputField `json:"input_fields" yaml:"input_fields"`
	Headers     map[string]string      `json:"headers" yaml:"headers"`
	Error       string                 `json:"error,omitempty" yaml:"error,omitempty"`
	ContentType string                 `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	DurationMS  int64                  `json:"duration_ms" yaml:"duration_ms"`
	Timestamp   string                 `json:"timestamp" yaml:"timestamp"`
}

// SecretCount is the number of fields flagged as probable secrets.
func (r Result) SecretCount() int {
	n := 0
	for _, f := range r.InputFields {
		if f.ProbableSecret {
			n++
		}
	}
	return n
}

func (r Result) Failed() bool {
	return r.Error != ""
}
