package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rachel/recon/internal/scanner"
)

const (
	SchemaVersion = "1.0"
	Version       = "1.0.0"
)

type ScanReport struct {
	SchemaVersion string           `json:"schema_version" yaml:"schema_version"`
	RunID         string           `json:"run_id" yaml:"run_id"`
	Metadata      ScanMetadata     `json:"metadata" yaml:"metadata"`
	Results       []scanner.Result `json:"results" yaml:"results"`
}

type ScanMetadata struct {
	StartTime       string `json:"start_time" yaml:"start_time"`
	EndTime         string `json:"end_time" yaml:"end_time"`
	Target          string `json:"target" yaml:"target"`
	Mode            string `json:"mode" yaml:"mode"`
	TotalResults    int    `json:"total_results" yaml:"total_results"`
	Failed          int    `json:"failed" yaml:"failed"`
	TotalFields     int    `json:"total_fields" yaml:"total_fields"`
	ProbableSecrets int    `json:"probable_secrets" yaml:"probable_secrets"`
	Version         string `json:"version" yaml:"version"`
}

// NewReport sorts a copy of results and stamps it with a fresh run id.
func NewReport(results []scanner.Result, target string, crawled bool, start time.Time) ScanReport {
	sorted := make([]scanner.Result, len(results))
	copy(sorted, results)
	SortResults(sorted)

	mode := "endpoints"
	if crawled {
		mode = "crawl"
	}

	counts := CountByStatus(sorted)
	return ScanReport{
		SchemaVersion: SchemaVersion,
		RunID:         GenerateRunID(),
		Metadata: ScanMetadata{
			StartTime:       start.Format(time.RFC3339),
			EndTime:         time.Now().Format(time.RFC3339),
			Target:          target,
			Mode:            mode,
			TotalResults:    len(sorted),
			Failed:          counts["failed"],
			TotalFields:     counts["fields"],
			ProbableSecrets: counts["secrets"],
			Version:         Version,
		},
		Results: sorted,
	}
}

func SaveJSON(report ScanReport, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create json report: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

func GenerateRunID() string {
	return uuid.New().String()
}

func SortResults(results []scanner.Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].URL != results[j].URL {
			return results[i].URL < results[j].URL
		}
		return results[i].StatusCode < results[j].StatusCode
	})
}

func FormatResultsJSON(results []scanner.Result) (string, error) {
	sorted := make([]scanner.Result, len(results))
	copy(sorted, results)
	SortResults(sorted)

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CountByStatus buckets results by status class. A result with no status is
// counted as failed. It also totals fields and probable secrets.
func CountByStatus(results []scanner.Result) map[string]int {
	counts := map[string]int{
		"2xx":     0,
		"3xx":     0,
		"4xx":     0,
		"5xx":     0,
		"failed":  0,
		"fields":  0,
		"secrets": 0,
	}

	for _, r := range results {
		switch {
		case r.StatusCode == 0:
			counts["failed"]++
		case r.StatusCode >= 200 && r.StatusCode < 300:
			counts["2xx"]++
		case r.StatusCode >= 300 && r.StatusCode < 400:
			counts["3xx"]++
		case r.StatusCode >= 400 && r.StatusCode < 500:
			counts["4xx"]++
		case r.StatusCode >= 500:
			counts["5xx"]++
		}
		counts["fields"] += len(r.InputFields)
		counts["secrets"] += r.SecretCount()
	}

	return counts
}
