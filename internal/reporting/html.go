package reporting

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/rachel/recon/internal/detection"
)

func GenerateHTML(report ScanReport, filename string) error {
	htmlTemplate := `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Rachel Recon Report</title>
	<style>
		* { margin: 0; padding: 0; box-sizing: border-box; }
		body {
			font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
			background: #f5f5f5;
			padding: 20px;
			color: #333;
		}
		.container { max-width: 1400px; margin: 0 auto; background: white; padding: 30px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
		h1 { font-size: 24px; margin-bottom: 10px; color: #222; }
		.meta { color: #666; font-size: 14px; margin-bottom: 30px; }
		.stats {
			display: grid;
			grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
			gap: 15px;
			margin-bottom: 30px;
		}
		.stat-card { background: #f9f9f9; padding: 15px; border-radius: 6px; border-left: 3px solid #007bff; }
		.stat-value { font-size: 24px; font-weight: bold; color: #007bff; }
		.stat-label { font-size: 12px; color: #666; margin-top: 5px; }
		.search-box { margin-bottom: 20px; }
		#searchInput {
			width: 100%%;
			padding: 12px;
			font-size: 14px;
			border: 1px solid #ddd;
			border-radius: 6px;
		}
		table { width: 100%%; border-collapse: collapse; font-size: 14px; }
		th { background: #f0f0f0; padding: 12px; text-align: left; font-weight: 600; border-bottom: 2px solid #ddd; }
		td { padding: 10px 12px; border-bottom: 1px solid #eee; }
		tr:hover { background: #f9f9f9; }
		.status-200 { color: #28a745; font-weight: 600; }
		.status-300 { color: #007bff; font-weight: 600; }
		.status-400 { color: #dc3545; font-weight: 600; }
		.status-500 { color: #ffc107; font-weight: 600; }
		.badge {
			display: inline-block;
			padding: 3px 8px;
			border-radius: 4px;
			font-size: 11px;
			font-weight: 600;
			margin-left: 5px;
		}
		.badge-secret { background: #dc3545; color: white; }
		.badge-csrf { background: #6f42c1; color: white; }
		.badge-hidden { background: #6c757d; color: white; }
		.badge-error { background: #ffc107; color: #333; }
		.field { margin: 2px 0; }
		.note { color: #666; font-size: 12px; }
		code { background: #f4f4f4; padding: 2px 6px; border-radius: 3px; font-family: monospace; font-size: 13px; }
	</style>
</head>
<body>
	<div class="container">
		<h1>Rachel Recon Report</h1>
		<div class="meta">Target: <code>%s</code> &middot; Mode: %s &middot; Run: %s &middot; Generated: %s</div>

		<div class="stats">
			<div class="stat-card">
				<div class="stat-value">%d</div>
				<div class="stat-label">URLs Scanned</div>
			</div>
			<div class="stat-card">
				<div class="stat-value">%d</div>
				<div class="stat-label">Success (2xx)</div>
			</div>
			<div class="stat-card">
				<div class="stat-value">%d</div>
				<div class="stat-label">Failed</div>
			</div>
			<div class="stat-card">
				<div class="stat-value">%d</div>
				<div class="stat-label">Input Fields</div>
			</div>
			<div class="stat-card">
				<div class="stat-value">%d</div>
				<div class="stat-label">Probable Secrets</div>
			</div>
		</div>

		<div class="search-box">
			<input type="text" id="searchInput" placeholder="Search results...">
		</div>

		<table id="resultsTable">
			<thead>
				<tr>
					<th>Status</th>
					<th>URL</th>
					<th>Content-Type</th>
					<th>Input Fields</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>
	</div>

	<script>
		document.getElementById('searchInput').addEventListener('input', function(e) {
			const searchTerm = e.target.value.toLowerCase();
			const rows = document.querySelectorAll('#resultsTable tbody tr');
			
			rows.forEach(row => {
				const text = row.textContent.toLowerCase();
				row.style.display = text.includes(searchTerm) ? '' : 'none';
			});
		});
	</script>
</body>
</html>`

	var tableRows strings.Builder
	counts := CountByStatus(report.Results)

	for _, result := range report.Results {
		statusClass := "status-200"
		switch {
		case result.StatusCode == 0 || result.StatusCode >= 500:
			statusClass = "status-500"
		case result.StatusCode >= 400:
			statusClass = "status-400"
		case result.StatusCode >= 300:
			statusClass = "status-300"
		}

		var details strings.Builder
		if result.Error != "" {
			fmt.Fprintf(&details, `<span class="badge badge-error">%s</span>`, html.EscapeString(result.Error))
		}
		for _, field := range result.InputFields {
			details.WriteString(fieldHTML(field))
		}

		tableRows.WriteString(fmt.Sprintf(`
				<tr>
					<td class="%s">%d</td>
					<td><code>%s</code></td>
					<td>%s</td>
					<td>%s</td>
				</tr>`,
			statusClass, result.StatusCode, html.EscapeString(result.URL), html.EscapeString(result.ContentType), details.String()))
	}

	finalHTML := fmt.Sprintf(htmlTemplate,
		html.EscapeString(report.Metadata.Target),
		report.Metadata.Mode,
		report.RunID,
		time.Now().Format("2006-01-02 15:04:05"),
		len(report.Results),
		counts["2xx"],
		counts["failed"],
		counts["fields"],
		counts["secrets"],
		tableRows.String())

	if err := os.WriteFile(filename, []byte(finalHTML), 0644); err != nil {
		return fmt.Errorf("write html report: %w", err)
	}
	return nil
}

func fieldHTML(field detection.InputField) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="field"><code>%s</code>`, html.EscapeString(field.String()))
	if field.ProbableSecret {
		b.WriteString(`<span class="badge badge-secret">SECRET</span>`)
	}
	if field.LikelyCSRFToken {
		b.WriteString(`<span class="badge badge-csrf">CSRF</span>`)
	}
	if field.IsHidden != nil && *field.IsHidden {
		b.WriteString(`<span class="badge badge-hidden">HIDDEN</span>`)
	}
	if len(field.Notes) > 0 {
		fmt.Fprintf(&b, ` <span class="note">%s</span>`, html.EscapeString(strings.Join(field.Notes, "; ")))
	}
	b.WriteString(`</div>`)
	return b.String()
}
