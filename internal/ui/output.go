package ui

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rachel/recon/internal/config"
	"github.com/rachel/recon/internal/detection"
	"github.com/rachel/recon/internal/scanner"
)

const (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"

	red     = "\033[31m"
	green   = "\033[32m"
	yellow  = "\033[33m"
	blue    = "\033[34m"
	magenta = "\033[35m"
	cyan    = "\033[36m"
	white   = "\033[37m"

	bgRed     = "\033[41m"
	bgGreen   = "\033[42m"
	bgYellow  = "\033[43m"
	bgBlue    = "\033[44m"
	bgMagenta = "\033[45m"
)

const rule = "───────────────────────────────"

func PrintBanner(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%s", bold, blue)
	fmt.Fprintln(w, "   ╔═══════════════════════════════════════════╗")
	fmt.Fprintln(w, "   ║                                           ║")
	fmt.Fprintf(w, "   ║   %sRACHEL%s%s%s  v1.0                            ║\n", white, reset, bold, blue)
	fmt.Fprintln(w, "   ║   Blue-team form & secret recon           ║")
	fmt.Fprintln(w, "   ║                                           ║")
	fmt.Fprintln(w, "   ╚═══════════════════════════════════════════╝")
	fmt.Fprintf(w, "%s\n", reset)
}

func PrintConfig(w io.Writer, cfg config.ScanConfig) {
	fmt.Fprintf(w, "\n%s%s ⚙  Scan Configuration%s\n", bold, cyan, reset)
	fmt.Fprintf(w, "%s%s%s\n", dim, rule, reset)
	fmt.Fprintf(w, "  %sTarget%s      %s%s%s\n", dim, reset, white, cfg.Target, reset)
	if cfg.Crawl() {
		fmt.Fprintf(w, "  %sScope%s       %scrawl (max %d pages, depth %d)%s\n", dim, reset, white, cfg.MaxPages, cfg.MaxDepth, reset)
	} else {
		fmt.Fprintf(w, "  %sScope%s       %s%d endpoints%s\n", dim, reset, white, len(cfg.Endpoints), reset)
	}
	fmt.Fprintf(w, "  %sConcurrency%s %s%d%s\n", dim, reset, white, cfg.Concurrency, reset)
	if cfg.Timeout > 0 {
		fmt.Fprintf(w, "  %sTimeout%s     %s%s%s\n", dim, reset, white, cfg.Timeout, reset)
	} else {
		fmt.Fprintf(w, "  %sTimeout%s     %snone%s\n", dim, reset, white, reset)
	}
	fmt.Fprintf(w, "  %sRedirects%s   %s%t%s\n", dim, reset, white, cfg.FollowRedirects, reset)
	fmt.Fprintf(w, "  %sUser-Agent%s  %s%s%s\n", dim, reset, white, cfg.UserAgent, reset)
	if cfg.RateLimit > 0 {
		fmt.Fprintf(w, "  %sRate Limit%s  %s%d req/s%s\n", dim, reset, white, cfg.RateLimit, reset)
	}
	fmt.Fprintln(w)
}

func PrintWarnings(w io.Writer, warnings []config.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "  %s!%s %s\n", yellow, reset, warn)
	}
}

// PrintResult writes one result. With verbose set, headers and the body
// snippet are included.
func PrintResult(w io.Writer, result scanner.Result, verbose bool) {
	statusColor := statusToColor(result.StatusCode)
	statusBg := statusToBg(result.StatusCode)

	badge := fmt.Sprintf(" %s%s %3d %s", bold, statusBg, result.StatusCode, reset)

	var tags []string
	if secrets := result.SecretCount(); secrets > 0 {
		tags = append(tags, fmt.Sprintf("%s%s SECRET x%d %s", bold, bgMagenta, secrets, reset))
	}
	if len(result.InputFields) > 0 {
		tags = append(tags, fmt.Sprintf("%s%d fields%s", cyan, len(result.InputFields), reset))
	}
	if result.Error != "" {
		tags = append(tags, fmt.Sprintf("%s%s%s", red, result.Error, reset))
	}

	tagStr := ""
	if len(tags) > 0 {
		tagStr = "  " + strings.Join(tags, " ")
	}

	fmt.Fprintf(w, "%s  %s%6dms%s  %s%s%s%s\n",
		badge,
		dim, result.DurationMS, reset,
		statusColor, result.URL, reset,
		tagStr)

	if verbose {
		names := make([]string, 0, len(result.Headers))
		for k := range result.Headers {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(w, "      %s%s:%s %s\n", dim, k, reset, result.Headers[k])
		}
		if result.BodySnippet != "" {
			fmt.Fprintf(w, "      %ssnippet (%d chars)%s\n", dim, len([]rune(result.BodySnippet)), reset)
		}
	}

	for _, field := range result.InputFields {
		printField(w, field, verbose)
	}
}

func printField(w io.Writer, field detection.InputField, verbose bool) {
	color := white
	if field.ProbableSecret {
		color = magenta
	}
	fmt.Fprintf(w, "      %s%s%s\n", color, field.String(), reset)

	if field.Value != nil {
		val := *field.Value
		shown := val
		if field.ProbableSecret {
			shown = detection.RedactSecret(val)
		} else if len(shown) > 80 {
			shown = shown[:80]
		}
		fmt.Fprintf(w, "        %svalue (len=%d):%s %s\n", dim, len(val), reset, shown)
	}
	if field.SecretEntropy != nil {
		fmt.Fprintf(w, "        %sentropy:%s %.2f\n", dim, reset, *field.SecretEntropy)
	}
	if verbose {
		for _, note := range field.Notes {
			fmt.Fprintf(w, "        %s- %s%s\n", dim, note, reset)
		}
	}
}

func StartProgressReporter(ctx context.Context, w io.Writer, stats *scanner.Stats) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	spinner := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	frame := 0

	for {
		select {
		case <-ctx.Done():
			fmt.Fprint(w, "\r\033[K")
			return
		case <-ticker.C:
			total := stats.GetTotal()
			processed := stats.GetProcessed()
			var progress float64
			if total > 0 {
				progress = float64(processed) / float64(total) * 100
			}

			barWidth := 20
			filled := int(progress / 100 * float64(barWidth))
			if filled > barWidth {
				filled = barWidth
			}
			bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

			s := spinner[frame%len(spinner)]
			frame++

			secretStr := ""
			if secrets := stats.GetSecrets(); secrets > 0 {
				secretStr = fmt.Sprintf("  %ssecrets %d%s", magenta, secrets, reset)
			}
			errStr := ""
			if errors := stats.GetErrors(); errors > 0 {
				errStr = fmt.Sprintf("  %s✗ %d%s", red, errors, reset)
			}

			fmt.Fprintf(w, "\r  %s%s %s%s%s %s%.0f%%%s  %d/%d  fields %s%d%s%s%s",
				cyan, s,
				dim, bar, reset,
				bold, progress, reset,
				processed, total,
				green, stats.GetFields(), reset,
				secretStr, errStr)
		}
	}
}

func PrintSummary(w io.Writer, stats *scanner.Stats) {
	elapsed := stats.Elapsed()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "\n%s%s ✔  Scan Complete%s\n", bold, green, reset)
	fmt.Fprintf(w, "%s%s%s\n", dim, rule, reset)

	fmt.Fprintf(w, "  %sURLs%s        %s%d%s\n", dim, reset, white, stats.GetDiscovered(), reset)
	fmt.Fprintf(w, "  %sRequests%s    %s%d%s\n", dim, reset, white, stats.GetProcessed(), reset)
	fmt.Fprintf(w, "  %sFields%s      %s%s%d%s\n", dim, reset, bold, green, stats.GetFields(), reset)

	if stats.GetSecrets() > 0 {
		fmt.Fprintf(w, "  %sSecrets%s     %s%s%d%s\n", dim, reset, bold, magenta, stats.GetSecrets(), reset)
	}
	if stats.GetErrors() > 0 {
		fmt.Fprintf(w, "  %sErrors%s      %s%s%d%s\n", dim, reset, bold, red, stats.GetErrors(), reset)
	}

	fmt.Fprintf(w, "  %sDuration%s    %s%s%s\n", dim, reset, white, elapsed.Round(time.Millisecond), reset)
	fmt.Fprintln(w)
}

func statusToColor(code int) string {
	switch {
	case code >= 200 && code < 300:
		return green
	case code >= 300 && code < 400:
		return blue
	case code >= 400 && code < 500:
		return red
	case code >= 500:
		return yellow
	default:
		return white
	}
}

func statusToBg(code int) string {
	switch {
	case code >= 200 && code < 300:
		return bgGreen
	case code >= 300 && code < 400:
		return bgBlue
	case code >= 400 && code < 500:
		return bgRed
	case code >= 500:
		return bgYellow
	default:
		return bgRed
	}
}
