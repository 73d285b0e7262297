package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Keyword is one recognised line of a config file.
type Keyword interface {
	keyword()
}

type TargetKeyword struct{ URL string }

// ScopeList is a bracketed list, e.g. scope=[/login, /admin].
type ScopeList struct{ Items []string }

// ScopeLiteral is a bare scope value such as crawl.
type ScopeLiteral struct{ Value string }

type TimeoutKeyword struct{ Seconds int64 }

// Setting is any of the optional engine knobs.
type Setting struct {
	Key   string
	Value string
}

type Comment struct{}

func (TargetKeyword) keyword()  {}
func (ScopeList) keyword()      {}
func (ScopeLiteral) keyword()   {}
func (TimeoutKeyword) keyword() {}
func (Setting) keyword()        {}
func (Comment) keyword()        {}

// Token is a Keyword with its 1-based source line.
type Token struct {
	Line    int
	Keyword Keyword
}

// Warning is a skipped line that did not stop parsing.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var settingKeys = map[string]bool{
	"user_agent":       true,
	"follow_redirects": true,
	"max_pages":        true,
	"max_depth":        true,
	"concurrency":      true,
	"snippet_length":   true,
	"rate_limit":       true,
	"max_body_mb":      true,
}

// Tokenize splits a config file into tokens. Unknown keywords and missing
// values become warnings. A timeout that is not an integer is an error.
func Tokenize(r io.Reader) ([]Token, []Warning, error) {
	var tokens []Token
	var warnings []Warning

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		code, _, hasComment := strings.Cut(sc.Text(), "#")
		code = strings.TrimSpace(code)

		if code == "" {
			if hasComment {
				tokens = append(tokens, Token{Line: lineNo, Keyword: Comment{}})
			}
			continue
		}

		key, value, hasValue := strings.Cut(code, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if !hasValue || value == "" {
			warnings = append(warnings, Warning{Line: lineNo, Message: fmt.Sprintf("missing value for %q", key)})
			continue
		}

		switch {
		case key == "target":
			tokens = append(tokens, Token{Line: lineNo, Keyword: TargetKeyword{URL: value}})
		case key == "scope":
			tokens = append(tokens, Token{Line: lineNo, Keyword: parseScope(value)})
		case key == "timeout":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return tokens, warnings, &ParseError{Line: lineNo, Err: fmt.Errorf("%w: %q is not an integer", ErrInvalidTimeout, value)}
			}
			tokens = append(tokens, Token{Line: lineNo, Keyword: TimeoutKeyword{Seconds: n}})
		case settingKeys[key]:
			tokens = append(tokens, Token{Line: lineNo, Keyword: Setting{Key: key, Value: value}})
		default:
			warnings = append(warnings, Warning{Line: lineNo, Message: fmt.Sprintf("unknown keyword %q", key)})
			continue
		}

		if hasComment {
			tokens = append(tokens, Token{Line: lineNo, Keyword: Comment{}})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, warnings, fmt.Errorf("read config: %w", err)
	}

	return tokens, warnings, nil
}

func parseScope(value string) Keyword {
	if !strings.HasPrefix(value, "[") {
		return ScopeLiteral{Value: value}
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	var items []string
	for _, item := range strings.Split(inner, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return ScopeList{Items: items}
}

// Build assembles a ScanConfig from tokens, starting from Default. Bad values
// for optional settings are skipped with a warning.
func Build(tokens []Token) (ScanConfig, []Warning, error) {
	cfg := Default()
	var warnings []Warning

	var target string
	var scope Keyword
	scopeLine := 0

	for _, tok := range tokens {
		switch kw := tok.Keyword.(type) {
		case TargetKeyword:
			target = kw.URL
		case ScopeList, ScopeLiteral:
			if scope != nil {
				return ScanConfig{}, warnings, &ParseError{
					Line: tok.Line,
					Err:  fmt.Errorf("%w (first on line %d)", ErrDuplicateScope, scopeLine),
				}
			}
			scope = kw
			scopeLine = tok.Line
		case TimeoutKeyword:
			if kw.Seconds < 0 {
				return ScanConfig{}, warnings, &ParseError{Line: tok.Line, Err: fmt.Errorf("%w: must not be negative, got %d", ErrInvalidTimeout, kw.Seconds)}
			}
			cfg.Timeout = time.Duration(kw.Seconds) * time.Second
		case Setting:
			if err := applySetting(&cfg, kw); err != nil {
				warnings = append(warnings, Warning{Line: tok.Line, Message: err.Error()})
			}
		case Comment:
		}
	}

	if target == "" {
		return ScanConfig{}, warnings, &ParseError{Err: ErrMissingTarget}
	}
	targetURL, err := parseTarget(target)
	if err != nil {
		return ScanConfig{}, warnings, &ParseError{Err: err}
	}
	cfg.Target = targetURL.String()

	switch s := scope.(type) {
	case nil:
		return ScanConfig{}, warnings, &ParseError{Err: ErrMissingScope}
	case ScopeLiteral:
		if !strings.EqualFold(s.Value, "crawl") {
			ep, err := resolveEndpoint(targetURL, s.Value)
			if err != nil {
				return ScanConfig{}, warnings, &ParseError{Line: scopeLine, Err: err}
			}
			cfg.Endpoints = []string{ep}
		}
	case ScopeList:
		if len(s.Items) == 0 {
			return ScanConfig{}, warnings, &ParseError{Line: scopeLine, Err: fmt.Errorf("%w: list is empty", ErrMissingScope)}
		}
		seen := make(map[string]bool, len(s.Items))
		for _, item := range s.Items {
			ep, err := resolveEndpoint(targetURL, item)
			if err != nil {
				return ScanConfig{}, warnings, &ParseError{Line: scopeLine, Err: err}
			}
			if seen[ep] {
				continue
			}
			seen[ep] = true
			cfg.Endpoints = append(cfg.Endpoints, ep)
		}
	}

	if err := Validate(cfg); err != nil {
		return ScanConfig{}, warnings, &ParseError{Err: err}
	}

	return cfg, warnings, nil
}

func applySetting(cfg *ScanConfig, s Setting) error {
	if s.Key == "user_agent" {
		cfg.UserAgent = s.Value
		return nil
	}
	if s.Key == "follow_redirects" {
		b, err := strconv.ParseBool(s.Value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %q: %s", s.Key, s.Value)
		}
		cfg.FollowRedirects = b
		return nil
	}

	n, err := strconv.Atoi(s.Value)
	if err != nil || n < 0 {
		return fmt.Errorf("invalid value for %q: %s", s.Key, s.Value)
	}
	switch s.Key {
	case "max_pages":
		if n == 0 {
			return fmt.Errorf("max_pages must be positive")
		}
		cfg.MaxPages = n
	case "max_depth":
		cfg.MaxDepth = n
	case "concurrency":
		if n == 0 {
			return fmt.Errorf("concurrency must be positive")
		}
		cfg.Concurrency = n
	case "snippet_length":
		cfg.SnippetLength = n
	case "rate_limit":
		cfg.RateLimit = n
	case "max_body_mb":
		if n == 0 {
			return fmt.Errorf("max_body_mb must be positive")
		}
		cfg.MaxBodyMB = n
	}
	return nil
}

// Parse tokenizes and builds a config from r.
func Parse(r io.Reader) (ScanConfig, []Warning, error) {
	tokens, warnings, err := Tokenize(r)
	if err != nil {
		return ScanConfig{}, warnings, err
	}
	cfg, buildWarnings, err := Build(tokens)
	warnings = append(warnings, buildWarnings...)
	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].Line < warnings[j].Line })
	return cfg, warnings, err
}

// ParseFile reads a .rchl file.
func ParseFile(path string) (ScanConfig, []Warning, error) {
	if err := CheckExtension(path); err != nil {
		return ScanConfig{}, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return ScanConfig{}, nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, warnings, err := Parse(f)
	if err != nil {
		return ScanConfig{}, warnings, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, warnings, nil
}
