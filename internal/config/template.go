package config

import (
	"fmt"
	"os"
)

const template = `target=http://target.com
scope=[/endpoint1, /endpoint2]
#scope=crawl
# ^ pick one you need
# timeout=10 #10 seconds

# optional settings (defaults shown)
# user_agent=rachel-recon/1.0
# follow_redirects=true
# max_pages=50
# max_depth=2
# concurrency=10
# snippet_length=400
# rate_limit=0
# max_body_mb=10
`

// Template returns the contents of a blank config file.
func Template() string {
	return template
}

// WriteTemplate creates path with the blank template, truncating any
// existing file.
func WriteTemplate(path string) error {
	if err := CheckExtension(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}
