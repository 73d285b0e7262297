package reporting

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

func SaveYAML(report ScanReport, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create yaml report: %w", err)
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return encoder.Close()
}
