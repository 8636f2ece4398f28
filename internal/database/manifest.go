package database

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gatherly/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed schema.yml
var schemaManifestYAML []byte

// SchemaManifest lists the tables and columns the application reads and writes.
type SchemaManifest struct {
	Version int                 `yaml:"version"`
	Tables  map[string][]string `yaml:"tables"`
}

// LoadSchemaManifest parses the embedded schema.yml.
func LoadSchemaManifest() (*SchemaManifest, error) {
	return ParseSchemaManifest(schemaManifestYAML)
}

// ParseSchemaManifest decodes a manifest and rejects empty table lists.
func ParseSchemaManifest(data []byte) (*SchemaManifest, error) {
	var m SchemaManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse schema manifest: %w", err)
	}
	if len(m.Tables) == 0 {
		return nil, errors.New("schema manifest declares no tables")
	}
	for table, cols := range m.Tables {
		if len(cols) == 0 {
			return nil, fmt.Errorf("schema manifest table %q declares no columns", table)
		}
	}
	return &m, nil
}

// Missing returns "table" or "table.column" for every manifest entry the
// store lacks, sorted.
func (m *SchemaManifest) Missing(migrator gorm.Migrator) []string {
	var missing []string
	for table, cols := range m.Tables {
		if !migrator.HasTable(table) {
			missing = append(missing, table)
			continue
		}
		for _, col := range cols {
			if !migrator.HasColumn(table, col) {
				missing = append(missing, table+"."+col)
			}
		}
	}
	sort.Strings(missing)
	return missing
}

// VerifySchema fails when a required table or column is absent.
func VerifySchema(db *gorm.DB) error {
	manifest, err := LoadSchemaManifest()
	if err != nil {
		return models.NewUpstreamError(err)
	}
	if missing := manifest.Missing(db.Migrator()); len(missing) > 0 {
		return models.NewUpstreamError(fmt.Errorf("schema mismatch, missing: %s", strings.Join(missing, ", ")))
	}
	return nil
}
