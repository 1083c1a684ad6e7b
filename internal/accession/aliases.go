package accession

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// ReadAliases parses a tab-separated alias file: one "alias<TAB>accession"
// pair per line. Blank lines and lines starting with # are ignored. The first
// accession recorded for an alias wins, matching the accession table.
func ReadAliases(r io.Reader) (StaticResolver, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	aliases := make(StaticResolver)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read alias file: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) < 2 {
			return nil, fmt.Errorf("alias file line %d: want alias and accession, got %d fields", line, len(record))
		}
		alias := strings.TrimSpace(record[0])
		acc := Normalize(record[1])
		if alias == "" || acc == "" {
			return nil, fmt.Errorf("alias file line %d: empty alias or accession", line)
		}
		if _, seen := aliases[alias]; !seen {
			aliases[alias] = acc
		}
	}
	return aliases, nil
}

// LoadAliasFile reads an alias file from disk.
func LoadAliasFile(path string) (StaticResolver, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open alias file: %w", err)
	}
	defer f.Close()

	aliases, err := ReadAliases(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return aliases, nil
}

// Aliases returns the aliases in sorted order
func (s StaticResolver) Aliases() []string {
	out := make([]string, 0, len(s))
	for alias := range s {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}
