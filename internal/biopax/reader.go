package biopax

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	perrors "github.com/rohankatakam/pathgraph/internal/errors"
)

// maxConcurrentDecodes bounds how many source files are decoded at once
const maxConcurrentDecodes = 4

// document is the on-disk layout of a materialized element model.
// JSON documents decode through the same path since JSON is valid YAML.
type document struct {
	DataSource string     `yaml:"dataSource"`
	Elements   []*Element `yaml:"elements"`
}

// Decode reads one model document. path is only used for naming.
func Decode(r io.Reader, path string) (*Model, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return NewModel(defaultSource(path), path, nil)
		}
		return nil, perrors.SourceErrorf(err, "failed to decode %s", path)
	}

	source := strings.TrimSpace(doc.DataSource)
	if source == "" {
		source = defaultSource(path)
	}

	m, err := NewModel(source, path, doc.Elements)
	if err != nil {
		return nil, perrors.SourceErrorf(err, "invalid model in %s", path)
	}
	return m, nil
}

// LoadFile opens and decodes a single model file.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perrors.SourceErrorf(err, "failed to open %s", path)
	}
	defer f.Close()

	return Decode(f, path)
}

// LoadAll decodes every path concurrently and returns the models in the
// order the paths were given. The first failure cancels the rest.
func LoadAll(ctx context.Context, paths []string) ([]*Model, error) {
	models := make([]*Model, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDecodes)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := LoadFile(path)
			if err != nil {
				return err
			}
			models[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load source models: %w", err)
	}
	return models, nil
}

func defaultSource(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
