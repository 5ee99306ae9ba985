package locator

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/estimates-cli/internal/model"
)

// ManifestName is the file written next to the downloaded PDFs.
const ManifestName = "manifest.yaml"

// Manifest lists the documents found by one probing pass.
type Manifest struct {
	GeneratedAt time.Time              `yaml:"generated_at"`
	From        string                 `yaml:"from"`
	To          string                 `yaml:"to"`
	Attempts    int                    `yaml:"attempts"`
	Documents   []model.SourceDocument `yaml:"documents"`
}

// NewManifest builds a Manifest from a Result.
func NewManifest(res *Result, now time.Time) Manifest {
	return Manifest{
		GeneratedAt: now.UTC(),
		From:        model.DateKey(res.End),
		To:          model.DateKey(res.Start),
		Attempts:    res.Attempts,
		Documents:   res.Documents,
	}
}

// WriteManifest writes m as YAML into dir and returns the file path.
func WriteManifest(dir string, m Manifest) (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", eris.Wrap(err, "locator: marshal manifest")
	}
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "locator: write manifest %s", path)
	}
	return path, nil
}

// ReadManifest loads a manifest previously written into dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, eris.Wrap(err, "locator: read manifest")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "locator: unmarshal manifest")
	}
	return &m, nil
}
