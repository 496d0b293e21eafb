package plan

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/rankrent-cli/internal/model"
)

// DefaultPath is where the plan is written when no path is configured.
const DefaultPath = "project_plan.json"

// Save writes p as indented JSON. The file is replaced atomically so a
// crash never leaves a half-written plan.
func Save(path string, p *model.Plan) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return eris.Wrap(err, "plan: marshal")
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// Load reads a plan written by Save.
func Load(path string) (*model.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "plan: read %s", path)
	}
	var p model.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "plan: decode %s", path)
	}
	return &p, nil
}

// ExportYAML writes p as YAML.
func ExportYAML(path string, p *model.Plan) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "plan: marshal yaml")
	}
	return writeFileAtomic(path, data)
}

// YAMLPath returns the export path next to a JSON plan path.
func YAMLPath(jsonPath string) string {
	ext := filepath.Ext(jsonPath)
	return jsonPath[:len(jsonPath)-len(ext)] + ".yaml"
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "plan: create dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".plan-*")
	if err != nil {
		return eris.Wrap(err, "plan: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "plan: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "plan: close temp file")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "plan: chmod temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrapf(err, "plan: replace %s", path)
	}
	return nil
}
