package secrets

import (
	"io/fs"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// FileConfig is the "file_resolver" module: a directory holding one value per file, as mounted
// by Docker or Kubernetes secrets.
type FileConfig struct {
	SecretsDir string `yaml:"secrets_dir" json:"secrets_dir" toml:"secrets_dir" xml:"secrets_dir"`
}

func (c FileConfig) Validate() error {
	if c.SecretsDir == "" {
		return errors.New("secrets_dir is required")
	}
	info, err := os.Stat(c.SecretsDir)
	switch {
	case err != nil:
		return errors.Wrap(err, "secrets_dir")
	case !info.IsDir():
		return errors.Errorf("secrets_dir %q is not a directory", c.SecretsDir)
	}
	return nil
}

func (c FileConfig) CreateClient() (*Files, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Files{dir: c.SecretsDir}, nil
}

// Files reads ${file:name} from <dir>/name. Names that leave the directory, through ".." or
// symlinks, are rejected. One trailing line break is dropped from the contents.
type Files struct {
	dir string
}

func (f *Files) Lookup(key string) (string, error) {
	root, err := os.OpenRoot(f.dir)
	if err != nil {
		return "", errors.Wrap(err, "cannot open secrets directory")
	}
	defer func() { _ = root.Close() }()

	content, err := root.ReadFile(key)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	value := strings.TrimSuffix(string(content), "\n")
	return strings.TrimSuffix(value, "\r"), nil
}
