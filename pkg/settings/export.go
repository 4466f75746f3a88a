package settings

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ExportFormat is an output syntax for Export.
type ExportFormat string

const (
	EnvExport  ExportFormat = "env"
	JsonExport ExportFormat = "json"
	YamlExport ExportFormat = "yaml"
	TomlExport ExportFormat = "toml"
)

// ExportFormats lists the supported formats.
func ExportFormats() []ExportFormat {
	return []ExportFormat{EnvExport, JsonExport, YamlExport, TomlExport}
}

// Export writes s to w. The env format is a dotenv file with API_URL, APP_NAME and APP_ENV.
func Export(w io.Writer, s Settings, format ExportFormat) error {
	var err error
	switch format {
	case EnvExport:
		_, err = fmt.Fprintf(w, "API_URL=%s\nAPP_NAME=%s\nAPP_ENV=%s\n",
			strconv.Quote(s.APIURL()), strconv.Quote(s.AppName()), strconv.Quote(s.Environment().String()))
	case JsonExport:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		err = encoder.Encode(s.resolved)
	case YamlExport:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err = encoder.Encode(s.resolved); err == nil {
			err = encoder.Close()
		}
	case TomlExport:
		err = toml.NewEncoder(w).Encode(s.resolved)
	default:
		return errors.Errorf("unsupported export format %q", format)
	}
	return errors.Wrapf(err, "failed to export settings as %s", format)
}
