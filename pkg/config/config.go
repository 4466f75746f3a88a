// Package config loads modular configuration files. Each top-level key of the file is a module that
// stays as raw bytes until it is requested with Get, at which point it is decoded into its own type,
// its "${prefix:key}" placeholders are expanded through the secrets package and it is validated.
package config

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file syntax.
type Format string

const (
	YamlFormat Format = "yaml"
	JsonFormat Format = "json"
	TomlFormat Format = "toml"
	XmlFormat  Format = "xml"
)

// format is used for files without a recognized extension and by Unmarshal.
var format = YamlFormat

// UseFormat sets the format used when it cannot be derived from a file name.
func UseFormat(f Format) {
	format = f
}

// FormatFromPath derives the format from the file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YamlFormat, true
	case ".json":
		return JsonFormat, true
	case ".toml":
		return TomlFormat, true
	case ".xml":
		return XmlFormat, true
	default:
		return "", false
	}
}

// Validatable is implemented by every configuration module.
type Validatable interface {
	Validate() error
}

// ClientFactory is a configuration module able to build the client it describes,
// e.g. secrets.VaultConfig implements ClientFactory[*api.Client].
type ClientFactory[T any] interface {
	Validatable
	CreateClient() (T, error)
}

// Config is a parsed configuration file.
type Config struct {
	format  Format
	modules map[string]ModuleRawConfig
}

// NewConfig reads and parses the file at path.
func NewConfig(path string) (*Config, error) {
	// #nosec G304 -- the config path is chosen by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading configuration file %q", path)
	}

	f, ok := FormatFromPath(path)
	if !ok {
		f = format
	}

	cfg, err := NewConfigFromBytes(data, f)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing configuration file %q", path)
	}
	return cfg, nil
}

// NewConfigFromBytes parses data written in format f.
func NewConfigFromBytes(data []byte, f Format) (*Config, error) {
	modules := make(map[string]ModuleRawConfig)

	var err error
	switch f {
	case YamlFormat:
		err = yaml.Unmarshal(data, &modules)
	case JsonFormat:
		err = json.Unmarshal(data, &modules)
	case TomlFormat:
		err = unmarshalTOMLModules(data, modules)
	case XmlFormat:
		doc := xmlDocument(modules)
		err = xml.Unmarshal(data, &doc)
	default:
		err = errors.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return nil, err
	}

	return &Config{format: f, modules: modules}, nil
}

// Format returns the format the configuration was parsed with.
func (c *Config) Format() Format {
	return c.format
}

// Modules returns the names of the modules present, sorted.
func (c *Config) Modules() []string {
	names := make([]string, 0, len(c.modules))
	for name := range c.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get decodes, expands and validates the module named key. A missing module yields (nil, nil).
func Get[T Validatable](c *Config, key string) (*T, error) {
	out, err := Decode[T](c, key)
	if err != nil || out == nil {
		return nil, err
	}
	if err = (*out).Validate(); err != nil {
		return nil, errors.Wrapf(errors.Wrap(err, "configuration is invalid"), "module %q", key)
	}
	return out, nil
}

// Decode is Get without validation, for callers that complete the module before validating it.
func Decode[T any](c *Config, key string) (*T, error) {
	raw, exists := c.modules[key]
	if !exists {
		return nil, nil
	}
	out, err := decode[T](raw, c.format)
	if err != nil {
		return nil, errors.Wrapf(err, "module %q", key)
	}
	return out, nil
}

// GetClient loads the module named key and builds its client. A missing module yields a nil config
// and the zero client.
func GetClient[F ClientFactory[T], T any](c *Config, key string) (cfg *F, client T, err error) {
	cfg, err = Get[F](c, key)
	if err != nil || cfg == nil {
		return nil, client, err
	}
	if client, err = (*cfg).CreateClient(); err != nil {
		return nil, client, errors.Wrapf(err, "module %q", key)
	}
	return cfg, client, nil
}

// Unmarshal decodes raw in the format set by UseFormat, expands it and validates it.
func Unmarshal[T Validatable](raw ModuleRawConfig) (*T, error) {
	return unmarshal[T](raw, format)
}

func unmarshal[T Validatable](raw ModuleRawConfig, f Format) (*T, error) {
	result, err := decode[T](raw, f)
	if err != nil {
		return nil, err
	}
	if err = (*result).Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration is invalid")
	}
	return result, nil
}

func decode[T any](raw ModuleRawConfig, f Format) (*T, error) {
	var result T

	var err error
	switch f {
	case YamlFormat:
		err = yaml.Unmarshal(raw, &result)
	case JsonFormat:
		err = json.Unmarshal(raw, &result)
	case TomlFormat:
		err = toml.Unmarshal(raw, &result)
	case XmlFormat:
		err = xml.Unmarshal(raw, &result)
	default:
		err = errors.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return nil, err
	}

	if err = expand(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ModuleRawConfig holds a module in the syntax of the file it came from.
type ModuleRawConfig []byte

// UnmarshalYAML implements yaml.Unmarshaler by re-encoding the node.
func (m *ModuleRawConfig) UnmarshalYAML(value *yaml.Node) error {
	out, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// UnmarshalJSON implements json.Unmarshaler by keeping the raw bytes.
func (m *ModuleRawConfig) UnmarshalJSON(data []byte) error {
	*m = bytes.Clone(data)
	return nil
}

// UnmarshalTOML re-encodes a decoded TOML table.
func (m *ModuleRawConfig) UnmarshalTOML(value any) error {
	if _, ok := value.(map[string]any); !ok {
		return errors.Errorf("module must be a table, got %T", value)
	}
	out, err := toml.Marshal(value)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// UnmarshalXML implements xml.Unmarshaler by keeping the element, tags included.
func (m *ModuleRawConfig) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var inner struct {
		Data []byte `xml:",innerxml"`
	}
	if err := d.DecodeElement(&inner, &start); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("<" + start.Name.Local + ">")
	buf.Write(inner.Data)
	buf.WriteString("</" + start.Name.Local + ">")
	*m = buf.Bytes()
	return nil
}

func unmarshalTOMLModules(data []byte, modules map[string]ModuleRawConfig) error {
	var tables map[string]any
	if err := toml.Unmarshal(data, &tables); err != nil {
		return err
	}
	for name, table := range tables {
		var raw ModuleRawConfig
		if err := raw.UnmarshalTOML(table); err != nil {
			return errors.Wrapf(err, "module %q", name)
		}
		modules[name] = raw
	}
	return nil
}

// xmlDocument maps every child of the root element to a module.
type xmlDocument map[string]ModuleRawConfig

func (doc *xmlDocument) UnmarshalXML(d *xml.Decoder, _ xml.StartElement) error {
	if *doc == nil {
		*doc = make(xmlDocument)
	}
	for {
		token, err := d.Token()
		if err != nil {
			return err
		}
		switch t := token.(type) {
		case xml.StartElement:
			var raw ModuleRawConfig
			if err := raw.UnmarshalXML(d, t); err != nil {
				return err
			}
			(*doc)[t.Name.Local] = raw
		case xml.EndElement:
			return nil
		}
	}
}
