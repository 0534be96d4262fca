package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/passforge/pkg/errors"
)

// Format identifies a config file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
	FormatJSON Format = "json"
)

// Formats lists the supported config encodings.
var Formats = []Format{FormatTOML, FormatYAML, FormatHCL, FormatJSON}

// FormatFromPath infers the config format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".hcl":
		return FormatHCL, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "cannot infer config format from %q (use .toml, .yaml, .hcl or .json)", path)
}

// LoadConfigFile reads, decodes and validates the config at path.
func LoadConfigFile(path string) (*Config, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parseConfig(data, format, filepath.Base(path))
}

// ParseConfig decodes and validates a config.
func ParseConfig(data []byte, format Format) (*Config, error) {
	return parseConfig(data, format, "pipeline."+string(format))
}

func parseConfig(data []byte, format Format, filename string) (*Config, error) {
	var cfg Config
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &cfg)
	case FormatYAML:
		err = yaml.Unmarshal(data, &cfg)
	case FormatHCL:
		err = decodeHCL(data, filename, &cfg)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported config format %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode %s config", format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// HCL configs use labelled blocks instead of arrays of tables:
//
//	steps = 5
//
//	pass "add_to_mul" {
//	  kind = "replace_target"
//	  from = "add"
//	  to   = "mul"
//	}
//
//	constraint {
//	  before = "add_to_mul"
//	  after  = "mul_to_div"
//	}
//
//	check "only_targets" {
//	  targets = ["div"]
//	}
type hclConfig struct {
	Steps                  int             `hcl:"steps,optional"`
	RunChecksAfterEachPass bool            `hcl:"run_checks_after_each_pass,optional"`
	ExhaustSteps           bool            `hcl:"exhaust_steps,optional"`
	StrictConstraints      bool            `hcl:"strict_constraints,optional"`
	Passes                 []hclPass       `hcl:"pass,block"`
	Constraints            []hclConstraint `hcl:"constraint,block"`
	Checks                 []hclCheck      `hcl:"check,block"`
}

type hclPass struct {
	Name    string   `hcl:"name,label"`
	Kind    string   `hcl:"kind"`
	From    string   `hcl:"from,optional"`
	To      string   `hcl:"to,optional"`
	Repeat  int      `hcl:"repeat,optional"`
	Observe []string `hcl:"observe,optional"`
}

type hclConstraint struct {
	Before string `hcl:"before"`
	After  string `hcl:"after"`
}

type hclCheck struct {
	Kind    string      `hcl:"kind,label"`
	Targets []string    `hcl:"targets,optional"`
	Inputs  [][]float64 `hcl:"inputs,optional"`
	RTol    float64     `hcl:"rtol,optional"`
	ATol    float64     `hcl:"atol,optional"`
}

func decodeHCL(data []byte, filename string, cfg *Config) error {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return fmt.Errorf("parse: %w", diags)
	}

	var raw hclConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return fmt.Errorf("decode: %w", diags)
	}

	*cfg = Config{
		Steps:                  raw.Steps,
		RunChecksAfterEachPass: raw.RunChecksAfterEachPass,
		ExhaustSteps:           raw.ExhaustSteps,
		StrictConstraints:      raw.StrictConstraints,
	}
	for _, p := range raw.Passes {
		cfg.Passes = append(cfg.Passes, PassSpec(p))
	}
	for _, c := range raw.Constraints {
		cfg.Constraints = append(cfg.Constraints, ConstraintSpec(c))
	}
	for _, c := range raw.Checks {
		cfg.Checks = append(cfg.Checks, CheckSpec(c))
	}
	return nil
}

// Marshal returns the canonical JSON encoding of the config, used for cache
// keys.
func (c *Config) Marshal() ([]byte, error) {
	return json.Marshal(c)
}
