package plan

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/persistor/internal/model"
	"github.com/roach88/persistor/internal/verify"
)

// Plan is one verification to run.
type Plan struct {
	// Name uniquely identifies the plan within a directory.
	Name string `yaml:"name" json:"name"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Actual is the document holding the object graph under test. Its
	// format follows its extension.
	Actual string `yaml:"actual" json:"actual"`

	// Benchmark is the expected document.
	Benchmark string `yaml:"benchmark" json:"benchmark"`

	// Format overrides the benchmark format implied by its extension.
	Format string `yaml:"format,omitempty" json:"format,omitempty"`

	MatchAllFields bool `yaml:"match_all_fields,omitempty" json:"match_all_fields,omitempty"`
	SubstringMatch bool `yaml:"substring_match,omitempty" json:"substring_match,omitempty"`
	CaseSensitive  bool `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`

	// Ignore lists flat key prefixes left out of the comparison.
	Ignore []string `yaml:"ignore,omitempty" json:"ignore,omitempty"`

	// IgnoreFields maps a type name to fields the benchmark decoder leaves
	// unassigned.
	IgnoreFields map[string][]string `yaml:"ignore_fields,omitempty" json:"ignore_fields,omitempty"`

	// Alternatives replaces actual values by flat key before comparison.
	Alternatives map[string]string `yaml:"alternatives,omitempty" json:"alternatives,omitempty"`

	// Source is the file the plan was read from.
	Source string `yaml:"-" json:"-"`
}

// Options converts the plan's policy into verifier options.
func (p *Plan) Options() verify.Options {
	return verify.Options{
		MatchAllFields:           p.MatchAllFields,
		SubstringMatch:           p.SubstringMatch,
		CaseSensitive:            p.CaseSensitive,
		IgnoredPrefixes:          p.Ignore,
		IgnoredFields:            p.IgnoreFields,
		ElementAlternativeValues: p.Alternatives,
	}
}

// BenchmarkFormat returns the declared format, or the one implied by the
// benchmark's extension.
func (p *Plan) BenchmarkFormat() model.FileFormat {
	if p.Format != "" {
		return model.ParseFileFormat(p.Format, nil)
	}
	return model.FormatForPath(p.Benchmark, nil)
}

// LoadFile reads the plans in one YAML or CUE file.
func LoadFile(path string) ([]*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var plans []*Plan
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		p, err := parseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		plans = []*Plan{p}
	case ".cue":
		plans, err = parseCUE(data, path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%s: unsupported plan file extension", path)
	}

	base := filepath.Dir(path)
	for _, p := range plans {
		p.Source = path
		p.Actual = resolve(base, p.Actual)
		p.Benchmark = resolve(base, p.Benchmark)
		if err := validate(p); err != nil {
			return nil, fmt.Errorf("%s: invalid plan %q: %w", path, p.Name, err)
		}
	}
	return plans, nil
}

// LoadDir reads every plan file below dir, ordered by file path. Plan names
// must be unique across the directory.
func LoadDir(dir string) ([]*Plan, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("plans directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindPlanFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("error scanning directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no plan files found in %s", dir)
	}

	var all []*Plan
	seen := make(map[string]string)
	for _, f := range files {
		plans, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		for _, p := range plans {
			if prev, ok := seen[p.Name]; ok {
				return nil, fmt.Errorf("duplicate plan %q in %s and %s", p.Name, prev, f)
			}
			seen[p.Name] = f
			all = append(all, p)
		}
	}
	return all, nil
}

// FindPlanFiles returns the .yaml, .yml and .cue files below dir, sorted.
func FindPlanFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".cue":
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func parseYAML(data []byte) (*Plan, error) {
	var p Plan
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // reject typos such as "benchmrak:"
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &p, nil
}

// cueFields are the labels a CUE plan may carry.
var cueFields = map[string]bool{
	"name": true, "description": true, "actual": true, "benchmark": true,
	"format": true, "match_all_fields": true, "substring_match": true,
	"case_sensitive": true, "ignore": true, "ignore_fields": true, "alternatives": true,
}

func parseCUE(data []byte, path string) ([]*Plan, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}

	plansVal := value.LookupPath(cue.ParsePath("plan"))
	if !plansVal.Exists() {
		return nil, fmt.Errorf("%s: no plan struct found", path)
	}
	iter, err := plansVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("%s: iterating plans: %w", path, err)
	}

	var plans []*Plan
	for iter.Next() {
		label := iter.Label()
		v := iter.Value()

		fields, err := v.Fields()
		if err != nil {
			return nil, fmt.Errorf("%s: plan.%s: %w", path, label, err)
		}
		for fields.Next() {
			if name := fields.Label(); !cueFields[name] {
				return nil, fmt.Errorf("%s: plan.%s: unknown field %q", path, label, name)
			}
		}

		var p Plan
		if err := v.Decode(&p); err != nil {
			return nil, fmt.Errorf("%s: plan.%s: %w", path, label, err)
		}
		if p.Name == "" {
			p.Name = label
		}
		plans = append(plans, &p)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("%s: plan struct is empty", path)
	}
	return plans, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func validate(p *Plan) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Actual == "" {
		return fmt.Errorf("actual is required")
	}
	if p.Benchmark == "" {
		return fmt.Errorf("benchmark is required")
	}
	if p.Format != "" {
		switch model.FileFormat(strings.ToUpper(p.Format)) {
		case model.FormatJSON, model.FormatXML, model.FormatProperties, "PROPS", "FLAT":
		default:
			return fmt.Errorf("unknown format %q", p.Format)
		}
	}
	for _, prefix := range p.Ignore {
		if strings.TrimSpace(prefix) == "" {
			return fmt.Errorf("ignore entries must not be empty")
		}
	}
	return nil
}
