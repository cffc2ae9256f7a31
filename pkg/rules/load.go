package rules

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	regexp "github.com/wasilibs/go-re2"
	"gopkg.in/yaml.v3"

	"github.com/security-cli/secretshield/pkg/entropy"
	"github.com/security-cli/secretshield/pkg/failure"
	"github.com/security-cli/secretshield/pkg/logging"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// DefaultBuiltin is the ruleset used when no ruleset is configured.
const DefaultBuiltin = "minimal"

// Parse decodes a JSON or YAML ruleset and validates it.
func Parse(data []byte) (Ruleset, error) {
	var r Ruleset
	trimmed := bytes.TrimSpace(data)
	var err error
	if bytes.HasPrefix(trimmed, []byte("{")) {
		err = json.Unmarshal(trimmed, &r)
	} else {
		err = yaml.Unmarshal(data, &r)
	}
	if err != nil {
		return Ruleset{}, failure.New(failure.KindConfig, "parse ruleset", "", err)
	}
	if err := r.Validate(); err != nil {
		return Ruleset{}, err
	}
	return r, nil
}

// Load reads a ruleset from path. Relative bulkIgnore paths are resolved
// against the ruleset's directory.
func Load(path string) (Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Ruleset{}, failure.New(failure.KindConfig, "read ruleset", path, err)
	}
	r, err := Parse(data)
	if err != nil {
		var fe *failure.Error
		if errors.As(err, &fe) && fe.Path == "" {
			fe.Path = path
		}
		return Ruleset{}, err
	}
	dir := filepath.Dir(path)
	for i, p := range r.Preprocess {
		if p.Type == BulkIgnore && p.Path != "" && !filepath.IsAbs(p.Path) {
			r.Preprocess[i].Path = filepath.Join(dir, p.Path)
		}
	}
	return r, nil
}

// Builtin returns an embedded ruleset by name.
func Builtin(name string) (Ruleset, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return Ruleset{}, failure.New(failure.KindConfig, "unknown builtin ruleset", name,
			fmt.Errorf("available: %s", strings.Join(BuiltinNames(), ", ")))
	}
	return Parse(data)
}

// BuiltinNames lists the embedded rulesets.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Resolve loads ref as a file path when it names an existing file or ends in
// .json/.yaml/.yml, and as a builtin ruleset name otherwise.
func Resolve(ref string) (Ruleset, error) {
	if ref == "" {
		ref = DefaultBuiltin
	}
	ext := strings.ToLower(filepath.Ext(ref))
	if ext == ".json" || ext == ".yaml" || ext == ".yml" {
		return Load(ref)
	}
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return Load(ref)
	}
	return Builtin(ref)
}

// Validate checks every rule's shape and compiles every pattern.
func (r Ruleset) Validate() error {
	var errs []error

	for i, p := range r.Preprocess {
		where := fmt.Sprintf("preprocess[%d] %q", i, p.Name)
		switch p.Type {
		case Remove, Replace:
			if _, err := regexp.Compile(p.Pattern); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", where, err))
			}
		case Exclude:
			if p.MinLength != nil && p.MaxLength != nil && *p.MinLength > *p.MaxLength {
				errs = append(errs, fmt.Errorf("%s: minLength %d > maxLength %d", where, *p.MinLength, *p.MaxLength))
			}
		case BulkIgnore:
			if p.Path == "" {
				errs = append(errs, fmt.Errorf("%s: bulkIgnore requires a path", where))
			}
		default:
			errs = append(errs, fmt.Errorf("%s: unknown type %q", where, p.Type))
		}
	}

	for name, rule := range r.Regex {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			errs = append(errs, fmt.Errorf("regex %q: %w", name, err))
		}
	}

	for name, rule := range r.Fuzzy {
		if len(rule.Phrases) == 0 {
			errs = append(errs, fmt.Errorf("fuzzy %q: no phrases", name))
		}
		if rule.Threshold < 0 || rule.Threshold > 100 {
			errs = append(errs, fmt.Errorf("fuzzy %q: threshold %v outside 0-100", name, rule.Threshold))
		}
	}

	for name, rule := range r.Entropy {
		if rule.MinLength < 1 || rule.MaxLength < rule.MinLength {
			errs = append(errs, fmt.Errorf("entropy %q: invalid length range [%d, %d]", name, rule.MinLength, rule.MaxLength))
		}
		if _, ok := entropy.ZScore(rule.Percentile); !ok {
			logging.Warn().Str("rule", name).Float64("percentile", rule.Percentile).
				Floats64("supported", entropy.Percentiles()).
				Msg("unsupported entropy percentile, rule can never fire")
		}
	}

	for i, p := range r.Postprocess {
		if p.Type != IgnoreFinding {
			errs = append(errs, fmt.Errorf("postprocess[%d] %q: unknown type %q", i, p.Name, p.Type))
		}
	}

	for _, pattern := range r.Special.IgnoreFiles {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("special.IgnoreFiles %q: %w", pattern, err))
		}
	}
	for _, pattern := range r.Special.CFTemplateSecureParameters {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("special.CFTemplateSecureParameters %q: %w", pattern, err))
		}
	}

	if len(errs) > 0 {
		return failure.New(failure.KindConfig, "validate ruleset", "", errors.Join(errs...))
	}
	return nil
}
