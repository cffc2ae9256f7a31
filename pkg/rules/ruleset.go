// Package rules defines the ruleset that drives the detection pipeline.
package rules

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PreprocessType selects how a preprocess rule mutates a candidate.
type PreprocessType string

const (
	// Remove replaces every pattern match with a line break so later
	// patterns cannot match across the removed span.
	Remove PreprocessType = "remove"
	// Replace substitutes every pattern match with Replace.
	Replace PreprocessType = "replace"
	// Exclude drops the candidate on a disallowed substring or a length violation.
	Exclude PreprocessType = "exclude"
	// BulkIgnore strips whole-word occurrences of every entry in a word list.
	BulkIgnore PreprocessType = "bulkIgnore"
)

// PostprocessType selects a postprocess rule behaviour.
type PostprocessType string

// IgnoreFinding clears every match of a candidate once Finding is among them.
const IgnoreFinding PostprocessType = "ignoreFinding"

// PreprocessRule is one ordered transform applied before detection.
type PreprocessRule struct {
	Name             string         `json:"name" yaml:"name"`
	Type             PreprocessType `json:"type" yaml:"type"`
	Pattern          string         `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Replace          string         `json:"replace,omitempty" yaml:"replace,omitempty"`
	DisallowedString string         `json:"disallowedString,omitempty" yaml:"disallowedString,omitempty"`
	MinLength        *int           `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength        *int           `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Path             string         `json:"path,omitempty" yaml:"path,omitempty"`
	Disabled         bool           `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// RegexRule fires when Pattern matches. MinEntropy, when set, applies to
// the matched text only.
type RegexRule struct {
	Pattern    string   `json:"pattern" yaml:"pattern"`
	MinEntropy *float64 `json:"minEntropy,omitempty" yaml:"minEntropy,omitempty"`
	Disabled   bool     `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// FuzzyRule fires when the candidate is more similar than Threshold (0-100)
// to any phrase.
type FuzzyRule struct {
	Phrases       []string `json:"phrases" yaml:"phrases"`
	Threshold     float64  `json:"threshold" yaml:"threshold"`
	CaseSensitive bool     `json:"caseSensitive,omitempty" yaml:"caseSensitive,omitempty"`
	Disabled      bool     `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// EntropyRule fires on the first alphanumeric token of MinLength..MaxLength
// characters whose entropy reaches the class threshold at Percentile.
type EntropyRule struct {
	MinLength  int     `json:"minLength" yaml:"minLength"`
	MaxLength  int     `json:"maxLength" yaml:"maxLength"`
	Percentile float64 `json:"percentile" yaml:"percentile"`
	Disabled   bool    `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// PostprocessRule is one ordered suppression over the fired rule names.
type PostprocessRule struct {
	Name     string          `json:"name" yaml:"name"`
	Type     PostprocessType `json:"type" yaml:"type"`
	Finding  string          `json:"finding" yaml:"finding"`
	Disabled bool            `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// Special holds scanning policy knobs. Nil limits are not enforced.
type Special struct {
	IgnoreFiles                       []string `json:"IgnoreFiles,omitempty" yaml:"IgnoreFiles,omitempty"`
	FileSizeRestrictionInMB           *float64 `json:"FileSizeRestrictionInMB,omitempty" yaml:"FileSizeRestrictionInMB,omitempty"`
	NumberOfLinesRestriction          *int     `json:"NumberOfLinesRestriction,omitempty" yaml:"NumberOfLinesRestriction,omitempty"`
	GitHookNumberOfChangesRestriction *int     `json:"GitHookNumberOfChangesRestriction,omitempty" yaml:"GitHookNumberOfChangesRestriction,omitempty"`
	CFTemplateSecureParameters        []string `json:"CFTemplateSecureParameters,omitempty" yaml:"CFTemplateSecureParameters,omitempty"`
}

// Ruleset is the full detection configuration. Treat it as immutable once
// a scan starts; use WithRulesToggled to derive a modified copy.
type Ruleset struct {
	Info        any                    `json:"_info,omitempty" yaml:"_info,omitempty"`
	User        any                    `json:"_user,omitempty" yaml:"_user,omitempty"`
	Preprocess  PreprocessList         `json:"preprocess,omitempty" yaml:"preprocess,omitempty"`
	Regex       map[string]RegexRule   `json:"regex,omitempty" yaml:"regex,omitempty"`
	Fuzzy       map[string]FuzzyRule   `json:"fuzzy,omitempty" yaml:"fuzzy,omitempty"`
	Entropy     map[string]EntropyRule `json:"entropy,omitempty" yaml:"entropy,omitempty"`
	Postprocess PostprocessList        `json:"postprocess,omitempty" yaml:"postprocess,omitempty"`
	Special     Special                `json:"special,omitempty" yaml:"special,omitempty"`
}

// PreprocessList decodes from either a single rule or a list of rules.
type PreprocessList []PreprocessRule

// PostprocessList decodes from either a single rule or a list of rules.
type PostprocessList []PostprocessRule

func (l *PreprocessList) UnmarshalYAML(node *yaml.Node) error {
	return decodeYAMLOneOrMany(node, (*[]PreprocessRule)(l))
}

func (l *PreprocessList) UnmarshalJSON(data []byte) error {
	return decodeJSONOneOrMany(data, (*[]PreprocessRule)(l))
}

func (l *PostprocessList) UnmarshalYAML(node *yaml.Node) error {
	return decodeYAMLOneOrMany(node, (*[]PostprocessRule)(l))
}

func (l *PostprocessList) UnmarshalJSON(data []byte) error {
	return decodeJSONOneOrMany(data, (*[]PostprocessRule)(l))
}

func decodeYAMLOneOrMany[T any](node *yaml.Node, out *[]T) error {
	if node.Kind == yaml.MappingNode {
		var one T
		if err := node.Decode(&one); err != nil {
			return err
		}
		*out = []T{one}
		return nil
	}
	var many []T
	if err := node.Decode(&many); err != nil {
		return err
	}
	*out = many
	return nil
}

func decodeJSONOneOrMany[T any](data []byte, out *[]T) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var one T
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*out = []T{one}
		return nil
	}
	var many []T
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*out = many
	return nil
}

// Stage names a ruleset section.
type Stage string

const (
	StagePreprocess  Stage = "preprocess"
	StageRegex       Stage = "regex"
	StageFuzzy       Stage = "fuzzy"
	StageEntropy     Stage = "entropy"
	StagePostprocess Stage = "postprocess"
)

// RuleInfo describes one rule for listings.
type RuleInfo struct {
	Stage    Stage
	Name     string
	Type     string
	Disabled bool
}

// List returns every rule in pipeline order. Detect-stage rules are sorted
// by name.
func (r Ruleset) List() []RuleInfo {
	var out []RuleInfo
	for _, p := range r.Preprocess {
		out = append(out, RuleInfo{Stage: StagePreprocess, Name: p.Name, Type: string(p.Type), Disabled: p.Disabled})
	}
	for _, name := range sortedKeys(r.Regex) {
		out = append(out, RuleInfo{Stage: StageRegex, Name: name, Type: "regex", Disabled: r.Regex[name].Disabled})
	}
	for _, name := range sortedKeys(r.Fuzzy) {
		out = append(out, RuleInfo{Stage: StageFuzzy, Name: name, Type: "fuzzy", Disabled: r.Fuzzy[name].Disabled})
	}
	for _, name := range sortedKeys(r.Entropy) {
		out = append(out, RuleInfo{Stage: StageEntropy, Name: name, Type: "entropy", Disabled: r.Entropy[name].Disabled})
	}
	for _, p := range r.Postprocess {
		out = append(out, RuleInfo{Stage: StagePostprocess, Name: p.Name, Type: string(p.Type), Disabled: p.Disabled})
	}
	return out
}

// HasDetectors reports whether any regex, fuzzy or entropy rule is enabled.
func (r Ruleset) HasDetectors() bool {
	for _, info := range r.List() {
		switch info.Stage {
		case StageRegex, StageFuzzy, StageEntropy:
			if !info.Disabled {
				return true
			}
		}
	}
	return false
}

// WithRulesToggled returns a copy of r where every rule named in names has
// Disabled set to disabled. Preprocess and postprocess rules match on their
// name field, detect rules on their map key. r is not modified.
func WithRulesToggled(r Ruleset, names []string, disabled bool) Ruleset {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	out := r.Clone()
	for i := range out.Preprocess {
		if want[out.Preprocess[i].Name] {
			out.Preprocess[i].Disabled = disabled
		}
	}
	for name, rule := range out.Regex {
		if want[name] {
			rule.Disabled = disabled
			out.Regex[name] = rule
		}
	}
	for name, rule := range out.Fuzzy {
		if want[name] {
			rule.Disabled = disabled
			out.Fuzzy[name] = rule
		}
	}
	for name, rule := range out.Entropy {
		if want[name] {
			rule.Disabled = disabled
			out.Entropy[name] = rule
		}
	}
	for i := range out.Postprocess {
		if want[out.Postprocess[i].Name] {
			out.Postprocess[i].Disabled = disabled
		}
	}
	return out
}

// Clone returns a copy that shares no mutable rule state with r.
func (r Ruleset) Clone() Ruleset {
	out := r
	out.Preprocess = append(PreprocessList(nil), r.Preprocess...)
	out.Postprocess = append(PostprocessList(nil), r.Postprocess...)
	out.Regex = cloneMap(r.Regex)
	out.Fuzzy = cloneMap(r.Fuzzy)
	out.Entropy = cloneMap(r.Entropy)
	out.Special.IgnoreFiles = append([]string(nil), r.Special.IgnoreFiles...)
	out.Special.CFTemplateSecureParameters = append([]string(nil), r.Special.CFTemplateSecureParameters...)
	return out
}

// UnknownNames returns the names that match no rule in r.
func (r Ruleset) UnknownNames(names []string) []string {
	known := make(map[string]bool)
	for _, info := range r.List() {
		known[info.Name] = true
	}
	var unknown []string
	for _, n := range names {
		if !known[n] {
			unknown = append(unknown, n)
		}
	}
	return unknown
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s Stage) String() string { return string(s) }

// String renders a rule for listings.
func (i RuleInfo) String() string {
	state := "enabled"
	if i.Disabled {
		state = "disabled"
	}
	return fmt.Sprintf("%-12s %-12s %-9s %s", i.Stage, i.Type, state, i.Name)
}
