package detect

import (
	"fmt"
	"strconv"
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/security-cli/secretshield/pkg/rules"
)

// preprocess applies every enabled preprocess rule in declared order. Each
// rule sees the output of the previous one.
func (e *Engine) preprocess(s string) (string, error) {
	for i, rule := range e.rules.Preprocess {
		if rule.Disabled {
			continue
		}
		if s == "" {
			return "", nil
		}

		var err error
		switch rule.Type {
		case rules.Remove:
			s, err = e.replaceAll(s, rule.Pattern, "\n")
		case rules.Replace:
			s, err = e.replaceAll(s, rule.Pattern, rule.Replace)
		case rules.Exclude:
			s = exclude(s, rule)
		case rules.BulkIgnore:
			s, err = e.bulkIgnore(s, rule.Path)
		default:
			err = fmt.Errorf("unknown preprocess type %q", rule.Type)
		}
		if err != nil {
			return "", &StageError{Stage: PreprocessFailed, Rule: ruleLabel(rule.Name, i), Err: err}
		}
	}
	return s, nil
}

func (e *Engine) replaceAll(s, pattern, replacement string) (string, error) {
	re, err := e.compile(pattern)
	if err != nil {
		return "", err
	}
	return re.ReplaceAllString(s, replacement), nil
}

// exclude clears s when it contains the disallowed string or falls outside
// the configured length bounds.
func exclude(s string, rule rules.PreprocessRule) string {
	if rule.DisallowedString != "" && strings.Contains(s, rule.DisallowedString) {
		return ""
	}
	n := len([]rune(s))
	if rule.MinLength != nil && n < *rule.MinLength {
		return ""
	}
	if rule.MaxLength != nil && n > *rule.MaxLength {
		return ""
	}
	return s
}

func (e *Engine) bulkIgnore(s, path string) (string, error) {
	list, err := e.words.get(path)
	if err != nil {
		return "", err
	}
	for _, word := range list.present(s) {
		re, err := e.compile(`\b` + regexp.QuoteMeta(word) + `\b`)
		if err != nil {
			return "", err
		}
		s = re.ReplaceAllString(s, "\n")
	}
	return s, nil
}

func ruleLabel(name string, index int) string {
	if name != "" {
		return name
	}
	return "#" + strconv.Itoa(index)
}
