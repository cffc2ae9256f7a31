package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/security-cli/secretshield/pkg/entropy"
	"github.com/security-cli/secretshield/pkg/rules"
)

// detect runs every enabled regex, fuzzy and entropy rule against s. The
// rules are independent; names are returned in a stable order per stage.
func (e *Engine) detect(s string) ([]string, error) {
	var fired []string

	for _, name := range sortedNames(e.rules.Regex) {
		rule := e.rules.Regex[name]
		if rule.Disabled {
			continue
		}
		ok, err := e.matchRegex(s, rule)
		if err != nil {
			return nil, &StageError{Stage: DetectFailed, Rule: name, Err: err}
		}
		if ok {
			fired = append(fired, name)
		}
	}

	for _, name := range sortedNames(e.rules.Fuzzy) {
		rule := e.rules.Fuzzy[name]
		if rule.Disabled {
			continue
		}
		if matchFuzzy(s, rule) {
			fired = append(fired, name)
		}
	}

	for _, name := range sortedNames(e.rules.Entropy) {
		rule := e.rules.Entropy[name]
		if rule.Disabled {
			continue
		}
		ok, err := e.matchEntropy(s, rule)
		if err != nil {
			return nil, &StageError{Stage: DetectFailed, Rule: name, Err: err}
		}
		if ok {
			fired = append(fired, name)
		}
	}

	return fired, nil
}

func (e *Engine) matchRegex(s string, rule rules.RegexRule) (bool, error) {
	re, err := e.compile(rule.Pattern)
	if err != nil {
		return false, err
	}
	if rule.MinEntropy == nil {
		return re.MatchString(s), nil
	}
	for _, m := range re.FindAllString(s, -1) {
		if entropy.Shannon(m) >= *rule.MinEntropy {
			return true, nil
		}
	}
	return false, nil
}

func matchFuzzy(s string, rule rules.FuzzyRule) bool {
	if !rule.CaseSensitive {
		s = strings.ToLower(s)
	}
	for _, phrase := range rule.Phrases {
		if !rule.CaseSensitive {
			phrase = strings.ToLower(phrase)
		}
		if similarity(phrase, s)*100 > rule.Threshold {
			return true
		}
	}
	return false
}

// matchEntropy fires on the first alphanumeric token in the length range
// whose entropy reaches the threshold for its class.
func (e *Engine) matchEntropy(s string, rule rules.EntropyRule) (bool, error) {
	re, err := e.compile(fmt.Sprintf(`\b[0-9a-zA-Z]{%d,%d}\b`, rule.MinLength, rule.MaxLength))
	if err != nil {
		return false, err
	}
	for _, token := range re.FindAllString(s, -1) {
		threshold := e.table.Threshold(entropy.Classify(token), len(token), rule.Percentile)
		if entropy.Shannon(token) >= threshold {
			return true, nil
		}
	}
	return false, nil
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
