package detect

import (
	"fmt"
	"slices"

	"github.com/security-cli/secretshield/pkg/rules"
)

// postprocess applies every enabled postprocess rule in declared order to
// the accumulated rule names.
func (e *Engine) postprocess(fired []string) ([]string, error) {
	for i, rule := range e.rules.Postprocess {
		if rule.Disabled {
			continue
		}
		switch rule.Type {
		case rules.IgnoreFinding:
			if slices.Contains(fired, rule.Finding) {
				fired = nil
			}
		default:
			return nil, &StageError{
				Stage: PostprocessFailed,
				Rule:  ruleLabel(rule.Name, i),
				Err:   fmt.Errorf("unknown postprocess type %q", rule.Type),
			}
		}
		if len(fired) == 0 {
			return nil, nil
		}
	}
	return fired, nil
}
