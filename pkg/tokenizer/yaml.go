package tokenizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/security-cli/secretshield/pkg/logging"
)

// YAMLStrings converts every document to JSON and returns its string
// values, so YAML shares the JSON extraction rules.
func YAMLStrings(content []byte) ([]string, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	var docs []any
	for {
		var doc any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logging.Debug().Err(err).Msg("yaml parse failed")
			return nil, parseError("yaml", err)
		}
		docs = append(docs, normalize(doc))
	}

	var root any = docs
	if len(docs) == 1 {
		root = docs[0]
	}
	data, err := json.Marshal(root)
	if err != nil {
		logging.Debug().Err(err).Msg("yaml to json failed")
		return nil, parseError("yaml", err)
	}
	return JSONStrings(data)
}

// normalize rewrites non-string mapping keys so the value can be encoded
// as JSON.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}
