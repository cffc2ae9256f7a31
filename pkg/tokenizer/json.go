package tokenizer

import (
	"errors"

	"github.com/tidwall/gjson"
)

var errInvalidJSON = errors.New("invalid JSON")

// IsJSON reports whether content is a single valid JSON document.
func IsJSON(content []byte) bool {
	return gjson.ValidBytes(content)
}

// JSONStrings returns every string value in the document, recursing into
// arrays and objects. Keys, numbers, booleans and nulls are skipped.
func JSONStrings(content []byte) ([]string, error) {
	if !gjson.ValidBytes(content) {
		return nil, parseError("json", errInvalidJSON)
	}
	var u uniq
	collect(gjson.ParseBytes(content), &u)
	return u.out, nil
}

func collect(v gjson.Result, u *uniq) {
	switch {
	case v.Type == gjson.String:
		u.add(v.Str)
	case v.IsArray(), v.IsObject():
		v.ForEach(func(_, value gjson.Result) bool {
			collect(value, u)
			return true
		})
	}
}
