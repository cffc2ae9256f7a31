// Package tokenizer extracts string-literal candidates from script, JSON
// and YAML content.
package tokenizer

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/security-cli/secretshield/pkg/failure"
)

// Kind is the extraction strategy for a file.
type Kind int

const (
	// Fallback files are tokenized as JSON when the whole content is valid
	// JSON and scanned line by line otherwise.
	Fallback Kind = iota
	Script
	JSON
	YAML
)

var kindByExt = map[string]Kind{
	".js":   Script,
	".mjs":  Script,
	".cjs":  Script,
	".json": JSON,
	".yml":  YAML,
	".yaml": YAML,
}

// KindFor maps a path to its extraction strategy by extension.
func KindFor(path string) Kind {
	if k, ok := kindByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return k
	}
	return Fallback
}

func (k Kind) String() string {
	switch k {
	case Script:
		return "script"
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return "fallback"
	}
}

// Tokenize extracts the deduplicated string literals of content. A parse
// failure returns a PARSE_ERROR and no candidates; Fallback content that
// is not JSON is split into lines instead.
func Tokenize(kind Kind, content []byte) ([]string, error) {
	switch kind {
	case Script:
		return ScriptStrings(content)
	case JSON:
		return JSONStrings(content)
	case YAML:
		return YAMLStrings(content)
	default:
		if IsJSON(content) {
			return JSONStrings(content)
		}
		return Lines(content), nil
	}
}

// Lines splits content into lines, dropping line terminators. Lines are
// not deduplicated.
func Lines(content []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func parseError(format string, err error) error {
	return failure.New(failure.KindParse, "tokenize "+format, "", err)
}

// uniq keeps the first occurrence of every string.
type uniq struct {
	seen map[string]bool
	out  []string
}

func (u *uniq) add(s string) {
	if u.seen == nil {
		u.seen = make(map[string]bool)
	}
	if u.seen[s] {
		return
	}
	u.seen[s] = true
	u.out = append(u.out, s)
}
