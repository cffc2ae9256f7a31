//go:build cgo

package tokenizer

import (
	"errors"
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

var errSyntax = errors.New("syntax error")

// ParseScript parses src with the TypeScript grammar, which also accepts
// plain JavaScript, and calls fn with the root node. The tree is only
// valid inside fn. A tree containing syntax errors is rejected.
func ParseScript(src []byte, fn func(root *tree_sitter.Node) error) error {
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())); err != nil {
		return parseError("script", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return parseError("script", errSyntax)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return parseError("script", errSyntax)
	}
	return fn(root)
}

// ScriptStrings returns the value of every string literal in src.
// Template literals are not string literals and are skipped.
func ScriptStrings(src []byte) ([]string, error) {
	var u uniq
	err := ParseScript(src, func(root *tree_sitter.Node) error {
		walk(root, func(n *tree_sitter.Node) {
			if n.Kind() == "string" {
				u.add(StringValue(n, src))
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u.out, nil
}

// StringValue decodes a string literal node into its runtime value.
func StringValue(n *tree_sitter.Node, src []byte) string {
	var sb strings.Builder
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "string_fragment":
			sb.WriteString(child.Utf8Text(src))
		case "escape_sequence":
			sb.WriteString(unescape(child.Utf8Text(src)))
		}
	}
	return sb.String()
}

func unescape(seq string) string {
	switch seq {
	case `\'`:
		return "'"
	case `\"`:
		return `"`
	case "\\\n", "\\\r\n":
		return ""
	}
	if v, err := strconv.Unquote(`"` + seq + `"`); err == nil {
		return v
	}
	return strings.TrimPrefix(seq, `\`)
}

func walk(n *tree_sitter.Node, visit func(*tree_sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	for i := uint(0); i < n.ChildCount(); i++ {
		walk(n.Child(i), visit)
	}
}
