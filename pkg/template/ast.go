//go:build cgo

package template

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/security-cli/secretshield/pkg/tokenizer"
)

// Analyze parses src and checks every parameter declared under a
// Parameters key at any depth. A syntax error in src is a PARSE_ERROR;
// malformed individual parameters are skipped.
func (a *Analyzer) Analyze(src []byte) ([]Violation, error) {
	var params []parameter
	err := tokenizer.ParseScript(src, func(root *tree_sitter.Node) error {
		eachPair(root, func(pair *tree_sitter.Node) {
			if keyName(pair.ChildByFieldName("key"), src) != "Parameters" {
				return
			}
			value := pair.ChildByFieldName("value")
			if value == nil || value.Kind() != "object" {
				return
			}
			params = append(params, declarations(value, src)...)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a.evaluate(params), nil
}

// declarations reads each `Name: { Type, Description, Default }` pair of a
// Parameters object.
func declarations(obj *tree_sitter.Node, src []byte) []parameter {
	var out []parameter
	for i := uint(0); i < obj.ChildCount(); i++ {
		decl := obj.Child(i)
		if decl == nil || decl.Kind() != "pair" {
			continue
		}
		name := keyName(decl.ChildByFieldName("key"), src)
		body := decl.ChildByFieldName("value")
		if name == "" || body == nil || body.Kind() != "object" {
			continue
		}

		p := parameter{name: name}
		for j := uint(0); j < body.ChildCount(); j++ {
			prop := body.Child(j)
			if prop == nil || prop.Kind() != "pair" {
				continue
			}
			value := prop.ChildByFieldName("value")
			if value == nil || value.Kind() != "string" {
				continue
			}
			p.setProperty(keyName(prop.ChildByFieldName("key"), src), tokenizer.StringValue(value, src))
		}
		out = append(out, p)
	}
	return out
}

// keyName returns the name of an identifier or string-literal object key.
func keyName(key *tree_sitter.Node, src []byte) string {
	if key == nil {
		return ""
	}
	switch key.Kind() {
	case "property_identifier":
		return key.Utf8Text(src)
	case "string":
		return tokenizer.StringValue(key, src)
	}
	return ""
}

func eachPair(n *tree_sitter.Node, fn func(*tree_sitter.Node)) {
	if n == nil {
		return
	}
	if n.Kind() == "pair" {
		fn(n)
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		eachPair(n.Child(i), fn)
	}
}
