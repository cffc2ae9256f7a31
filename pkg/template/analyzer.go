// Package template checks the Parameters block of script-defined
// CloudFormation templates for secrets-handling mistakes.
package template

import (
	"strings"

	regexp "github.com/wasilibs/go-re2"

	"github.com/security-cli/secretshield/pkg/failure"
)

// SecureMarker prefixes the Description of a parameter that holds a secret.
const SecureMarker = "[secure]"

const (
	MsgMissingSecureWithDefault = "Cloudformation parameter must have [secure] and must have an empty default!"
	MsgMissingSecure            = "CloudFormation parameter must have [secure]"
	MsgSecureWithDefault        = "Secure Cloudformation parameter must have an empty default"
)

// Violation is one flagged parameter.
type Violation struct {
	Parameter string
	Message   string
}

// parameter is what the analyzer reads from one declaration.
type parameter struct {
	name       string
	typeString bool
	secure     bool
	hasDefault bool
}

// Analyzer flags parameters whose names match the secure patterns.
type Analyzer struct {
	secure []*regexp.Regexp
}

// New compiles the secure parameter name patterns.
func New(patterns []string) (*Analyzer, error) {
	a := &Analyzer{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, failure.New(failure.KindConfig, "compile secure parameter pattern", p, err)
		}
		a.secure = append(a.secure, re)
	}
	return a, nil
}

func (a *Analyzer) check(p parameter) string {
	for _, re := range a.secure {
		if re.MatchString(p.name) && !p.secure {
			if p.hasDefault {
				return MsgMissingSecureWithDefault
			}
			return MsgMissingSecure
		}
	}
	if p.typeString && p.secure && p.hasDefault {
		return MsgSecureWithDefault
	}
	return ""
}

func (a *Analyzer) evaluate(params []parameter) []Violation {
	var out []Violation
	for _, p := range params {
		if msg := a.check(p); msg != "" {
			out = append(out, Violation{Parameter: p.name, Message: msg})
		}
	}
	return out
}

// setProperty records one Type/Description/Default literal. Other
// properties are ignored.
func (p *parameter) setProperty(key, value string) {
	switch key {
	case "Type":
		if value == "String" {
			p.typeString = true
		}
	case "Description":
		if strings.HasPrefix(value, SecureMarker) {
			p.secure = true
		}
	case "Default":
		if value != "" {
			p.hasDefault = true
		}
	}
}
