//go:build cgo

package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/security-cli/secretshield/pkg/rules"
	"github.com/security-cli/secretshield/pkg/template"
)

func TestAnalyzeFile_ScriptLiterals(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.js", "module.exports = {\n  token: 'wbhnjvknttsogcdncgvo',\n  logo: 'img/logo.png',\n};\n")

	r := rules.Ruleset{Regex: map[string]rules.RegexRule{"Literal": {Pattern: `^[a-z/.]+$`}}}
	result := newScanner(t, r).Analyzer().AnalyzeFile(context.Background(), path)
	require.NoError(t, result.Error)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "wbhnjvknttsogcdncgvo", result.Findings[0].String)
}

func TestAnalyzeFile_TemplateMerged(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stack.template.js", `module.exports = {
  Parameters: {
    GitHubToken: { Type: 'String', Description: '[secure] token', Default: 'abc' }
  },
  Outputs: { Note: 'password = wbhnjvknttsogcdncgvo' }
};
`)

	r := passwordRules()
	r.Special.CFTemplateSecureParameters = []string{"Token"}
	s := newScanner(t, r)

	result := s.Analyzer().AnalyzeFile(context.Background(), path)
	require.NoError(t, result.Error)
	assert.ElementsMatch(t, []Finding{
		{File: path, String: "GitHubToken", Rules: []string{template.MsgSecureWithDefault}},
		{File: path, String: "password = wbhnjvknttsogcdncgvo", Rules: []string{"Password assignment"}},
	}, result.Findings)

	only, err := s.ScanTemplate(path)
	require.NoError(t, err)
	assert.Equal(t, []Finding{{File: path, String: "GitHubToken", Rules: []string{template.MsgSecureWithDefault}}}, only)
}
