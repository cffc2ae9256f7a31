package template

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/security-cli/secretshield/pkg/failure"
)

func TestCheck(t *testing.T) {
	a, err := New([]string{"Token", "Password", "Secret"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		param    parameter
		expected string
	}{
		{"secure empty default", parameter{name: "DeployToken", typeString: true, secure: true}, ""},
		{"secure with default", parameter{name: "DeployToken", typeString: true, secure: true, hasDefault: true}, MsgSecureWithDefault},
		{"not marked", parameter{name: "DeployToken", typeString: true}, MsgMissingSecure},
		{"not marked with default", parameter{name: "DbPassword", typeString: true, hasDefault: true}, MsgMissingSecureWithDefault},
		{"unrelated name", parameter{name: "InstanceType", typeString: true, hasDefault: true}, ""},
		{"secure non-string with default", parameter{name: "Count", secure: true, hasDefault: true}, ""},
		{"secure unrelated name with default", parameter{name: "Region", typeString: true, secure: true, hasDefault: true}, MsgSecureWithDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, a.check(tt.param))
		})
	}
}

func TestSetProperty(t *testing.T) {
	var p parameter
	p.setProperty("Type", "Number")
	p.setProperty("Description", "plain [secure]")
	p.setProperty("Default", "")
	p.setProperty("AllowedValues", "x")
	assert.Equal(t, parameter{}, p)

	p.setProperty("Type", "String")
	p.setProperty("Description", "[secure] value")
	p.setProperty("Default", "x")
	assert.Equal(t, parameter{typeString: true, secure: true, hasDefault: true}, p)
}

func TestNew_BadPattern(t *testing.T) {
	_, err := New([]string{"("})
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrConfig))
}
