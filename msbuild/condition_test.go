package msbuild

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(props map[string]string) *conditionEnv {
	return &conditionEnv{
		props: func(name string) (string, bool) {
			for k, v := range props {
				if strings.EqualFold(k, name) {
					return v, true
				}
			}
			return "", false
		},
	}
}

func TestEvaluateCondition(t *testing.T) {
	props := map[string]string{
		"Configuration": "Debug",
		"Platform":      "AnyCPU",
		"Version":       "15.0",
		"SignAssembly":  "true",
		"OutDir":        `bin\`,
	}

	tests := []struct {
		name string
		cond string
		want bool
	}{
		{"empty", "", true},
		{"string equal", "'$(Configuration)' == 'Debug'", true},
		{"case insensitive", "'$(Configuration)' == 'DEBUG'", true},
		{"not equal", "'$(Configuration)' != 'Release'", true},
		{"pipe pair", "'$(Configuration)|$(Platform)' == 'Debug|AnyCPU'", true},
		{"undefined is empty", "'$(Undefined)' == ''", true},
		{"numeric greater", "'$(Version)' > '14.0'", true},
		{"numeric less or equal", "$(Version) <= 15", true},
		{"numeric equality", "'15.00' == '15'", true},
		{"hex", "'0x10' == '16'", true},
		{"and", "'$(Configuration)' == 'Debug' and '$(Platform)' == 'x64'", false},
		{"or", "'$(Configuration)' == 'Release' or '$(Platform)' == 'AnyCPU'", true},
		{"uppercase keywords", "'a' == 'b' OR 'c' == 'c'", true},
		{"not", "!('$(Configuration)' == 'Release')", true},
		{"bare boolean", "$(SignAssembly)", true},
		{"negated boolean", "!$(SignAssembly)", false},
		{"quoted boolean", "'false'", false},
		{"trailing slash", "HasTrailingSlash('$(OutDir)')", true},
		{"no trailing slash", "HasTrailingSlash('$(Configuration)')", false},
		{"nested parens", "('a' == 'a' and ('b' == 'c' or 'd' == 'd'))", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := evaluateCondition(tt.cond, testEnv(props))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateCondition_Exists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "present.props"), []byte("<Project />"), 0o644))

	env := testEnv(map[string]string{"Dir": dir})
	env.baseDir = dir

	got, _, err := evaluateCondition("Exists('present.props')", env)
	require.NoError(t, err)
	assert.True(t, got)

	got, _, err = evaluateCondition("Exists('$(Dir)/missing.props')", env)
	require.NoError(t, err)
	assert.False(t, got)

	got, _, err = evaluateCondition("!Exists('')", env)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateCondition_Invalid(t *testing.T) {
	tests := []string{
		"'a' = 'b'",
		"'unterminated == 'b'",
		"('a' == 'a'",
		"'a' == 'a' 'b'",
		"'abc' < 'def'",
		"'maybe'",
		"Unknown('x')",
		"'a' ==",
	}

	for _, cond := range tests {
		t.Run(cond, func(t *testing.T) {
			_, _, err := evaluateCondition(cond, testEnv(nil))
			require.Error(t, err)

			var cerr *conditionError
			assert.ErrorAs(t, err, &cerr)
		})
	}
}

func TestConditionedProperties(t *testing.T) {
	parsed, err := parseCondition("'$(Configuration)|$(Platform)' == 'Release|x64' or '$(Flavor)' != 'Lite'")
	require.NoError(t, err)

	pairs := parsed.conditionedProperties()
	assert.Equal(t, [][2]string{
		{"Configuration", "Release"},
		{"Platform", "x64"},
		{"Flavor", "Lite"},
	}, pairs)
}

func TestConditionedProperties_IgnoresMismatchedShapes(t *testing.T) {
	parsed, err := parseCondition("'$(Configuration)|$(Platform)' == 'Debug' and '$(A)' == '$(B)' and '$(C)' == ''")
	require.NoError(t, err)
	assert.Empty(t, parsed.conditionedProperties())
}
