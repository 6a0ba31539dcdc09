package msbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseElements(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`<?xml version="1.0" encoding="utf-16"?>
<Project xmlns="http://schemas.microsoft.com/developer/msbuild/2003">
  <PropertyGroup Condition="'$(A)' == ''">
    <A> value </A>
  </PropertyGroup>
</Project>`)...)

	root, err := parseElements(data)
	require.NoError(t, err)

	assert.Equal(t, "Project", root.Name)
	assert.Equal(t, 2, root.Line)
	require.Len(t, root.Children, 1)

	group := root.Children[0]
	assert.Equal(t, "PropertyGroup", group.Name)
	assert.Equal(t, 3, group.Line)
	assert.Equal(t, 3, group.Column)

	cond, ok := group.Attr("condition")
	assert.True(t, ok)
	assert.Equal(t, "'$(A)' == ''", cond)

	require.Len(t, group.Children, 1)
	assert.Equal(t, "value", group.Children[0].Text)
}

func TestParseElements_Errors(t *testing.T) {
	_, err := parseElements([]byte("   \n"))
	assert.ErrorIs(t, err, errEmptyFile)

	_, err = parseElements([]byte("<!-- only a comment -->"))
	assert.ErrorIs(t, err, errEmptyFile)

	_, err = parseElements([]byte("<Project>\n<A>\n</Project>"))
	var perr *parseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
}
