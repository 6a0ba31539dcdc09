package msbuild

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// element is a namespace-free view of one XML element of a project file.
type element struct {
	Name     string
	Attrs    []xml.Attr
	Children []*element
	Text     string
	Line     int
	Column   int
}

// Attr returns the value of the named attribute (case-insensitive) and whether it is present.
func (e *element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

// parseError carries the position of an XML syntax error.
type parseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *parseError) Error() string {
	return fmt.Sprintf("(%d,%d): %s", e.Line, e.Column, e.Msg)
}

// errEmptyFile is returned for files without a root element.
var errEmptyFile = errors.New("the file is empty or has no root element")

// parseElements reads data into an element tree, tracking line/column of each element.
func parseElements(data []byte) (*element, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyFile
	}

	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		// Project files are read for structure only; treat every declared charset as UTF-8.
		return input, nil
	}

	var root *element
	var stack []*element
	var text []*strings.Builder

	for {
		line, col := d.InputPos()
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			errLine, errCol := d.InputPos()
			var syn *xml.SyntaxError
			if errors.As(err, &syn) {
				if syn.Line > 0 {
					errLine = syn.Line
				}
				return nil, &parseError{Line: errLine, Column: errCol, Msg: syn.Msg}
			}
			return nil, &parseError{Line: errLine, Column: errCol, Msg: err.Error()}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{
				Name:   t.Name.Local,
				Attrs:  t.Attr,
				Line:   line,
				Column: col,
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, &parseError{Line: line, Column: col, Msg: "multiple root elements"}
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
			text = append(text, &strings.Builder{})
		case xml.EndElement:
			top := stack[len(stack)-1]
			top.Text = strings.TrimSpace(text[len(text)-1].String())
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]
		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		}
	}

	if root == nil {
		return nil, errEmptyFile
	}
	return root, nil
}
