// Package text expands narration templates. Content strings are Go
// templates with the sprig function set.
package text

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// templateFuncs provides utility functions for templates.
var templateFuncs = sprig.TxtFuncMap()

// Expand expands a template string using the provided data. Strings without
// template markers are returned as-is.
func Expand(tmplStr string, data any) (string, error) {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr, nil
	}

	tmpl, err := template.New("").Funcs(templateFuncs).Option("missingkey=zero").Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

// Must expands a template and falls back to the raw string if it does not
// parse or execute.
func Must(tmplStr string, data any) string {
	out, err := Expand(tmplStr, data)
	if err != nil {
		return tmplStr
	}
	return out
}

// Check reports whether a template string parses.
func Check(tmplStr string) error {
	if !strings.Contains(tmplStr, "{{") {
		return nil
	}
	_, err := template.New("").Funcs(templateFuncs).Parse(tmplStr)
	return err
}
