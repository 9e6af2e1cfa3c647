// FILE: src/internal/format/text.go
package format

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"segbridge/src/internal/core"

	"github.com/lixenwraith/log"
)

// DefaultTextTemplate summarises a call on one line.
const DefaultTextTemplate = `[{{ .type | ToUpper }}]` +
	`{{ with .userId }} user={{ . }}{{ end }}` +
	`{{ with .anonymousId }} anon={{ . }}{{ end }}` +
	`{{ with .event }} event={{ . }}{{ end }}` +
	`{{ with .name }} name={{ printf "%q" . }}{{ end }}` +
	`{{ with .groupId }} group={{ . }}{{ end }}` +
	`{{ with .timestamp }} at={{ . }}{{ end }}`

// TextFormatter renders calls through a text/template. The template data is
// the call itself, so fields are addressed by their wire names.
type TextFormatter struct {
	template *template.Template
	logger   *log.Logger
}

// NewTextFormatter creates a text formatter.
func NewTextFormatter(opts Options, logger *log.Logger) (*TextFormatter, error) {
	src := opts.Template
	if src == "" {
		src = DefaultTextTemplate
	}

	funcMap := template.FuncMap{
		"ToUpper":   func(v any) string { return strings.ToUpper(fmt.Sprint(v)) },
		"ToLower":   func(v any) string { return strings.ToLower(fmt.Sprint(v)) },
		"TrimSpace": strings.TrimSpace,
		"JSON": func(v any) (string, error) {
			data, err := MarshalCompact(v)
			return string(data), err
		},
	}

	tmpl, err := template.New("call").Funcs(funcMap).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	return &TextFormatter{
		template: tmpl,
		logger:   logger,
	}, nil
}

// Format renders the call, falling back to a fixed layout when the template fails.
func (f *TextFormatter) Format(call core.Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.template.Execute(&buf, call); err != nil {
		f.logger.Debug("msg", "Template execution failed, using fallback",
			"component", "text_formatter",
			"error", err)

		fallback := fmt.Sprintf("[%v] %v\n", call["type"], call["messageId"])
		return []byte(fallback), nil
	}

	result := buf.Bytes()
	if len(result) == 0 || result[len(result)-1] != '\n' {
		result = append(result, '\n')
	}
	return result, nil
}

// Name returns the formatter name
func (f *TextFormatter) Name() string {
	return "text"
}
