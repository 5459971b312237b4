package output

import (
	"bytes"
	"sync"
	"text/template"

	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// TemplateFormatter formats output with a Go text/template. The template
// receives the Result; the functions "bytes" and "dur" are available.
type TemplateFormatter struct {
	templateStr string
	template    *template.Template
	mu          sync.Mutex
}

// NewTemplateFormatter creates a template formatter with the given template.
func NewTemplateFormatter(templateStr string) *TemplateFormatter {
	return &TemplateFormatter{templateStr: templateStr}
}

// SetTemplate replaces the template.
func (f *TemplateFormatter) SetTemplate(templateStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateStr = templateStr
	f.template = nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// {{bytes .Size}}
		"bytes": formatBytes,
		// {{dur .Stats.Duration}}
		"dur": formatDuration,
	}
}

func formatBytes(size int64) string {
	return types.FormatSize(size)
}

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.template == nil {
		tmpl, err := template.New("output").Funcs(templateFuncs()).Parse(f.templateStr)
		if err != nil {
			return err
		}
		f.template = tmpl
	}

	return f.template.Execute(w, r)
}

const defaultTemplate = `{{range .Copies}}{{.Bucket}}	{{.Source}} -> {{.Destination}}
{{end}}`

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(defaultTemplate)
	})
}

var _ Formatter = (*TemplateFormatter)(nil)
