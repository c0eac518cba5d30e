package processor

import (
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/pkg/errors"
)

// Values makes conversion details available to output name templates.
type Values struct {
	Title      string
	Author     string
	SourceFile string
	SourceDir  string
	Format     string
}

func expandTemplate(name, tpl string, data any) (string, error) {

	t, err := template.New(name).Funcs(sprig.FuncMap()).Parse(tpl)
	if err != nil {
		return "", errors.Wrapf(err, "unable to parse template %q", tpl)
	}

	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "unable to expand template %q", tpl)
	}
	return buf.String(), nil
}
