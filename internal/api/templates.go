package api

import (
	"embed"
	"html/template"
	"time"

	"github.com/lox/parkwait/internal/assess"
	"github.com/lox/parkwait/internal/models"
	"github.com/lox/parkwait/internal/session"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates parses the HTML templates with the helpers they use.
func newTemplates(loc *time.Location) *template.Template {
	funcs := template.FuncMap{
		"localTime": func(t time.Time) string {
			if t.IsZero() {
				return assess.NotAvailable
			}
			return t.In(loc).Format("Mon 2 Jan 15:04")
		},
		"dayName": models.DayName,
		"ids":     session.FormatIDs,
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
