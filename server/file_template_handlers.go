package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

var (
	successTemplate = template.Must(ParseTemplate("success.html"))
	errorTemplate   = template.Must(ParseTemplate("error.html"))
)

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Parse(string(content))
}

type pageData struct {
	Title   string
	Message string
}

func writeSuccessPage(w http.ResponseWriter) {
	writePage(w, http.StatusOK, successTemplate, pageData{
		Title:   "Authorization Successful",
		Message: "Success! You have been authorized.",
	})
}

// writeErrorPage answers 200 like the success page; the failure is reported
// to the caller through the listener result, not the browser.
func writeErrorPage(w http.ResponseWriter, message string) {
	writePage(w, http.StatusOK, errorTemplate, pageData{
		Title:   "Authorization Failed",
		Message: message,
	})
}

func writePage(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render redirect page")
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
