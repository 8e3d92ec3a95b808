package main

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"strings"
)

const (
	directoryLayoutTemplate = "templates/directory/layout.tmpl"
	directoryIndexTemplate  = "templates/directory/index.tmpl"
)

//go:embed templates/directory/*.tmpl directory_static/*
var directoryAssetsFS embed.FS

type directoryTemplateRenderer struct {
	env string
}

func newDirectoryTemplateRenderer(env string) *directoryTemplateRenderer {
	return &directoryTemplateRenderer{
		env: env,
	}
}

// templatesForRender reparses from disk in development so template edits show up without a rebuild.
func (r *directoryTemplateRenderer) templatesForRender(contentTemplatePath string) (*template.Template, error) {
	var sourceFS fs.FS
	if r.env == "development" {
		sourceFS = os.DirFS(".")
	} else {
		sourceFS = directoryAssetsFS
	}

	templates, err := template.New("layout.tmpl").Funcs(template.FuncMap{
		"telURL": telURL,
	}).ParseFS(sourceFS, directoryLayoutTemplate, contentTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("parse directory templates: %w", err)
	}
	return templates, nil
}

func directoryStaticFileSystem(env string) (http.FileSystem, error) {
	if env == "development" {
		return http.Dir("directory_static"), nil
	}

	sub, err := fs.Sub(directoryAssetsFS, "directory_static")
	if err != nil {
		return nil, fmt.Errorf("directory static fs: %w", err)
	}
	return http.FS(sub), nil
}

// telURL marks tel: links as safe; html/template only trusts http, https and mailto.
func telURL(link string) template.URL {
	if !strings.HasPrefix(link, "tel:") {
		return template.URL("#")
	}
	return template.URL(link)
}
