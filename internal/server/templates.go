package server

import (
	"fmt"
	"html/template"
	"strings"

	"secdir/internal/ui"
)

type TemplateManager struct {
	Templates map[string]*template.Template
}

func NewTemplateManager() (*TemplateManager, error) {
	tmpls, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	return &TemplateManager{Templates: tmpls}, nil
}

func loadTemplates() (map[string]*template.Template, error) {
	tmpls := make(map[string]*template.Template)

	layoutContent, err := ui.Templates.ReadFile("layout.html")
	if err != nil {
		return nil, err
	}

	baseTmpl, err := template.New("layout").Parse(string(layoutContent))
	if err != nil {
		return nil, err
	}

	pages := []string{"login.html", "register.html", "home.html", "redirect.html"}

	for _, page := range pages {
		pageContent, err := ui.Templates.ReadFile(page)
		if err != nil {
			return nil, err
		}

		pageTmpl, err := baseTmpl.Clone()
		if err != nil {
			return nil, err
		}

		if _, err = pageTmpl.Parse(string(pageContent)); err != nil {
			return nil, err
		}

		tmpls[page] = pageTmpl
	}

	return tmpls, nil
}

// Render executes a page template against data and returns the HTML. The
// caller frames it into a response itself, so rendering returns a string
// rather than writing to a connection.
func (tm *TemplateManager) Render(name string, data map[string]any) (string, error) {
	tmpl, ok := tm.Templates[name]
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return b.String(), nil
}
