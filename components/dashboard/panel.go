package dashboard

import (
	"embed"
	"errors"
	"io"
	"io/fs"
	"time"

	template "github.com/goliatone/go-template"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// Renderer renders a named template with data into out.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}

// NewTemplateRenderer creates a go-template renderer backed by the embedded templates.
func NewTemplateRenderer() (Renderer, error) {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return template.NewRenderer(
		template.WithFS(sub),
		template.WithExtension(".html"),
	)
}

// PanelTimeLayout formats the "updated at" stamp of a panel.
const PanelTimeLayout = "2006-01-02 15:04"

// PanelRenderer renders the cards and charts of a view as an HTML fragment
// that pages can swap in place on refresh.
type PanelRenderer struct {
	templates Renderer
}

// NewPanelRenderer uses the embedded templates when templates is nil.
func NewPanelRenderer(templates Renderer) (*PanelRenderer, error) {
	if templates == nil {
		var err error
		if templates, err = NewTemplateRenderer(); err != nil {
			return nil, err
		}
	}
	return &PanelRenderer{templates: templates}, nil
}

type panelData struct {
	Code         string      `json:"code"`
	Cards        []CardView  `json:"cards"`
	Charts       []ChartView `json:"charts"`
	Generated    string      `json:"generated"`
	GeneratedISO string      `json:"generated_iso"`
}

// RenderPanel writes the panel of view to w.
func (p *PanelRenderer) RenderPanel(view View, w io.Writer) error {
	if p == nil || p.templates == nil {
		return errors.New("dashboard: panel renderer is not configured")
	}
	_, err := p.templates.Render("panel", panelData{
		Code:         view.Code,
		Cards:        view.Cards,
		Charts:       view.Charts,
		Generated:    view.GeneratedAt.Format(PanelTimeLayout),
		GeneratedISO: view.GeneratedAt.Format(time.RFC3339),
	}, w)
	return err
}
