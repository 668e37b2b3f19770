package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"

	"github.com/goliatone/go-maintenance-dashboard/components/modules"
	"github.com/goliatone/go-maintenance-dashboard/components/session"
)

//go:embed templates
var templatesFS embed.FS

func newEngine() (*html.Engine, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("web: templates: %w", err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("statusClass", statusClass)
	engine.AddFunc("humanize", func(s string) string { return strings.ReplaceAll(s, "_", " ") })
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("web: load templates: %w", err)
	}
	return engine, nil
}

// statusClass maps a status value to a badge modifier.
func statusClass(status string) string {
	switch status {
	case "operativo", "activo", "completada", "cerrada", "aprobada", "atendida":
		return "ok"
	case "en_mantenimiento", "en_progreso", "en_curso", "pendiente", "programada", "enviada", "solicitada", "asignada", "media":
		return "warn"
	case "fuera_de_servicio", "rechazada", "cancelada", "alta", "eliminar":
		return "bad"
	default:
		return "neutral"
	}
}

type dashboardLink struct {
	Code  string
	Title string
}

// page is the data every layout render needs.
type page struct {
	Title      string
	User       session.User
	LoggedIn   bool
	Nav        []modules.NavGroup
	Dashboards []dashboardLink
	Active     string
	Flash      string
}

func (s *Server) basePage(c *fiber.Ctx, title string) page {
	p := page{Title: title}
	sess, ok := session.FromContext(c)
	if !ok {
		return p
	}
	p.User = sess.User
	p.LoggedIn = true
	p.Nav = s.cfg.Modules.Navigation()
	locale := s.locale(c)
	for _, def := range s.cfg.Dashboards.Definitions().Definitions() {
		p.Dashboards = append(p.Dashboards, dashboardLink{Code: def.Code, Title: def.TitleForLocale(locale)})
	}
	p.Flash = takeFlash(c)
	return p
}

const flashCookie = "flash"

func setFlash(c *fiber.Ctx, msg string) {
	c.Cookie(&fiber.Cookie{Name: flashCookie, Value: url.QueryEscape(msg), Path: "/", HTTPOnly: true, SameSite: fiber.CookieSameSiteLaxMode})
}

func takeFlash(c *fiber.Ctx) string {
	raw := c.Cookies(flashCookie)
	if raw == "" {
		return ""
	}
	c.ClearCookie(flashCookie)
	msg, err := url.QueryUnescape(raw)
	if err != nil {
		return ""
	}
	return msg
}
