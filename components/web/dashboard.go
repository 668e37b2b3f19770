package web

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-maintenance-dashboard/components/dashboard"
	"github.com/goliatone/go-maintenance-dashboard/components/dashboard/httpapi"
	dashqueries "github.com/goliatone/go-maintenance-dashboard/components/dashboard/queries"
)

const defaultDashboard = "general"

type dashboardPage struct {
	page
	Code    string
	View    dashboard.View
	Panel   template.HTML
	Scripts []string
	Error   string
}

func (s *Server) dashboardPage(c *fiber.Ctx) error {
	code := c.Params("code", defaultDashboard)
	locale := s.locale(c)
	def, err := s.cfg.Dashboards.Definitions().Lookup(code)
	if err != nil {
		return s.fail(c, err)
	}
	title := def.TitleForLocale(locale)
	data := dashboardPage{
		page: s.basePage(c, title),
		Code: code,
	}
	data.Active = "dashboard:" + code

	view, err := s.dashView.Query(c.UserContext(), dashqueries.LoadDashboardInput{Code: code, Locale: locale})
	if err != nil {
		if goerrors.IsAuth(err) {
			return s.fail(c, err)
		}
		s.logError(c, "dashboard load failed", err)
		status, _ := httpapi.StatusFor(err)
		data.Error = "Error cargando " + title
		return c.Status(status).Render("dashboard", data)
	}
	var panel bytes.Buffer
	if err := s.panels.RenderPanel(view, &panel); err != nil {
		return err
	}
	data.View = view
	data.Panel = template.HTML(panel.String())
	data.Scripts = dashboard.EChartsScripts(dashboard.ResolveEChartsAssetsHost(s.cfg.ChartAssets), s.cfg.ChartTheme)
	return c.Render("dashboard", data)
}
