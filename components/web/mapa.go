package web

import (
	"encoding/json"
	"html/template"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-maintenance-dashboard/components/geo"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// Resources read by the equipment map.
const (
	resourceEquipos     = "equipos"
	resourceUbicaciones = "ubicaciones"
)

// mapRowLimit caps each resource read by the map.
const mapRowLimit = 5000

type mapPage struct {
	page
	Map     geo.MapView
	Data    template.JS
	Outside int
	Error   string
}

func (s *Server) mapPage(c *fiber.Ctx) error {
	data := mapPage{page: s.basePage(c, "Mapa de equipos")}
	data.Active = "map"

	var equipos, history backend.Page
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() (err error) {
		equipos, err = backend.ListAll(ctx, s.cfg.Backend, resourceEquipos, backend.ListQuery{}, mapRowLimit)
		return err
	})
	g.Go(func() (err error) {
		history, err = backend.ListAll(ctx, s.cfg.Backend, resourceUbicaciones, backend.ListQuery{}, mapRowLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.fail(c, err)
	}

	if equipos.Total > len(equipos.Rows) || history.Total > len(history.Rows) {
		s.cfg.Logger.Warn("map truncated",
			"equipos", len(equipos.Rows), "equipos_total", equipos.Total,
			"ubicaciones", len(history.Rows), "ubicaciones_total", history.Total)
	}
	view := geo.BuildMap(equipos.Rows, history.Rows, s.cfg.MapsAPIKey)
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}
	data.Map = view
	data.Data = template.JS(raw)
	data.Outside = view.OutsideCount()
	return c.Render("mapa", data)
}
