package web

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-maintenance-dashboard/components/export"
	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/components/modules"
	"github.com/goliatone/go-maintenance-dashboard/components/modules/commands"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// HeaderTruncated marks downloads cut short by the row cap.
const HeaderTruncated = "X-Export-Truncated"

func (s *Server) exportable(c *fiber.Ctx) (modules.Module, error) {
	m, err := s.module(c)
	if err != nil {
		return m, err
	}
	if !m.Exportable {
		return m, goerrors.New("modules: "+m.Code+" is not exportable", goerrors.CategoryBadInput).
			WithTextCode("MODULE_NOT_EXPORTABLE")
	}
	return m, nil
}

// exportDownload renders every row matching the query as a csv, xlsx or
// pdf file.
func (s *Server) exportDownload(c *fiber.Ctx) error {
	m, err := s.exportable(c)
	if err != nil {
		return s.fail(c, err)
	}
	format := c.Params("format")
	if !export.Supported(format) {
		return s.renderError(c, fiber.StatusBadRequest, "Formato de exportación no soportado")
	}
	state := listview.FilterFromQuery(c.Queries(), m.InitialState(), m.FilterKeys())
	rows, truncated, err := export.Collect(c.UserContext(), s.list.Fetcher(m.Code), state)
	if err != nil {
		return s.fail(c, err)
	}

	table := export.NewTable(m.Title, m.Columns, rows)
	table.GeneratedAt = s.cfg.Now()
	table.Truncated = truncated

	var buf bytes.Buffer
	if err := export.Write(&buf, format, table); err != nil {
		return s.fail(c, err)
	}
	if truncated {
		c.Set(HeaderTruncated, "1")
	}
	c.Set(fiber.HeaderContentType, export.ContentType(format))
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename(m.Title, format, table.GeneratedAt)))
	return c.Send(buf.Bytes())
}

// exportRequest delegates file generation to the backend and redirects to
// the generated file.
func (s *Server) exportRequest(c *fiber.Ctx) error {
	m, err := s.exportable(c)
	if err != nil {
		return s.fail(c, err)
	}
	view, err := s.view(c, m)
	if err != nil {
		return err
	}
	var ref backend.ExportRef
	err = s.exports.Execute(c.UserContext(), commands.RequestExportInput{
		Module: m.Code,
		Format: c.FormValue("format", export.FormatXLSX),
		State:  view.State(),
		Result: &ref,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.Redirect(ref.URL, fiber.StatusSeeOther)
}
