package web

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-maintenance-dashboard/components/form"
	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/components/modules"
	"github.com/goliatone/go-maintenance-dashboard/components/modules/commands"
	"github.com/goliatone/go-maintenance-dashboard/components/modules/queries"
	"github.com/goliatone/go-maintenance-dashboard/components/session"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

const pagerWindow = 5

// keyDeleted marks the redirect after a confirmed delete; the list then
// shows the locally updated rows instead of fetching again.
const keyDeleted = "deleted"

func moduleURL(m modules.Module, parts ...string) string {
	out := "/m/" + m.Code
	for _, p := range parts {
		out += "/" + url.PathEscape(p)
	}
	return out
}

func listURL(m modules.Module, state listview.FilterState) string {
	return moduleURL(m) + "?" + state.Encode()
}

func (s *Server) module(c *fiber.Ctx) (modules.Module, error) {
	return s.cfg.Modules.Lookup(c.Params("module"))
}

func (s *Server) actions(m modules.Module) listview.Actions {
	actions := listview.Actions{
		OnView: func(r backend.Record) string { return moduleURL(m, r.ID()) },
	}
	if !m.ReadOnly {
		actions.OnEdit = func(r backend.Record) string { return moduleURL(m, r.ID(), "edit") }
		actions.OnDelete = func(r backend.Record) string { return moduleURL(m, r.ID(), "delete") }
	}
	return actions
}

// view returns the cached list view of the module for the session.
func (s *Server) view(c *fiber.Ctx, m modules.Module) (*listview.View, error) {
	sess, _ := session.FromContext(c)
	return s.views.GetOrCreate(sess.ID, m.Code, func() (*listview.View, error) {
		return listview.NewView(listview.Config{
			Fetch: s.list.Fetcher(m.Code),
			Delete: func(ctx context.Context, id string) error {
				return s.remove.Execute(ctx, commands.DeleteRecordInput{Module: m.Code, ID: id})
			},
			Columns: m.Columns,
			Initial: m.InitialState(),
			Actions: s.actions(m),
		})
	})
}

type headerCell struct {
	Key      string
	Label    string
	Sortable bool
	URL      string
	Active   bool
	Desc     bool
}

type rowView struct {
	ID        string
	Cells     []cellView
	ViewURL   string
	EditURL   string
	DeleteURL string
}

type cellView struct {
	Text   string
	Status string
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type pagerView struct {
	Label    string
	HasPrev  bool
	HasNext  bool
	PrevURL  string
	NextURL  string
	Pages    []pageLink
	From     int
	To       int
	Total    int
	Sizes    []int
	PageSize int
}

type filterView struct {
	Key     string
	Label   string
	Value   string
	Options []string
}

type listPage struct {
	page
	Module     modules.Module
	Headers    []headerCell
	Rows       []rowView
	HasActions bool
	Pager      pagerView
	Filters    []filterView
	Search     string
	DateFrom   string
	DateTo     string
	Hidden     map[string]string
	ClearURL   string
	RetryURL   string
	Exports    map[string]string
	Error      string
	Stale      bool
	Pending    bool
	Empty      bool
	Filtered   bool
	ExportURL  string
}

func (s *Server) listPage(c *fiber.Ctx) error {
	m, err := s.module(c)
	if err != nil {
		return s.fail(c, err)
	}
	view, err := s.view(c, m)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	var snap listview.Snapshot
	params := c.Queries()
	if _, ok := params[keyDeleted]; ok && view.Snapshot().Loaded {
		snap = view.Snapshot()
	} else {
		// every navigation starts over from the URL; a bare path means the
		// module defaults
		state := listview.FilterFromQuery(params, m.InitialState(), m.FilterKeys())
		snap = view.SetState(ctx, state)
	}
	if snap.Err != nil && backend.IsUnauthorized(snap.Err) {
		return s.expire(c)
	}

	var catalogs queries.CatalogOptions
	if names := filterCatalogs(m); len(names) > 0 {
		catalogs, err = s.catalogs.Query(ctx, queries.CatalogInput{Names: names})
		if err != nil {
			if backend.IsUnauthorized(err) {
				return s.expire(c)
			}
			s.logError(c, "catalog load failed", err)
		}
	}

	data := s.buildListPage(c, m, snap, catalogs)
	status := fiber.StatusOK
	if snap.Err != nil {
		s.logError(c, "list load failed", snap.Err)
		data.Error = "Error de conexión"
		data.Stale = snap.Stale()
		if !snap.Loaded {
			status = fiber.StatusBadGateway
		}
	}
	data.Pending = snap.Superseded && snap.Loading
	return c.Status(status).Render("modules/list", data)
}

func filterCatalogs(m modules.Module) []string {
	var names []string
	for _, f := range m.Filters {
		if f.Catalog != "" {
			names = append(names, f.Catalog)
		}
	}
	return names
}

func (s *Server) buildListPage(c *fiber.Ctx, m modules.Module, snap listview.Snapshot, catalogs queries.CatalogOptions) listPage {
	state := snap.State
	data := listPage{
		page:       s.basePage(c, m.Title),
		Module:     m,
		HasActions: snap.Actions.Any(),
		Search:     state.Search,
		DateFrom:   listview.DateValue(state.DateFrom),
		DateTo:     listview.DateValue(state.DateTo),
		ClearURL:   listURL(m, state.Clear()),
		RetryURL:   listURL(m, state),
		Empty:      snap.Loaded && len(snap.Rows) == 0 && !snap.Superseded,
		Filtered:   state.Active(),
		Hidden:     map[string]string{},
	}
	data.Active = "module:" + m.Code

	if state.SortBy != "" {
		data.Hidden[listview.KeySortBy] = state.SortBy
		data.Hidden[listview.KeySortOrder] = state.SortOrder
	}

	for _, col := range snap.Columns {
		h := headerCell{Key: col.Key, Label: col.Title(), Sortable: col.Sortable}
		if col.Sortable {
			h.URL = listURL(m, state.ToggleSort(col.Key))
			h.Active = state.SortBy == col.Key
			h.Desc = h.Active && state.SortOrder == listview.SortDesc
		}
		data.Headers = append(data.Headers, h)
	}

	for _, rec := range snap.Rows {
		row := rowView{ID: rec.ID()}
		for _, col := range snap.Columns {
			cell := cellView{Text: col.Cell(rec)}
			if col.Format == listview.FormatStatus {
				cell.Status = rec.String(col.Key)
			}
			row.Cells = append(row.Cells, cell)
		}
		if snap.Actions.OnView != nil {
			row.ViewURL = snap.Actions.OnView(rec)
		}
		if snap.Actions.OnEdit != nil {
			row.EditURL = snap.Actions.OnEdit(rec)
		}
		if snap.Actions.OnDelete != nil {
			row.DeleteURL = snap.Actions.OnDelete(rec)
		}
		data.Rows = append(data.Rows, row)
	}

	pager := snap.Pager
	from, to := pager.Range()
	data.Pager = pagerView{
		Label:    pager.Label(),
		HasPrev:  pager.HasPrev(),
		HasNext:  pager.HasNext(),
		PrevURL:  listURL(m, state.WithPage(pager.Prev())),
		NextURL:  listURL(m, state.WithPage(pager.Next())),
		From:     from,
		To:       to,
		Total:    pager.Total,
		Sizes:    listview.PageSizeOptions,
		PageSize: state.PageSize,
	}
	for _, n := range pager.Window(pagerWindow) {
		data.Pager.Pages = append(data.Pager.Pages, pageLink{Number: n, URL: listURL(m, state.WithPage(n)), Current: n == pager.Page})
	}

	for _, f := range m.Filters {
		options := f.Options
		if f.Catalog != "" {
			options = catalogs[f.Catalog]
		}
		data.Filters = append(data.Filters, filterView{Key: f.Key, Label: f.Label, Value: state.Filter(f.Key), Options: options})
	}

	if m.Exportable {
		query := state.Query()
		query.Del(listview.KeyPage)
		query.Del(listview.KeyPageSize)
		encoded := query.Encode()
		data.ExportURL = moduleURL(m, "export")
		data.Exports = map[string]string{}
		for _, format := range []string{"csv", "xlsx", "pdf"} {
			data.Exports[format] = moduleURL(m) + "/export." + format + "?" + encoded
		}
	}
	return data
}

type fieldView struct {
	form.FieldSchema
	Value   string
	Error   string
	Options []string
}

type formPage struct {
	page
	Module    modules.Module
	RecordID  string
	Action    string
	CancelURL string
	Fields    []fieldView
	Error     string
}

// catalogOptions resolves the select options of catalog-backed fields.
func (s *Server) catalogOptions(c *fiber.Ctx, m modules.Module) (queries.CatalogOptions, error) {
	names := m.Catalogs()
	if len(names) == 0 {
		return queries.CatalogOptions{}, nil
	}
	return s.catalogs.Query(c.UserContext(), queries.CatalogInput{Names: names})
}

func (s *Server) renderForm(c *fiber.Ctx, status int, m modules.Module, id string, values form.Values, errs map[string]string, message string) error {
	options, err := s.catalogOptions(c, m)
	if err != nil {
		if backend.IsUnauthorized(err) {
			return s.expire(c)
		}
		s.logError(c, "catalog load failed", err)
		if message == "" {
			message = "Error de conexión"
		}
	}
	title := "Nuevo registro: " + m.Singular()
	action := moduleURL(m)
	if id != "" {
		title = "Editar " + m.Singular()
		action = moduleURL(m, id)
	}
	data := formPage{
		page:      s.basePage(c, title),
		Module:    m,
		RecordID:  id,
		Action:    action,
		CancelURL: s.returnURL(c, m),
		Error:     message,
	}
	data.Active = "module:" + m.Code
	for _, field := range m.Fields {
		fv := fieldView{FieldSchema: field, Value: values[field.Name], Error: errs[field.Name], Options: field.Options}
		if field.Catalog != "" {
			fv.Options = options[field.Catalog]
		}
		data.Fields = append(data.Fields, fv)
	}
	return c.Status(status).Render("modules/form", data)
}

// returnURL points back at the list with the session's current selection.
func (s *Server) returnURL(c *fiber.Ctx, m modules.Module) string {
	view, err := s.view(c, m)
	if err != nil {
		return moduleURL(m)
	}
	return listURL(m, view.State())
}

func (s *Server) editable(c *fiber.Ctx) (modules.Module, error) {
	m, err := s.module(c)
	if err != nil {
		return m, err
	}
	if m.ReadOnly {
		return m, goerrors.New("modules: "+m.Code+" is read only", goerrors.CategoryAuthz).
			WithTextCode("MODULE_READ_ONLY")
	}
	return m, nil
}

func (s *Server) newPage(c *fiber.Ctx) error {
	m, err := s.editable(c)
	if err != nil {
		return s.fail(c, err)
	}
	return s.renderForm(c, fiber.StatusOK, m, "", form.Values{}, nil, "")
}

func (s *Server) editPage(c *fiber.Ctx) error {
	m, err := s.editable(c)
	if err != nil {
		return s.fail(c, err)
	}
	id := c.Params("id")
	rec, err := s.get.Query(c.UserContext(), queries.GetRecordInput{Module: m.Code, ID: id})
	if err != nil {
		return s.fail(c, err)
	}
	return s.renderForm(c, fiber.StatusOK, m, id, m.FormValues(rec), nil, "")
}

func (s *Server) createSubmit(c *fiber.Ctx) error {
	return s.submit(c, "")
}

func (s *Server) updateSubmit(c *fiber.Ctx) error {
	return s.submit(c, c.Params("id"))
}

func (s *Server) submit(c *fiber.Ctx, id string) error {
	m, err := s.editable(c)
	if err != nil {
		return s.fail(c, err)
	}
	f, err := form.New(form.Options{
		Fields:    m.Fields,
		Validator: s.cfg.Modules.Validator(m.Code),
		OnSubmit: func(ctx context.Context, values form.Values) error {
			return s.save.Execute(ctx, commands.SaveRecordInput{Module: m.Code, ID: id, Values: values})
		},
	})
	if err != nil {
		return err
	}
	posted := make(map[string]string, len(m.Fields))
	for _, field := range m.Fields {
		posted[field.Name] = c.FormValue(field.Name)
	}
	f.Bind(posted)

	if err := f.Submit(c.UserContext()); err != nil {
		switch {
		case backend.IsUnauthorized(err):
			return s.expire(c)
		case len(f.Errors()) > 0:
			return s.renderForm(c, fiber.StatusUnprocessableEntity, m, id, f.Values(), f.Errors(), form.ErrorMessage)
		}
		if errs := form.FieldErrors(err); len(errs) > 0 {
			return s.renderForm(c, fiber.StatusUnprocessableEntity, m, id, f.Values(), errs, form.ErrorMessage)
		}
		s.logError(c, "save failed", err)
		return s.renderForm(c, fiber.StatusBadGateway, m, id, f.Values(), nil, "Error de conexión")
	}

	setFlash(c, m.Singular()+" guardado")
	view, err := s.view(c, m)
	if err != nil {
		return c.Redirect(moduleURL(m))
	}
	return c.Redirect(listURL(m, view.State()))
}

type detailField struct {
	Label  string
	Value  string
	Status string
}

type detailPage struct {
	page
	Module    modules.Module
	RecordID  string
	Fields    []detailField
	BackURL   string
	EditURL   string
	DeleteURL string
}

func (s *Server) detailFields(m modules.Module, rec backend.Record) []detailField {
	seen := map[string]bool{}
	var out []detailField
	for _, col := range m.Columns {
		seen[col.Key] = true
		df := detailField{Label: col.Title(), Value: col.Cell(rec)}
		if col.Format == listview.FormatStatus {
			df.Status = rec.String(col.Key)
		}
		out = append(out, df)
	}
	for _, field := range m.Fields {
		if seen[field.Name] {
			continue
		}
		out = append(out, detailField{Label: field.Label, Value: rec.String(field.Name)})
	}
	return out
}

func (s *Server) detailPage(c *fiber.Ctx) error {
	m, err := s.module(c)
	if err != nil {
		return s.fail(c, err)
	}
	id := c.Params("id")
	rec, err := s.get.Query(c.UserContext(), queries.GetRecordInput{Module: m.Code, ID: id})
	if err != nil {
		return s.fail(c, err)
	}
	data := detailPage{
		page:     s.basePage(c, m.Singular()+" "+id),
		Module:   m,
		RecordID: id,
		Fields:   s.detailFields(m, rec),
		BackURL:  s.returnURL(c, m),
	}
	data.Active = "module:" + m.Code
	if !m.ReadOnly {
		data.EditURL = moduleURL(m, id, "edit")
		data.DeleteURL = moduleURL(m, id, "delete")
	}
	return c.Render("modules/detail", data)
}

type confirmPage struct {
	page
	Module    modules.Module
	RecordID  string
	Fields    []detailField
	Action    string
	CancelURL string
}

func (s *Server) confirmDeletePage(c *fiber.Ctx) error {
	m, err := s.editable(c)
	if err != nil {
		return s.fail(c, err)
	}
	id := c.Params("id")
	rec, err := s.get.Query(c.UserContext(), queries.GetRecordInput{Module: m.Code, ID: id})
	if err != nil {
		return s.fail(c, err)
	}
	data := confirmPage{
		page:      s.basePage(c, "Eliminar "+m.Singular()),
		Module:    m,
		RecordID:  id,
		Fields:    s.detailFields(m, rec),
		Action:    moduleURL(m, id, "delete"),
		CancelURL: s.returnURL(c, m),
	}
	data.Active = "module:" + m.Code
	return c.Render("modules/confirm", data)
}

func (s *Server) deleteSubmit(c *fiber.Ctx) error {
	m, err := s.editable(c)
	if err != nil {
		return s.fail(c, err)
	}
	view, err := s.view(c, m)
	if err != nil {
		return err
	}
	confirmed := c.FormValue("confirm") == "1"
	deleted, err := view.Delete(c.UserContext(), c.Params("id"), func(backend.Record) bool { return confirmed })
	if err != nil {
		return s.fail(c, err)
	}
	if !deleted {
		return c.Redirect(listURL(m, view.State()))
	}
	setFlash(c, m.Singular()+" eliminado")
	return c.Redirect(moduleURL(m) + "?" + url.Values{keyDeleted: {c.Params("id")}}.Encode())
}
