// Package fakeapi serves the maintenance REST contract from memory. It is
// seeded with deterministic fake data and backs the demo server and the
// end-to-end tests of the admin.
package fakeapi

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-maintenance-dashboard/components/export"
	"github.com/goliatone/go-maintenance-dashboard/components/form"
	"github.com/goliatone/go-maintenance-dashboard/components/listview"
	"github.com/goliatone/go-maintenance-dashboard/components/modules"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// Options configures a Server.
type Options struct {
	Seed int64
	// Counts overrides DefaultCounts per resource.
	Counts     map[string]int
	Modules    *modules.Registry
	Secret     []byte
	TokenTTL   time.Duration
	BcryptCost int
	Now        func() time.Time
	Logger     *slog.Logger
}

// Server is the in-memory backend.
type Server struct {
	opts     Options
	app      *fiber.App
	modules  *modules.Registry
	tables   map[string]*collection
	accounts []account

	filesMu sync.RWMutex
	files   map[string]storedFile
}

type storedFile struct {
	name        string
	contentType string
	data        []byte
}

// New seeds the tables and registers the routes.
func New(opts Options) (*Server, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("fakeapi-demo-secret")
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	opts.TokenTTL = tokenTTL(opts.TokenTTL)
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	registry := opts.Modules
	if registry == nil {
		reg, err := modules.DefaultRegistry()
		if err != nil {
			return nil, err
		}
		registry = reg
	}
	accounts, err := newAccounts(opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	s := &Server{
		opts:     opts,
		modules:  registry,
		tables:   map[string]*collection{},
		accounts: accounts,
		files:    map[string]storedFile{},
	}
	for resource, rows := range seed(opts.Seed, opts.Now(), opts.Counts) {
		s.tables[resource] = newCollection(rows)
	}
	for _, m := range registry.All() {
		if _, ok := s.tables[m.Resource]; !ok {
			s.tables[m.Resource] = newCollection(nil)
		}
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "mockapi",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.routes()
	return s, nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) routes() {
	s.app.Use(s.logRequests)
	s.app.Post("/auth/login", s.login)
	s.app.Get("/files/:name", s.file)
	s.app.Use(s.requireToken)

	s.app.Get("/dashboard/:code", s.stats)
	s.app.Get("/"+ResourceUbicaciones, s.list(modules.Module{
		Code:       ResourceUbicaciones,
		Resource:   ResourceUbicaciones,
		SortBy:     "fecha",
		SearchKeys: []string{"equipo"},
		DateKey:    "fecha",
	}))
	for _, m := range s.modules.All() {
		base := "/" + m.Resource
		s.app.Get(base, s.list(m))
		if m.Exportable {
			s.app.Post(base+"/export", s.export(m))
		}
		s.app.Get(base+"/:id", s.get(m))
		if m.ReadOnly {
			s.app.Post(base, s.readOnly(m))
			s.app.Put(base+"/:id", s.readOnly(m))
			s.app.Delete(base+"/:id", s.readOnly(m))
			continue
		}
		s.app.Post(base, s.create(m))
		s.app.Put(base+"/:id", s.update(m))
		s.app.Delete(base+"/:id", s.remove(m))
	}
}

// readOnly rejects writes to resources that only support reads.
func (s *Server) readOnly(m modules.Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAllow, fiber.MethodGet)
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
			"error": m.Resource + " es de solo lectura",
		})
	}
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.opts.Logger.Debug("fakeapi request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latency", time.Since(start),
	)
	return err
}

// App exposes the fiber app for Listen or tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops a listening server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// Transport routes HTTP requests straight into the app without a socket.
func (s *Server) Transport() http.RoundTripper {
	return appTransport{app: s.app}
}

type appTransport struct {
	app *fiber.App
}

func (t appTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	return t.app.Test(req, -1)
}

// Rows returns a snapshot of a resource table.
func (s *Server) Rows(resource string) []backend.Record {
	if t, ok := s.tables[resource]; ok {
		return t.all()
	}
	return nil
}

// listQuery reads the backend list parameters from a query string.
func listQuery(params map[string]string) backend.ListQuery {
	q := backend.ListQuery{Filters: map[string]string{}}
	for key, value := range params {
		switch key {
		case "page":
			q.Page, _ = strconv.Atoi(value)
		case "limit":
			q.Limit, _ = strconv.Atoi(value)
		case "search":
			q.Search = value
		case "sortBy":
			q.SortBy = value
		case "sortOrder":
			q.SortOrder = value
		case "dateFrom":
			q.DateFrom = value
		case "dateTo":
			q.DateTo = value
		case "format":
		default:
			q.Filters[key] = value
		}
	}
	return q
}

func (s *Server) source(m modules.Module) *listview.LocalSource {
	return listview.NewLocalSource(s.tables[m.Resource].all(),
		listview.WithSearchKeys(m.SearchKeys...),
		listview.WithDateKey(m.DateKey),
	)
}

// matching applies the query without paging.
func (s *Server) matching(m modules.Module, q backend.ListQuery) []backend.Record {
	state := listview.FilterFromListQuery(q)
	src := s.source(m)
	rows := src.Filter(state)
	src.Sort(rows, state.SortBy, state.SortOrder)
	return rows
}

func (s *Server) list(m modules.Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := listQuery(c.Queries())
		if q.Limit <= 0 {
			rows := s.matching(m, q)
			return c.JSON(backend.Page{Rows: rows, Total: len(rows)})
		}
		return c.JSON(s.source(m).Page(listview.FilterFromListQuery(q)))
	}
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Registro no encontrado"})
}

func (s *Server) get(m modules.Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, ok := s.tables[m.Resource].get(c.Params("id"))
		if !ok {
			return notFound(c)
		}
		return c.JSON(fiber.Map{"data": rec})
	}
}

// validate applies the module form rules to a submitted record.
func (s *Server) validate(c *fiber.Ctx, m modules.Module) (backend.Record, bool, error) {
	var rec backend.Record
	if err := c.BodyParser(&rec); err != nil {
		return nil, false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Solicitud inválida"})
	}
	if validator := s.modules.Validator(m.Code); validator != nil {
		if err := validator.Validate(m.FormValues(rec)); err != nil {
			return nil, false, c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"message": form.ErrorMessage,
				"errors":  form.FieldErrors(err),
			})
		}
	}
	return rec, true, nil
}

func (s *Server) create(m modules.Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, ok, err := s.validate(c, m)
		if !ok {
			return err
		}
		stored := s.tables[m.Resource].insert(rec, func(id int, rec backend.Record) {
			switch m.Code {
			case "ordenes":
				rec["numero"] = ordenNumber(id)
			case "cotizaciones":
				rec["numero"] = cotizacionNumber(id)
			}
		})
		s.audit(currentUser(c), "crear", auditModule(m), auditDescription("crear", m.Code, stored["id"]))
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": stored})
	}
}

func (s *Server) update(m modules.Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, ok, err := s.validate(c, m)
		if !ok {
			return err
		}
		stored, found := s.tables[m.Resource].replace(c.Params("id"), rec, "numero")
		if !found {
			return notFound(c)
		}
		s.audit(currentUser(c), "actualizar", auditModule(m), auditDescription("actualizar", m.Code, stored["id"]))
		return c.JSON(fiber.Map{"data": stored})
	}
}

func (s *Server) remove(m modules.Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		removed, found := s.tables[m.Resource].remove(c.Params("id"))
		if !found {
			return notFound(c)
		}
		s.audit(currentUser(c), "eliminar", auditModule(m), auditDescription("eliminar", m.Code, removed["id"]))
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func auditModule(m modules.Module) string {
	if m.Catalog {
		return "generales"
	}
	return m.Code
}

func (s *Server) audit(user, accion, modulo, descripcion string) {
	table, ok := s.tables["auditoria"]
	if !ok {
		return
	}
	table.insert(backend.Record{
		"fecha":       s.opts.Now().UTC().Format(time.RFC3339),
		"usuario":     user,
		"accion":      accion,
		"modulo":      modulo,
		"descripcion": descripcion,
	}, nil)
}

func (s *Server) stats(c *fiber.Ctx) error {
	payload, ok := s.dashboardStats(c.Params("code"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Tablero no encontrado"})
	}
	return c.JSON(fiber.Map{"data": payload})
}

func (s *Server) export(m modules.Module) fiber.Handler {
	return func(c *fiber.Ctx) error {
		format := c.Query("format", export.FormatXLSX)
		if !export.Supported(format) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Formato no soportado",
				"errors":  map[string]string{"format": "Formato no soportado"},
			})
		}
		rows := s.matching(m, listQuery(c.Queries()))
		table := export.NewTable(m.Title, m.Columns, rows)
		table.GeneratedAt = s.opts.Now()
		if len(rows) > export.MaxRows {
			table.Rows = rows[:export.MaxRows]
			table.Truncated = true
		}
		var buf bytes.Buffer
		if err := export.Write(&buf, format, table); err != nil {
			return err
		}
		name := uuid.NewString() + "." + format
		filename := export.Filename(m.Title, format, table.GeneratedAt)
		s.filesMu.Lock()
		s.files[name] = storedFile{name: filename, contentType: export.ContentType(format), data: buf.Bytes()}
		s.filesMu.Unlock()
		return c.JSON(fiber.Map{
			"url":      c.BaseURL() + "/files/" + name,
			"filename": filename,
		})
	}
}

func (s *Server) file(c *fiber.Ctx) error {
	s.filesMu.RLock()
	f, ok := s.files[c.Params("name")]
	s.filesMu.RUnlock()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Archivo no encontrado"})
	}
	c.Set(fiber.HeaderContentType, f.contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", f.name))
	return c.Send(f.data)
}
