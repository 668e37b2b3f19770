package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-maintenance-dashboard/components/session"
)

type loginPage struct {
	page
	Username string
	Next     string
	Expired  bool
	Error    string
}

func (s *Server) loginPage(c *fiber.Ctx) error {
	return c.Render("login", loginPage{
		page:    page{Title: "Iniciar sesión"},
		Next:    safeNext(c.Query("next")),
		Expired: c.Query("expired") == "1",
	})
}

func (s *Server) loginSubmit(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")
	next := safeNext(c.FormValue("next"))
	view := loginPage{page: page{Title: "Iniciar sesión"}, Username: username, Next: next}

	if username == "" || password == "" {
		view.Error = "Ingrese usuario y contraseña"
		return c.Status(fiber.StatusUnprocessableEntity).Render("login", view)
	}
	result, err := s.cfg.Backend.Login(c.UserContext(), username, password)
	if err != nil {
		status := fiber.StatusBadGateway
		view.Error = "Error de conexión"
		switch {
		case goerrors.IsAuth(err):
			status = fiber.StatusUnauthorized
			view.Error = "Usuario o contraseña incorrectos"
		case goerrors.IsValidation(err):
			status = fiber.StatusUnprocessableEntity
			view.Error = "Ingrese usuario y contraseña"
		default:
			s.logError(c, "login failed", err)
		}
		return c.Status(status).Render("login", view)
	}

	user := session.User{
		ID:    result.User.ID,
		Name:  result.User.Name,
		Email: result.User.Email,
		Role:  result.User.Role,
	}
	if user.Email == "" {
		user.Email = username
	}
	sess := session.New(result.Token, user, s.cfg.SessionTTL, s.cfg.Now())
	if err := s.cfg.Sessions.Save(c.UserContext(), sess); err != nil {
		s.logError(c, "session save failed", err)
		view.Error = "No se pudo iniciar la sesión"
		return c.Status(fiber.StatusInternalServerError).Render("login", view)
	}
	session.SetCookie(c, session.CookieName, sess, s.cfg.SecureCookies)
	if next == "" {
		next = "/dashboard"
	}
	return c.Redirect(next)
}

func (s *Server) logout(c *fiber.Ctx) error {
	s.endSession(c)
	return c.Redirect("/login")
}

// safeNext only keeps local paths.
func safeNext(next string) string {
	return session.LocalPath(next)
}
