package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	router "github.com/goliatone/go-router"
	"github.com/google/uuid"

	"github.com/goliatone/go-maintenance-dashboard/components/dashboard/gorouter"
	"github.com/goliatone/go-maintenance-dashboard/components/dashboard/httpapi"
	"github.com/goliatone/go-maintenance-dashboard/components/session"
	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// HeaderRequestID carries the request id in and out.
const HeaderRequestID = "X-Request-ID"

const requestIDLocals = "web.request_id"

// requestLogger tags each request with an id and logs its outcome.
func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id := c.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(requestIDLocals, id)
		c.Set(HeaderRequestID, id)

		err := c.Next()
		if err != nil {
			// let the error handler set the status before logging it
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		level := slog.LevelInfo
		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelError
		}
		attrs := []slog.Attr{
			slog.String("request_id", id),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		}
		if err != nil {
			attrs = append(attrs, goerrors.ToSlogAttributes(err)...)
		}
		logger.LogAttrs(c.UserContext(), level, "request", attrs...)
		return nil
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDLocals).(string)
	return id
}

// errorHandler renders uncaught errors as the error page.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return s.renderError(c, fe.Code, fe.Message)
	}
	status, message := httpapi.StatusFor(err)
	return s.renderError(c, status, message)
}

type errorPage struct {
	page
	Status    int
	Message   string
	RequestID string
}

func (s *Server) renderError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).Render("error", errorPage{
		page:      s.basePage(c, "Error"),
		Status:    status,
		Message:   message,
		RequestID: requestID(c),
	})
}

// fail handles a backend failure on a page: a rejected token ends the
// session, anything else becomes the error page.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	if backend.IsUnauthorized(err) {
		return s.expire(c)
	}
	s.logError(c, "request failed", err)
	status, message := httpapi.StatusFor(err)
	return s.renderError(c, status, message)
}

// expire deletes the current session and sends the browser to the login
// page with the expired notice.
func (s *Server) expire(c *fiber.Ctx) error {
	s.endSession(c)
	return c.Redirect(session.LoginURL("/login", true, ""))
}

func (s *Server) endSession(c *fiber.Ctx) {
	if sess, ok := session.FromContext(c); ok {
		s.dropSession(c.UserContext(), requestID(c), sess.ID)
	}
	session.ClearCookie(c, session.CookieName)
}

func (s *Server) dropSession(ctx context.Context, reqID, id string) {
	if err := s.cfg.Sessions.Delete(ctx, id); err != nil {
		s.logErrorID(ctx, reqID, "session delete failed", err)
	}
	s.views.DropSession(id)
}

// apiError is the JSON counterpart of fail for the dashboard API.
func (s *Server) apiError(ctx router.Context, err error) error {
	reqID, _ := ctx.Locals(requestIDLocals).(string)
	if backend.IsUnauthorized(err) {
		if sess, ok := session.FromStdContext(ctx.Context()); ok {
			s.dropSession(ctx.Context(), reqID, sess.ID)
		}
		ctx.Cookie(&router.Cookie{
			Name:     session.CookieName,
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return ctx.JSON(fiber.StatusUnauthorized, httpapi.ErrorBody{Error: "Sesión expirada", Code: "SESSION_EXPIRED"})
	}
	s.logErrorID(ctx.Context(), reqID, "api request failed", err)
	return gorouter.RespondError(ctx, err)
}

func (s *Server) logError(c *fiber.Ctx, msg string, err error) {
	s.logErrorID(c.UserContext(), requestID(c), msg, err)
}

func (s *Server) logErrorID(ctx context.Context, reqID, msg string, err error) {
	level := slog.LevelWarn
	if backend.IsUnavailable(err) {
		level = slog.LevelError
	}
	attrs := append([]slog.Attr{slog.String("request_id", reqID)}, goerrors.ToSlogAttributes(err)...)
	s.cfg.Logger.LogAttrs(ctx, level, msg, attrs...)
}
