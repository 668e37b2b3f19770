package session

import (
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// CookieName is the default session cookie.
const CookieName = "sid"

const localsKey = "admin.session"

// MiddlewareOptions configures Middleware.
type MiddlewareOptions struct {
	Store      Store
	CookieName string
	LoginPath  string
	// Public paths are served without a session (prefix match).
	Public []string
	Now    func() time.Time
	Logger *slog.Logger
}

func (o MiddlewareOptions) withDefaults() MiddlewareOptions {
	if o.CookieName == "" {
		o.CookieName = CookieName
	}
	if o.LoginPath == "" {
		o.LoginPath = "/login"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Middleware resolves the session cookie. Requests without a session are
// redirected to the login page; expired ones are deleted first and the
// login page is told why. On success the session is available through
// FromContext and the bearer token travels in the request context.
func Middleware(opts MiddlewareOptions) fiber.Handler {
	opts = opts.withDefaults()
	return func(c *fiber.Ctx) error {
		if opts.isPublic(c.Path()) {
			return c.Next()
		}
		id := c.Cookies(opts.CookieName)
		if id == "" {
			return deny(c, opts, false)
		}
		ctx := c.UserContext()
		sess, err := opts.Store.Get(ctx, id)
		if err != nil {
			if !goerrors.IsNotFound(err) {
				opts.Logger.LogAttrs(ctx, slog.LevelError, "session lookup failed", goerrors.ToSlogAttributes(err)...)
			}
			ClearCookie(c, opts.CookieName)
			return deny(c, opts, false)
		}
		if sess.Expired(opts.Now()) {
			if err := opts.Store.Delete(ctx, sess.ID); err != nil {
				opts.Logger.WarnContext(ctx, "session delete failed", "error", err)
			}
			ClearCookie(c, opts.CookieName)
			return deny(c, opts, true)
		}
		c.Locals(localsKey, sess)
		ctx = WithSession(ctx, sess)
		c.SetUserContext(backend.WithToken(ctx, sess.Token))
		return c.Next()
	}
}

func (o MiddlewareOptions) isPublic(path string) bool {
	if path == o.LoginPath {
		return true
	}
	for _, prefix := range o.Public {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func deny(c *fiber.Ctx, opts MiddlewareOptions, expired bool) error {
	if strings.HasPrefix(c.Path(), "/api/") || strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMEApplicationJSON) {
		msg := "Sesión requerida"
		if expired {
			msg = "Sesión expirada"
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
	}
	return c.Redirect(LoginURL(opts.LoginPath, expired, c.OriginalURL()))
}

// LoginURL builds the login redirect, remembering where the user was.
func LoginURL(loginPath string, expired bool, next string) string {
	q := url.Values{}
	if expired {
		q.Set("expired", "1")
	}
	if next = LocalPath(next); next != "" && next != "/" {
		q.Set("next", next)
	}
	if len(q) == 0 {
		return loginPath
	}
	return loginPath + "?" + q.Encode()
}

// LocalPath returns next when it is a path on this host and "" otherwise.
// Browsers read a backslash as a slash, so /\host is foreign too.
func LocalPath(next string) string {
	if !strings.HasPrefix(next, "/") || strings.ContainsAny(next, "\\\r\n\t") {
		return ""
	}
	if strings.HasPrefix(next, "//") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return ""
	}
	return next
}

// FromContext returns the session resolved by Middleware.
func FromContext(c *fiber.Ctx) (Session, bool) {
	sess, ok := c.Locals(localsKey).(Session)
	return sess, ok
}

// SetCookie writes the session cookie.
func SetCookie(c *fiber.Ctx, name string, sess Session, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
