package fakeapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-maintenance-dashboard/pkg/backend"
)

// Demo credentials seeded into every server.
const (
	DemoAdminEmail    = "admin@demo.co"
	DemoAdminPassword = "admin123"
	DemoTechEmail     = "tecnico@demo.co"
	DemoTechPassword  = "tecnico123"
)

const userLocals = "fakeapi.user"

type account struct {
	user backend.User
	hash []byte
}

func newAccounts(cost int) ([]account, error) {
	seedUsers := []struct {
		user     backend.User
		password string
	}{
		{backend.User{ID: "1", Name: "Administrador", Email: DemoAdminEmail, Role: "admin"}, DemoAdminPassword},
		{backend.User{ID: "2", Name: "Técnico de campo", Email: DemoTechEmail, Role: "tecnico"}, DemoTechPassword},
	}
	out := make([]account, 0, len(seedUsers))
	for _, su := range seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(su.password), cost)
		if err != nil {
			return nil, fmt.Errorf("fakeapi: hash password: %w", err)
		}
		out = append(out, account{user: su.user, hash: hash})
	}
	return out, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Solicitud inválida"})
	}
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || req.Password == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Credenciales requeridas",
			"errors":  requiredCredentials(username, req.Password),
		})
	}
	for _, acc := range s.accounts {
		if acc.user.Email != username {
			continue
		}
		if bcrypt.CompareHashAndPassword(acc.hash, []byte(req.Password)) != nil {
			break
		}
		token, err := s.issueToken(acc.user)
		if err != nil {
			return err
		}
		s.audit(acc.user.Email, "login", "auth", "Inicio de sesión")
		return c.JSON(fiber.Map{
			"token": token,
			"user":  acc.user,
		})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Usuario o contraseña incorrectos"})
}

func requiredCredentials(username, password string) map[string]string {
	errs := map[string]string{}
	if username == "" {
		errs["username"] = "Campo obligatorio"
	}
	if password == "" {
		errs["password"] = "Campo obligatorio"
	}
	return errs
}

func (s *Server) issueToken(user backend.User) (string, error) {
	now := s.opts.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    user.ID,
		"email":  user.Email,
		"nombre": user.Name,
		"rol":    user.Role,
		"iat":    now.Unix(),
		"exp":    now.Add(s.opts.TokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.opts.Secret)
	if err != nil {
		return "", fmt.Errorf("fakeapi: sign token: %w", err)
	}
	return signed, nil
}

// requireToken rejects requests without a valid bearer token.
func (s *Server) requireToken(c *fiber.Ctx) error {
	raw := strings.TrimSpace(strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "))
	if raw == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token requerido"})
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.opts.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.opts.Now))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token inválido o expirado"})
	}
	email, _ := claims["email"].(string)
	c.Locals(userLocals, email)
	return c.Next()
}

func currentUser(c *fiber.Ctx) string {
	if email, ok := c.Locals(userLocals).(string); ok && email != "" {
		return email
	}
	return "desconocido"
}

// Token issues a token for the demo account with email, for tests that
// skip the login round trip.
func (s *Server) Token(email string) (string, error) {
	for _, acc := range s.accounts {
		if acc.user.Email == email {
			return s.issueToken(acc.user)
		}
	}
	return "", fmt.Errorf("fakeapi: unknown account %s", email)
}

func tokenTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 8 * time.Hour
	}
	return ttl
}
