package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/golang-jwt/jwt"

	"github.com/aptlist/users/internal/common"
	"github.com/aptlist/users/internal/log"
	"github.com/aptlist/users/internal/models/user"
	"github.com/aptlist/users/internal/services"
)

type WebServer struct {
	jwtSecret   string
	jwtTTL      time.Duration
	app         *fiber.App
	userService *services.UserService
	logger      *log.Logger
}

func NewWebServer(jwtSecret string, jwtTTL time.Duration, userService *services.UserService, logger *log.Logger) *WebServer {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Authorization, Content-Type",
	}))

	s := &WebServer{
		jwtSecret:   jwtSecret,
		jwtTTL:      jwtTTL,
		app:         app,
		userService: userService,
		logger:      logger,
	}
	s.SetupRoutes()
	return s
}

func (s *WebServer) Run(ip string, port int) error {
	return s.app.Listen(ip + ":" + strconv.Itoa(port))
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx is done.
func (s *WebServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *WebServer) SetupRoutes() {
	s.app.Post("/login", s.loginUser)
	s.app.Post("/register", s.registerUser)
	s.app.Get("/routes", s.getRoutes)
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/users", s.findUsers)
	s.app.Put("/users/:id", s.tokenRequired(s.updateUser))
	s.app.Delete("/users/:id", s.tokenRequired(s.removeUser))
}

var (
	errMissingAuthHeader = errors.New("Missing Authorization header")
	errAuthHeaderFormat  = errors.New("Invalid Authorization header format. Expected: `Bearer <token>`")
	errInvalidToken      = errors.New("Invalid token")
	errInvalidSubject    = errors.New("Invalid user ID in token")
)

// tokenRequired rejects requests without a valid Bearer token and stores the token subject as "userID".
func (s *WebServer) tokenRequired(handler fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := s.authenticate(c.Get("Authorization"))
		if err != nil {
			s.logger.Info(err.Error())
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}

		c.Locals("userID", userID)
		return handler(c)
	}
}

// authenticate returns the user ID carried by an Authorization header value.
func (s *WebServer) authenticate(header string) (string, error) {
	if header == "" {
		return "", errMissingAuthHeader
	}
	scheme, tokenString, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || tokenString == "" {
		return "", errAuthHeaderFormat
	}
	return s.subject(tokenString)
}

// subject verifies tokenString with the server secret and returns its "sub" claim.
func (s *WebServer) subject(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.signingKey)
	if err != nil || !token.Valid {
		return "", errInvalidToken
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", errInvalidSubject
	}
	return userID, nil
}

func (s *WebServer) signingKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	return []byte(s.jwtSecret), nil
}

// claimsFor builds the claims of a login token. Tokens expire after jwtTTL when it is set.
func (s *WebServer) claimsFor(userID string, now time.Time) jwt.MapClaims {
	claims := jwt.MapClaims{"sub": userID, "iat": now.Unix()}
	if s.jwtTTL > 0 {
		claims["exp"] = now.Add(s.jwtTTL).Unix()
	}
	return claims
}

func (s *WebServer) issueToken(userID string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, s.claimsFor(userID, time.Now())).SignedString([]byte(s.jwtSecret))
}

func (s *WebServer) loginUser(c *fiber.Ctx) error {
	s.logger.Info("Login request received")

	var req common.LoginRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Login request validation failed: ", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	u, err := s.userService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		s.logger.Info("User login failed: ", err.Error())
		if errors.Is(err, user.ErrInvalidCredentials) {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	tokenString, err := s.issueToken(u.UserID())
	if err != nil {
		s.logger.Errorf("Failed to generate token: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}
	s.logger.Infof("JWT token generated, userID %s", u.UserID())

	return c.Status(http.StatusOK).JSON(fiber.Map{"jwtToken": tokenString})
}

func (s *WebServer) registerUser(c *fiber.Ctx) error {
	s.logger.Info("Register request received")

	var req common.RegisterRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Register request validation failed: ", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	task := s.userService.Register(c.UserContext(), user.Registration{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		CPassword: req.CPassword,
	}, nil)
	return s.respond(c, task, http.StatusCreated)
}

func (s *WebServer) findUsers(c *fiber.Ctx) error {
	s.logger.Info("Find users request received")

	criteria := user.Criteria{
		Username: optionalQuery(c, "username"),
		Email:    optionalQuery(c, "email"),
	}
	if id := optionalQuery(c, "_id"); id != nil {
		criteria.ID = *id
	}

	return s.respond(c, s.userService.Find(c.UserContext(), criteria, nil), http.StatusOK)
}

func (s *WebServer) updateUser(c *fiber.Ctx) error {
	s.logger.Infof("Update request received from user %s", c.Locals("userID"))

	var req common.UpdateUserRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Update request validation failed: ", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	task := s.userService.Update(c.UserContext(), user.Changes{
		ID:        req.ID,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		CPassword: req.CPassword,
	}, nil)
	return s.respond(c, task, http.StatusOK)
}

func (s *WebServer) removeUser(c *fiber.Ctx) error {
	s.logger.Infof("Remove request received from user %s", c.Locals("userID"))

	var req common.RemoveUserRequest
	if err := ValidateRequest(c, &req); err != nil {
		s.logger.Info("Remove request validation failed: ", err.Error())
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return s.respond(c, s.userService.Remove(c.UserContext(), user.Ref{ID: req.ID}, nil), http.StatusOK)
}

// respond waits for task and writes its Response envelope with a status derived from the error kind.
func (s *WebServer) respond(c *fiber.Ctx, task *services.Task, success int) error {
	resp, err := task.Wait(c.UserContext())
	if err != nil {
		s.logger.Errorf("Request abandoned: %v", err)
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	}
	if resp.OK() {
		return c.Status(success).JSON(resp)
	}

	s.logger.Infof("Request failed with %s: %v", resp.ErrorName(), resp.Error)
	return c.Status(statusOf(resp.Error)).JSON(resp)
}

func statusOf(err error) int {
	switch user.KindOf(err) {
	case user.KindValidation, user.KindMissingID, user.KindMalformedID:
		return http.StatusBadRequest
	case user.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *WebServer) getRoutes(c *fiber.Ctx) error {
	s.logger.Info("Get routes request received")
	routes := s.app.GetRoutes()
	return c.Status(http.StatusOK).JSON(routes)
}

func (s *WebServer) healthCheck(c *fiber.Ctx) error {
	s.logger.Debug("Health check request received")
	return c.SendString("OK")
}
