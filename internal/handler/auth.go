package handler

import (
    "database/sql"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/eventloop/capacity-engine/internal/repository"
    "github.com/eventloop/capacity-engine/internal/utils"
)

// AuthHandler implements the minimal auth surface the engine needs: a way
// for clients to obtain an access token whose subject the JWT middleware
// feeds into every engine call as an explicit userID.
type AuthHandler struct {
    Users        *repository.UserRepo
    JWTSecret    string
    AccessTTLMin int
    BcryptCost   int
}

// NewAuthHandler constructs a new AuthHandler.
func NewAuthHandler(users *repository.UserRepo, jwtSecret string, accessTTLMin, bcryptCost int) *AuthHandler {
    if users == nil {
        panic("nil repository passed to NewAuthHandler")
    }
    return &AuthHandler{Users: users, JWTSecret: jwtSecret, AccessTTLMin: accessTTLMin, BcryptCost: bcryptCost}
}

// Register handles POST /v1/auth/register.  It creates a user with a
// bcrypt-hashed password and returns 201 with the new user's ID.
func (h *AuthHandler) Register(c echo.Context) error {
    var body struct {
        Email    string `json:"email"`
        Password string `json:"password"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    body.Email = strings.TrimSpace(body.Email)
    if body.Email == "" || len(body.Password) < 8 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and a password of at least 8 characters are required"})
    }
    id, err := h.Users.Create(c.Request().Context(), body.Email, body.Password, h.BcryptCost)
    if err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
    }
    return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Login handles POST /v1/auth/login.  On valid credentials it returns a
// signed access token and its expiry.
func (h *AuthHandler) Login(c echo.Context) error {
    var body struct {
        Email    string `json:"email"`
        Password string `json:"password"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    u, err := h.Users.GetByEmail(c.Request().Context(), body.Email)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if !utils.VerifyPassword(u.PasswordHash, body.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
    }
    tok, err := utils.NewAccessToken(h.JWTSecret, u.ID, h.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to sign token"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access_token": tok.Token,
        "expires_at":   tok.Exp.Format(time.RFC3339),
    })
}
