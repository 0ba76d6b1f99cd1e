package auth

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookworms/internal/apierror"
	"github.com/mrlokans/bookworms/internal/entities"
)

// AuthController handles the public login and registration endpoints.
type AuthController struct {
	service *Service
	limiter *LoginLimiter
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, limiter *LoginLimiter) *AuthController {
	return &AuthController{
		service: service,
		limiter: limiter,
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.POST("/api/auth/login", ac.Login)
	router.POST("/api/auth/register", ac.Register)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Username  string            `json:"username" binding:"required"`
	Email     string            `json:"email" binding:"required"`
	Password  string            `json:"password" binding:"required"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Role      entities.UserRole `json:"role" binding:"required"`
}

// Login exchanges credentials for a bearer token.
// POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, http.StatusBadRequest, "username and password are required")
		return
	}

	ip := c.ClientIP()
	if ac.limiter != nil {
		if allowed, retryAfter := ac.limiter.Allow(ip, req.Username); !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			apierror.Abort(c, http.StatusTooManyRequests, "too many login attempts, try again later")
			return
		}
	}

	result, err := ac.service.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			if ac.limiter != nil {
				if locked, _ := ac.limiter.RecordFailure(ip, req.Username); locked {
					log.Printf("[AUTH] Login locked out for %s after repeated failures", ip)
				}
			}
			apierror.Abort(c, http.StatusUnauthorized, ErrInvalidCredentials.Error())
			return
		}
		log.Printf("[AUTH] Login error: %v", err)
		apierror.Abort(c, http.StatusInternalServerError, "internal server error")
		return
	}

	if ac.limiter != nil {
		ac.limiter.RecordSuccess(ip, req.Username)
	}
	c.JSON(http.StatusOK, result)
}

// Register creates a parent or teacher account and logs it in.
// POST /api/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Abort(c, http.StatusBadRequest, "username, email, password and role are required")
		return
	}

	user, err := ac.service.Register(RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUserExists):
			apierror.Abort(c, http.StatusUnprocessableEntity, "username or email is already taken")
		case IsValidationError(err):
			apierror.Abort(c, http.StatusBadRequest, err.Error())
		default:
			log.Printf("[AUTH] Registration error: %v", err)
			apierror.Abort(c, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	result, err := ac.service.IssueToken(user)
	if err != nil {
		log.Printf("[AUTH] Token issue error: %v", err)
		apierror.Abort(c, http.StatusInternalServerError, "internal server error")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// IsValidationError reports whether err is an input validation failure of
// the account service.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrUsernameRequired, ErrEmailRequired, ErrPasswordRequired,
		ErrUsernameInvalid, ErrEmailInvalid, ErrInvalidRole,
		ErrPasswordTooShort, ErrPasswordTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
