package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookworms/internal/apierror"
	"github.com/mrlokans/bookworms/internal/auth"
	"github.com/mrlokans/bookworms/internal/database"
	"github.com/mrlokans/bookworms/internal/database/books"
	"github.com/mrlokans/bookworms/internal/database/bookshelves"
	"github.com/mrlokans/bookworms/internal/database/children"
	"github.com/mrlokans/bookworms/internal/database/classrooms"
	"github.com/mrlokans/bookworms/internal/entities"
)

// Descriptions shared by several controllers.
const (
	descriptionInvalidBody = "request body is not valid JSON for this endpoint"
	descriptionInternal    = "internal server error"
)

// validationErrors are domain errors that describe bad input. Their messages
// are safe to return to the client.
var validationErrors = []error{
	books.ErrEmptyTitle,
	books.ErrInvalidStars,
	bookshelves.ErrEmptyName,
	bookshelves.ErrNameTooLong,
	bookshelves.ErrInvalidOwner,
	children.ErrEmptyName,
	classrooms.ErrEmptyName,
	classrooms.ErrInvalidGoal,
	classrooms.ErrInvalidPeriod,
	classrooms.ErrNegativeProgress,
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, description string) {
	apierror.Abort(c, http.StatusBadRequest, description)
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	apierror.Abort(c, http.StatusNotFound, resource+" not found")
}

// respondForbidden sends a 403 Forbidden response.
func respondForbidden(c *gin.Context) {
	apierror.Abort(c, http.StatusForbidden, auth.DescriptionForbidden)
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	apierror.Abort(c, http.StatusInternalServerError, descriptionInternal)
}

// respondError maps a store or service error to its status code.
func respondError(c *gin.Context, err error, resource string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondNotFound(c, resource)
	case errors.Is(err, database.ErrConflict):
		apierror.Abort(c, http.StatusUnprocessableEntity, resource+" already exists")
	case errors.Is(err, database.ErrInvalidReference):
		apierror.Abort(c, http.StatusUnprocessableEntity, "referenced record does not exist")
	case isValidationError(err):
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, err, resource)
	}
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return auth.IsValidationError(err)
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the request body or responds with a 400 error.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondBadRequest(c, descriptionInvalidBody)
		return false
	}
	return true
}

// --- Identity ---

// currentUser loads the account behind the request's token. A token for an
// account deleted after issue gets the same 401 as an invalid token.
func currentUser(c *gin.Context, users UserStore) (*entities.User, bool) {
	username := auth.GetUsername(c)
	if username == "" {
		apierror.Abort(c, http.StatusUnauthorized, auth.DescriptionMissingToken)
		return nil, false
	}
	user, err := users.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.Header("WWW-Authenticate", `Bearer realm="bookworms"`)
			apierror.Abort(c, http.StatusUnauthorized, auth.DescriptionInvalidToken)
			return nil, false
		}
		respondInternalError(c, err, "load current user")
		return nil, false
	}
	return user, true
}
