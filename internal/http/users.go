package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookworms/internal/apierror"
	"github.com/mrlokans/bookworms/internal/auth"
	"github.com/mrlokans/bookworms/internal/database/users"
)

// PasswordChanger changes an account's password after checking the old one.
type PasswordChanger interface {
	ChangePassword(username, oldPassword, newPassword string) error
}

// UsersController handles profile and account administration endpoints.
type UsersController struct {
	users     UserStore
	passwords PasswordChanger
}

// NewUsersController creates a new UsersController.
func NewUsersController(store UserStore, passwords PasswordChanger) *UsersController {
	return &UsersController{
		users:     store,
		passwords: passwords,
	}
}

type updateProfileRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// GetMe returns the caller's profile.
// GET /api/users/me
func (uc *UsersController) GetMe(c *gin.Context) {
	user, ok := currentUser(c, uc.users)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe changes the caller's email or name.
// PUT /api/users/me
func (uc *UsersController) UpdateMe(c *gin.Context) {
	user, ok := currentUser(c, uc.users)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := auth.ValidateEmail(email); err != nil {
			respondBadRequest(c, err.Error())
			return
		}
		req.Email = &email
	}

	updated, err := uc.users.UpdateProfile(user.ID, users.ProfileUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteMe removes the caller's account. Outstanding tokens stop working
// because the account can no longer be resolved.
// DELETE /api/users/me
func (uc *UsersController) DeleteMe(c *gin.Context) {
	user, ok := currentUser(c, uc.users)
	if !ok {
		return
	}
	if err := uc.users.DeleteUser(user.Username); err != nil {
		respondError(c, err, "user")
		return
	}
	log.Printf("[AUTH] Account %q deleted by its owner", user.Username)
	c.Status(http.StatusNoContent)
}

// ChangePassword replaces the caller's password.
// PUT /api/users/me/password
func (uc *UsersController) ChangePassword(c *gin.Context) {
	user, ok := currentUser(c, uc.users)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	err := uc.passwords.ChangePassword(user.Username, req.OldPassword, req.NewPassword)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, auth.ErrInvalidPassword):
		apierror.Abort(c, http.StatusBadRequest, "current password is incorrect")
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
		respondBadRequest(c, err.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		apierror.Abort(c, http.StatusUnauthorized, auth.DescriptionInvalidToken)
	default:
		respondInternalError(c, err, "change password")
	}
}

// ListUsers returns every account.
// GET /api/admin/users
func (uc *UsersController) ListUsers(c *gin.Context) {
	list, err := uc.users.ListUsers()
	if err != nil {
		respondInternalError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list, "count": len(list)})
}

// DeleteUser removes an account by username.
// DELETE /api/admin/users/:username
func (uc *UsersController) DeleteUser(c *gin.Context) {
	username := c.Param("username")
	if err := uc.users.DeleteUser(username); err != nil {
		respondError(c, err, "user")
		return
	}
	log.Printf("[AUTH] Account %q deleted by %q", username, auth.GetUsername(c))
	c.Status(http.StatusNoContent)
}
