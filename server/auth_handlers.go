package server

import (
	"net/http"

	"github.com/chatly-app/chatly/errors"
	"github.com/chatly-app/chatly/models"
	"github.com/chatly-app/chatly/server/response"
	"github.com/gin-gonic/gin"
)

// decode binds the request body and translates binding failures to a 400.
func decode(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return errors.New("invalid request body", http.StatusBadRequest)
	}
	return nil
}

// getUserFromContext returns the user resolved by the Authorize middleware.
func getUserFromContext(c *gin.Context) (*models.User, *errors.Error) {
	value, exists := c.Get("user")
	if !exists {
		return nil, errors.New("forbidden", http.StatusForbidden)
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil, errors.New("internal server error", http.StatusInternalServerError)
	}
	return user, nil
}

func (s *Server) handleSignup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		if err := decode(c, &user); err != nil {
			response.JSON(c, "", errors.ErrBadRequest.Status, nil, err)
			return
		}
		createdUser, err := s.AuthService.SignupUser(c.Request.Context(), &user)
		if err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}
		response.JSON(c, "signup successful", http.StatusCreated, createdUser, nil)
	}
}

func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var loginRequest models.LoginRequest
		if err := decode(c, &loginRequest); err != nil {
			response.JSON(c, "", errors.ErrBadRequest.Status, nil, err)
			return
		}
		userResponse, err := s.AuthService.LoginUser(c.Request.Context(), &loginRequest)
		if err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}
		response.JSON(c, "login successful", http.StatusOK, userResponse, nil)
	}
}

// handleLogout invalidates the access token by adding it to the blacklist.
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, exists := c.Get("access_token")
		if !exists {
			respondAndAbort(c, "access token not found in context", http.StatusInternalServerError, nil, errors.ErrInternalServerError)
			return
		}
		accessToken, ok := token.(string)
		if !ok {
			respondAndAbort(c, "access token is not a string", http.StatusInternalServerError, nil, errors.ErrInternalServerError)
			return
		}
		if err := s.AuthService.Logout(c.Request.Context(), accessToken); err != nil {
			response.JSON(c, "logout failed", err.Status, nil, err)
			return
		}
		response.JSON(c, "logout successful", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleShowProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := getUserFromContext(c)
		if err != nil {
			response.JSON(c, "", err.Status, nil, err)
			return
		}
		profile, svcErr := s.AuthService.GetUserProfile(c.Request.Context(), user.ID)
		if svcErr != nil {
			response.JSON(c, "", svcErr.Status, nil, svcErr)
			return
		}
		response.JSON(c, "user profile", http.StatusOK, profile, nil)
	}
}
