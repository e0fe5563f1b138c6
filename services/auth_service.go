package services

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/chatly-app/chatly/config"
	"github.com/chatly-app/chatly/db"
	apiError "github.com/chatly-app/chatly/errors"
	"github.com/chatly-app/chatly/models"
	"github.com/chatly-app/chatly/services/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService resolves and manages identities. Every method takes the
// relevant identity explicitly; nothing is read from ambient state.
type AuthService interface {
	SignupUser(ctx context.Context, user *models.User) (*models.User, *apiError.Error)
	LoginUser(ctx context.Context, loginRequest *models.LoginRequest) (*models.LoginResponse, *apiError.Error)
	Logout(ctx context.Context, accessToken string) *apiError.Error
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*models.User, *apiError.Error)
}

type authService struct {
	Config   *config.Config
	authRepo db.AuthRepository
}

func NewAuthService(authRepo db.AuthRepository, conf *config.Config) AuthService {
	return &authService{
		Config:   conf,
		authRepo: authRepo,
	}
}

func (s *authService) SignupUser(ctx context.Context, user *models.User) (*models.User, *apiError.Error) {
	if user == nil {
		return nil, apiError.New("user is nil", http.StatusBadRequest)
	}
	if err := models.ValidateWhiteSpaces(user); err != nil {
		return nil, apiError.New(err.Error(), http.StatusBadRequest)
	}
	if user.Username == "" {
		return nil, apiError.New("username is empty", http.StatusBadRequest)
	}
	if err := models.ValidatePassword(user.Password); err != nil {
		return nil, apiError.New(err.Error(), http.StatusBadRequest)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("SignupUser error hashing password: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	user.HashedPassword = string(hashedPassword)
	user.Password = ""

	created, err := s.authRepo.CreateUser(ctx, user)
	if err != nil {
		log.Printf("SignupUser error creating user: %v", err)
		return nil, apiError.GetUniqueConstraintError(err)
	}
	return created, nil
}

func (s *authService) LoginUser(ctx context.Context, loginRequest *models.LoginRequest) (*models.LoginResponse, *apiError.Error) {
	if err := models.ValidateWhiteSpaces(loginRequest); err != nil {
		return nil, apiError.New(err.Error(), http.StatusBadRequest)
	}

	user, err := s.authRepo.FindUserByEmail(ctx, loginRequest.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.New("login credentials are incorrect", http.StatusUnauthorized)
		}
		log.Printf("LoginUser lookup error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	if err := user.VerifyPassword(loginRequest.Password); err != nil {
		return nil, apiError.New("login credentials are incorrect", http.StatusUnauthorized)
	}

	accessToken, err := jwt.GenerateToken(user.ID, user.Email, s.Config.JWTSecret)
	if err != nil {
		log.Printf("LoginUser token error: %v", err)
		return nil, apiError.ErrInternalServerError
	}

	return &models.LoginResponse{
		ID:          user.ID.String(),
		Username:    user.Username,
		Email:       user.Email,
		AccessToken: accessToken,
	}, nil
}

// Logout revokes the access token by adding it to the blacklist.
func (s *authService) Logout(ctx context.Context, accessToken string) *apiError.Error {
	if accessToken == "" {
		return apiError.ErrUnauthorized
	}
	entry := &models.Blacklist{Token: accessToken}
	if err := s.authRepo.AddToBlackList(ctx, entry); err != nil {
		log.Printf("Logout error: %v", err)
		return apiError.ErrInternalServerError
	}
	return nil
}

func (s *authService) GetUserProfile(ctx context.Context, userID uuid.UUID) (*models.User, *apiError.Error) {
	user, err := s.authRepo.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.ErrNotFound
		}
		log.Printf("GetUserProfile error: %v", err)
		return nil, apiError.ErrInternalServerError
	}
	return user, nil
}
