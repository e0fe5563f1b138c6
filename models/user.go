package models

import (
	"errors"

	goval "github.com/go-passwd/validator"
	"github.com/leebenson/conform"
	"golang.org/x/crypto/bcrypt"
)

// User represents an account on the platform. The id is the stable key for
// everything else; the username is display-facing and may change.
type User struct {
	Model
	Username       string `json:"username" gorm:"uniqueIndex;not null" binding:"required,min=2" conform:"trim"`
	Email          string `json:"email" gorm:"uniqueIndex;not null" binding:"required,email" conform:"trim,lower"`
	Password       string `json:"password,omitempty" gorm:"-" validate:"omitempty,min=6"`
	HashedPassword string `json:"-"`
	AccessToken    string `json:"-" gorm:"-"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" conform:"trim,lower"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
}

type UpdateUsernameRequest struct {
	Username string `json:"username" binding:"required" conform:"trim"`
}

type Blacklist struct {
	Model
	Token string `json:"token" gorm:"index"`
}

func ValidatePassword(password string) error {
	passwordValidator := goval.New(
		goval.MinLength(6, errors.New("password cant be less than 6 characters")),
		goval.MaxLength(72, errors.New("password cant be more than 72 characters")))
	return passwordValidator.Validate(password)
}

// ValidateWhiteSpaces applies the conform tags (trim/lower) to a bound request.
func ValidateWhiteSpaces(data interface{}) error {
	return conform.Strings(data)
}

func (u *User) VerifyPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password))
}
