package db

import (
	"context"
	"log"

	"github.com/chatly-app/chatly/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type AuthRepository interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
	IsUsernameTaken(ctx context.Context, username string, excludeID uuid.UUID) (bool, error)
	UpdateUsername(ctx context.Context, userID uuid.UUID, username string) error
	AddToBlackList(ctx context.Context, entry *models.Blacklist) error
	IsTokenInBlacklist(ctx context.Context, token string) bool
}

type authRepo struct {
	DB              *gorm.DB
	caseInsensitive bool
}

func NewAuthRepo(db *GormDB, caseInsensitive bool) AuthRepository {
	return &authRepo{DB: db.DB, caseInsensitive: caseInsensitive}
}

func (a *authRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	if err := a.DB.WithContext(ctx).Create(user).Error; err != nil {
		log.Printf("CreateUser error: %v", err)
		return nil, err
	}
	return user, nil
}

func (a *authRepo) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := a.DB.WithContext(ctx).Where("id = ?", id).First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *authRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := a.DB.WithContext(ctx).Where("email = ?", email).First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *authRepo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	query := a.DB.WithContext(ctx)
	if a.caseInsensitive {
		query = query.Where("LOWER(username) = LOWER(?)", username)
	} else {
		query = query.Where("username = ?", username)
	}
	if err := query.First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (a *authRepo) FindUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := a.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch users by ids")
	}
	return users, nil
}

// IsUsernameTaken reports whether another user already holds username.
// excludeID keeps a user's own current name from counting as a collision.
// This is a fast-path check only; the unique index is the authority.
func (a *authRepo) IsUsernameTaken(ctx context.Context, username string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := a.DB.WithContext(ctx).Model(&models.User{})
	if a.caseInsensitive {
		query = query.Where("LOWER(username) = LOWER(?)", username)
	} else {
		query = query.Where("username = ?", username)
	}
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "could not check username")
	}
	return count > 0, nil
}

func (a *authRepo) UpdateUsername(ctx context.Context, userID uuid.UUID, username string) error {
	result := a.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("username", username)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (a *authRepo) AddToBlackList(ctx context.Context, entry *models.Blacklist) error {
	err := a.DB.WithContext(ctx).Create(entry).Error
	return errors.Wrap(err, "could not blacklist token")
}

func (a *authRepo) IsTokenInBlacklist(ctx context.Context, token string) bool {
	var count int64
	if err := a.DB.WithContext(ctx).Model(&models.Blacklist{}).
		Where("token = ?", token).Count(&count).Error; err != nil {
		log.Printf("IsTokenInBlacklist error: %v", err)
		return false
	}
	return count > 0
}
