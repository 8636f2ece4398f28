package repository

import (
	"context"
	"strings"

	"gatherly/internal/models"
	"gatherly/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for user profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByAuthSubject(ctx context.Context, subject string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer observability.TrackQuery("get_by_id", "users")()

	var user models.User
	if err := readDB(r.db).WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, storeError(err, "User", id)
	}
	return &user, nil
}

func (r *userRepository) GetByAuthSubject(ctx context.Context, subject string) (*models.User, error) {
	defer observability.TrackQuery("get_by_subject", "users")()

	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, models.NewNotFoundError("User", "(empty subject)")
	}

	var user models.User
	if err := readDB(r.db).WithContext(ctx).Where("auth_subject = ?", subject).First(&user).Error; err != nil {
		return nil, storeError(err, "User", subject)
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	defer observability.TrackQuery("get_by_ids", "users")()

	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	return users, nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	defer observability.TrackQuery("list", "users")()

	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Order("id ASC").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	return users, nil
}

func (r *userRepository) ListAll(ctx context.Context) ([]models.User, error) {
	defer observability.TrackQuery("list_all", "users")()

	var users []models.User
	if err := readDB(r.db).WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewUpstreamError(err)
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer observability.TrackQuery("create", "users")()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A profile already exists for this account")
		}
		r.log.LogError(ctx, err, "create")
		return models.NewUpstreamError(err)
	}
	r.log.LogCreate(ctx, map[string]any{"user_id": user.ID})
	return nil
}
