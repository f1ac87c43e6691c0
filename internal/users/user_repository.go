package users

import (
	"context"
	"errors"
	"fmt"

	"vaxsync/internal/repository"
	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

type UserRepository interface {
	PersistUser(ctx context.Context, req models.CreateUserRequest, hashedPassword []byte) (*models.User, error)
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	UpdateRole(ctx context.Context, id int, role string) error
}

type userRepositoryImpl struct {
	repository *repository.Repository
}

func (r *userRepositoryImpl) PersistUser(ctx context.Context, req models.CreateUserRequest, hashedPassword []byte) (*models.User, error) {
	user := models.User{
		Username: req.Username,
		Fullname: req.Fullname,
		Role:     req.Role,
	}

	query := r.repository.GoquDBWrapper.Insert("users").
		Rows(goqu.Record{
			"password_hash": string(hashedPassword),
			"username":      req.Username,
			"fullname":      req.Fullname,
			"role":          req.Role,
		}).
		Returning("id")

	if _, err := query.Executor().ScanValContext(ctx, &user.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return nil, custom_error.WrapDBError("Username already taken", string(pqErr.Code))
		}
		return nil, fmt.Errorf("failed to insert User: %w", err)
	}

	return &user, nil
}

func (r *userRepositoryImpl) GetUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	query := r.repository.GoquDBWrapper.Select("id", "username", "fullname", "role").
		From("users").
		Order(goqu.I("username").Asc())

	if err := query.Executor().ScanStructsContext(ctx, &users); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return users, nil
}

func (r *userRepositoryImpl) GetUser(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	query := r.repository.GoquDBWrapper.Select("id", "username", "fullname", "role").
		From("users").
		Where(goqu.Ex{"id": id})

	found, err := query.Executor().ScanStructContext(ctx, &user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, &custom_error.NotFoundError{Resource: "user", ID: id}
	}

	return &user, nil
}

func (r *userRepositoryImpl) UpdateRole(ctx context.Context, id int, role string) error {
	result, err := r.repository.GoquDBWrapper.
		Update("users").
		Set(goqu.Record{"role": role}).
		Where(goqu.Ex{"id": id}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &custom_error.NotFoundError{Resource: "user", ID: id}
	}

	return nil
}

func NewRepository(r *repository.Repository) UserRepository {
	return &userRepositoryImpl{repository: r}
}
