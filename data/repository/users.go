package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"events-calendar/data/models"
)

// UserDirectory stores accounts and answers "who is this?".
type UserDirectory interface {
	Register(ctx context.Context, p models.UserParams) (models.User, error)
	CreateSuperuser(ctx context.Context, p models.UserParams, staff, superuser *bool) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	SetPassword(ctx context.Context, userID int64, password string) error
	IssueOrReuseToken(ctx context.Context, userID int64) (models.Token, error)
	UserByToken(ctx context.Context, key string) (models.User, error)
}

// dummyUser is compared against when the username does not exist so unknown
// users cost the same bcrypt work as wrong passwords.
var dummyUser = func() models.User {
	var u models.User
	_ = u.SetPassword("not-a-real-password")
	return u
}()

// Register creates an active, unprivileged account.
func (sr *SqlRepo) Register(ctx context.Context, p models.UserParams) (models.User, error) {
	u, err := models.NewUser(p)
	if err != nil {
		return models.User{}, err
	}
	return sr.insertUser(ctx, u)
}

// CreateSuperuser creates an account with staff and superuser set. Both flags
// default to true when nil; an explicit false is rejected.
func (sr *SqlRepo) CreateSuperuser(ctx context.Context, p models.UserParams, staff, superuser *bool) (models.User, error) {
	if staff != nil && !*staff {
		return models.User{}, fmt.Errorf("%w: superuser must have is_staff=true", ErrValidation)
	}
	if superuser != nil && !*superuser {
		return models.User{}, fmt.Errorf("%w: superuser must have is_superuser=true", ErrValidation)
	}

	u, err := models.NewUser(p)
	if err != nil {
		return models.User{}, err
	}
	u.IsStaff = true
	u.IsSuperuser = true
	return sr.insertUser(ctx, u)
}

func (sr *SqlRepo) insertUser(ctx context.Context, u models.User) (models.User, error) {
	id, err := sr.Create(ctx, u)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("register %q: %w", u.Username, ErrUsernameTaken)
		}
		return models.User{}, fmt.Errorf("register %q: %w", u.Username, err)
	}
	return sr.GetUserByID(ctx, id)
}

// Authenticate returns the active user whose password matches. Every failure
// reason collapses into ErrInvalidCredentials.
func (sr *SqlRepo) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	u, err := sr.getUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return models.User{}, err
		}
		dummyUser.CheckPassword(password)
		return models.User{}, ErrInvalidCredentials
	}

	if !u.CheckPassword(password) || !u.IsActive {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (sr *SqlRepo) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	model, err := sr.GetModelByID(ctx, &models.User{}, id)
	if err != nil {
		return models.User{}, err
	}

	user, ok := model.(*models.User)
	if !ok {
		return models.User{}, fmt.Errorf("type assertion to User failed")
	}

	return *user, nil
}

// SetPassword re-hashes and stores a new password for userID.
func (sr *SqlRepo) SetPassword(ctx context.Context, userID int64, password string) error {
	u, err := sr.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := u.SetPassword(password); err != nil {
		return err
	}
	return sr.Update(ctx, u)
}

func (sr *SqlRepo) getUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", models.SelectColumns(u, ""))
	row := sr.DB.QueryRowContext(ctx, query, username)
	if err := models.ScanRowToModel(&u, row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
		}
		return models.User{}, err
	}
	return u, nil
}

func (sr *SqlRepo) queryUsers(ctx context.Context, query string, args ...interface{}) ([]models.User, error) {
	rows, err := sr.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	out, err := models.ScanRowsToSliceOfModels(models.User{}, rows, 0)
	if err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return *out.(*[]models.User), nil
}
