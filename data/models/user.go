package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor used by SetPassword.
var PasswordCost = bcrypt.DefaultCost

// User is an account. Username is the only login key; the password column
// always holds a bcrypt hash.
type User struct {
	ID          int64      `json:"id" db:"id" readOnly:"true"`
	Username    string     `json:"username" db:"username" validate:"required,max=30,username"`
	Password    string     `json:"-" db:"password" validate:"required"`
	FirstName   string     `json:"firstName" db:"first_name" validate:"max=30"`
	LastName    string     `json:"lastName" db:"last_name" validate:"max=30"`
	BirthDate   *time.Time `json:"birthDate" db:"birth_date"`
	IsActive    bool       `json:"isActive" db:"is_active"`
	IsStaff     bool       `json:"isStaff" db:"is_staff"`
	IsSuperuser bool       `json:"isSuperuser" db:"is_superuser"`
	DateJoined  time.Time  `json:"dateJoined" db:"date_joined" readOnly:"true"`
}

// UserParams is the input for creating an account, validated before a User
// is built from it.
type UserParams struct {
	Username  string `validate:"required,max=30,username"`
	Password  string `validate:"required,max=72"`
	FirstName string `validate:"required,max=30"`
	LastName  string `validate:"required,max=30"`
	BirthDate *time.Time
}

func (User) TableName() string {
	return "users"
}

func (u User) ColumnNames() []string {
	return GetColumnNames(u, true)
}

func (u User) GetID() int64 {
	return u.ID
}

func (u User) EmptySlice() interface{} {
	return &[]User{}
}

// NewUser validates p and returns an active, unprivileged user with the
// password already hashed.
func NewUser(p UserParams) (User, error) {
	p.Username = strings.TrimSpace(p.Username)
	if err := validate.Struct(p); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	u := User{
		Username:  p.Username,
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		BirthDate: p.BirthDate,
		IsActive:  true,
	}
	if err := u.SetPassword(p.Password); err != nil {
		return User{}, err
	}
	return u, nil
}

// SetPassword replaces the stored hash with one derived from plain.
func (u *User) SetPassword(plain string) error {
	if plain == "" {
		return fmt.Errorf("%w: password must not be empty", ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), PasswordCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return fmt.Errorf("hashing password: %w", err)
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) ShortName() string {
	return u.Username
}

// HasPerm reports whether the user may use staff-only tooling.
func (u User) HasPerm() bool {
	return u.IsActive && u.IsStaff
}

func (u User) String() string {
	return u.Username
}
