package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"inventoryHub/internal/notification"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const uniqueViolation = "23505"

type User struct {
	ID                    string         `db:"id" json:"uid"`
	Email                 string         `db:"email" json:"email"`
	Password              string         `db:"password" json:"-"`
	Role                  string         `db:"role" json:"role"`
	Branch                string         `db:"branch" json:"branch,omitempty"`
	Department            string         `db:"department" json:"department,omitempty"`
	Province              string         `db:"province" json:"province,omitempty"`
	AccessibleProvinceIDs pq.StringArray `db:"accessible_province_ids" json:"accessible_province_ids,omitempty"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
}

func (u *User) Profile() *notification.UserProfile {
	return &notification.UserProfile{
		UID:                   u.ID,
		Role:                  u.Role,
		Branch:                u.Branch,
		Department:            u.Department,
		Province:              u.Province,
		AccessibleProvinceIDs: []string(u.AccessibleProvinceIDs),
	}
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password, role, branch, department, province, accessible_province_ids, created_at`

func (r *UserRepository) CreateUser(ctx context.Context, user *User) error {
	if user.AccessibleProvinceIDs == nil {
		user.AccessibleProvinceIDs = pq.StringArray{}
	}

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO users (id, email, password, role, branch, department, province, accessible_province_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, user.ID, user.Email, user.Password, user.Role, user.Branch, user.Department, user.Province, user.AccessibleProvinceIDs).
		Scan(&user.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	if err != nil {
		slog.Error("Failed to create user", "error", err, "email", user.Email)
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *UserRepository) GetUserByID(ctx context.Context, uid string) (*User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid)
}

// ScopeUpdate is an admin change to a user's role and reach.
type ScopeUpdate struct {
	Role                  string   `json:"role" validate:"required,oneof=super_admin province_admin general_manager province_manager branch_manager lead user"`
	Branch                string   `json:"branch" validate:"max=100"`
	Department            string   `json:"department" validate:"max=100"`
	Province              string   `json:"province" validate:"max=100"`
	AccessibleProvinceIDs []string `json:"accessible_province_ids" validate:"dive,max=100"`
}

func (r *UserRepository) UpdateScope(ctx context.Context, uid string, update ScopeUpdate) (*User, error) {
	provinces := pq.StringArray(update.AccessibleProvinceIDs)
	if provinces == nil {
		provinces = pq.StringArray{}
	}

	user, err := r.getUser(ctx, `
		UPDATE users
		SET role = $2, branch = $3, department = $4, province = $5, accessible_province_ids = $6
		WHERE id = $1
		RETURNING `+userColumns,
		uid, update.Role, update.Branch, update.Department, update.Province, provinces)
	if err != nil {
		return nil, err
	}

	slog.Info("Updated user scope", "uid", uid, "role", update.Role, "province", update.Province)
	return user, nil
}

// GetProfile satisfies the profile source used by the notification handlers.
func (r *UserRepository) GetProfile(ctx context.Context, uid string) (*notification.UserProfile, error) {
	user, err := r.GetUserByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

func (r *UserRepository) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	user := &User{}
	err := r.db.GetContext(ctx, user, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
