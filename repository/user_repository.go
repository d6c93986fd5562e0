package repository

import (
	"context"
	"database/sql"
	"errors"
	"knoword-api/logger"
	"knoword-api/model"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

const userColumns = `id, username, email, password, email_verified, verification_token, verification_token_expires, created_at`

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

// CreateUser inserts user and fills in its ID and creation time.
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	log := logger.Log.WithFields(logrus.Fields{
		"username": user.Username,
	})
	log.Info("Executing query to create a new user")

	query := `INSERT INTO users (username, email, password, verification_token, verification_token_expires)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.DB.QueryRowContext(ctx, query,
		user.Username, user.Email, user.Password,
		nullString(user.VerificationToken), user.VerificationTokenExpires,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrUserExists
		}
		log.WithError(err).Error("Failed to execute create user query")
		return err
	}
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.DB.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.DB.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) UserExists(ctx context.Context, id int) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id)
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE lower(username) = lower($1))`, username)
}

// MarkEmailVerified consumes an unexpired verification token. It returns
// false when no user holds that token.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, token string, now time.Time) (bool, error) {
	query := `UPDATE users
		SET email_verified = TRUE, verification_token = NULL, verification_token_expires = NULL
		WHERE verification_token = $1 AND verification_token_expires > $2`
	res, err := r.DB.ExecContext(ctx, query, token, now)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to execute mark email verified query")
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *UserRepository) DeleteUser(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", id).Error("Failed to execute delete user query")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var found bool
	if err := r.DB.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (r *UserRepository) scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var token sql.NullString
	var expires sql.NullTime
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password,
		&user.EmailVerified, &token, &expires, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.VerificationToken = token.String
	if expires.Valid {
		user.VerificationTokenExpires = &expires.Time
	}
	return user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
