package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/nayeem-islam/linguadesk/libs/db"
)

type User struct {
	ID           string
	SchoolID     string
	Email        string
	PasswordHash string
	Role         string
}

const userColumns = "id, school_id, email, password_hash, role"

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// CreateTx inserts the user inside the caller's transaction so registration
// can atomically pair it with the school-registered outbox event.
func (r *UserRepository) CreateTx(ctx context.Context, tx pgx.Tx, user User) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.SchoolID, user.Email, user.PasswordHash, user.Role)
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, "email = $1", email)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (User, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg any) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where,
		arg,
	).Scan(&user.ID, &user.SchoolID, &user.Email, &user.PasswordHash, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
