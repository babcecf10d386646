package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const sessionKeyPrefix = "sess:"

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoSession          = errors.New("no active session")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

type IUserService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (token string, err error)
	Logout(ctx context.Context, token string) error
	Current(ctx context.Context, token string) (username string, err error)
}

type userService struct {
	db         *sql.DB
	rdc        *redis.Client
	sessionTTL time.Duration
}

func NewUserService(db *sql.DB, rdc *redis.Client, sessionTTL time.Duration) IUserService {
	return &userService{db: db, rdc: rdc, sessionTTL: sessionTTL}
}

func (svc *userService) Register(ctx context.Context, username, password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = svc.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2)`,
		username, string(hash))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUsernameTaken
	}
	return err
}

func (svc *userService) Login(ctx context.Context, username, password string) (string, error) {
	var hash string
	err := svc.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE username = $1`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	token := ulid.Make().String()
	if err := svc.rdc.Set(ctx, sessionKeyPrefix+token, username, svc.sessionTTL).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (svc *userService) Logout(ctx context.Context, token string) error {
	return svc.rdc.Del(ctx, sessionKeyPrefix+token).Err()
}

// Current resolves a session token to its username, sliding the TTL forward
// on every use.
func (svc *userService) Current(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNoSession
	}
	username, err := svc.rdc.GetEx(ctx, sessionKeyPrefix+token, svc.sessionTTL).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	return username, nil
}
