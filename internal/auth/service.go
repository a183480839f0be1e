package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/keikapi/AIApp/internal/config"
	"github.com/keikapi/AIApp/internal/models"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfirmed       = errors.New("account not confirmed")
	ErrInvalidCode        = errors.New("invalid confirmation code")
)

const pgUniqueViolation = "23505"

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service is the identity provider surface: sign-up with confirmation, password
// sign-in issuing tokens, and token-to-profile resolution.
type Service struct {
	db     *pgxpool.Pool
	redis  *redis.Client
	secret []byte
	cfg    config.AuthConfig
}

func NewService(db *pgxpool.Pool, rdb *redis.Client, cfg config.AuthConfig) *Service {
	return &Service{
		db:     db,
		redis:  rdb,
		secret: []byte(cfg.JWTSecret),
		cfg:    cfg,
	}
}

func confirmKey(email string) string {
	return "auth:confirm:" + email
}

// SignUp registers an unconfirmed account and issues a confirmation code.
func (s *Service) SignUp(ctx context.Context, email, password, username string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	userID := uuid.New()
	_, err = s.db.Exec(ctx,
		`INSERT INTO users (id, email, username, password_hash, confirmed, created_at)
		 VALUES ($1, $2, $3, $4, false, now())`,
		userID, email, username, string(hash),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return "", fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	code, err := confirmationCode()
	if err != nil {
		return "", fmt.Errorf("generate confirmation code: %w", err)
	}
	if err := s.redis.Set(ctx, confirmKey(email), code, s.cfg.ConfirmCodeTTL).Err(); err != nil {
		return "", fmt.Errorf("store confirmation code: %w", err)
	}

	// Stand-in for the delivery channel a hosted identity provider has.
	slog.Debug("confirmation code issued", "email", email, "code", code)

	return userID.String(), nil
}

// ConfirmSignUp validates the confirmation code and activates the account.
func (s *Service) ConfirmSignUp(ctx context.Context, email, code string) error {
	stored, err := s.redis.Get(ctx, confirmKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrInvalidCode
		}
		return fmt.Errorf("load confirmation code: %w", err)
	}
	if stored != code {
		return ErrInvalidCode
	}

	tag, err := s.db.Exec(ctx, "UPDATE users SET confirmed = true WHERE email = $1", email)
	if err != nil {
		return fmt.Errorf("confirm user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}

	_ = s.redis.Del(ctx, confirmKey(email)).Err()
	return nil
}

// SignIn checks the password and mints access and refresh tokens.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.AuthTokens, error) {
	user, err := s.getByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Confirmed {
		return nil, ErrNotConfirmed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	access, err := s.mintToken(user, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := s.mintToken(user, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}

	now := time.Now()
	if _, err := s.db.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", now, user.ID); err != nil {
		slog.Warn("last login update failed", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now

	return &models.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
		User:         user,
	}, nil
}

// GetUser resolves an access token to its user profile.
func (s *Service) GetUser(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid subject in token: %w", err)
	}
	return s.getByID(ctx, userID)
}

// ParseToken validates the signature and expiry and returns the claims.
func (s *Service) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrInvalidCredentials)
	}
	return claims, nil
}

func (s *Service) mintToken(user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) getByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(ctx,
		`SELECT id, email, username, password_hash, confirmed, response_style, language, created_at, last_login_at
		 FROM users WHERE email = $1`, email))
}

func (s *Service) getByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(ctx,
		`SELECT id, email, username, password_hash, confirmed, response_style, language, created_at, last_login_at
		 FROM users WHERE id = $1`, id))
}

func (s *Service) scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Confirmed,
		&u.Preferences.ResponseStyle, &u.Preferences.Language, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

func confirmationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
