// Package identity registers users, verifies their email, and issues and
// revokes session tokens.
package identity

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"billbuddy/internal/models"
	"billbuddy/internal/notifier"
	"billbuddy/internal/repositories/sessionstore"
	"billbuddy/internal/repositories/userstore"
	"billbuddy/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	timestampLayout = "2006-01-02 15:04:05"

	audienceVerifyEmail   = "billbuddy.verify-email"
	audiencePasswordReset = "billbuddy.password-reset"

	minPasswordLength = 8
)

type Notifier interface {
	Enqueue(e notifier.Email) error
}

type Options struct {
	JWTSecret      string
	JWTTTL         time.Duration
	TokenSecret    string
	VerifyTokenTTL time.Duration
	ResetTokenTTL  time.Duration
	AppURL         string
}

type Service struct {
	db       *sql.DB
	users    *userstore.Store
	sessions sessionstore.Store
	notifier Notifier
	opts     Options
	now      func() time.Time
}

func NewService(db *sql.DB, users *userstore.Store, sessions sessionstore.Store, n Notifier, opts Options) *Service {
	return &Service{
		db:       db,
		users:    users,
		sessions: sessions,
		notifier: n,
		opts:     opts,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register creates an inactive user and emails a verification link. The
// returned warning is non-empty when the email could not be queued.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, string, error) {
	fields := map[string]string{}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		fields["email"] = "must be a valid email address"
	}
	if len(in.Password) < minPasswordLength {
		fields["password"] = fmt.Sprintf("must be at least %d characters", minPasswordLength)
	}
	if len(fields) > 0 {
		return models.User{}, "", &utils.ValidationError{Fields: fields}
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.User{}, "", err
	}

	u := models.User{
		Email:     email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Password:  hash,
		CreatedAt: s.now().UTC().Format(timestampLayout),
	}
	if err := s.users.Create(ctx, s.db, &u); err != nil {
		return models.User{}, "", err
	}

	utils.Logger.WithField("user_id", u.ID).Info("user registered")

	warning := ""
	if err := s.sendVerification(u); err != nil {
		utils.Logger.WithError(err).WithField("user_id", u.ID).Warn("verification email not queued")
		warning = "verification email could not be queued"
	}
	return u, warning, nil
}

// VerifyEmail activates the account named by a verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	id, _, err := s.checkToken(audienceVerifyEmail, token)
	if err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if u.IsActive {
		return nil
	}
	if err := s.users.Activate(ctx, s.db, id); err != nil {
		return err
	}
	utils.Logger.WithField("user_id", id).Info("email verified")
	return nil
}

// ResendVerification emails a fresh link. Unknown addresses are ignored so
// the endpoint does not reveal who is registered.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, s.db, email)
	if errors.Is(err, utils.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.IsActive {
		return utils.Invalid("email", "account is already verified")
	}
	return s.sendVerification(u)
}

func (s *Service) sendVerification(u models.User) error {
	if s.notifier == nil {
		return nil
	}
	token, err := s.issueLink(audienceVerifyEmail, u.ID, "", s.opts.VerifyTokenTTL)
	if err != nil {
		return err
	}
	link := s.opts.AppURL + "/users/verify?token=" + url.QueryEscape(token)

	subject, body := utils.VerificationEmail(u.DisplayName(), link)
	return s.notifier.Enqueue(notifier.Email{
		Kind:     notifier.KindVerifyEmail,
		To:       u.Email,
		Subject:  subject,
		HTMLBody: body,
	})
}

type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

// Login checks the credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, utils.Invalid("credentials", "email and password are required")
	}

	u, err := s.users.GetByEmail(ctx, s.db, email)
	if errors.Is(err, utils.ErrNotFound) {
		return Session{}, fmt.Errorf("%w: incorrect email or password", utils.ErrUnauthenticated)
	}
	if err != nil {
		return Session{}, err
	}
	if !utils.VerifyPassword(password, u.Password) {
		return Session{}, fmt.Errorf("%w: incorrect email or password", utils.ErrUnauthenticated)
	}
	if !u.IsActive {
		return Session{}, utils.Denied("account is not verified")
	}

	token, expires, err := s.issueToken(u.ID)
	if err != nil {
		return Session{}, err
	}

	utils.Logger.WithField("user_id", u.ID).Info("user logged in")
	return Session{Token: token, ExpiresAt: expires, User: u}, nil
}

type claims struct {
	UID int64 `json:"uid"`
	jwt.RegisteredClaims
}

func (s *Service) issueToken(userID int64) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.opts.JWTTTL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})

	signed, err := token.SignedString([]byte(s.opts.JWTSecret))
	if err != nil {
		return "", time.Time{}, utils.ErrorHandler(err, "could not create login token")
	}
	return signed, expires, nil
}

// Caller is the identity behind a valid session token.
type Caller struct {
	UserID    int64
	TokenID   string
	ExpiresAt time.Time
}

// Authenticate verifies a session token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, token string) (Caller, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return []byte(s.opts.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Caller{}, fmt.Errorf("%w: token expired", utils.ErrUnauthenticated)
		}
		return Caller{}, fmt.Errorf("%w: invalid login token", utils.ErrUnauthenticated)
	}
	if !parsed.Valid || c.UID <= 0 || c.ID == "" || c.ExpiresAt == nil {
		return Caller{}, fmt.Errorf("%w: invalid login token", utils.ErrUnauthenticated)
	}

	revoked, err := s.sessions.IsRevoked(ctx, c.ID)
	if err != nil {
		return Caller{}, err
	}
	if revoked {
		return Caller{}, fmt.Errorf("%w: session has been logged out", utils.ErrUnauthenticated)
	}

	return Caller{UserID: c.UID, TokenID: c.ID, ExpiresAt: c.ExpiresAt.Time}, nil
}

// Logout revokes the session until its natural expiry.
func (s *Service) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, tokenID, expiresAt); err != nil {
		return err
	}
	utils.Logger.WithField("token_id", tokenID).Info("session revoked")
	return nil
}

// RequestPasswordReset emails a reset link. Unknown addresses are ignored.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, s.db, email)
	if errors.Is(err, utils.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.notifier == nil {
		return nil
	}

	now := s.now()
	token, err := s.issueLink(audiencePasswordReset, u.ID, passwordFingerprint(u), s.opts.ResetTokenTTL)
	if err != nil {
		return err
	}
	link := s.opts.AppURL + "/users/reset-password?token=" + url.QueryEscape(token)

	subject, body := utils.PasswordResetEmail(u.DisplayName(), link, now.Add(s.opts.ResetTokenTTL))
	return s.notifier.Enqueue(notifier.Email{
		Kind:     notifier.KindPasswordReset,
		To:       u.Email,
		Subject:  subject,
		HTMLBody: body,
	})
}

// ResetPassword sets a new password. The token embeds a fingerprint of the
// old hash, so it stops working once used.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return utils.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	id, c, err := s.checkToken(audiencePasswordReset, token)
	if err != nil {
		return err
	}

	u, err := s.users.GetByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if c.Fingerprint == "" || c.Fingerprint != passwordFingerprint(u) {
		return utils.Invalid("token", "has already been used")
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, s.db, u.ID, hash, s.now().UTC().Format(timestampLayout)); err != nil {
		return err
	}

	utils.Logger.WithFields(logrus.Fields{"user_id": u.ID}).Info("password reset")
	return nil
}

// passwordFingerprint changes whenever the password hash does.
func passwordFingerprint(u models.User) string {
	sum := sha256.Sum256([]byte(u.Password))
	return hex.EncodeToString(sum[:8])
}

// linkClaims back the links sent by email. The audience names the link's
// purpose and Fingerprint pins a reset link to the hash it was issued for.
type linkClaims struct {
	Fingerprint string `json:"fp,omitempty"`
	jwt.RegisteredClaims
}

func (s *Service) issueLink(audience string, userID int64, fingerprint string, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, linkClaims{
		Fingerprint: fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString([]byte(s.opts.TokenSecret))
	if err != nil {
		return "", utils.ErrorHandler(err, "could not sign link token")
	}
	return signed, nil
}

// checkToken is the single place one-time link tokens are verified.
func (s *Service) checkToken(audience, token string) (int64, linkClaims, error) {
	var c linkClaims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return []byte(s.opts.TokenSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return 0, linkClaims{}, utils.Invalid("token", "has expired")
	case err != nil:
		return 0, linkClaims{}, utils.Invalid("token", "is invalid")
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, linkClaims{}, utils.Invalid("token", "is invalid")
	}
	return id, c, nil
}
