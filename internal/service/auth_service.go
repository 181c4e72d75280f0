package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"yatube/internal/config"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgInvalidLogin     = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	msgPasswordMismatch = "The two password fields didn’t match."
	msgOldPassword      = "Your old password was entered incorrectly. Please enter it again."
	msgUsernameTaken    = "A user with that username already exists."

	resetAudience = "password-reset"
)

// ErrInvalidResetLink covers every way a reset link can be unusable:
// malformed, expired, already used or for an unknown user.
var ErrInvalidResetLink = errors.New("password reset link is invalid")

// AuthConfig holds the settings AuthService needs.
type AuthConfig struct {
	Secret   string
	ResetTTL time.Duration
	SiteURL  string
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
}

// AuthConfigFrom picks the auth settings out of the application config.
func AuthConfigFrom(cfg *config.Config) AuthConfig {
	return AuthConfig{
		Secret:   cfg.SecretKey,
		ResetTTL: time.Duration(cfg.PasswordResetTTLHours) * time.Hour,
		SiteURL:  strings.TrimRight(cfg.SiteURL, "/"),
	}
}

// AuthService implements signup, login and password management.
type AuthService struct {
	users     repository.UserRepository
	mailer    Mailer
	cfg       AuthConfig
	dummyHash []byte
}

type SignupInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password1 string
	Password2 string
}

type ChangePasswordInput struct {
	OldPassword  string
	NewPassword1 string
	NewPassword2 string
}

func NewAuthService(users repository.UserRepository, mailer Mailer, cfg AuthConfig) *AuthService {
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 72 * time.Hour
	}
	// Compared against when the username is unknown so both paths cost the same.
	dummy, err := bcrypt.GenerateFromPassword([]byte("yatube-timing-equalizer"), cfg.HashCost)
	if err != nil {
		middleware.Logger.Error("failed to prepare dummy password hash", "error", err)
	}
	return &AuthService{users: users, mailer: mailer, cfg: cfg, dummyHash: dummy}
}

// Signup creates an account. It does not log the new user in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	fields := models.FormErrors{}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		fields.Add("username", msgRequired)
	} else if err := validation.ValidateUsername(username); err != nil {
		fields.Add("username", err.Error())
	} else {
		taken, err := s.users.UsernameTaken(ctx, username)
		if err != nil {
			return nil, err
		}
		if taken {
			fields.Add("username", msgUsernameTaken)
		}
	}

	email := strings.TrimSpace(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		fields.Add("email", err.Error())
	}

	user := &models.User{
		Username:  username,
		Email:     validation.NormalizeEmail(email),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
	}

	s.checkNewPassword(user, "password1", "password2", in.Password1, in.Password2, fields)
	if !fields.Empty() {
		return nil, models.NewFormError(fields)
	}

	hash, err := s.hash(in.Password2)
	if err != nil {
		return nil, err
	}
	user.Password = hash
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials and records the login time.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	fields := models.FormErrors{}
	username = strings.TrimSpace(username)
	if username == "" {
		fields.Add("username", msgRequired)
	}
	if password == "" {
		fields.Add("password", msgRequired)
	}
	if !fields.Empty() {
		return nil, models.NewFormError(fields)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil && !models.IsNotFound(err) {
		return nil, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, s.invalidLogin()
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, s.invalidLogin()
	}

	now := time.Now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	observability.LoginAttempts.WithLabelValues("success").Inc()
	return user, nil
}

func (s *AuthService) invalidLogin() error {
	observability.LoginAttempts.WithLabelValues("failure").Inc()
	fields := models.FormErrors{}
	fields.Add("", msgInvalidLogin)
	return models.NewFormError(fields)
}

// Fingerprint identifies the password a session was issued for. Changing
// the password changes the fingerprint and so ends every other session.
func (s *AuthService) Fingerprint(user *models.User) string {
	sum := sha256.Sum256([]byte(s.cfg.Secret + ":" + user.Password))
	return hex.EncodeToString(sum[:8])
}

// ChangePassword verifies the old password and stores the new one.
// The returned user carries the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, in ChangePasswordInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := models.FormErrors{}
	if in.OldPassword == "" {
		fields.Add("old_password", msgRequired)
	} else if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.OldPassword)) != nil {
		fields.Add("old_password", msgOldPassword)
	}
	s.checkNewPassword(user, "new_password1", "new_password2", in.NewPassword1, in.NewPassword2, fields)
	if !fields.Empty() {
		return nil, models.NewFormError(fields)
	}

	return user, s.setPassword(ctx, user, in.NewPassword2)
}

// RequestPasswordReset mails a reset link to every account registered
// with email. Unknown addresses are not reported.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	fields := models.FormErrors{}
	if email == "" {
		fields.Add("email", msgRequired)
	} else if err := validation.ValidateEmail(email); err != nil {
		fields.Add("email", err.Error())
	}
	if !fields.Empty() {
		return models.NewFormError(fields)
	}

	users, err := s.users.ListByEmail(ctx, email)
	if err != nil {
		return err
	}
	for i := range users {
		user := &users[i]
		if user.Password == "" {
			continue
		}
		link, err := s.ResetLink(user)
		if err != nil {
			return models.NewInternalError(err)
		}
		msg := Message{
			To:      user.Email,
			Subject: "Password reset on " + s.siteName(),
			Body: fmt.Sprintf(
				"You're receiving this email because you requested a password reset for your user account at %s.\n\n"+
					"Please go to the following page and choose a new password:\n\n%s\n\nYour username, in case you've forgotten: %s\n",
				s.siteName(), link, user.Username),
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			middleware.Logger.ErrorContext(ctx, "failed to send password reset email", "user_id", user.ID, "error", err)
		}
	}
	return nil
}

// ResetLink builds the absolute confirmation URL for user.
func (s *AuthService) ResetLink(user *models.User) (string, error) {
	token, err := s.MakeResetToken(user)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/auth/reset/confirm/%s/%s/", s.cfg.SiteURL, EncodeUID(user.ID), token), nil
}

// MakeResetToken signs a reset token valid until the password or the last
// login changes, or ResetTTL passes.
func (s *AuthService) MakeResetToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		Audience:  jwt.ClaimStrings{resetAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ResetTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.resetKey(user))
}

// CheckResetToken resolves a reset link to its user.
func (s *AuthService) CheckResetToken(ctx context.Context, uidb64, token string) (*models.User, error) {
	id, err := DecodeUID(uidb64)
	if err != nil {
		return nil, ErrInvalidResetLink
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, ErrInvalidResetLink
		}
		return nil, err
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (interface{}, error) {
		return s.resetKey(user), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(resetAudience),
		jwt.WithSubject(strconv.FormatUint(uint64(user.ID), 10)),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidResetLink
	}
	return user, nil
}

// ResetPassword sets a new password through a reset link. The link stops
// working once it has been used.
func (s *AuthService) ResetPassword(ctx context.Context, uidb64, token, password1, password2 string) (*models.User, error) {
	user, err := s.CheckResetToken(ctx, uidb64, token)
	if err != nil {
		return nil, err
	}

	fields := models.FormErrors{}
	s.checkNewPassword(user, "new_password1", "new_password2", password1, password2, fields)
	if !fields.Empty() {
		return nil, models.NewFormError(fields)
	}
	return user, s.setPassword(ctx, user, password2)
}

func (s *AuthService) checkNewPassword(user *models.User, field1, field2, password1, password2 string, fields models.FormErrors) {
	if password1 == "" {
		fields.Add(field1, msgRequired)
	}
	if password2 == "" {
		fields.Add(field2, msgRequired)
	}
	if password1 == "" || password2 == "" {
		return
	}
	if password1 != password2 {
		fields.Add(field2, msgPasswordMismatch)
		return
	}
	for _, problem := range validation.ValidatePassword(password2, validation.UserAttributes{
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}) {
		fields.Add(field2, problem)
	}
}

func (s *AuthService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	user.Password = hash
	return nil
}

func (s *AuthService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.HashCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hashed), nil
}

func (s *AuthService) resetKey(user *models.User) []byte {
	var lastLogin int64
	if user.LastLogin != nil {
		lastLogin = user.LastLogin.Unix()
	}
	return []byte(s.cfg.Secret + "|" + user.Password + "|" + strconv.FormatInt(lastLogin, 10))
}

func (s *AuthService) siteName() string {
	name := strings.TrimPrefix(strings.TrimPrefix(s.cfg.SiteURL, "https://"), "http://")
	if name == "" {
		return "yatube"
	}
	return name
}

// EncodeUID renders a user id for a reset URL.
func EncodeUID(id uint) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

// DecodeUID reverses EncodeUID.
func DecodeUID(uidb64 string) (uint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uidb64)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(string(raw), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid uid %q", uidb64)
	}
	return uint(id), nil
}
