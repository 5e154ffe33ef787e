package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"scanndine/apperr"
	"scanndine/auth"
	"scanndine/model"
	"scanndine/repository"
	"scanndine/utils"

	"github.com/sirupsen/logrus"
)

const (
	minPasswordLength = 6
	// bcrypt only hashes the first 72 bytes and refuses anything longer
	maxPasswordLength = 72
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     model.UserRole
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User         *model.User    `json:"user"`
	Role         model.UserRole `json:"role"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

type AuthService struct {
	users  *repository.UserRepository
	hasher *auth.PasswordHasher
	tokens *utils.TokenIssuer
	log    logrus.FieldLogger
}

func NewAuthService(users *repository.UserRepository, hasher *auth.PasswordHasher, tokens *utils.TokenIssuer, log logrus.FieldLogger) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens, log: log}
}

func duplicateEmail() *apperr.Error {
	return apperr.New(apperr.KindDuplicate, apperr.CodeDuplicateEmail, "user already exists").WithStatus(http.StatusBadRequest)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("name is required")
	}
	if !validEmail(email) {
		return apperr.Validation("valid email is required")
	}
	return validatePassword(password)
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperr.Validationf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return apperr.Validationf("password must be at most %d bytes", maxPasswordLength)
	}
	return nil
}

// newUser validates input and builds an unsaved user with a hashed password.
func (s *AuthService) newUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateCredentials(in.Name, in.Email, in.Password); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = model.RoleCustomer
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("invalid role")
	}

	taken, err := s.users.EmailTaken(ctx, in.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, duplicateEmail()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Upstream("hash password", err)
	}
	return &model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	}, nil
}

// Register creates an account and signs it in. Staff accounts are stored
// unapproved by the model hook whatever the caller asked for.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	user, err := s.newUser(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateEmail()
		}
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return s.issue(user)
}

// Login checks credentials. role narrows the lookup when a client still
// sends it.
func (s *AuthService) Login(ctx context.Context, email, password string, role model.UserRole) (*AuthResult, error) {
	invalid := apperr.New(apperr.KindUnauthenticated, apperr.CodeInvalidCredentials, "invalid credentials")
	if role != "" && !role.Valid() {
		return nil, apperr.Validation("invalid role")
	}

	user, err := s.users.FindByEmail(ctx, normalizeEmail(email), role)
	if err != nil {
		return nil, notFound(err, invalid)
	}
	if !s.hasher.Compare(password, user.PasswordHash) {
		return nil, invalid
	}
	if user.PendingApproval() {
		return nil, apperr.New(apperr.KindForbidden, apperr.CodePendingApproval, "account pending approval")
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	access, refresh, err := s.tokens.GenerateTokens(user.ID, user.Role)
	if err != nil {
		return nil, apperr.Upstream("sign tokens", err)
	}
	return &AuthResult{User: user, Role: user.Role, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token only.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	invalid := apperr.New(apperr.KindUnauthenticated, apperr.CodeInvalidRefreshToken, "invalid refresh token")
	if refreshToken == "" {
		return "", invalid
	}
	userID, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", invalid
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", notFound(err, invalid)
	}
	access, err := s.tokens.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return "", apperr.Upstream("sign token", err)
	}
	return access, nil
}

func (s *AuthService) AdminExists(ctx context.Context) (bool, error) {
	return s.users.ExistsWithRole(ctx, model.RoleAdmin)
}

// EnsureAdmin creates the bootstrap admin when an email is configured and
// no account uses it yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if email == "" {
		return nil
	}
	taken, err := s.users.EmailTaken(ctx, normalizeEmail(email), 0)
	if err != nil || taken {
		return err
	}
	user, err := s.newUser(ctx, RegisterInput{Name: name, Email: email, Password: password, Role: model.RoleAdmin})
	if err != nil {
		return err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}
	s.log.WithField("email", user.Email).Info("seeded admin account")
	return nil
}
