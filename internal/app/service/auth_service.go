package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/marketplace-backend/internal/app/model"
	"github.com/ikkim/marketplace-backend/internal/app/repository"
	apperrors "github.com/ikkim/marketplace-backend/internal/errors"
	"github.com/ikkim/marketplace-backend/internal/kv"
	"github.com/ikkim/marketplace-backend/pkg/logger"
	"github.com/ikkim/marketplace-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// CredentialVerifier checks a login attempt. An empty role accepts any role;
// otherwise a role mismatch fails exactly like a wrong password.
type CredentialVerifier interface {
	Verify(email, password string, role model.UserRole) (*model.User, error)
}

type databaseCredentialVerifier struct {
	userRepo repository.UserRepository
}

// NewDatabaseCredentialVerifier verifies bcrypt hashes stored in the users table.
func NewDatabaseCredentialVerifier(userRepo repository.UserRepository) CredentialVerifier {
	return &databaseCredentialVerifier{userRepo: userRepo}
}

func (v *databaseCredentialVerifier) Verify(email, password string, role model.UserRole) (*model.User, error) {
	user, err := v.userRepo.FindByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"email":   email,
			"user_id": user.ID,
		})
		return nil, ErrInvalidCredentials
	}

	if role != "" && role != user.Role {
		logger.Warn("Login failed: role mismatch", map[string]interface{}{
			"user_id":   user.ID,
			"requested": role,
		})
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

type AuthService interface {
	Register(name, email, password string) (*model.User, *util.TokenPair, error)
	Login(email, password string, role model.UserRole) (*model.User, *util.TokenPair, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*util.TokenPair, error)
	GetUserByID(id string) (*model.User, error)
	UpdateProfile(userID, name string) (*model.User, error)
	Logout(ctx context.Context, accessToken string) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type authService struct {
	userRepo      repository.UserRepository
	verifier      CredentialVerifier
	revoked       kv.Store
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	verifier CredentialVerifier,
	revoked kv.Store,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		verifier:      verifier,
		revoked:       revoked,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func revokedKey(token string) string {
	return "blacklist:" + token
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}

func (s *authService) Register(name, email, password string) (*model.User, *util.TokenPair, error) {
	email = normalizeEmail(email)
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": email,
		"name":  name,
	})

	fields := fieldErrors{}
	fields.requireText("name", name)
	fields.requireText("email", email)
	switch {
	case len(password) < util.MinPasswordLength:
		fields["password"] = fmt.Sprintf("must be at least %d characters", util.MinPasswordLength)
	case len(password) > util.MaxPasswordLength:
		fields["password"] = fmt.Sprintf("must be at most %d bytes", util.MaxPasswordLength)
	}
	if err := fields.err(); err != nil {
		return nil, nil, err
	}

	// Check if user already exists
	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         strings.TrimSpace(name),
		Role:         model.RoleUser,
	}

	// a concurrent registration can still win the unique index
	if err := s.userRepo.Create(user); err != nil {
		if apperrors.IsDuplicateKey(err) {
			logger.Warn("Registration failed: email already exists", map[string]interface{}{
				"email": email,
			})
			return nil, nil, ErrEmailAlreadyExists
		}
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
		"role":    user.Role,
	})

	return user, tokens, nil
}

func (s *authService) Login(email, password string, role model.UserRole) (*model.User, *util.TokenPair, error) {
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
		"role":  role,
	})

	user, err := s.verifier.Verify(email, password, role)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			logger.Error("Failed to verify credentials", err, map[string]interface{}{
				"email": email,
			})
		}
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	})

	return user, tokens, nil
}

// RefreshTokens exchanges a valid refresh token for a new pair and revokes the old one.
func (s *authService) RefreshTokens(ctx context.Context, refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != util.TokenTypeRefresh {
		return nil, util.ErrInvalidToken
	}

	revoked, err := s.IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, util.ErrInvalidToken
	}

	user, err := s.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, util.ErrInvalidToken
		}
		return nil, err
	}

	if err := s.revoke(ctx, refreshToken, claims); err != nil {
		return nil, err
	}
	return s.issueTokens(user)
}

func (s *authService) GetUserByID(id string) (*model.User, error) {
	logger.Debug("Fetching user by ID", map[string]interface{}{
		"user_id": id,
	})

	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("User not found", map[string]interface{}{
				"user_id": id,
			})
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}

	return user, nil
}

func (s *authService) UpdateProfile(userID, name string) (*model.User, error) {
	logger.Info("Updating user profile", map[string]interface{}{
		"user_id": userID,
	})

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" || name == user.Name {
		logger.Debug("No changes detected for user profile", map[string]interface{}{
			"user_id": userID,
		})
		return user, nil
	}

	if err := s.userRepo.UpdateName(user.ID, name); err != nil {
		logger.Error("Failed to update user profile", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	user.Name = name

	logger.Info("User profile updated successfully", map[string]interface{}{
		"user_id": user.ID,
		"name":    user.Name,
	})
	return user, nil
}

// Logout revokes the access token until it would have expired anyway.
func (s *authService) Logout(ctx context.Context, accessToken string) error {
	claims, err := util.ValidateToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, util.ErrExpiredToken) {
			return nil
		}
		return err
	}

	if err := s.revoke(ctx, accessToken, claims); err != nil {
		return err
	}

	logger.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return nil
}

func (s *authService) revoke(ctx context.Context, token string, claims *util.Claims) error {
	ttl := claims.ExpiresIn()
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Set(ctx, revokedKey(token), []byte("revoked"), ttl); err != nil {
		logger.Error("Failed to revoke token", err, map[string]interface{}{
			"user_id": claims.UserID,
		})
		return err
	}
	return nil
}

func (s *authService) IsRevoked(ctx context.Context, token string) (bool, error) {
	_, found, err := s.revoked.Get(ctx, revokedKey(token))
	if err != nil {
		logger.Error("Failed to check token blacklist", err)
		return false, err
	}
	return found, nil
}
