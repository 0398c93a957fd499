package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mansoorceksport/cohab/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles sign-in and account management
type AuthService struct {
	userRepo      domain.UserRepository
	studentRepo   domain.StudentRepository
	tokenService  *TokenService
	managementKey string
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	studentRepo domain.StudentRepository,
	tokenService *TokenService,
	managementKey string,
) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		studentRepo:   studentRepo,
		tokenService:  tokenService,
		managementKey: managementKey,
	}
}

// CreateUserInput is the payload for creating an account
type CreateUserInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Name      string `json:"name" validate:"required,max=120"`
	Role      string `json:"role" validate:"required,oneof=admin student"`
	StudentID string `json:"student_id"`
}

// Login checks email and password. Unknown emails, wrong passwords and
// inactive accounts are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if !user.Active {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if err := s.userRepo.RecordLogin(ctx, user.ID); err != nil {
		log.Printf("Failed to record login for %s: %v", user.Email, err)
	}
	return user, nil
}

// Me returns the signed-in user, failing with ErrInvalidCredentials when
// the account has since been removed or deactivated
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// ListUsers returns every account
func (s *AuthService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.GetAll(ctx)
}

// CreateUser creates an active account. Student accounts must link to an existing student.
func (s *AuthService) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email, password and name are required", domain.ErrInvalidInput)
	}
	if !domain.ValidRole(in.Role) {
		return nil, fmt.Errorf("%w: role must be %q or %q", domain.ErrInvalidInput, domain.RoleAdmin, domain.RoleStudent)
	}

	studentID := strings.TrimSpace(in.StudentID)
	if in.Role == domain.RoleStudent {
		if studentID == "" {
			return nil, fmt.Errorf("%w: student accounts must be linked to a student", domain.ErrInvalidInput)
		}
		exists, err := s.studentRepo.Exists(ctx, studentID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: student %s does not exist", domain.ErrInvalidInput, studentID)
		}
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email %s: %w", email, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         in.Role,
		StudentID:    studentID,
		Active:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("✓ User created: %s (%s)", user.Email, user.Role)
	return user, nil
}

// DeactivateUser disables an account and ends all of its sessions
func (s *AuthService) DeactivateUser(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return domain.ErrSelfDeactivation
	}
	if err := s.userRepo.Deactivate(ctx, targetID); err != nil {
		return err
	}
	if err := s.tokenService.RevokeAllUserTokens(ctx, targetID); err != nil {
		log.Printf("Failed to revoke sessions of %s: %v", targetID, err)
	}
	return nil
}

// ResetPassword sets a new password for the account with the given email
func (s *AuthService) ResetPassword(ctx context.Context, email, password string) (*domain.User, error) {
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must have at least 8 characters", domain.ErrInvalidInput)
	}
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	if err := s.tokenService.RevokeAllUserTokens(ctx, user.ID); err != nil {
		log.Printf("Failed to revoke sessions of %s: %v", user.Email, err)
	}
	return user, nil
}

// SeedAdmin creates the first admin account. It does nothing when an admin
// already exists and reports whether an account was created.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password, name string) (*domain.User, bool, error) {
	existing, err := s.userRepo.GetFirstByRole(ctx, domain.RoleAdmin)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	user, err := s.CreateUser(ctx, CreateUserInput{
		Email:    email,
		Password: password,
		Name:     name,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// ManagementKeyRequired reports whether the management screen is gated
func (s *AuthService) ManagementKeyRequired() bool {
	return s.managementKey != ""
}

// VerifyManagementKey compares in constant time. Always true when no key is configured.
func (s *AuthService) VerifyManagementKey(key string) bool {
	if s.managementKey == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.managementKey)) == 1
}

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
