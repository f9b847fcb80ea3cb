package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"docs-backend/internal/access"
)

const (
	minPasswordLen   = 8
	maxPasswordLen   = 20
	maxPasswordBytes = 72 // bcrypt rejects longer inputs
)

type Service struct {
	Repo     Repo
	HashCost int
	now      func() time.Time
	newID    func() string

	// compared against when the email is unknown so both paths cost one bcrypt check
	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(repo Repo) *Service {
	return &Service{
		Repo:     repo,
		HashCost: bcrypt.DefaultCost,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Register validates the input, hashes the password and stores a new user.
// Role defaults to viewer.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	email, role, verr := validateRegister(in)
	if verr != nil {
		return User{}, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost())
	if err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	user := User{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate returns the user whose credentials match. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	user, err := s.Repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.fallbackHash(), []byte(password))
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

// Identity resolves the current authorization view of userID, so role changes
// and deletions take effect on the next request.
func (s *Service) Identity(ctx context.Context, userID string) (access.Identity, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return access.Identity{}, err
	}
	return user.Identity(), nil
}

func (s *Service) cost() int {
	if s.HashCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.HashCost
}

func (s *Service) fallbackHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost())
	})
	return s.dummyHash
}

func validateRegister(in RegisterInput) (string, access.Role, error) {
	var errs ValidationError
	if strings.TrimSpace(in.FirstName) == "" {
		errs = append(errs, FieldError{Field: "firstName", Issue: "required"})
	}
	if strings.TrimSpace(in.LastName) == "" {
		errs = append(errs, FieldError{Field: "lastName", Issue: "required"})
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		errs = append(errs, FieldError{Field: "email", Issue: "required"})
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs = append(errs, FieldError{Field: "email", Issue: "invalid"})
	}

	switch n := utf8.RuneCountInString(in.Password); {
	case n == 0:
		errs = append(errs, FieldError{Field: "password", Issue: "required"})
	case n < minPasswordLen:
		errs = append(errs, FieldError{Field: "password", Issue: "too_short"})
	case n > maxPasswordLen, len(in.Password) > maxPasswordBytes:
		errs = append(errs, FieldError{Field: "password", Issue: "too_long"})
	}

	role := access.RoleViewer
	if strings.TrimSpace(in.Role) != "" {
		parsed, err := access.ParseRole(in.Role)
		if err != nil {
			errs = append(errs, FieldError{Field: "role", Issue: "invalid"})
		} else {
			role = parsed
		}
	}

	if len(errs) > 0 {
		return "", "", errs
	}
	return email, role, nil
}
