package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/listellodavide/onion-factory/internal/domain"
	userrepo "github.com/listellodavide/onion-factory/internal/repository/user"
)

// Service handles user CRUD and OAuth provisioning.
type Service struct {
	repo userrepo.Repository
}

func New(repo userrepo.Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput mirrors incoming user payloads.
type CreateInput struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	PictureURL string `json:"pictureUrl"`
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
}

func (s *Service) SearchByUsername(ctx context.Context, pattern string) ([]domain.User, error) {
	return s.repo.SearchByUsername(ctx, pattern)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username required", domain.ErrInvalidInput)
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Password) == "" {
		return nil, fmt.Errorf("%w: password required", domain.ErrInvalidInput)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, domain.User{
		Username:   username,
		Email:      email,
		Password:   string(hashed),
		PictureURL: in.PictureURL,
	})
}

// Update overwrites mutable fields while preserving identity and the original
// creation timestamp. An empty password keeps the stored hash.
func (s *Service) Update(ctx context.Context, id int64, in CreateInput) (*domain.User, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := *existing
	if u := strings.TrimSpace(in.Username); u != "" {
		updated.Username = u
	}
	if e := strings.TrimSpace(strings.ToLower(in.Email)); e != "" {
		updated.Email = e
	}
	if p := strings.TrimSpace(in.Password); p != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(p), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		updated.Password = string(hashed)
	}
	if in.PictureURL != "" {
		updated.PictureURL = in.PictureURL
	}
	return s.repo.Update(ctx, updated)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

var nonUsernameRunes = regexp.MustCompile(`[^a-z0-9]+`)

// EnsureFromProfile returns the user with the given email, provisioning one
// from the OAuth profile on first login. The username is derived from the
// display name or the email local-part; a short random suffix resolves
// collisions. The password is a random opaque placeholder, never used for
// credential checks.
func (s *Service) EnsureFromProfile(ctx context.Context, email, displayName, pictureURL string) (*domain.User, error) {
	safeEmail := strings.TrimSpace(strings.ToLower(email))
	if safeEmail == "" {
		return nil, fmt.Errorf("%w: email required", domain.ErrInvalidInput)
	}

	existing, err := s.repo.GetByEmail(ctx, safeEmail)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	base := strings.TrimSpace(displayName)
	if base == "" {
		base = safeEmail
		if at := strings.IndexByte(base, '@'); at > 0 {
			base = base[:at]
		}
	}
	base = strings.Trim(nonUsernameRunes.ReplaceAllString(strings.ToLower(base), "."), ".")
	if base == "" {
		base = "user"
	}

	placeholder, err := randomOpaque(24)
	if err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(placeholder), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// Retry with a fresh suffix when the generated username is taken.
	username := base
	for i := 0; i < 5; i++ {
		created, err := s.repo.Create(ctx, domain.User{
			Username:   username,
			Email:      safeEmail,
			Password:   string(hashed),
			PictureURL: pictureURL,
		})
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		suffix, serr := randomOpaque(2)
		if serr != nil {
			return nil, serr
		}
		username = base + "." + strings.ToLower(suffix)
	}
	return nil, errors.New("could not provision user: username collisions")
}

func randomOpaque(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
