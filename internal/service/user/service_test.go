package user

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/listellodavide/onion-factory/internal/domain"
)

type stubRepo struct {
	byEmail    map[string]*domain.User
	byUsername map[string]*domain.User
	byID       map[int64]*domain.User
	created    []domain.User
	nextID     int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		byEmail:    map[string]*domain.User{},
		byUsername: map[string]*domain.User{},
		byID:       map[int64]*domain.User{},
	}
}

func (s *stubRepo) List(_ context.Context) ([]domain.User, error) { return nil, nil }

func (s *stubRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := s.byUsername[username]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubRepo) SearchByUsername(_ context.Context, _ string) ([]domain.User, error) {
	return nil, nil
}

func (s *stubRepo) Create(_ context.Context, u domain.User) (*domain.User, error) {
	if _, taken := s.byUsername[u.Username]; taken {
		return nil, domain.ErrAlreadyExists
	}
	if _, taken := s.byEmail[u.Email]; taken {
		return nil, domain.ErrAlreadyExists
	}
	s.nextID++
	u.ID = s.nextID
	s.created = append(s.created, u)
	s.byUsername[u.Username] = &u
	s.byEmail[u.Email] = &u
	s.byID[u.ID] = &u
	return &u, nil
}

func (s *stubRepo) Update(_ context.Context, u domain.User) (*domain.User, error) {
	s.byID[u.ID] = &u
	return &u, nil
}

func (s *stubRepo) Delete(_ context.Context, _ int64) error { return nil }

func TestCreateHashesPassword(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo)

	got, err := svc.Create(context.Background(), CreateInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", got.Email)
	}
	if got.Password == "secret" {
		t.Fatalf("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(got.Password), []byte("secret")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := New(newStubRepo())
	cases := []CreateInput{
		{Email: "a@b.c", Password: "x"},
		{Username: "a", Password: "x"},
		{Username: "a", Email: "a@b.c"},
	}
	for i, in := range cases {
		if _, err := svc.Create(context.Background(), in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestEnsureFromProfileReturnsExisting(t *testing.T) {
	repo := newStubRepo()
	existing, err := New(repo).Create(context.Background(), CreateInput{
		Username: "alice", Email: "alice@example.com", Password: "x",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := New(repo).EnsureFromProfile(context.Background(), "Alice@Example.com", "Alice Smith", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != existing.ID {
		t.Fatalf("expected existing user %d, got %d", existing.ID, got.ID)
	}
	if len(repo.created) != 1 {
		t.Fatalf("no new user should be provisioned")
	}
}

func TestEnsureFromProfileDerivesUsernameFromDisplayName(t *testing.T) {
	repo := newStubRepo()
	got, err := New(repo).EnsureFromProfile(context.Background(), "bob@example.com", "Bob O'Brien", "https://p.example/bob.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Username != "bob.o.brien" {
		t.Fatalf("unexpected username %q", got.Username)
	}
	if got.PictureURL != "https://p.example/bob.png" {
		t.Fatalf("picture not stored: %q", got.PictureURL)
	}
	if got.Password == "" {
		t.Fatalf("placeholder password missing")
	}
}

func TestEnsureFromProfileFallsBackToEmailLocalPart(t *testing.T) {
	repo := newStubRepo()
	got, err := New(repo).EnsureFromProfile(context.Background(), "Carol.Jones@example.com", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Username != "carol.jones" {
		t.Fatalf("unexpected username %q", got.Username)
	}
}

func TestEnsureFromProfileResolvesCollision(t *testing.T) {
	repo := newStubRepo()
	svc := New(repo)
	if _, err := svc.Create(context.Background(), CreateInput{
		Username: "dave", Email: "other@example.com", Password: "x",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.EnsureFromProfile(context.Background(), "dave@example.com", "Dave", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Username == "dave" {
		t.Fatalf("collision not resolved")
	}
	if !strings.HasPrefix(got.Username, "dave.") {
		t.Fatalf("unexpected username %q", got.Username)
	}
}

func TestEnsureFromProfileRequiresEmail(t *testing.T) {
	svc := New(newStubRepo())
	if _, err := svc.EnsureFromProfile(context.Background(), "  ", "x", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
