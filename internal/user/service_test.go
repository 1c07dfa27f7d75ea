package user_test

import (
	"context"
	stdErrors "errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	errors "github.com/frahmantamala/expense-assistant/internal"
	userDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-assistant/internal/user"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Suite")
}

type mockUserRepository struct {
	byUsername  map[string]*userDatamodel.User
	byChat      map[string]*userDatamodel.User
	nextID      int64
	createError error
	getError    error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		byUsername: make(map[string]*userDatamodel.User),
		byChat:     make(map[string]*userDatamodel.User),
		nextID:     1,
	}
}

func (m *mockUserRepository) Create(_ context.Context, u *userDatamodel.User) error {
	if m.createError != nil {
		return m.createError
	}
	u.ID = m.nextID
	m.nextID++
	m.byUsername[u.Username] = u
	m.byChat[u.ChatID] = u
	return nil
}

func (m *mockUserRepository) GetByUsername(_ context.Context, username string) (*userDatamodel.User, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	if u, ok := m.byUsername[username]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (m *mockUserRepository) GetByChatID(_ context.Context, chatID string) (*userDatamodel.User, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	if u, ok := m.byChat[chatID]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

var _ = Describe("Service", func() {
	var (
		repo    *mockUserRepository
		service *user.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		repo = newMockUserRepository()
		service = user.NewService(repo, bcrypt.MinCost, slog.New(slog.NewTextHandler(io.Discard, nil)))
		ctx = context.Background()
	})

	Describe("Register", func() {
		It("should store a lowercased username and a bcrypt hash", func() {
			u, err := service.Register(ctx, user.RegisterDTO{Username: " Alice ", Password: "secret1", ChatID: "42"})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.ID).To(Equal(int64(1)))
			Expect(u.Username).To(Equal("alice"))
			Expect(u.ChatID).To(Equal("42"))
			Expect(u.PasswordHash).NotTo(Equal("secret1"))
			Expect(user.VerifyPassword(u.PasswordHash, "secret1")).To(Succeed())
			Expect(user.VerifyPassword(u.PasswordHash, "wrong")).NotTo(Succeed())
		})

		It("should reject invalid credentials before touching the repository", func() {
			repo.getError = stdErrors.New("should not be called")
			_, err := service.Register(ctx, user.RegisterDTO{Username: "al", Password: "123", ChatID: "42"})
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
		})

		It("should require a chat id", func() {
			_, err := service.Register(ctx, user.RegisterDTO{Username: "alice", Password: "secret1", ChatID: " "})
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
		})

		It("should refuse a second account for the same chat", func() {
			_, err := service.Register(ctx, user.RegisterDTO{Username: "alice", Password: "secret1", ChatID: "42"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Register(ctx, user.RegisterDTO{Username: "bob", Password: "secret1", ChatID: "42"})
			Expect(err).To(MatchError(errors.ErrChatRegistered))
		})

		It("should treat usernames case-insensitively", func() {
			_, err := service.Register(ctx, user.RegisterDTO{Username: "alice", Password: "secret1", ChatID: "42"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Register(ctx, user.RegisterDTO{Username: "ALICE", Password: "secret1", ChatID: "43"})
			Expect(err).To(MatchError(errors.ErrUsernameTaken))
		})

		It("should map a unique violation on insert to username taken", func() {
			repo.createError = user.ErrDuplicate
			_, err := service.Register(ctx, user.RegisterDTO{Username: "alice", Password: "secret1", ChatID: "42"})
			Expect(err).To(MatchError(errors.ErrUsernameTaken))
		})

		It("should wrap repository failures as internal errors", func() {
			repo.getError = stdErrors.New("connection reset")
			_, err := service.Register(ctx, user.RegisterDTO{Username: "alice", Password: "secret1", ChatID: "42"})
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(errors.ErrorTypeInternal))
			Expect(strings.Contains(err.Error(), "connection reset")).To(BeTrue())
		})
	})

	Describe("GetByChatID", func() {
		It("should return the linked user", func() {
			_, err := service.Register(ctx, user.RegisterDTO{Username: "alice", Password: "secret1", ChatID: "42"})
			Expect(err).NotTo(HaveOccurred())

			u, err := service.GetByChatID(ctx, "42")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Username).To(Equal("alice"))
		})

		It("should report an unknown chat as user not found", func() {
			_, err := service.GetByChatID(ctx, "404")
			Expect(err).To(MatchError(errors.ErrUserNotFound))
		})
	})
})
