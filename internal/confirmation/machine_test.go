package confirmation_test

import (
	"context"
	stdErrors "errors"
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/confirmation"
	"github.com/frahmantamala/expense-assistant/internal/core/events"
	"github.com/frahmantamala/expense-assistant/internal/parsing"
)

func parsed(suggested string, confidence float64) *parsing.ParsedExpense {
	p := &parsing.ParsedExpense{
		Amount:      decimal.RequireFromString("20"),
		Category:    "Other",
		Description: "lunch",
		Date:        time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC).UnixMilli(),
		Text:        "lunch",
	}
	if suggested != "" {
		p.Category = suggested
		p.AISuggestedCategory = &suggested
	}
	p.AIConfidence = &confidence
	return p
}

var _ = Describe("Machine", func() {
	var (
		now       time.Time
		store     *confirmation.MemoryStore
		expenses  *fakeExpenses
		fb        *fakeFeedback
		publisher *fakePublisher
		machine   *confirmation.Machine
		ctx       context.Context
	)

	BeforeEach(func() {
		now = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		store = confirmation.NewMemoryStore(clock)
		expenses = &fakeExpenses{}
		fb = &fakeFeedback{}
		publisher = &fakePublisher{}
		machine = confirmation.NewMachine(confirmation.Config{
			DefaultCategory:  "Other",
			CommonCategories: []string{"Food & Drink", "Transport", "Shopping", "Utilities"},
		}, confirmation.Deps{
			Store:     store,
			Expenses:  expenses,
			Feedback:  fb,
			Publisher: publisher,
			Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
			Now:       clock,
		})
		ctx = context.Background()
	})

	Describe("Begin", func() {
		DescribeTable("routes by confidence",
			func(suggested string, confidence float64, want confirmation.State) {
				t, err := machine.Begin(ctx, "42", "7", parsed(suggested, confidence))
				Expect(err).NotTo(HaveOccurred())
				Expect(t.From).To(Equal(confirmation.StateParsed))
				Expect(t.To).To(Equal(want))
				Expect(t.Attempt.Key).To(Equal("42-7"))
			},
			Entry("confident suggestion", "Food & Drink", 0.9, confirmation.StateAwaitingConfirmation),
			Entry("exactly at the threshold", "Food & Drink", 0.6, confirmation.StateAwaitingConfirmation),
			Entry("just below the threshold", "Food & Drink", 0.59, confirmation.StateAwaitingCategory),
			Entry("no suggestion", "", 0.0, confirmation.StateAwaitingCategory),
		)

		DescribeTable("offers the suggestion, common categories and the default",
			func(suggested string, want []string) {
				t, err := machine.Begin(ctx, "42", "7", parsed(suggested, 0.3))
				Expect(err).NotTo(HaveOccurred())
				Expect(t.Attempt.Choices).To(Equal(want))
			},
			Entry("suggestion outside the common set keeps three common categories",
				"Travel", []string{"Travel", "Food & Drink", "Transport", "Shopping", "Other"}),
			Entry("a common suggestion is not offered twice",
				"Transport", []string{"Transport", "Food & Drink", "Shopping", "Utilities", "Other"}),
			Entry("the default as suggestion",
				"Other", []string{"Other", "Food & Drink", "Transport", "Shopping"}),
		)

		It("always offers the default without a suggestion", func() {
			t, err := machine.Begin(ctx, "42", "7", parsed("", 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Attempt.Choices).To(ContainElement("Other"))
			Expect(t.Attempt.Choices).To(HaveLen(4))
		})

		It("replaces the attempt of a redelivered message", func() {
			_, err := machine.Begin(ctx, "42", "7", parsed("", 0))
			Expect(err).NotTo(HaveOccurred())
			_, err = machine.Begin(ctx, "42", "7", parsed("Food & Drink", 0.9))
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Len()).To(Equal(1))
		})
	})

	Describe("Apply", func() {
		It("commits exactly once and records feedback", func() {
			t, err := machine.Begin(ctx, "42", "7", parsed("", 0))
			Expect(err).NotTo(HaveOccurred())

			t, err = machine.Apply(ctx, "42", confirmation.SelectCategory{Key: t.Attempt.Key, Category: "Transport"})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.To).To(Equal(confirmation.StateAwaitingConfirmation))
			Expect(t.Attempt.Expense.Category).To(Equal("Transport"))

			t, err = machine.Apply(ctx, "42", confirmation.ConfirmCommit{Key: t.Attempt.Key})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.To).To(Equal(confirmation.StateCommitted))
			Expect(t.Result.ExpenseID).To(Equal("exp-1"))

			Expect(expenses.logged).To(HaveLen(1))
			Expect(expenses.logged[0].Category).To(Equal("Transport"))
			Expect(expenses.logged[0].Amount.Equal(decimal.NewFromInt(20))).To(BeTrue())
			Expect(fb.recorded).To(HaveLen(1))
			Expect(fb.recorded[0].FinalCategory).To(Equal("Transport"))
			Expect(fb.recorded[0].SuggestedCategory).To(BeNil())
			Expect(publisher.types()).To(Equal([]string{events.EventTypeCategoryFeedback, events.EventTypeExpenseLogged}))

			_, err = machine.Apply(ctx, "42", confirmation.ConfirmCommit{Key: t.Attempt.Key})
			Expect(err).To(MatchError(errors.ErrAttemptExpired))
			Expect(expenses.calls()).To(Equal(1))
		})

		It("lets only one of two concurrent commits through", func() {
			t, err := machine.Begin(ctx, "42", "7", parsed("Food & Drink", 0.9))
			Expect(err).NotTo(HaveOccurred())

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, errs[i] = machine.Apply(ctx, "42", confirmation.ConfirmCommit{Key: t.Attempt.Key})
				}(i)
			}
			wg.Wait()

			Expect(expenses.calls()).To(Equal(1))
			Expect(errs).To(ContainElement(BeNil()))
			Expect(errs).To(ContainElement(MatchError(errors.ErrAttemptExpired)))
		})

		It("cancels from either prompt without persisting", func() {
			a, err := machine.Begin(ctx, "42", "7", parsed("", 0))
			Expect(err).NotTo(HaveOccurred())
			t, err := machine.Apply(ctx, "42", confirmation.CancelAttempt{Key: a.Attempt.Key})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.To).To(Equal(confirmation.StateCancelled))

			b, err := machine.Begin(ctx, "42", "8", parsed("Food & Drink", 0.9))
			Expect(err).NotTo(HaveOccurred())
			t, err = machine.Apply(ctx, "42", confirmation.ConfirmCancel{Key: b.Attempt.Key})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.From).To(Equal(confirmation.StateAwaitingConfirmation))

			Expect(expenses.calls()).To(BeZero())
			Expect(fb.recorded).To(BeEmpty())
			Expect(store.Len()).To(BeZero())
		})

		It("rejects actions that do not fit the state", func() {
			t, err := machine.Begin(ctx, "42", "7", parsed("", 0))
			Expect(err).NotTo(HaveOccurred())

			_, err = machine.Apply(ctx, "42", confirmation.ConfirmCommit{Key: t.Attempt.Key})
			Expect(err).To(MatchError(errors.ErrInvalidAction))

			_, err = machine.Apply(ctx, "42", confirmation.SelectCategory{Key: t.Attempt.Key, Category: "Gift"})
			Expect(err).To(MatchError(errors.ErrInvalidAction))

			Expect(store.Len()).To(Equal(1))
		})

		It("hides attempts from other chats", func() {
			t, err := machine.Begin(ctx, "42", "7", parsed("Food & Drink", 0.9))
			Expect(err).NotTo(HaveOccurred())

			_, err = machine.Apply(ctx, "43", confirmation.ConfirmCommit{Key: t.Attempt.Key})
			Expect(err).To(MatchError(errors.ErrAttemptExpired))
			Expect(expenses.calls()).To(BeZero())
		})

		It("expires attempts after the TTL", func() {
			t, err := machine.Begin(ctx, "42", "7", parsed("Food & Drink", 0.9))
			Expect(err).NotTo(HaveOccurred())

			now = now.Add(confirmation.DefaultTTL)
			_, err = machine.Apply(ctx, "42", confirmation.ConfirmCommit{Key: t.Attempt.Key})
			Expect(err).To(MatchError(errors.ErrAttemptExpired))
			Expect(expenses.calls()).To(BeZero())
		})

		It("ends the attempt when the commit fails", func() {
			expenses.err = errors.NewValidationError("Amount must be positive", errors.ErrCodeInvalidAmount)
			t, err := machine.Begin(ctx, "42", "7", parsed("Food & Drink", 0.9))
			Expect(err).NotTo(HaveOccurred())

			t, err = machine.Apply(ctx, "42", confirmation.ConfirmCommit{Key: t.Attempt.Key})
			Expect(err).To(MatchError(errors.ErrCommitFailed))
			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Message).To(Equal("Amount must be positive"))
			Expect(t.To).To(Equal(confirmation.StateCancelled))
			Expect(fb.recorded).To(BeEmpty())
			Expect(store.Len()).To(BeZero())
		})

		It("keeps the commit when feedback fails", func() {
			fb.err = stdErrors.New("feedback store down")
			t, err := machine.Begin(ctx, "42", "7", parsed("Food & Drink", 0.9))
			Expect(err).NotTo(HaveOccurred())

			t, err = machine.Apply(ctx, "42", confirmation.ConfirmCommit{Key: t.Attempt.Key})
			Expect(err).NotTo(HaveOccurred())
			Expect(t.To).To(Equal(confirmation.StateCommitted))
			Expect(*fb.recorded[0].SuggestedCategory).To(Equal("Food & Drink"))
		})
	})

	Describe("Sweep", func() {
		It("drops expired attempts and announces them", func() {
			_, err := machine.Begin(ctx, "42", "7", parsed("", 0))
			Expect(err).NotTo(HaveOccurred())
			now = now.Add(5 * time.Minute)
			_, err = machine.Begin(ctx, "42", "8", parsed("", 0))
			Expect(err).NotTo(HaveOccurred())

			now = now.Add(confirmation.DefaultTTL - time.Minute)
			n, err := machine.Sweep(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
			Expect(store.Len()).To(Equal(1))
			Expect(publisher.types()).To(Equal([]string{events.EventTypeAttemptExpired}))

			n, err = machine.Sweep(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
			Expect(publisher.types()).To(HaveLen(1))
		})
	})
})
