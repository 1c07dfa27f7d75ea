package confirmation

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/backend"
	"github.com/frahmantamala/expense-assistant/internal/core/events"
	"github.com/frahmantamala/expense-assistant/internal/metrics"
	"github.com/frahmantamala/expense-assistant/internal/parsing"
)

const (
	DefaultThreshold  = 0.60
	DefaultTTL        = 15 * time.Minute
	DefaultMaxChoices = 3
)

type Config struct {
	// Threshold is the lowest confidence that skips the category choice.
	Threshold        float64
	DefaultCategory  string
	CommonCategories []string
	// MaxChoices bounds the choices offered before the default category,
	// which is always appended when missing.
	MaxChoices int
	TTL        time.Duration
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.DefaultCategory == "" {
		c.DefaultCategory = "Other"
	}
	if c.MaxChoices <= 0 {
		c.MaxChoices = DefaultMaxChoices
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	return c
}

type Deps struct {
	Store     Store
	Expenses  backend.ExpenseStore
	Feedback  backend.FeedbackRecorder
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Now       func() time.Time
	NewKey    func() string
}

// Transition describes the outcome of Begin or Apply. Attempt is a snapshot
// taken after the transition.
type Transition struct {
	Attempt *Attempt
	From    State
	To      State
	Action  Action
	Result  *backend.LogExpenseResult
}

type Machine struct {
	cfg       Config
	store     Store
	expenses  backend.ExpenseStore
	feedback  backend.FeedbackRecorder
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	newKey    func() string
}

func NewMachine(cfg Config, deps Deps) *Machine {
	m := &Machine{
		cfg:       cfg.withDefaults(),
		store:     deps.Store,
		expenses:  deps.Expenses,
		feedback:  deps.Feedback,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       deps.Now,
		newKey:    deps.NewKey,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newKey == nil {
		m.newKey = NewKey
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// NeedsCategoryChoice reports whether parsed must visit the category choice
// before final confirmation.
func (m *Machine) NeedsCategoryChoice(parsed *parsing.ParsedExpense) bool {
	return !parsed.HasSuggestion() || parsed.Confidence() < m.cfg.Threshold
}

// Choices lists the categories offered for parsed: the suggestion first,
// then up to MaxChoices common categories other than the suggestion, then
// the default.
func (m *Machine) Choices(parsed *parsing.ParsedExpense) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(c string) bool {
		if c == "" || seen[c] {
			return false
		}
		seen[c] = true
		out = append(out, c)
		return true
	}

	if parsed.HasSuggestion() {
		add(*parsed.AISuggestedCategory)
	}
	common := 0
	for _, c := range m.cfg.CommonCategories {
		if common >= m.cfg.MaxChoices {
			break
		}
		if add(c) {
			common++
		}
	}
	add(m.cfg.DefaultCategory)
	return out
}

// Begin stores a new attempt for parsed and moves it out of PARSED. The
// attempt is keyed by the originating message, so a redelivered message
// replaces its own attempt.
func (m *Machine) Begin(ctx context.Context, chatID, messageID string, parsed *parsing.ParsedExpense) (*Transition, error) {
	key := m.newKey()
	if messageID != "" {
		key = KeyFor(chatID, messageID)
	}

	now := m.now()
	a := &Attempt{
		Key:       key,
		ChatID:    chatID,
		Expense:   *parsed,
		State:     StateParsed,
		CreatedAt: now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}

	if m.NeedsCategoryChoice(parsed) {
		a.State = StateAwaitingCategory
		a.Choices = m.Choices(parsed)
	} else {
		a.State = StateAwaitingConfirmation
	}

	if err := m.store.Put(ctx, a); err != nil {
		m.logger.Error("failed to store attempt", "error", err, "chat_id", chatID)
		return nil, errors.NewInternalError("failed to start confirmation", err)
	}

	m.metrics.ObserveTransition(string(a.State))
	m.logger.Debug("attempt started",
		"attempt", a.Key,
		"chat_id", chatID,
		"state", a.State,
		"confidence", parsed.Confidence())

	return &Transition{Attempt: a.clone(), From: StateParsed, To: a.State}, nil
}

// Apply performs action for chatID. Unknown, expired and foreign attempts
// all yield errors.ErrAttemptExpired; an action that does not fit the
// current state yields errors.ErrInvalidAction. A failed commit ends the
// attempt and returns an error carrying the backend's message.
func (m *Machine) Apply(ctx context.Context, chatID string, action Action) (*Transition, error) {
	a, err := m.load(ctx, chatID, action.AttemptKey())
	if err != nil {
		return nil, err
	}

	switch act := action.(type) {
	case SelectCategory:
		return m.selectCategory(ctx, a, act)
	case CancelAttempt, ConfirmCancel:
		return m.cancel(ctx, a, action)
	case ConfirmCommit:
		return m.commit(ctx, a, act)
	}
	return nil, errors.ErrInvalidAction
}

func (m *Machine) load(ctx context.Context, chatID, key string) (*Attempt, error) {
	a, err := m.store.Get(ctx, key)
	if err != nil {
		if stdErrors.Is(err, ErrNotFound) {
			return nil, errors.ErrAttemptExpired
		}
		return nil, errors.NewInternalError("failed to load attempt", err)
	}
	if a.ChatID != chatID {
		m.logger.Warn("attempt used from another chat", "attempt", key, "chat_id", chatID)
		return nil, errors.ErrAttemptExpired
	}
	return a, nil
}

func (m *Machine) selectCategory(ctx context.Context, a *Attempt, act SelectCategory) (*Transition, error) {
	if a.State != StateAwaitingCategory || !a.HasChoice(act.Category) {
		return nil, errors.ErrInvalidAction
	}

	from := a.State
	a.Expense.Category = act.Category
	a.State = StateAwaitingConfirmation
	if err := m.store.Update(ctx, a); err != nil {
		if stdErrors.Is(err, ErrNotFound) {
			return nil, errors.ErrAttemptExpired
		}
		return nil, errors.NewInternalError("failed to update attempt", err)
	}

	m.metrics.ObserveTransition(string(a.State))
	return &Transition{Attempt: a.clone(), From: from, To: a.State, Action: act}, nil
}

func (m *Machine) cancel(ctx context.Context, a *Attempt, act Action) (*Transition, error) {
	taken, err := m.take(ctx, a.Key)
	if err != nil {
		return nil, err
	}

	from := taken.State
	taken.State = StateCancelled
	m.metrics.ObserveTransition(string(taken.State))
	m.logger.Debug("attempt cancelled", "attempt", taken.Key, "chat_id", taken.ChatID, "from", from)
	return &Transition{Attempt: taken, From: from, To: taken.State, Action: act}, nil
}

func (m *Machine) commit(ctx context.Context, a *Attempt, act ConfirmCommit) (*Transition, error) {
	if a.State != StateAwaitingConfirmation {
		return nil, errors.ErrInvalidAction
	}

	taken, err := m.take(ctx, a.Key)
	if err != nil {
		return nil, err
	}
	from := taken.State
	exp := taken.Expense

	result, err := m.expenses.LogExpense(ctx, backend.LogExpenseRequest{
		ChatID:      taken.ChatID,
		Amount:      exp.Amount,
		Category:    exp.Category,
		Description: exp.Description,
		Date:        exp.Date,
	})
	if err != nil {
		taken.State = StateCancelled
		m.metrics.ObserveCommit(false)
		m.metrics.ObserveTransition(string(taken.State))
		m.logger.Warn("expense commit failed", "error", err, "attempt", taken.Key, "chat_id", taken.ChatID)
		return &Transition{Attempt: taken, From: from, To: taken.State, Action: act}, commitError(err)
	}

	taken.State = StateCommitted
	m.metrics.ObserveCommit(true)
	m.metrics.ObserveTransition(string(taken.State))
	m.logger.Info("expense committed",
		"attempt", taken.Key,
		"chat_id", taken.ChatID,
		"amount", exp.Amount.StringFixed(2),
		"category", exp.Category)

	m.recordFeedback(ctx, taken)
	m.publish(ctx, events.NewExpenseLoggedEvent(taken.ChatID, exp.Amount.StringFixed(2), exp.Category, exp.Date))

	return &Transition{Attempt: taken, From: from, To: taken.State, Action: act, Result: result}, nil
}

// recordFeedback never fails the commit it follows.
func (m *Machine) recordFeedback(ctx context.Context, a *Attempt) {
	exp := a.Expense
	fb := backend.CategoryFeedback{
		ChatID:            a.ChatID,
		Text:              exp.Text,
		SuggestedCategory: exp.AISuggestedCategory,
		Confidence:        exp.AIConfidence,
		FinalCategory:     exp.Category,
	}

	if m.feedback != nil {
		if err := m.feedback.RecordCategoryFeedback(ctx, fb); err != nil {
			m.metrics.ObserveFeedbackFailure()
			m.logger.Warn("failed to record category feedback", "error", err, "chat_id", a.ChatID)
		}
	}
	m.publish(ctx, events.NewCategoryFeedbackEvent(fb.ChatID, fb.Text, fb.SuggestedCategory, fb.Confidence, fb.FinalCategory))
}

func (m *Machine) take(ctx context.Context, key string) (*Attempt, error) {
	a, err := m.store.Take(ctx, key)
	if err != nil {
		if stdErrors.Is(err, ErrNotFound) {
			return nil, errors.ErrAttemptExpired
		}
		return nil, errors.NewInternalError("failed to take attempt", err)
	}
	return a, nil
}

func (m *Machine) publish(ctx context.Context, event events.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn("failed to publish event", "type", event.EventType(), "error", err)
	}
}

// Sweep drops expired attempts.
func (m *Machine) Sweep(ctx context.Context) (int, error) {
	n, err := m.store.Sweep(ctx, m.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Info("expired attempts swept", "count", n)
		m.publish(ctx, events.NewAttemptExpiredEvent(n))
	}
	return n, nil
}

// RunSweeper sweeps every interval until ctx is done.
func (m *Machine) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Error("attempt sweep failed", "error", err)
			}
		}
	}
}

func commitError(err error) error {
	if appErr, ok := errors.IsAppError(err); ok {
		return errors.ErrCommitFailed.WithMessage(appErr.GetDetailedMessage()).WithCause(err)
	}
	return errors.ErrCommitFailed.WithCause(err)
}
