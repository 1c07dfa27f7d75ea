package chat_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/backend"
	"github.com/frahmantamala/expense-assistant/internal/category"
	"github.com/frahmantamala/expense-assistant/internal/chat"
	"github.com/frahmantamala/expense-assistant/internal/classifier"
	"github.com/frahmantamala/expense-assistant/internal/confirmation"
	"github.com/frahmantamala/expense-assistant/internal/intent"
	"github.com/frahmantamala/expense-assistant/internal/nlp"
	"github.com/frahmantamala/expense-assistant/internal/parsing"
)

const chatID = "1000"

var (
	discard = slog.New(slog.NewTextHandler(io.Discard, nil))
	today   = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
)

func buttonData(r chat.Reply) []string {
	var out []string
	for _, row := range r.Buttons {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}

func buttonLabels(r chat.Reply) []string {
	var out []string
	for _, row := range r.Buttons {
		for _, b := range row {
			out = append(out, b.Label)
		}
	}
	return out
}

// pressLabel returns the callback data of the button whose label contains s.
func pressLabel(r chat.Reply, s string) string {
	for _, row := range r.Buttons {
		for _, b := range row {
			if strings.Contains(b.Label, s) {
				return b.Data
			}
		}
	}
	Fail("no button labelled " + s)
	return ""
}

var _ = Describe("Service", func() {
	var (
		fake    *fakeBackend
		cls     category.Classifier
		store   *confirmation.MemoryStore
		svc     *chat.Service
		ctx     context.Context
		message func(text string) []chat.Reply
		press   func(data string) []chat.Reply
	)

	build := func() {
		clock := func() time.Time { return today }
		processor := nlp.NewProcessor()
		table := category.DefaultTable()
		dates := parsing.NewDateResolver(time.UTC, clock)
		store = confirmation.NewMemoryStore(clock)

		machine := confirmation.NewMachine(confirmation.Config{
			DefaultCategory:  table.Default,
			CommonCategories: []string{"Food & Drink", "Transport", "Shopping"},
		}, confirmation.Deps{
			Store:    store,
			Expenses: fake,
			Feedback: fake,
			Logger:   discard,
			Now:      clock,
		})

		svc = chat.NewService(chat.Deps{
			Parser:     parsing.NewPipeline(processor, cls, dates, table.Default, discard, nil),
			Intent:     intent.NewClassifier(processor, discard),
			Machine:    machine,
			Backend:    fake,
			Categories: table,
			Dates:      dates,
			Logger:     discard,
			Now:        clock,
		})
	}

	BeforeEach(func() {
		fake = &fakeBackend{}
		cls = category.NewKeywordClassifier(category.DefaultTable(), nlp.NewProcessor())
		ctx = context.Background()

		seq := 0
		message = func(text string) []chat.Reply {
			seq++
			replies, err := svc.HandleMessage(ctx, chat.Message{ChatID: chatID, MessageID: strings.Repeat("m", seq), Text: text})
			Expect(err).NotTo(HaveOccurred())
			return replies
		}
		press = func(data string) []chat.Reply {
			replies, err := svc.HandleAction(ctx, chatID, data)
			Expect(err).NotTo(HaveOccurred())
			return replies
		}
	})

	JustBeforeEach(func() {
		build()
	})

	Describe("logging an expense", func() {
		It("commits exactly once after confirmation", func() {
			replies := message("/log $20 for lunch yesterday")
			Expect(replies).To(HaveLen(1))
			prompt := replies[0]
			Expect(prompt.Text).To(ContainSubstring("💰 Amount: $20.00"))
			Expect(prompt.Text).To(ContainSubstring("🏷️ Category: Food & Drink"))
			Expect(prompt.Text).To(ContainSubstring("📝 Description: lunch"))
			Expect(prompt.Text).To(ContainSubstring("🗓️ Date: 2026-10-14 (Wednesday)"))
			Expect(prompt.Replace).To(BeFalse())
			Expect(buttonLabels(prompt)).To(Equal([]string{"✅ Yes, Log It!", "❌ No, Cancel"}))

			commit := pressLabel(prompt, "Yes")
			done := press(commit)
			Expect(done).To(HaveLen(1))
			Expect(done[0].Replace).To(BeTrue())
			Expect(done[0].Text).To(HavePrefix("✅ Expense logged successfully!"))

			Expect(fake.logged).To(HaveLen(1))
			Expect(fake.logged[0].ChatID).To(Equal(chatID))
			Expect(fake.logged[0].Amount.Equal(decimal.NewFromInt(20))).To(BeTrue())
			Expect(fake.logged[0].Description).To(Equal("lunch"))
			Expect(fake.logged[0].Date).To(Equal(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC).UnixMilli()))
			Expect(fake.feedback).To(HaveLen(1))
			Expect(*fake.feedback[0].SuggestedCategory).To(Equal("Food & Drink"))
			Expect(fake.feedback[0].FinalCategory).To(Equal("Food & Drink"))

			again := press(commit)
			Expect(again[0].Text).To(Equal("Sorry, something went wrong or this request expired."))
			Expect(fake.logged).To(HaveLen(1))
		})

		It("rejects text without an amount and calls nothing", func() {
			replies := message("/log lunch yesterday")
			Expect(replies).To(HaveLen(1))
			Expect(replies[0].Text).To(HavePrefix("Could not determine a valid positive amount."))
			Expect(store.Len()).To(BeZero())
			Expect(fake.logged).To(BeEmpty())
			Expect(fake.feedback).To(BeEmpty())
		})

		It("explains /log without arguments", func() {
			replies := message("/log")
			Expect(replies[0].Text).To(HavePrefix("Please provide expense details after /log."))
		})

		It("accepts command mentions of a bot", func() {
			replies := message("/log@expense_bot 5 coffee")
			Expect(replies[0].Buttons).NotTo(BeEmpty())
		})

		It("recognizes expenses without a command", func() {
			replies := message("I spent $12 on a taxi")
			Expect(replies).To(HaveLen(1))
			Expect(replies[0].Text).To(ContainSubstring("Category: Transport"))
		})

		It("ignores small talk", func() {
			Expect(message("hello there")).To(BeEmpty())
			Expect(message("/unknown")).To(BeEmpty())
		})

		It("cancels from the final prompt", func() {
			prompt := message("/log 7 coffee")[0]
			replies := press(pressLabel(prompt, "No, Cancel"))
			Expect(replies[0].Text).To(Equal("Logging cancelled. Feel free to try again with /log."))
			Expect(fake.logged).To(BeEmpty())
		})

		It("reports a backend failure on commit", func() {
			fake.logErr = errors.ErrUserNotFound
			prompt := message("/log 7 coffee")[0]
			replies := press(pressLabel(prompt, "Yes"))
			Expect(replies[0].Text).To(Equal("⚠️ Error: " + errors.ErrUserNotFound.Message))
			Expect(fake.feedback).To(BeEmpty())
			Expect(store.Len()).To(BeZero())
		})

		It("refuses buttons pressed in another chat", func() {
			prompt := message("/log 7 coffee")[0]
			replies, err := svc.HandleAction(ctx, "other", pressLabel(prompt, "Yes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(replies[0].Text).To(Equal("Sorry, something went wrong or this request expired."))
			Expect(fake.logged).To(BeEmpty())
		})

		It("answers undecodable button data", func() {
			replies := press("garbage")
			Expect(replies[0].Text).To(Equal("Sorry, I didn't understand that action."))
		})
	})

	Describe("with the remote classifier", func() {
		var (
			server *httptest.Server
			mu     sync.Mutex
			texts  []string
		)

		seen := func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), texts...)
		}

		BeforeEach(func() {
			texts = nil
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body struct {
					Text string `json:"text"`
				}
				_ = json.NewDecoder(r.Body).Decode(&body)
				mu.Lock()
				texts = append(texts, body.Text)
				mu.Unlock()
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"predicted_category":"Food & Drink","confidence":0.9}`))
			}))
			cls = classifier.NewClient(classifier.Config{BaseURL: server.URL, Timeout: time.Second}, nil, discard)
		})

		AfterEach(func() {
			server.Close()
		})

		It("confirms a confident prediction and commits it once", func() {
			prompt := message("/log $20 for lunch yesterday")[0]
			Expect(seen()).To(Equal([]string{"lunch"}))
			Expect(prompt.Text).To(ContainSubstring("🏷️ Category: Food & Drink"))
			Expect(buttonLabels(prompt)).To(Equal([]string{"✅ Yes, Log It!", "❌ No, Cancel"}))

			commit := pressLabel(prompt, "Yes")
			Expect(press(commit)[0].Text).To(HavePrefix("✅ Expense logged successfully!"))
			press(commit)

			Expect(fake.logged).To(HaveLen(1))
			Expect(fake.logged[0].Category).To(Equal("Food & Drink"))
			Expect(fake.logged[0].Amount.Equal(decimal.NewFromInt(20))).To(BeTrue())
			Expect(fake.logged[0].Date).To(Equal(time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC).UnixMilli()))
			Expect(fake.feedback).To(HaveLen(1))
			Expect(fake.feedback[0].Text).To(Equal("lunch"))
			Expect(*fake.feedback[0].SuggestedCategory).To(Equal("Food & Drink"))
			Expect(*fake.feedback[0].Confidence).To(BeNumerically("~", 0.9))
			Expect(fake.feedback[0].FinalCategory).To(Equal("Food & Drink"))
		})
	})

	Describe("when the classifier is unavailable", func() {
		var server *httptest.Server

		BeforeEach(func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			}))
			cls = classifier.NewClient(classifier.Config{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil, discard)
		})

		AfterEach(func() {
			server.Close()
		})

		It("asks for a category and offers the default", func() {
			replies := message("/log $15 for something odd")
			Expect(replies).To(HaveLen(1))
			choice := replies[0]
			Expect(choice.Text).To(HavePrefix("🤖 My AI couldn't determine a category for: 'something odd'."))
			Expect(buttonLabels(choice)).To(ContainElement("Other"))
			Expect(buttonLabels(choice)).To(ContainElement("❌ Cancel Log"))
			Expect(buttonData(choice)).To(HaveLen(5))

			final := press(pressLabel(choice, "Transport"))
			Expect(final).To(HaveLen(1))
			Expect(final[0].Replace).To(BeTrue())
			Expect(final[0].Text).To(ContainSubstring("🏷️ Category: Transport"))

			press(pressLabel(final[0], "Yes"))
			Expect(fake.logged).To(HaveLen(1))
			Expect(fake.logged[0].Category).To(Equal("Transport"))
			Expect(fake.feedback).To(HaveLen(1))
			Expect(fake.feedback[0].SuggestedCategory).To(BeNil())
			Expect(fake.feedback[0].FinalCategory).To(Equal("Transport"))
		})

		It("cancels from the category prompt", func() {
			choice := message("/log $15 for something odd")[0]
			replies := press(pressLabel(choice, "Cancel Log"))
			Expect(replies[0].Text).To(Equal("Logging cancelled as requested."))
			Expect(fake.logged).To(BeEmpty())
		})
	})

	Describe("queries", func() {
		It("summarizes a category and period", func() {
			fake.summary = backend.Summary{Count: 2, TotalAmount: decimal.RequireFromString("9.99"), Category: "Food & Drink"}
			replies := message("/summary food & drink last month")
			Expect(replies).To(HaveLen(2))
			Expect(replies[0].Text).To(Equal("Fetching summary for Last Month (September 2026) in category 'Food & Drink'..."))
			Expect(replies[1].Text).To(Equal("📊 Expense Summary for Last Month (September 2026):\nCategory: Food & Drink\nTotal Expenses: 2\nTotal Amount: $9.99"))

			req := fake.summaries[0]
			Expect(req.Category).To(Equal("Food & Drink"))
			Expect(req.Start).To(Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC).UnixMilli()))
			Expect(req.End).To(Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC).UnixMilli() - 1))
		})

		It("defaults the summary to this month", func() {
			fake.summary = backend.Summary{TotalAmount: decimal.Zero}
			replies := message("/summary")
			Expect(replies[1].Text).To(HavePrefix("📊 Expense Summary for This Month (October 2026):"))
			Expect(fake.summaries[0].Category).To(BeEmpty())
		})

		It("summarizes one category with /category", func() {
			fake.summary = backend.Summary{TotalAmount: decimal.Zero}
			replies := message("/category Shopping October 2025")
			Expect(replies[0].Text).To(Equal("Fetching summary for category 'Shopping' in October 2025..."))
			Expect(replies[1].Text).To(HaveSuffix("No expenses found for this category in the specified period."))
			Expect(fake.summaries[0].Start).To(Equal(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC).UnixMilli()))

			Expect(message("/category")[0].Text).To(HavePrefix("Please specify a category"))
		})

		It("capitalizes an unknown category by its first letter", func() {
			fake.summary = backend.Summary{TotalAmount: decimal.Zero}
			message("/category éPICERIE last month")
			Expect(fake.summaries).To(HaveLen(1))
			Expect(fake.summaries[0].Category).To(Equal("Épicerie"))
			Expect(fake.summaries[0].Start).To(Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC).UnixMilli()))
		})

		It("lists recent expenses within the limit", func() {
			Expect(message("/details abc")[0].Text).To(Equal("Invalid limit. Please provide a number (e.g., /details 10)."))
			Expect(message("/details 51")[0].Text).To(Equal("Please provide a limit between 1 and 50."))
			Expect(fake.recent).To(BeEmpty())

			replies := message("/details")
			Expect(fake.recent).To(Equal([]int{5}))
			Expect(replies[1].Text).To(Equal("You have no expenses logged yet."))

			fake.rows = []backend.Expense{{Amount: decimal.RequireFromString("3.5"), Category: "Gift", Description: "card", Date: time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC).UnixMilli()}}
			replies = message("/details 10")
			Expect(replies[0].Text).To(Equal("Fetching your last 10 expenses..."))
			Expect(replies[1].Text).To(ContainSubstring("🗓️ Date: 2026-10-02 (Fri)\n💰 Amount: $3.50\n🏷️ Category: Gift\n📝 Desc: card"))
		})

		It("tells unregistered users to register", func() {
			fake.queryErr = errors.ErrUserNotFound
			replies := message("/summary")
			Expect(replies[1].Text).To(Equal(errors.ErrUserNotFound.Message))
		})
	})

	Describe("reports", func() {
		It("sends no document for an empty period", func() {
			replies := message("/report last month")
			Expect(replies).To(HaveLen(2))
			Expect(replies[0].Text).To(Equal("Generating your expense report for last month..."))
			Expect(replies[1].Text).To(Equal("No expenses found for the period: last month."))
			Expect(replies[1].Document).To(BeNil())
		})

		It("attaches a CSV document", func() {
			fake.rows = []backend.Expense{
				{Amount: decimal.RequireFromString("12"), Category: "Food & Drink", Description: "lunch, with team", Date: time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC).UnixMilli()},
			}
			replies := message("/report last month")
			Expect(replies).To(HaveLen(2))
			doc := replies[1].Document
			Expect(doc).NotTo(BeNil())
			Expect(doc.FileName).To(Equal("expense_report_2026-09_last_month.csv"))
			Expect(doc.ContentType).To(Equal("text/csv"))
			Expect(string(doc.Content)).To(Equal("Date,Category,Amount,Description\n2026-09-03,Food & Drink,12.00,\"lunch, with team\"\n"))
		})

		It("rejects periods it cannot read", func() {
			replies := message("/report someday")
			Expect(replies).To(HaveLen(1))
			Expect(replies[0].Text).To(HavePrefix("Sorry, I couldn't understand that period."))
		})
	})

	Describe("registration", func() {
		It("walks through username and password", func() {
			Expect(message("/start")[0].Text).To(HavePrefix("Welcome to the Expense Bot!"))
			Expect(message("al")[0].Text).To(Equal("Username must be at least 3 characters long. Please try again:"))
			Expect(message("alice")[0].Text).To(HavePrefix("Great, username 'alice' noted."))
			Expect(message("123")[0].Text).To(Equal("Password must be at least 6 characters. Please try again:"))

			replies := message("secret1")
			Expect(replies).To(HaveLen(2))
			Expect(replies[0].Text).To(Equal("Attempting to register you... Please wait."))
			Expect(replies[1].Text).To(HavePrefix("Registration successful! Welcome, alice!"))
			Expect(fake.registered).To(Equal([]backend.RegisterUserRequest{{Username: "alice", Password: "secret1", ChatID: chatID}}))

			Expect(message("hello there")).To(BeEmpty())
		})

		It("reports a taken username and ends the registration", func() {
			fake.registerErr = errors.ErrUsernameTaken
			message("/register")
			message("alice")
			replies := message("secret1")
			Expect(replies[1].Text).To(Equal("This username is already taken. Please try /start again with a different username."))
			Expect(message("/cancel")[0].Text).To(Equal("There is nothing to cancel."))
		})

		It("can be cancelled", func() {
			message("/start")
			Expect(message("/cancel")[0].Text).To(Equal("Registration cancelled. Type /start if you want to try again."))
			Expect(message("alice")).To(BeEmpty())
		})

		It("lets commands through while registering", func() {
			message("/start")
			replies := message("/log 5 coffee")
			Expect(replies[0].Buttons).NotTo(BeEmpty())
		})
	})
})

var _ = Describe("RenderCSV", func() {
	It("writes only the header for no rows", func() {
		out, err := chat.RenderCSV(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(out)).To(Equal("Date,Category,Amount,Description\n"))
	})
})
