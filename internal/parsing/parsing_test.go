package parsing_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/category"
	"github.com/frahmantamala/expense-assistant/internal/nlp"
	"github.com/frahmantamala/expense-assistant/internal/parsing"
)

func TestParsing(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Parsing Suite")
}

var (
	processor = nlp.NewProcessor()
	fixedNow  = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type stubClassifier struct {
	prediction category.Prediction
	seen       []string
}

func (s *stubClassifier) Predict(_ context.Context, text string) category.Prediction {
	s.seen = append(s.seen, text)
	return s.prediction
}

var _ = Describe("ExtractAmount", func() {
	DescribeTable("selected amount",
		func(text, want, matched string) {
			amount, got, ok := parsing.ExtractAmount(processor.Process(text))
			Expect(ok).To(BeTrue())
			Expect(amount.Equal(decimal.RequireFromString(want))).To(BeTrue(), "amount %s", amount)
			Expect(got).To(Equal(matched))
		},
		Entry("currency symbol", "$10.50 for coffee", "10.50", "$10.50"),
		Entry("currency word", "paid 15 dollars for parking", "15", "15 dollars"),
		Entry("thousands separator", "rent €1,200.00", "1200.00", "€1,200.00"),
		Entry("number inside a date is skipped", "May 5 lunch 12", "12", "12"),
		Entry("bare cardinal", "lunch 8 with friends", "8", "8"),
		Entry("fraction without a leading digit", "$.50 for gum", "0.50", "$.50"),
	)

	It("rejects text without a positive amount", func() {
		_, _, ok := parsing.ExtractAmount(processor.Process("lunch yesterday"))
		Expect(ok).To(BeFalse())

		_, _, ok = parsing.ExtractAmount(processor.Process("coffee 0"))
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("DateResolver", func() {
	var resolver *parsing.DateResolver

	BeforeEach(func() {
		resolver = parsing.NewDateResolver(time.UTC, func() time.Time { return fixedNow })
	})

	DescribeTable("resolved day",
		func(text string, want time.Time) {
			Expect(resolver.Resolve("", processor.Process(text))).To(Equal(want))
		},
		Entry("yesterday", "lunch 12 yesterday", day(2026, 10, 14)),
		Entry("today", "coffee 3 today", day(2026, 10, 15)),
		Entry("iso date", "taxi 30 on 2024-03-15", day(2024, 3, 15)),
		Entry("month day year", "hotel 200 on March 3, 2024", day(2024, 3, 3)),
		Entry("month day in current year", "May 5 lunch 12", day(2026, 5, 5)),
		Entry("day of month", "books 40 on 3rd of March", day(2026, 3, 3)),
		Entry("unparseable phrase falls back to today", "gym 50 last week", day(2026, 10, 15)),
		Entry("no date at all", "coffee 3", day(2026, 10, 15)),
	)

	It("prefers an explicit date", func() {
		Expect(resolver.Resolve("2025-01-02", processor.Process("lunch 5 yesterday"))).To(Equal(day(2025, 1, 2)))
	})

	It("takes today in the configured zone", func() {
		west := time.FixedZone("UTC-8", -8*60*60)
		early := time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC)
		r := parsing.NewDateResolver(west, func() time.Time { return early })
		Expect(r.Today()).To(Equal(day(2026, 10, 14)))
	})
})

var _ = Describe("Text normalizer", func() {
	DescribeTable("residual description",
		func(text, amountText, want string) {
			Expect(parsing.NormalizeDescription(text, amountText, processor.Process(text))).To(Equal(want))
		},
		Entry("amount, date and filler removed", "$20 for lunch yesterday", "$20", "lunch"),
		Entry("leading verb removed", "spent $20 on lunch yesterday at the new cafe", "$20", "lunch at the new cafe"),
		Entry("currency words removed with the amount", "paid 15 dollars for parking", "15 dollars", "parking"),
		Entry("nothing left", "$5 yesterday", "$5", parsing.Placeholder),
		Entry("bare fraction removed whole", "$.50 for gum", "$.50", "gum"),
	)

	DescribeTable("is idempotent",
		func(s string) {
			once := parsing.CleanDescription(s)
			Expect(parsing.CleanDescription(once)).To(Equal(once))
		},
		Entry("fillers both ends", "  for lunch at "),
		Entry("nested fillers", "spent on for coffee for"),
		Entry("empty", ""),
		Entry("placeholder", parsing.Placeholder),
		Entry("plain", "new running shoes"),
	)

	It("truncates long descriptions with an ellipsis", func() {
		Expect(parsing.TruncateForDisplay("abcdefghij", 8)).To(Equal("abcde..."))
		Expect(parsing.TruncateForDisplay("short", 8)).To(Equal("short"))
	})
})

var _ = Describe("ParsePeriod", func() {
	today := day(2026, 10, 15)

	It("defaults to this month", func() {
		p, ok := parsing.ParsePeriod("", today)
		Expect(ok).To(BeFalse())
		Expect(p.Start).To(Equal(day(2026, 10, 1)))
		Expect(p.End).To(Equal(day(2026, 11, 1).Add(-time.Millisecond)))
		Expect(p.Label).To(Equal("This Month (October 2026)"))
	})

	It("understands last month across a year boundary", func() {
		p, ok := parsing.ParsePeriod("Last Month", day(2026, 1, 10))
		Expect(ok).To(BeTrue())
		Expect(p.Start).To(Equal(day(2025, 12, 1)))
		Expect(p.Label).To(Equal("Last Month (December 2025)"))
		Expect(p.Key).To(Equal("2025-12_last_month"))
	})

	DescribeTable("explicit months",
		func(s string, start time.Time, key string) {
			p, ok := parsing.ParsePeriod(s, today)
			Expect(ok).To(BeTrue())
			Expect(p.Start).To(Equal(start))
			Expect(p.Key).To(Equal(key))
		},
		Entry("month and year", "October 2023", day(2023, 10, 1), "October_2023"),
		Entry("month only", "march", day(2026, 3, 1), "march"),
		Entry("iso month", "2023-10", day(2023, 10, 1), "2023-10"),
		Entry("slash month", "10/2023", day(2023, 10, 1), "10-2023"),
	)

	It("falls back to this month for unknown phrases", func() {
		p, ok := parsing.ParsePeriod("someday", today)
		Expect(ok).To(BeFalse())
		Expect(p.Start).To(Equal(day(2026, 10, 1)))
		Expect(parsing.IsPeriod("someday", today)).To(BeFalse())
	})
})

var _ = Describe("Pipeline", func() {
	var (
		classifier *stubClassifier
		pipeline   *parsing.Pipeline
	)

	BeforeEach(func() {
		classifier = &stubClassifier{}
		pipeline = parsing.NewPipeline(
			processor,
			classifier,
			parsing.NewDateResolver(time.UTC, func() time.Time { return fixedNow }),
			"Other",
			slog.New(slog.NewTextHandler(io.Discard, nil)),
			nil,
		)
	})

	It("extracts a complete expense", func() {
		classifier.prediction = category.Prediction{Category: "Food & Drink", Confidence: 0.9, OK: true}

		parsed, err := pipeline.Parse(context.Background(), "$20 for lunch yesterday")
		Expect(err).ToNot(HaveOccurred())
		Expect(parsed.Amount.StringFixed(2)).To(Equal("20.00"))
		Expect(parsed.Description).To(Equal("lunch"))
		Expect(parsed.Day()).To(Equal(day(2026, 10, 14)))
		Expect(parsed.Category).To(Equal("Food & Drink"))
		Expect(parsed.HasSuggestion()).To(BeTrue())
		Expect(parsed.Confidence()).To(Equal(0.9))
		Expect(classifier.seen).To(Equal([]string{"lunch"}))
	})

	It("falls back to the default category without a prediction", func() {
		classifier.prediction = category.NoPrediction()

		parsed, err := pipeline.Parse(context.Background(), "12 for something")
		Expect(err).ToNot(HaveOccurred())
		Expect(parsed.Category).To(Equal("Other"))
		Expect(parsed.HasSuggestion()).To(BeFalse())
		Expect(parsed.Confidence()).To(BeZero())
	})

	It("does not classify an empty residual", func() {
		parsed, err := pipeline.Parse(context.Background(), "$5 yesterday")
		Expect(err).ToNot(HaveOccurred())
		Expect(parsed.Description).To(Equal(parsing.Placeholder))
		Expect(classifier.seen).To(Equal([]string{""}))
	})

	It("stops when there is no amount", func() {
		_, err := pipeline.Parse(context.Background(), "lunch yesterday")
		Expect(err).To(MatchError(internal.ErrAmountNotFound))
		Expect(classifier.seen).To(BeEmpty())
	})
})
