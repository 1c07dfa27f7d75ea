package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/frahmantamala/expense-assistant/internal/metrics"
)

func TestMetrics(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Metrics Suite")
}

var _ = Describe("Metrics", func() {
	It("is safe to use when nil", func() {
		var m *metrics.Metrics
		Expect(func() {
			m.ObserveParse("parsed")
			m.ObserveClassification("keyword", true, time.Millisecond)
			m.ObserveTransition("CONFIRMED")
			m.ObserveCommit(false)
			m.ObserveFeedbackFailure()
			m.ObserveCommand("/log")
		}).ToNot(Panic())
	})

	It("counts by label", func() {
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		m.ObserveCommit(true)
		m.ObserveCommit(true)
		m.ObserveCommit(false)
		m.ObserveFeedbackFailure()

		expected := `
# HELP expense_assistant_commits_total Expense persistence calls by result.
# TYPE expense_assistant_commits_total counter
expense_assistant_commits_total{result="failure"} 1
expense_assistant_commits_total{result="success"} 2
`
		Expect(testutil.GatherAndCompare(reg, strings.NewReader(expected), "expense_assistant_commits_total")).To(Succeed())
		Expect(testutil.GatherAndCount(reg, "expense_assistant_feedback_failures_total")).To(Equal(1))
	})

	It("serves its own registry", func() {
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		m.ObserveCommand("/summary")

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body, _ := io.ReadAll(rec.Body)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`expense_assistant_chat_commands_total{command="/summary"} 1`))
		Expect(string(body)).ToNot(ContainSubstring("go_goroutines"))
	})
})
