package validation_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/core/common/validation"
)

func TestValidation(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Validation Suite")
}

func fieldCodes(appErr *errors.AppError) []string {
	details, ok := appErr.Details.(errors.ValidationErrors)
	Expect(ok).To(BeTrue())
	codes := make([]string, len(details.Errors))
	for i, e := range details.Errors {
		codes[i] = e.Code
	}
	return codes
}

var _ = Describe("Validation", func() {
	Describe("ValidateExpenseAmount", func() {
		It("accepts positive amounts up to the cap", func() {
			Expect(validation.ValidateExpenseAmount(decimal.RequireFromString("0.01"))).To(BeNil())
			Expect(validation.ValidateExpenseAmount(validation.MaxAmount)).To(BeNil())
		})

		DescribeTable("rejects",
			func(v string) {
				appErr := validation.ValidateExpenseAmount(decimal.RequireFromString(v))
				Expect(appErr).ToNot(BeNil())
				Expect(appErr.Type).To(Equal(errors.ErrorTypeValidation))
				Expect(fieldCodes(appErr)).To(ConsistOf(string(errors.ErrCodeInvalidAmount)))
			},
			Entry("zero", "0"),
			Entry("negative", "-5"),
			Entry("over the cap", "10000000.01"),
		)
	})

	Describe("ValidateExpenseDescription", func() {
		It("requires a description", func() {
			appErr := validation.ValidateExpenseDescription("  ")
			Expect(appErr).ToNot(BeNil())
			Expect(appErr.Error()).To(Equal("description is required"))
		})

		It("limits the length in characters", func() {
			long := make([]rune, validation.MaxDescriptionLength)
			for i := range long {
				long[i] = 'é'
			}
			Expect(validation.ValidateExpenseDescription(string(long))).To(BeNil())
			Expect(validation.ValidateExpenseDescription(string(long) + "x")).ToNot(BeNil())
		})
	})

	Describe("ValidateRecentLimit", func() {
		It("accepts the inclusive bounds", func() {
			Expect(validation.ValidateRecentLimit(1)).To(BeNil())
			Expect(validation.ValidateRecentLimit(50)).To(BeNil())
		})

		It("rejects values outside them", func() {
			Expect(validation.ValidateRecentLimit(0)).ToNot(BeNil())
			Expect(fieldCodes(validation.ValidateRecentLimit(51))).To(ConsistOf(string(errors.ErrCodeInvalidLimit)))
		})
	})

	Describe("ValidateCredentials", func() {
		It("accepts a valid pair", func() {
			Expect(validation.ValidateCredentials("alice", "secret1")).To(BeNil())
		})

		It("collects every failing field", func() {
			appErr := validation.ValidateCredentials("a b", "123")
			Expect(appErr).ToNot(BeNil())
			Expect(fieldCodes(appErr)).To(ConsistOf(
				string(errors.ErrCodeInvalidUsername),
				string(errors.ErrCodeInvalidPassword),
			))
			Expect(appErr.GetDetailedMessage()).To(ContainSubstring("; "))
		})
	})
})
