package confirmation_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/confirmation"
)

var _ = Describe("Action", func() {
	DescribeTable("survives encoding",
		func(a confirmation.Action) {
			decoded, err := confirmation.DecodeAction(confirmation.Encode(a))
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(a))
		},
		Entry("category choice", confirmation.SelectCategory{Key: "42-7", Category: "Food & Drink"}),
		Entry("category containing the separator", confirmation.SelectCategory{Key: "42-7", Category: "A|B"}),
		Entry("cancel from choice", confirmation.CancelAttempt{Key: "42-7"}),
		Entry("commit", confirmation.ConfirmCommit{Key: "42-7"}),
		Entry("cancel from confirmation", confirmation.ConfirmCancel{Key: "42-7"}),
	)

	DescribeTable("rejects malformed data",
		func(data string) {
			_, err := confirmation.DecodeAction(data)
			Expect(err).To(MatchError(errors.ErrInvalidAction))
		},
		Entry("empty", ""),
		Entry("no key", "yes|"),
		Entry("unknown prefix", "maybe|42-7"),
		Entry("category missing", "sel|42-7"),
		Entry("blank category", "sel|42-7| "),
		Entry("trailing data on commit", "yes|42-7|extra"),
	)

	It("derives keys from the originating message", func() {
		Expect(confirmation.KeyFor("42", "7")).To(Equal("42-7"))
		Expect(confirmation.KeyFor("42", "")).To(HaveLen(16))
		Expect(confirmation.NewKey()).NotTo(Equal(confirmation.NewKey()))
	})
})
