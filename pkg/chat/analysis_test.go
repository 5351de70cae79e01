package chat_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reviewagent/revchat/pkg/chat"
)

var _ = Describe("ParseAnalysis", func() {
	It("splits problem and root cause", func() {
		a, err := chat.ParseAnalysis("  timeout on login | pool exhausted ")
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(chat.Analysis{Problem: "timeout on login", RootCause: "pool exhausted"}))
	})

	It("rejects input without both halves", func() {
		_, err := chat.ParseAnalysis("just a problem")
		Expect(err).To(HaveOccurred())

		_, err = chat.ParseAnalysis(" | cause")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Framing", func() {
	It("falls back to the defaults when empty", func() {
		f := chat.Framing{}
		a := chat.Analysis{Problem: "p", RootCause: "r"}

		Expect(f.Context(a)).To(Equal(chat.DefaultFraming().Context(a)))
		Expect(f.Ack()).To(Equal(chat.DefaultAcknowledgement))
	})
})
