package transcode_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/transcode"
)

var _ = Describe("Encode", func() {
	It("escapes double quotes", func() {
		token, ok := transcode.Encode(`He said "hi"`)

		Expect(ok).To(BeTrue())
		Expect(string(token)).To(Equal(`0:"He said \"hi\""` + "\n"))
	})

	It("produces no token for an empty delta", func() {
		token, ok := transcode.Encode("")

		Expect(ok).To(BeFalse())
		Expect(token).To(BeNil())
	})

	It("leaves other characters untouched", func() {
		token, _ := transcode.Encode("line\nbreak \\ tab\t")
		Expect(string(token)).To(Equal("0:\"line\nbreak \\ tab\t\"\n"))
	})
})
