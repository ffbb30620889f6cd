package transcode_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/transcode"
)

var _ = Describe("Extractor", func() {
	var extractor *transcode.Extractor

	BeforeEach(func() {
		extractor = transcode.NewStreamExtractor()
	})

	DescribeTable("stream record shapes",
		func(record, want string) {
			delta, err := extractor.Extract(record)
			Expect(err).NotTo(HaveOccurred())
			Expect(delta).To(Equal(want))
		},
		Entry("openai chunk", `{"choices":[{"delta":{"content":"Hi"}}]}`, "Hi"),
		Entry("top level delta", `{"delta":{"content":"Yo"}}`, "Yo"),
		Entry("content", `{"content":"X"}`, "X"),
		Entry("text", `{"text":"T"}`, "T"),
		Entry("no known field", `{"role":"assistant"}`, ""),
		Entry("blank record", "", ""),
		Entry("whitespace record", " \t\r", ""),
		Entry("choices wins over content", `{"content":"late","choices":[{"delta":{"content":"first"}}]}`, "first"),
		Entry("delta wins over text", `{"text":"late","delta":{"content":"first"}}`, "first"),
		Entry("content wins over text", `{"text":"late","content":"first"}`, "first"),
		Entry("null falls through", `{"choices":[{"delta":{"content":null}}],"content":"next"}`, "next"),
		Entry("number stops the search", `{"content":5,"text":"t"}`, "5"),
		Entry("boolean stops the search", `{"delta":{"content":false},"text":"t"}`, "false"),
		Entry("object stops the search", `{"content":{"a":1},"text":"t"}`, `{"a":1}`),
		Entry("empty string is a value", `{"content":"","text":"t"}`, ""),
		Entry("escaped characters", `{"content":"a\"b\\nc"}`, "a\"b\\nc"),
		Entry("surrounding whitespace", " {\"text\":\"T\"}\r", "T"),
	)

	DescribeTable("records that are not JSON",
		func(record string) {
			delta, err := extractor.Extract(record)
			Expect(delta).To(BeEmpty())
			Expect(err).To(MatchError(transcode.ErrMalformedRecord))
		},
		Entry("plain text", "not json"),
		Entry("event-stream data line", `data: {"content":"X"}`),
		Entry("event-stream done sentinel", "data: [DONE]"),
		Entry("event-stream comment", `: {"content":"X"}`),
		Entry("event-stream field", `event: {"content":"X"}`),
		Entry("truncated object", `{"content":"A`),
	)

	It("reports malformed records without failing hard", func() {
		delta, err := extractor.Extract("not json")

		Expect(delta).To(BeEmpty())
		Expect(err).To(MatchError(transcode.ErrMalformedRecord))
		Expect(err.Error()).To(ContainSubstring("not json"))
	})

	It("keeps the path order it was built with", func() {
		Expect(extractor.Paths()).To(Equal([]string{
			"choices.0.delta.content",
			"delta.content",
			"content",
			"text",
		}))
	})

	It("does not share its path slice with the caller", func() {
		paths := []string{"a", "b"}
		e := transcode.NewExtractor(paths...)
		paths[0] = "z"

		Expect(e.Paths()).To(Equal([]string{"a", "b"}))
	})

	Describe("fallback paths", func() {
		BeforeEach(func() {
			extractor = transcode.NewExtractor(transcode.FallbackPaths...)
		})

		DescribeTable("payload shapes",
			func(payload, want string) {
				reply, err := extractor.ExtractBytes([]byte(payload))
				Expect(err).NotTo(HaveOccurred())
				Expect(reply).To(Equal(want))
			},
			Entry("message", `{"message":"m","content":"c"}`, "m"),
			Entry("content", `{"content":"c","text":"t"}`, "c"),
			Entry("text", `{"text":"t"}`, "t"),
			Entry("openai completion", `{"choices":[{"message":{"content":"o"}}]}`, "o"),
			Entry("nothing", `{}`, ""),
			Entry("non-string message", `{"message":42,"content":"c"}`, "42"),
			Entry("null message falls through", `{"message":null,"content":"c"}`, "c"),
		)

		It("rejects a payload that is not JSON", func() {
			_, err := extractor.ExtractBytes([]byte("<html>"))
			Expect(err).To(MatchError(transcode.ErrMalformedRecord))
		})
	})
})
