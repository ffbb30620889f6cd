package relay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/storage"
	"github.com/papercomputeco/chatrelay/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/chatrelay/pkg/utils/test"
)

// streamingUpstream writes each chunk and flushes it, so chunk boundaries
// reach the relay as separate reads.
func streamingUpstream(rec *upstreamRecorder, contentType string, chunks ...string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.Header().Set("Content-Type", contentType)
		flusher, ok := w.(http.Flusher)
		Expect(ok).To(BeTrue())

		for _, chunk := range chunks {
			fmt.Fprint(w, chunk)
			flusher.Flush()
		}
	}))
}

var _ = Describe("Chat route", func() {
	var (
		r         *Relay
		driver    *inmemory.Driver
		publisher *testutils.MockPublisher
		upstream  *httptest.Server
		rec       *upstreamRecorder
	)

	BeforeEach(func() {
		rec = &upstreamRecorder{}
	})

	AfterEach(func() {
		if r != nil {
			r.Close()
			r = nil
		}
		if upstream != nil {
			upstream.Close()
			upstream = nil
		}
	})

	Context("validation", func() {
		BeforeEach(func() {
			upstream = streamingUpstream(rec, "application/x-ndjson", `{"content":"never"}`+"\n")
			r, driver, _ = newTestRelay(upstream.URL)
		})

		DescribeTable("rejects before calling the upstream",
			func(token, body string, status int, msg string) {
				resp, err := r.server.Test(chatRequest(token, body), -1)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(status))

				var payload llm.ErrorResponse
				Expect(json.Unmarshal([]byte(readBody(resp)), &payload)).To(Succeed())
				Expect(payload.Error).To(Equal(msg))

				Expect(rec.Requests()).To(BeEmpty())
				Eventually(transcripts(driver)).Should(ConsistOf(
					HaveField("Status", storage.StatusRejected),
				))
			},
			Entry("missing token", "", helloChat, http.StatusUnauthorized, "Token is required"),
			Entry("missing token wins over missing messages", "", `{}`, http.StatusUnauthorized, "Token is required"),
			Entry("empty messages", "tok", `{"messages":[]}`, http.StatusBadRequest, "Messages are required"),
			Entry("no messages field", "tok", `{}`, http.StatusBadRequest, "Messages are required"),
			Entry("unparseable body", "tok", `{"messages":`, http.StatusBadRequest, "Invalid request body"),
			Entry("non-text content", "tok", `{"messages":[{"role":"user","content":[{"type":"text"}]}]}`, http.StatusBadRequest, "Invalid request body"),
		)
	})

	Context("when the upstream streams NDJSON", func() {
		BeforeEach(func() {
			upstream = streamingUpstream(rec, "application/x-ndjson",
				`{"choices":[{"delta":{"content":"Hel`,
				`lo"}}]}`+"\n"+`{"content":"He said \"hi\""}`+"\n",
				"not json\n\n",
				`{"delta":{"content":""}}`+"\n",
				`{"text":"!"}`+"\n",
			)
			r, driver, publisher = newTestRelay(upstream.URL)
		})

		It("transcodes every complete record into one token", func() {
			resp, err := r.server.Test(chatRequest("tok", helloChat), -1)
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/plain; charset=utf-8"))
			Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))

			Expect(readBody(resp)).To(Equal(
				`0:"Hello"` + "\n" +
					`0:"He said \"hi\""` + "\n" +
					`0:"!"` + "\n",
			))
		})

		It("forwards the conversation with the bearer token", func() {
			resp, err := r.server.Test(chatRequest("tok", helloChat), -1)
			Expect(err).NotTo(HaveOccurred())
			readBody(resp)

			requests := rec.Requests()
			Expect(requests).To(HaveLen(1))

			seen := requests[0]
			Expect(seen.Method).To(Equal(http.MethodPost))
			Expect(seen.Path).To(Equal("/chat"))
			Expect(seen.Header.Get("Authorization")).To(Equal("Bearer tok"))
			Expect(seen.Header.Get("Content-Type")).To(Equal("application/json"))
			Expect(seen.Header.Get("Accept")).To(Equal("text/event-stream"))
			Expect(seen.Header.Get("X-Request-ID")).To(Equal(resp.Header.Get("X-Request-ID")))
			Expect(seen.Body).To(MatchJSON(`{"messages":[{"role":"user","content":"Say hello"}],"stream":true}`))
		})

		It("records a completed transcript and announces it", func() {
			resp, err := r.server.Test(chatRequest("tok", helloChat), -1)
			Expect(err).NotTo(HaveOccurred())
			readBody(resp)

			Eventually(transcripts(driver)).Should(HaveLen(1))
			t := transcripts(driver)()[0]

			Expect(t.Status).To(Equal(storage.StatusCompleted))
			Expect(t.Streaming).To(BeTrue())
			Expect(t.Reply).To(Equal(`HelloHe said "hi"!`))
			Expect(t.Tokens).To(Equal(3))
			Expect(t.Records).To(Equal(5))
			Expect(t.Skipped).To(Equal(1))
			Expect(t.Messages).To(Equal([]llm.Message{llm.NewTextMessage(llm.RoleUser, "Say hello")}))
			Expect(t.RequestID).To(Equal(resp.Header.Get("X-Request-ID")))

			Eventually(publisher.Events).Should(HaveLen(1))
			Expect(publisher.Events()[0].Transcript.ID).To(Equal(t.ID))
		})

		It("counts tokens and skipped records in the metrics", func() {
			resp, err := r.server.Test(chatRequest("tok", helloChat), -1)
			Expect(err).NotTo(HaveOccurred())
			readBody(resp)

			Eventually(func() string {
				resp, err := r.server.Test(httptest.NewRequest(http.MethodGet, routeMetrics, nil), -1)
				Expect(err).NotTo(HaveOccurred())
				return readBody(resp)
			}).Should(And(
				ContainSubstring("chatrelay_stream_tokens_total 3"),
				ContainSubstring(`chatrelay_records_skipped_total{reason="malformed"} 1`),
				ContainSubstring(`chatrelay_records_skipped_total{reason="empty"} 1`),
				ContainSubstring(`chatrelay_requests_total{route="/api/chat",status="2xx"} 1`),
			))
		})
	})

	Context("when the upstream prefixes records with event-stream fields", func() {
		BeforeEach(func() {
			upstream = streamingUpstream(rec, "text/event-stream",
				"data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n",
				": keep-alive\n",
				`{"content":"plain"}`+"\n",
				"data: [DONE]\n\n",
			)
			r, driver, _ = newTestRelay(upstream.URL)
		})

		It("skips them as malformed and forwards only plain records", func() {
			resp, err := r.server.Test(chatRequest("tok", helloChat), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(readBody(resp)).To(Equal(`0:"plain"` + "\n"))

			Eventually(transcripts(driver)).Should(HaveLen(1))
			t := transcripts(driver)()[0]
			Expect(t.Records).To(Equal(4))
			Expect(t.Skipped).To(Equal(3))
			Expect(t.Tokens).To(Equal(1))
		})
	})

	Context("when the stream ends without a final newline", func() {
		BeforeEach(func() {
			upstream = streamingUpstream(rec, "application/x-ndjson",
				`{"content":"A"}`+"\n",
				`{"content":"B"}`,
			)
		})

		It("discards the trailing record by default", func() {
			r, driver, _ = newTestRelay(upstream.URL)

			resp, err := r.server.Test(chatRequest("tok", helloChat), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(readBody(resp)).To(Equal(`0:"A"` + "\n"))
		})

		It("forwards it with FlushTrailing", func() {
			r, driver, _ = newTestRelay(upstream.URL, func(c *Config) {
				c.FlushTrailing = true
			})

			resp, err := r.server.Test(chatRequest("tok", helloChat), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(readBody(resp)).To(Equal(`0:"A"` + "\n" + `0:"B"` + "\n"))
		})
	})

	Context("when the upstream rejects the request", func() {
		DescribeTable("answers with exactly one error payload and no token",
			func(status int, body, want string) {
				upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					rec.record(req)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(status)
					fmt.Fprint(w, body)
				}))
				r, driver, _ = newTestRelay(upstream.URL)

				resp, err := r.server.Test(chatRequest("tok", helloChat), -1)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(status))

				got := readBody(resp)
				Expect(got).To(MatchJSON(fmt.Sprintf(`{"error":%q}`, want)))
				Expect(got).NotTo(ContainSubstring(`0:"`))

				Eventually(transcripts(driver)).Should(ConsistOf(And(
					HaveField("Status", storage.StatusUpstreamError),
					HaveField("HTTPStatus", status),
					HaveField("Tokens", 0),
				)))
			},
			Entry("message field", http.StatusUnauthorized, `{"message":"Token expired"}`, "Token expired"),
			Entry("detail field", http.StatusForbidden, `{"detail":"Not allowed"}`, "Not allowed"),
			Entry("error field", http.StatusTooManyRequests, `{"error":"Slow down"}`, "Slow down"),
			Entry("no known field", http.StatusBadGateway, `{"code":7}`, "Failed to get response from chat service"),
			Entry("non-json body", http.StatusInternalServerError, `<html>oops</html>`, "Failed to get response from chat service"),
		)
	})

	Context("when the upstream cannot be reached", func() {
		BeforeEach(func() {
			closed := httptest.NewServer(http.NotFoundHandler())
			url := closed.URL
			closed.Close()
			r, driver, _ = newTestRelay(url)
		})

		It("answers 500 Internal server error", func() {
			resp, err := r.server.Test(chatRequest("tok", helloChat), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(readBody(resp)).To(MatchJSON(`{"error":"Internal server error"}`))
		})
	})

	Context("when the downstream goes away mid-stream", func() {
		var upstreamDone chan struct{}

		BeforeEach(func() {
			upstreamDone = make(chan struct{})
			upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				defer close(upstreamDone)
				w.Header().Set("Content-Type", "application/x-ndjson")
				flusher := w.(http.Flusher)

				for i := 0; ; i++ {
					if _, err := fmt.Fprintf(w, `{"content":"t%d"}`+"\n", i); err != nil {
						return
					}
					flusher.Flush()

					select {
					case <-req.Context().Done():
						return
					case <-time.After(5 * time.Millisecond):
					}
				}
			}))
			r, driver, _ = newTestRelay(upstream.URL)
		})

		It("stops reading the upstream and records the client as gone", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			go r.RunWithListener(ln)

			req, err := http.NewRequest(http.MethodPost, "http://"+ln.Addr().String()+routeChat, strings.NewReader(helloChat))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Authorization", "Bearer tok")

			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())

			reader := bufio.NewReader(resp.Body)
			for range 3 {
				line, err := reader.ReadString('\n')
				Expect(err).NotTo(HaveOccurred())
				Expect(line).To(HavePrefix(`0:"t`))
			}
			Expect(resp.Body.Close()).To(Succeed())

			Eventually(upstreamDone, 5*time.Second).Should(BeClosed())
			Eventually(transcripts(driver), 5*time.Second).Should(ConsistOf(And(
				HaveField("Status", storage.StatusClientGone),
				HaveField("Tokens", BeNumerically(">=", 3)),
			)))
		})
	})
})
