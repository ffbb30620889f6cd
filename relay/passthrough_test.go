package relay

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pass-through route", func() {
	var (
		r        *Relay
		upstream *httptest.Server
		rec      *upstreamRecorder
	)

	const events = "data: {\"n\":1}\n\ndata: {\"n\":2}\n\n: not a json line\n"

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

	It("requires a token query parameter", func() {
		upstream = streamingUpstream(rec, "text/event-stream", events)
		r, _, _ = newTestRelay(upstream.URL)

		resp, err := r.server.Test(httptest.NewRequest(http.MethodGet, routeChat, nil), -1)
		Expect(err).NotTo(HaveOccurred())

		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
		Expect(readBody(resp)).To(Equal("data: {\"error\":\"Token is required\"}\n\n"))
		Expect(rec.Requests()).To(BeEmpty())
	})

	It("copies the fake stream byte for byte", func() {
		upstream = streamingUpstream(rec, "text/event-stream", "data: {\"n\":1}\n\n", "data: {\"n\":2}\n\n", ": not a json line\n")
		r, _, _ = newTestRelay(upstream.URL)

		resp, err := r.server.Test(httptest.NewRequest(http.MethodGet, routeChat+"?token=tok", nil), -1)
		Expect(err).NotTo(HaveOccurred())

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
		Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))
		Expect(readBody(resp)).To(Equal(events))

		requests := rec.Requests()
		Expect(requests).To(HaveLen(1))
		Expect(requests[0].Method).To(Equal(http.MethodGet))
		Expect(requests[0].Path).To(Equal("/chat/fake-stream"))
		Expect(requests[0].Header.Get("Authorization")).To(Equal("Bearer tok"))
	})

	It("keeps CRLF line endings and an unterminated tail", func() {
		body := "data: one\r\n\r\nretry: 100\r\ndata: tail"
		upstream = streamingUpstream(rec, "text/event-stream", body)
		r, _, _ = newTestRelay(upstream.URL)

		resp, err := r.server.Test(httptest.NewRequest(http.MethodGet, routeChat+"?token=tok", nil), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(readBody(resp)).To(Equal(body))
	})

	It("uses the configured fake stream path", func() {
		upstream = streamingUpstream(rec, "text/event-stream", events)
		r, _, _ = newTestRelay(upstream.URL, func(c *Config) {
			c.FakeStreamPath = "/v2/demo"
		})

		resp, err := r.server.Test(httptest.NewRequest(http.MethodGet, routeChat+"?token=tok", nil), -1)
		Expect(err).NotTo(HaveOccurred())
		readBody(resp)

		Expect(rec.Requests()[0].Path).To(Equal("/v2/demo"))
	})

	It("reports upstream errors as a JSON payload", func() {
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"unrelated":true}`)
		}))
		r, _, _ = newTestRelay(upstream.URL)

		resp, err := r.server.Test(httptest.NewRequest(http.MethodGet, routeChat+"?token=tok", nil), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
		Expect(readBody(resp)).To(MatchJSON(`{"error":"Failed to get response from fake stream"}`))
	})
})
