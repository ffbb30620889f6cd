// Package storagetest holds the behaviour every storage.Driver must show,
// written once as ginkgo specs and run by each driver's suite.
package storagetest

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/storage"
)

// epoch anchors fixture timestamps. It is whole-millisecond UTC so every
// backend round trips it exactly.
var epoch = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// NewTranscript returns a completed streaming transcript that started n
// seconds after a fixed epoch.
func NewTranscript(id string, n int) *storage.Transcript {
	started := epoch.Add(time.Duration(n) * time.Second)
	return &storage.Transcript{
		ID:        id,
		RequestID: "req-" + id,
		Route:     "/api/chat",
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleUser, "hello "+id),
		},
		Reply:       `He said "hi"`,
		Status:      storage.StatusCompleted,
		HTTPStatus:  200,
		Streaming:   true,
		Records:     4,
		Tokens:      3,
		Skipped:     1,
		StartedAt:   started,
		CompletedAt: started.Add(1500 * time.Millisecond),
	}
}

// DriverBehaviors registers the shared driver specs. newDriver is called
// before every spec and must return an empty driver.
func DriverBehaviors(newDriver func() storage.Driver) {
	var (
		ctx    context.Context
		driver storage.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = newDriver()
	})

	AfterEach(func() {
		// newDriver may have skipped the spec.
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Put and Get", func() {
		It("round trips every field", func() {
			in := NewTranscript("t1", 0)
			in.Error = "partial"
			Expect(driver.Put(ctx, in)).To(Succeed())

			out, err := driver.Get(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.ID).To(Equal(in.ID))
			Expect(out.RequestID).To(Equal(in.RequestID))
			Expect(out.Route).To(Equal(in.Route))
			Expect(out.Messages).To(Equal(in.Messages))
			Expect(out.Reply).To(Equal(in.Reply))
			Expect(out.Status).To(Equal(in.Status))
			Expect(out.HTTPStatus).To(Equal(in.HTTPStatus))
			Expect(out.Error).To(Equal(in.Error))
			Expect(out.Streaming).To(Equal(in.Streaming))
			Expect(out.Records).To(Equal(in.Records))
			Expect(out.Tokens).To(Equal(in.Tokens))
			Expect(out.Skipped).To(Equal(in.Skipped))
			Expect(out.StartedAt).To(BeTemporally("==", in.StartedAt))
			Expect(out.CompletedAt).To(BeTemporally("==", in.CompletedAt))
			Expect(out.Duration()).To(Equal(1500 * time.Millisecond))
		})

		It("stores transcripts without messages", func() {
			in := NewTranscript("empty", 0)
			in.Messages = nil
			in.Status = storage.StatusRejected
			in.HTTPStatus = 400
			Expect(driver.Put(ctx, in)).To(Succeed())

			out, err := driver.Get(ctx, "empty")
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Messages).To(BeEmpty())
			Expect(out.Status).To(Equal(storage.StatusRejected))
		})

		It("returns ErrNotFound for an unknown id", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(storage.ErrNotFound))
		})

		It("returns ErrConflict for a duplicate id", func() {
			Expect(driver.Put(ctx, NewTranscript("dup", 0))).To(Succeed())
			Expect(driver.Put(ctx, NewTranscript("dup", 1))).To(MatchError(storage.ErrConflict))
		})

		It("rejects invalid transcripts", func() {
			Expect(driver.Put(ctx, nil)).To(MatchError(storage.ErrInvalidTranscript))
			Expect(driver.Put(ctx, &storage.Transcript{})).To(MatchError(storage.ErrInvalidTranscript))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for i := range 5 {
				Expect(driver.Put(ctx, NewTranscript(fmt.Sprintf("t%d", i), i))).To(Succeed())
			}
		})

		It("returns the newest transcripts first", func() {
			list, err := driver.List(ctx, 3)
			Expect(err).NotTo(HaveOccurred())

			ids := make([]string, 0, len(list))
			for _, t := range list {
				ids = append(ids, t.ID)
			}
			Expect(ids).To(Equal([]string{"t4", "t3", "t2"}))
		})

		It("applies the default limit for non-positive values", func() {
			list, err := driver.List(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(5))
		})
	})
}
