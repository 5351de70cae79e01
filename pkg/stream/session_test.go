package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/reviewagent/revchat/pkg/metrics"
)

// recorder is a Handler that logs every callback in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
	err   error

	onEvent func(payload string)
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) OnOpen() { r.add("open") }

func (r *recorder) OnEvent(payload string) {
	r.add("event:" + payload)
	if r.onEvent != nil {
		r.onEvent(payload)
	}
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	r.add("error")
}

func (r *recorder) OnDone() { r.add("done") }

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// staticSource serves body through a one-byte-at-a-time reader.
func staticSource(body string) Source {
	return SourceFunc(func(context.Context, *Request) (io.ReadCloser, error) {
		return io.NopCloser(iotest.OneByteReader(strings.NewReader(body))), nil
	})
}

// pipeSource hands out a body the test writes to; it closes with the
// context's error when the context ends.
type pipeSource struct {
	pr *io.PipeReader
	pw *io.PipeWriter

	requests chan *Request
}

func newPipeSource() *pipeSource {
	pr, pw := io.Pipe()
	return &pipeSource{pr: pr, pw: pw, requests: make(chan *Request, 1)}
}

func (p *pipeSource) Stream(ctx context.Context, req *Request) (io.ReadCloser, error) {
	p.requests <- req
	go func() {
		<-ctx.Done()
		p.pw.CloseWithError(ctx.Err())
	}()
	return p.pr, nil
}

// endlessSource streams "data: x" frames until the context ends.
func endlessSource() Source {
	return SourceFunc(func(ctx context.Context, _ *Request) (io.ReadCloser, error) {
		return io.NopCloser(&endlessReader{ctx: ctx}), nil
	})
}

type endlessReader struct {
	ctx context.Context
	off int
}

func (r *endlessReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	const frame = "data: x\n\n"
	n := 0
	for n < len(p) {
		c := copy(p[n:], frame[r.off:])
		n += c
		r.off = (r.off + c) % len(frame)
	}
	return n, nil
}

func (p *pipeSource) send(s string) {
	_, err := io.WriteString(p.pw, s)
	Expect(err).NotTo(HaveOccurred())
}

var _ = Describe("Session", func() {
	var (
		ctx context.Context
		h   *recorder
		req *Request
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = &recorder{}
		req = &Request{Target: "/chat"}
	})

	Context("when the stream completes", func() {
		It("delivers every payload in order then done", func() {
			s := Open(ctx, staticSource("data: He\n\ndata: llo\n\n"), req, h)

			Expect(s.Wait()).To(Equal(OutcomeDone))
			Expect(h.Calls()).To(Equal([]string{"open", "event:He", "event:llo", "done"}))
			Expect(s.Err()).NotTo(HaveOccurred())
		})

		It("delivers a final unterminated frame before done", func() {
			s := Open(ctx, staticSource("data: a\n\ndata: tail"), req, h)

			Expect(s.Wait()).To(Equal(OutcomeDone))
			Expect(h.Calls()).To(Equal([]string{"open", "event:a", "event:tail", "done"}))
		})

		It("skips frames without data", func() {
			s := Open(ctx, staticSource(": ping\n\ndata: x\n\n"), req, h)

			Expect(s.Wait()).To(Equal(OutcomeDone))
			Expect(h.Calls()).To(Equal([]string{"open", "event:x", "done"}))
		})

		It("records the raw stream", func() {
			var raw bytes.Buffer
			body := ": ping\n\ndata: x\n\n"

			s := Open(ctx, staticSource(body), req, h, WithRecorder(&raw), WithChunkSize(2))
			s.Wait()

			Expect(raw.String()).To(Equal(body))
		})

		It("ignores cancel after termination", func() {
			s := Open(ctx, staticSource("data: a\n\n"), req, h)
			Expect(s.Wait()).To(Equal(OutcomeDone))

			s.Cancel()
			Expect(s.Outcome()).To(Equal(OutcomeDone))
			Expect(h.Calls()).To(Equal([]string{"open", "event:a", "done"}))
		})
	})

	Context("when the transport fails", func() {
		It("reports a non-success status once without opening", func() {
			src := SourceFunc(func(context.Context, *Request) (io.ReadCloser, error) {
				return nil, &TransportError{Status: 500, Body: "boom"}
			})
			s := Open(ctx, src, req, h)

			Expect(s.Wait()).To(Equal(OutcomeFailed))
			Expect(h.Calls()).To(Equal([]string{"error"}))

			var terr *TransportError
			Expect(errors.As(s.Err(), &terr)).To(BeTrue())
			Expect(terr.Status).To(Equal(500))
			Expect(s.Err()).To(MatchError(ErrTransport))
		})

		It("reports a read error after earlier payloads and never done", func() {
			src := SourceFunc(func(context.Context, *Request) (io.ReadCloser, error) {
				body := io.MultiReader(
					strings.NewReader("data: partial\n\n"),
					iotest.ErrReader(errors.New("connection reset")),
				)
				return io.NopCloser(body), nil
			})
			s := Open(ctx, src, req, h)

			Expect(s.Wait()).To(Equal(OutcomeFailed))
			Expect(h.Calls()).To(Equal([]string{"open", "event:partial", "error"}))
			Expect(s.Err()).To(MatchError(ContainSubstring("connection reset")))
			Expect(errors.Is(s.Err(), ErrTransport)).To(BeTrue())
		})
	})

	Context("when cancelled", func() {
		It("suppresses every later callback", func() {
			src := newPipeSource()
			s := Open(ctx, src, req, h)
			Eventually(src.requests).Should(Receive())

			src.send("data: one\n\n")
			Eventually(h.Calls).Should(ContainElement("event:one"))

			s.Cancel()
			Expect(s.Wait()).To(Equal(OutcomeCancelled))

			_, _ = io.WriteString(src.pw, "data: two\n\n")
			Consistently(h.Calls).Should(Equal([]string{"open", "event:one"}))
			Expect(s.Err()).NotTo(HaveOccurred())
		})

		It("starts no callback once Cancel has returned", func() {
			for range 200 {
				var (
					cancelled atomic.Bool
					late      atomic.Int64
				)
				first := make(chan struct{})
				var once sync.Once

				h := &recorder{onEvent: func(string) {
					if cancelled.Load() {
						late.Add(1)
					}
					once.Do(func() { close(first) })
				}}

				s := Open(ctx, endlessSource(), req, h, WithChunkSize(9))
				Eventually(first).Should(BeClosed())

				s.Cancel()
				cancelled.Store(true)

				Expect(s.Wait()).To(Equal(OutcomeCancelled))
				Expect(late.Load()).To(BeZero())
			}
		})

		It("is idempotent", func() {
			src := newPipeSource()
			s := Open(ctx, src, req, h)

			s.Cancel()
			s.Cancel()
			Expect(s.Wait()).To(Equal(OutcomeCancelled))
			s.Cancel()
			Expect(s.Outcome()).To(Equal(OutcomeCancelled))
		})

		It("can be cancelled from inside a callback", func() {
			src := newPipeSource()
			var s *Session
			var once sync.Once
			ready := make(chan struct{})

			h.onEvent = func(string) {
				<-ready
				once.Do(s.Cancel)
			}
			s = Open(ctx, src, req, h)
			close(ready)

			go func() {
				defer GinkgoRecover()
				_, _ = io.WriteString(src.pw, "data: a\n\ndata: b\n\n")
			}()

			Expect(s.Wait()).To(Equal(OutcomeCancelled))
			Expect(h.Calls()).To(Equal([]string{"open", "event:a"}))
		})

		It("treats a cancelled parent context as cancellation", func() {
			parent, cancel := context.WithCancel(ctx)
			src := newPipeSource()
			s := Open(parent, src, req, h)
			Eventually(src.requests).Should(Receive())

			cancel()
			Expect(s.Wait()).To(Equal(OutcomeCancelled))
			Expect(h.Calls()).NotTo(ContainElement("error"))
		})
	})

	Describe("identity and metrics", func() {
		It("assigns a unique id to every session", func() {
			a := Open(ctx, staticSource(""), req, h)
			b := Open(ctx, staticSource(""), req, &recorder{})
			a.Wait()
			b.Wait()

			Expect(a.ID()).NotTo(Equal(b.ID()))
		})

		It("reports outcomes, events and bytes", func() {
			c := metrics.New()
			body := "data: a\n\ndata: b\n\n"

			s := Open(ctx, staticSource(body), req, h, WithMetrics(c))
			s.Wait()

			expected := `
# HELP revchat_stream_events_total Total number of event payloads delivered
# TYPE revchat_stream_events_total counter
revchat_stream_events_total 2
# HELP revchat_stream_sessions_active Number of stream sessions currently open
# TYPE revchat_stream_sessions_active gauge
revchat_stream_sessions_active 0
`
			Expect(testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected),
				"revchat_stream_events_total", "revchat_stream_sessions_active")).To(Succeed())

			bytesExpected := `
# HELP revchat_stream_bytes_total Total raw bytes read from streams
# TYPE revchat_stream_bytes_total counter
revchat_stream_bytes_total 18
`
			Expect(testutil.GatherAndCompare(c.Registry(), strings.NewReader(bytesExpected),
				"revchat_stream_bytes_total")).To(Succeed())
		})
	})
})
