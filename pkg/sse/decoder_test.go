package sse

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// feedAll runs the chunks through a fresh decoder and flushes it.
func feedAll(chunks ...[]byte) []string {
	d := NewDecoder()

	var frames []string
	for _, c := range chunks {
		frames = append(frames, d.Feed(c)...)
	}

	return append(frames, d.Flush()...)
}

var _ = Describe("Decoder", func() {
	var d *Decoder

	BeforeEach(func() {
		d = NewDecoder()
	})

	Describe("Feed", func() {
		It("emits nothing until a delimiter is seen", func() {
			Expect(d.Feed([]byte("data: hel"))).To(BeEmpty())
			Expect(d.Feed([]byte("lo"))).To(BeEmpty())
			Expect(d.Feed([]byte("\n\n"))).To(Equal([]string{"data: hello"}))
		})

		It("emits every frame completed by one chunk in order", func() {
			frames := d.Feed([]byte("data: a\n\ndata: b\n\ndata: c"))
			Expect(frames).To(Equal([]string{"data: a", "data: b"}))

			_, text := d.Buffered()
			Expect(text).To(Equal(len("data: c")))
		})

		It("treats an empty chunk as a no-op", func() {
			d.Feed([]byte("data: x"))
			Expect(d.Feed(nil)).To(BeEmpty())
			Expect(d.Feed([]byte{})).To(BeEmpty())

			_, text := d.Buffered()
			Expect(text).To(Equal(len("data: x")))
		})

		It("matches a delimiter split across chunks", func() {
			Expect(d.Feed([]byte("data: x\n"))).To(BeEmpty())
			Expect(d.Feed([]byte("\ndata: y\n"))).To(Equal([]string{"data: x"}))
		})

		It("emits empty segments between consecutive delimiters", func() {
			Expect(d.Feed([]byte("\n\n\n\n"))).To(Equal([]string{"", ""}))
		})
	})

	Describe("multi-byte characters", func() {
		It("holds back a split character until the rest arrives", func() {
			raw := []byte("data: 你好\n\n")
			// "你" occupies bytes 6..8; cut in the middle of it.
			Expect(d.Feed(raw[:7])).To(BeEmpty())

			undecoded, _ := d.Buffered()
			Expect(undecoded).To(Equal(1))

			Expect(d.Feed(raw[7:])).To(Equal([]string{"data: 你好"}))
		})

		It("decodes identically at every split point", func() {
			raw := []byte("data: naïve 日本語 🎉\n\ndata: ok\n\n")
			want := feedAll(raw)
			Expect(want).To(Equal([]string{"data: naïve 日本語 🎉", "data: ok"}))

			for i := 0; i <= len(raw); i++ {
				Expect(feedAll(raw[:i], raw[i:])).To(Equal(want), "split at %d", i)
			}
		})

		It("decodes identically when fed one byte at a time", func() {
			raw := []byte("data: ünïcødé\n\n")

			chunks := make([][]byte, 0, len(raw))
			for i := range raw {
				chunks = append(chunks, raw[i:i+1])
			}

			Expect(feedAll(chunks...)).To(Equal(feedAll(raw)))
		})
	})

	Describe("Flush", func() {
		It("emits a non-empty remainder as the final frame", func() {
			d.Feed([]byte("data: a\n\ndata: tail"))
			Expect(d.Flush()).To(Equal([]string{"data: tail"}))
		})

		It("emits nothing when the stream ended on a delimiter", func() {
			d.Feed([]byte("data: a\n\n"))
			Expect(d.Flush()).To(BeEmpty())
		})

		It("replaces a truncated trailing character", func() {
			d.Feed([]byte{'d', 'a', 't', 'a', ':', 0xE4, 0xBD})

			frames := d.Flush()
			Expect(frames).To(HaveLen(1))
			Expect(frames[0]).To(HavePrefix("data:"))
			Expect(frames[0]).To(ContainSubstring("�"))
		})

		It("holds CRLF-delimited frames until the stream ends", func() {
			Expect(d.Feed([]byte("data: a\r\n\r\ndata: b\r\n\r\n"))).To(BeEmpty())
			Expect(d.Flush()).To(Equal([]string{"data: a\r\n\r\ndata: b\r\n\r\n"}))
		})

		It("leaves the decoder empty", func() {
			d.Feed([]byte("data: x"))
			d.Flush()

			undecoded, text := d.Buffered()
			Expect(undecoded).To(BeZero())
			Expect(text).To(BeZero())
			Expect(d.Flush()).To(BeEmpty())
		})
	})
})
