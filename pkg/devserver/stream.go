package devserver

import (
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/reviewagent/revchat/pkg/transport"
)

// words draws roughly ReplyWords lorem words. Callers hold s.mu.
func (s *Server) words() []string {
	var out []string
	for len(out) < s.config.ReplyWords {
		out = append(out, strings.Fields(s.lorem.Sentence(5, 15))...)
	}
	return out
}

// stream writes words as SSE frames, one word per frame.
//
// io.Pipe + SetBodyStream makes fasthttp flush every chunk to the socket as
// it is written; the writer blocks until the client side consumes it.
func (s *Server) stream(c *fiber.Ctx, words []string) error {
	c.Set(fiber.HeaderContentType, transport.ContentTypeEventStream)
	c.Set(fiber.HeaderCacheControl, "no-cache")

	pr, pw := io.Pipe()
	go s.writeFrames(pw, words)

	// Unknown size (-1) selects chunked transfer encoding.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) writeFrames(pw *io.PipeWriter, words []string) {
	limit := rate.Inf
	if s.config.WordsPerSecond > 0 {
		limit = rate.Limit(s.config.WordsPerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)

	for i, word := range words {
		if err := limiter.Wait(s.ctx); err != nil {
			pw.CloseWithError(err)
			return
		}

		if i < len(words)-1 {
			word += " "
		}

		if _, err := fmt.Fprintf(pw, "data:%s\n\n", word); err != nil {
			s.logger.Debug("client went away", "error", err)
			return
		}
	}

	pw.Close()
}
