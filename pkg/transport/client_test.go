package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reviewagent/revchat/pkg/sealer"
	"github.com/reviewagent/revchat/pkg/stream"
)

var _ = Describe("Client", func() {
	var (
		mux    *http.ServeMux
		server *httptest.Server
		client *Client
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		mux = http.NewServeMux()
		server = httptest.NewServer(mux)
		DeferCleanup(server.Close)

		var err error
		client, err = NewClient(server.URL + "/api")
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewClient", func() {
		It("rejects a base URL without scheme and host", func() {
			_, err := NewClient("localhost")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Stream", func() {
		It("sends the request under the base path with query and headers", func() {
			var got *http.Request
			mux.HandleFunc("GET /api/chat", func(w http.ResponseWriter, r *http.Request) {
				got = r
				w.Header().Set("Content-Type", ContentTypeEventStream)
				fmt.Fprint(w, "data: hi\n\n")
			})

			header := http.Header{}
			header.Set(UserIDHeader, "42")
			body, err := client.SetUserAgent("revchat-test").Stream(ctx, &stream.Request{
				Target: "/chat",
				Query:  url.Values{"request": {"what is wrong?"}},
				Header: header,
			})
			Expect(err).NotTo(HaveOccurred())
			defer body.Close()

			raw, err := io.ReadAll(body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal("data: hi\n\n"))

			Expect(got.URL.Query().Get("request")).To(Equal("what is wrong?"))
			Expect(got.Header.Get(UserIDHeader)).To(Equal("42"))
			Expect(got.Header.Get("Accept")).To(Equal(ContentTypeEventStream))
			Expect(got.Header.Get("User-Agent")).To(Equal("revchat-test"))
		})

		It("uses the requested method", func() {
			mux.HandleFunc("POST /api/chat/with-analysis", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "data: ok\n\n")
			})

			body, err := client.Stream(ctx, &stream.Request{Method: http.MethodPost, Target: "/chat/with-analysis"})
			Expect(err).NotTo(HaveOccurred())
			body.Close()
		})

		It("returns a transport error for a non-success status without parsing the body", func() {
			mux.HandleFunc("GET /api/chat", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				fmt.Fprint(w, "data: should not be seen\n\n")
			})

			_, err := client.Stream(ctx, &stream.Request{Target: "/chat"})

			var terr *stream.TransportError
			Expect(errors.As(err, &terr)).To(BeTrue())
			Expect(terr.Status).To(Equal(http.StatusBadGateway))
			Expect(err).To(MatchError(stream.ErrTransport))
		})

		It("is not limited by the request timeout", func() {
			mux.HandleFunc("GET /api/chat", func(w http.ResponseWriter, r *http.Request) {
				flusher := w.(http.Flusher)
				for range 3 {
					fmt.Fprint(w, "data: tick\n\n")
					flusher.Flush()
					time.Sleep(30 * time.Millisecond)
				}
			})

			client.SetTimeout(20 * time.Millisecond)
			body, err := client.Stream(ctx, &stream.Request{Target: "/chat"})
			Expect(err).NotTo(HaveOccurred())
			defer body.Close()

			raw, err := io.ReadAll(body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal("data: tick\n\ndata: tick\n\ndata: tick\n\n"))
		})

		It("aborts the body when the context is cancelled", func() {
			release := make(chan struct{})
			DeferCleanup(func() { close(release) })

			mux.HandleFunc("GET /api/chat", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "data: first\n\n")
				w.(http.Flusher).Flush()
				select {
				case <-r.Context().Done():
				case <-release:
				}
			})

			cctx, cancel := context.WithCancel(ctx)
			body, err := client.Stream(cctx, &stream.Request{Target: "/chat"})
			Expect(err).NotTo(HaveOccurred())
			defer body.Close()

			buf := make([]byte, 64)
			n, err := body.Read(buf)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(buf[:n])).To(Equal("data: first\n\n"))

			cancel()
			_, err = io.ReadAll(body)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Login", func() {
		var key = []byte("0123456789abcdef")

		It("seals the password and decodes a numeric user id", func() {
			s, err := sealer.NewSoftware(key)
			Expect(err).NotTo(HaveOccurred())
			client.SetSealer(s)

			mux.HandleFunc("POST /api/user/login", func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()

				var creds Credentials
				Expect(json.NewDecoder(r.Body).Decode(&creds)).To(Succeed())
				Expect(creds.Username).To(Equal("ada"))

				plain, err := s.Open(creds.Password)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(plain)).To(Equal("s3cret"))

				fmt.Fprint(w, `{"code":0,"message":"ok","data":{"id":7,"username":"ada"}}`)
			})

			user, err := client.Login(ctx, "ada", "s3cret")
			Expect(err).NotTo(HaveOccurred())
			Expect(user).To(Equal(&User{ID: "7", Username: "ada"}))
		})

		It("returns the envelope failure as a service error", func() {
			mux.HandleFunc("POST /api/user/login", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"code":50000,"message":"password not match"}`)
			})

			_, err := client.Login(ctx, "ada", "wrong")

			var serr *ServiceError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Code).To(Equal(50000))
			Expect(err).To(MatchError(ContainSubstring("password not match")))
		})

		It("rejects a success without an account", func() {
			mux.HandleFunc("POST /api/user/login", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"code":0,"message":"ok","data":"login success"}`)
			})

			_, err := client.Login(ctx, "ada", "pw")
			Expect(err).To(MatchError(ErrNoUserID))
		})

		It("requires both username and password", func() {
			_, err := client.Login(ctx, "", "pw")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Register", func() {
		It("posts the credentials", func() {
			called := false
			mux.HandleFunc("POST /api/user/register", func(w http.ResponseWriter, r *http.Request) {
				called = true
				fmt.Fprint(w, `{"code":0,"message":"ok","data":"register success"}`)
			})

			Expect(client.Register(ctx, "ada", "pw")).To(Succeed())
			Expect(called).To(BeTrue())
		})
	})

	Describe("ClearContext", func() {
		It("identifies the user in the header", func() {
			var userID string
			mux.HandleFunc("GET /api/chat/clear", func(w http.ResponseWriter, r *http.Request) {
				userID = r.Header.Get(UserIDHeader)
				fmt.Fprint(w, `{"code":0,"message":"ok"}`)
			})

			Expect(client.ClearContext(ctx, "9")).To(Succeed())
			Expect(userID).To(Equal("9"))
		})

		It("surfaces an HTTP failure", func() {
			mux.HandleFunc("GET /api/chat/clear", func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusUnauthorized)
			})

			err := client.ClearContext(ctx, "9")
			Expect(err).To(MatchError(stream.ErrTransport))
		})
	})
})

var _ = Describe("User", func() {
	It("accepts a string id", func() {
		var u User
		Expect(json.Unmarshal([]byte(`{"id":"abc","username":"x"}`), &u)).To(Succeed())
		Expect(u.ID).To(Equal("abc"))
	})

	It("leaves a missing id empty", func() {
		var u User
		Expect(json.Unmarshal([]byte(`{"username":"x"}`), &u)).To(Succeed())
		Expect(u.ID).To(BeEmpty())
	})
})
