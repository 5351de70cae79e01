package logincmder

import (
	"bytes"
	"context"
	"net"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/reviewagent/revchat/cmd/revchat/cmdenv"
	"github.com/reviewagent/revchat/pkg/auth"
	"github.com/reviewagent/revchat/pkg/config"
	"github.com/reviewagent/revchat/pkg/devserver"
	"github.com/reviewagent/revchat/pkg/logger"
	"github.com/reviewagent/revchat/pkg/sealer"
	"github.com/reviewagent/revchat/pkg/transport"
)

var _ = Describe("commands", func() {
	It("wires login, register, logout and whoami", func() {
		Expect(NewLoginCmd().Use).To(Equal("login"))
		Expect(NewRegisterCmd().Use).To(Equal("register"))
		Expect(NewLogoutCmd().Use).To(Equal("logout"))
		Expect(NewWhoamiCmd().Use).To(Equal("whoami"))

		flag := NewLoginCmd().Flags().Lookup("username")
		Expect(flag).NotTo(BeNil())
		Expect(flag.Shorthand).To(Equal("u"))
	})
})

var _ = Describe("against the development server", func() {
	var (
		env *cmdenv.Env
		out *bytes.Buffer
	)

	BeforeEach(func() {
		cfg := config.NewDefaultConfig()

		seal, err := sealer.New([]byte(cfg.Crypto.Key))
		Expect(err).NotTo(HaveOccurred())

		server := devserver.NewServer(devserver.Config{WordsPerSecond: -1, Sealer: seal}, logger.Nop())
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		go func() {
			defer GinkgoRecover()
			_ = server.RunWithListener(ln)
		}()
		DeferCleanup(server.Shutdown)

		cfg.Client.APITarget = "http://" + ln.Addr().String()
		env = &cmdenv.Env{
			ConfigDir: GinkgoT().TempDir(),
			Config:    cfg,
			Logger:    logger.Nop(),
		}
		out = &bytes.Buffer{}
	})

	commander := func(username, input string) *loginCommander {
		return &loginCommander{username: username, in: strings.NewReader(input), out: out}
	}

	It("registers, logs in and stores the identity", func(ctx SpecContext) {
		Expect(commander("", "ana\nhunter2\n").runRegister(ctx, env)).To(Succeed())
		Expect(commander("ana", "hunter2\n").runLogin(ctx, env)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Logged in as"))

		mgr, err := auth.NewManager(env.ConfigDir, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.Hydrate()).To(Succeed())

		user, ok := mgr.Current()
		Expect(ok).To(BeTrue())
		Expect(user.ID).To(Equal("1"))
		Expect(user.Username).To(Equal("ana"))

		out.Reset()
		Expect(runWhoami(env, out)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("ana"))

		out.Reset()
		Expect(runLogout(env, out)).To(Succeed())
		Expect(mgr.Hydrate()).To(Succeed())
		_, ok = mgr.UserID()
		Expect(ok).To(BeFalse())

		out.Reset()
		Expect(runWhoami(env, out)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Not logged in"))
	})

	It("surfaces a service error for a wrong password", func(ctx SpecContext) {
		Expect(commander("ana", "hunter2\n").runRegister(ctx, env)).To(Succeed())

		err := commander("ana", "wrong\n").runLogin(ctx, env)
		var svcErr *transport.ServiceError
		Expect(err).To(BeAssignableToTypeOf(svcErr))
		Expect(err.Error()).To(ContainSubstring("password not match"))
	})

	It("rejects empty input", func() {
		err := commander("", "").runLogin(context.Background(), env)
		Expect(err).To(MatchError(ContainSubstring("no input received")))

		err = commander("ana", "\n").runLogin(context.Background(), env)
		Expect(err).To(MatchError("password cannot be empty"))
	})
})
