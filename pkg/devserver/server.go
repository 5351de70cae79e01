package devserver

import (
	"context"
	"log/slog"
	"net"
	"sync"

	loremgen "github.com/bozaro/golorem"
	"github.com/gofiber/fiber/v2"
)

// Server serves the development analysis API.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App

	// ctx ends in-flight streams on Shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	users   map[string]*account
	nextID  int64
	history map[string][]exchange
	lorem   *loremgen.Lorem
}

type account struct {
	id       int64
	username string
	digest   [32]byte
}

type exchange struct {
	mode    string
	request string
}

// NewServer creates a new development server.
func NewServer(config Config, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:  config.withDefaults(),
		logger:  logger,
		app:     app,
		ctx:     ctx,
		cancel:  cancel,
		users:   make(map[string]*account),
		history: make(map[string][]exchange),
		lorem:   loremgen.New(),
	}

	app.Get("/ping", s.handlePing)
	app.Get("/chat", s.handleChat)
	app.Post("/chat/with-analysis", s.handleChatWithAnalysis)
	app.Get("/chat/clear", s.handleClear)
	app.Post("/user/register", s.handleRegister)
	app.Post("/user/login", s.handleLogin)

	return s
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting development server",
		"listen", s.config.ListenAddr,
		"words_per_second", s.config.WordsPerSecond,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting development server",
		"listen", listener.Addr().String(),
	)
	return s.app.Listener(listener)
}

// Shutdown ends open streams and gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.cancel()
	return s.app.Shutdown()
}

// Turns reports how many chat requests userID has made since its last clear.
func (s *Server) Turns(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history[userID])
}
