package devserver

import (
	"crypto/sha256"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/reviewagent/revchat/pkg/transport"
)

// Envelope codes used by the analysis service.
const (
	codeParamError    = 40000
	codeUserNotFound  = 40002
	codeUserExists    = 40003
	codePasswordError = 40015
	codeNotLoggedIn   = 40100
	codeSystemError   = 50001
)

const (
	modeDirect   = "direct"
	modeAnalysis = "analysis"

	passwordSalt = "revchat"
)

// loginData is the account returned from a successful login.
type loginData struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	return s.chat(c, modeDirect)
}

func (s *Server) handleChatWithAnalysis(c *fiber.Ctx) error {
	return s.chat(c, modeAnalysis)
}

func (s *Server) chat(c *fiber.Ctx, mode string) error {
	userID, ok, err := s.userID(c)
	if !ok {
		return err
	}

	request := c.Query("request")
	if strings.TrimSpace(request) == "" {
		return reply(c, fiber.StatusBadRequest, codeParamError, "request is required", nil)
	}

	s.mu.Lock()
	s.history[userID] = append(s.history[userID], exchange{mode: mode, request: request})
	turn := len(s.history[userID])
	words := s.words()
	s.mu.Unlock()

	s.logger.Debug("streaming reply",
		"user_id", userID,
		"mode", mode,
		"turn", turn,
		"words", len(words),
	)

	return s.stream(c, words)
}

func (s *Server) handleClear(c *fiber.Ctx) error {
	userID, ok, err := s.userID(c)
	if !ok {
		return err
	}

	s.mu.Lock()
	delete(s.history, userID)
	s.mu.Unlock()

	s.logger.Debug("context cleared", "user_id", userID)

	return reply(c, fiber.StatusOK, transport.CodeSuccess, "ok", nil)
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	creds, ok, err := s.credentials(c)
	if !ok {
		return err
	}

	s.mu.Lock()
	if _, exists := s.users[creds.Username]; exists {
		s.mu.Unlock()
		return reply(c, fiber.StatusOK, codeUserExists, "user already exists", nil)
	}
	s.nextID++
	acct := &account{
		id:       s.nextID,
		username: creds.Username,
		digest:   digest(creds.Password),
	}
	s.users[creds.Username] = acct
	s.mu.Unlock()

	s.logger.Info("user registered",
		"user_id", transport.FormatUserID(acct.id),
		"username", acct.username,
	)

	return reply(c, fiber.StatusOK, transport.CodeSuccess, "ok", "register success")
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	creds, ok, err := s.credentials(c)
	if !ok {
		return err
	}

	s.mu.Lock()
	acct, exists := s.users[creds.Username]
	s.mu.Unlock()

	if !exists {
		return reply(c, fiber.StatusOK, codeUserNotFound, "username not found", nil)
	}
	if acct.digest != digest(creds.Password) {
		return reply(c, fiber.StatusOK, codePasswordError, "password not match", nil)
	}

	s.logger.Info("user logged in", "user_id", transport.FormatUserID(acct.id))

	return reply(c, fiber.StatusOK, transport.CodeSuccess, "ok", loginData{
		ID:       acct.id,
		Username: acct.username,
	})
}

// userID reads and normalises the userId header.
// ok is false when a response has already been written.
func (s *Server) userID(c *fiber.Ctx) (string, bool, error) {
	raw := c.Get(transport.UserIDHeader)
	if raw == "" {
		return "", false, reply(c, fiber.StatusUnauthorized, codeNotLoggedIn, "user not logged in", nil)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", false, reply(c, fiber.StatusBadRequest, codeParamError, "userId must be numeric", nil)
	}

	return transport.FormatUserID(id), true, nil
}

// credentials decodes the request body and opens the sealed password.
// ok is false when a response has already been written.
func (s *Server) credentials(c *fiber.Ctx) (transport.Credentials, bool, error) {
	var creds transport.Credentials
	if err := json.Unmarshal(c.Body(), &creds); err != nil {
		return creds, false, reply(c, fiber.StatusBadRequest, codeParamError, "invalid request body", nil)
	}

	if creds.Username == "" || creds.Password == "" {
		return creds, false, reply(c, fiber.StatusBadRequest, codeParamError, "username and password are required", nil)
	}

	if s.config.Sealer != nil {
		plain, err := s.config.Sealer.Open(creds.Password)
		if err != nil {
			s.logger.Warn("rejecting unreadable password", "username", creds.Username, "error", err)
			return creds, false, reply(c, fiber.StatusBadRequest, codeParamError, "password could not be decrypted", nil)
		}
		creds.Password = string(plain)
	}

	return creds, true, nil
}

// reply writes a service envelope.
func reply(c *fiber.Ctx, status, code int, message string, data any) error {
	env := transport.Envelope{Code: code, Message: message}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			env = transport.Envelope{Code: codeSystemError, Message: "encoding response failed"}
			status = fiber.StatusInternalServerError
		} else {
			env.Data = raw
		}
	}

	return c.Status(status).JSON(env)
}

func digest(password string) [32]byte {
	return sha256.Sum256([]byte(passwordSalt + password))
}
