// Package auth implements phone/password login and the two-phase,
// code-verified donor registration.
package auth

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/client"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/phone"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/session"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/validation"
)

// Login outcomes, both the structured values and the legacy message texts.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeUnknownUser        = "unknown_user"

	legacySuccess     = "Login success!"
	legacyWrongPass   = "Wrong password"
	legacyUnknownUser = "User not found"
)

// LoginInput is the login form as typed.
type LoginInput struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Service runs the authentication operations against the backend and
// records successful logins in the session store.
type Service struct {
	api    *client.API
	store  *session.Store
	logger *zap.Logger
}

// NewService creates an auth service.
func NewService(api *client.API, store *session.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, store: store, logger: logger}
}

// Login checks the credentials with the backend and, on success, logs the
// returned user id into the session store. The phone is sent in national
// form. Empty fields fail before any network call.
func (s *Service) Login(ctx context.Context, in LoginInput) (domain.Session, error) {
	req := client.LoginRequest{
		Phone:    phone.National(in.Phone),
		Password: in.Password,
	}
	if err := validation.Struct(LoginInput{Phone: req.Phone, Password: strings.TrimSpace(req.Password)}); err != nil {
		return domain.Session{}, err
	}

	resp, err := s.api.Login(ctx, req)
	if err != nil {
		s.warn("login failed", err)
		return domain.Session{}, err
	}

	id, err := classifyLogin(resp)
	if err != nil {
		s.warn("login rejected", err)
		return domain.Session{}, err
	}

	if err := s.store.Login(ctx, id); err != nil {
		return s.store.Current(), err
	}
	return s.store.Current(), nil
}

// classifyLogin maps a login response to the user id or a login error.
// A structured outcome field wins; then the HTTP status; then the legacy
// message text.
func classifyLogin(resp *client.LoginResponse) (string, error) {
	switch strings.ToLower(resp.Outcome) {
	case OutcomeSuccess:
		if resp.ID != "" {
			return resp.ID, nil
		}
		return "", domain.NewLoginFailed(resp.Message)
	case OutcomeInvalidCredentials:
		return "", domain.ErrInvalidCredentials
	case OutcomeUnknownUser:
		return "", domain.ErrUnknownUser
	}

	switch resp.StatusCode {
	case http.StatusOK:
		if resp.ID != "" && resp.Error == "" {
			return resp.ID, nil
		}
	case http.StatusUnauthorized:
		return "", domain.ErrInvalidCredentials
	case http.StatusNotFound:
		return "", domain.ErrUnknownUser
	}

	switch resp.Message {
	case legacySuccess:
		if resp.ID != "" {
			return resp.ID, nil
		}
	case legacyWrongPass:
		return "", domain.ErrInvalidCredentials
	case legacyUnknownUser:
		return "", domain.ErrUnknownUser
	}

	msg := resp.Error
	if msg == "" {
		msg = resp.Message
	}
	return "", domain.NewLoginFailed(msg)
}

func (s *Service) warn(msg string, err error) {
	s.logger.Warn(msg, zap.String("code", domain.CodeOf(err)), zap.Error(err))
}
