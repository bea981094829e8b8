package auth

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/client"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/phone"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/validation"
)

// Phase is the step a registration is at.
type Phase int

const (
	// PhaseDetails collects the account details and requests a code.
	PhaseDetails Phase = iota + 1
	// PhaseVerify waits for the code texted to the phone.
	PhaseVerify
	// PhaseDone means the account was created.
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseDetails:
		return "details"
	case PhaseVerify:
		return "verify"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Status messages shown after each successful step.
const (
	StatusCodeSent = "OTP sent successfully!"
	StatusCreated  = "Account created successfully!"
)

// RegistrationForm is everything collected in the details phase. Blood
// group and gender are only required when Donor is set.
type RegistrationForm struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"required"`
	Password   string `json:"password" validate:"required"`
	Donor      bool   `json:"donor"`
	BloodGroup string `json:"bloodGroup" validate:"required_if=Donor true,bloodgroup"`
	Gender     string `json:"gender" validate:"required_if=Donor true,gender"`
}

type verifyInput struct {
	OTP string `json:"otp" validate:"required,max=6"`
}

// Registration is one in-progress sign-up. It is safe for concurrent use.
type Registration struct {
	api    *client.API
	logger *zap.Logger

	mu           sync.Mutex
	phase        Phase
	form         RegistrationForm // last entered, shown when editing
	sent         RegistrationForm // the form the current code was sent for
	displayPhone string
	status       string
}

// NewRegistration starts a sign-up in the details phase.
func (s *Service) NewRegistration() *Registration {
	return &Registration{
		api:    s.api,
		logger: s.logger,
		phase:  PhaseDetails,
	}
}

// RequestCode validates form and asks the backend to text a code to the
// phone in international form. On success the registration moves to the
// verify phase; on failure the phase and the form Confirm would submit
// stay as they were.
func (r *Registration) RequestCode(ctx context.Context, form RegistrationForm) error {
	r.mu.Lock()
	if r.phase == PhaseDone {
		r.mu.Unlock()
		return domain.NewValidationError("", "Registration already completed")
	}
	r.form = form
	r.mu.Unlock()

	if err := validation.Struct(trimmed(form)); err != nil {
		return err
	}

	intl := phone.International(form.Phone)
	if err := r.api.SendOTP(ctx, intl); err != nil {
		r.logger.Warn("send code failed", zap.String("code", domain.CodeOf(err)), zap.Error(err))
		return err
	}

	r.mu.Lock()
	r.phase = PhaseVerify
	r.sent = form
	r.displayPhone = intl
	r.status = StatusCodeSent
	r.mu.Unlock()

	r.logger.Info("verification code sent", zap.String("phone", intl))
	return nil
}

// Confirm submits the full form together with the received code.
func (r *Registration) Confirm(ctx context.Context, otp string) error {
	otp = strings.TrimSpace(otp)

	r.mu.Lock()
	if r.phase != PhaseVerify {
		r.mu.Unlock()
		return domain.NewValidationError("otp", "Request a verification code first")
	}
	form := r.sent
	intl := r.displayPhone
	r.mu.Unlock()

	if err := validation.Struct(verifyInput{OTP: otp}); err != nil {
		return err
	}

	req := client.RegisterRequest{
		Name:     strings.TrimSpace(form.Name),
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
		Phone:    intl,
		OTP:      otp,
	}
	if form.Donor {
		req.BloodGroup = form.BloodGroup
		req.Gender = form.Gender
	}

	if err := r.api.Register(ctx, req); err != nil {
		r.logger.Warn("registration failed", zap.String("code", domain.CodeOf(err)), zap.Error(err))
		return err
	}

	r.mu.Lock()
	r.phase = PhaseDone
	r.status = StatusCreated
	r.mu.Unlock()

	r.logger.Info("account registered", zap.String("phone", intl))
	return nil
}

// EditInformation returns to the details phase keeping every entered value.
func (r *Registration) EditInformation() RegistrationForm {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == PhaseVerify {
		r.phase = PhaseDetails
		r.status = ""
	}
	return r.form
}

// Phase returns the current phase.
func (r *Registration) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Form returns the values entered so far.
func (r *Registration) Form() RegistrationForm {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.form
}

// DisplayPhone is the international number the code was sent to.
func (r *Registration) DisplayPhone() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.displayPhone
}

// Status is the message for the last successful step.
func (r *Registration) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func trimmed(f RegistrationForm) RegistrationForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = phone.National(f.Phone)
	f.BloodGroup = strings.TrimSpace(f.BloodGroup)
	f.Gender = strings.TrimSpace(f.Gender)
	return f
}
