// Package composer posts emergency blood requests and manages the single
// active request a phone number may have open.
package composer

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/client"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/phone"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/session"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/validation"
)

// State of the composer.
type State int

const (
	NoActiveRequest State = iota
	HasActiveRequest
)

func (s State) String() string {
	if s == HasActiveRequest {
		return "active"
	}
	return "none"
}

// Form is a request being composed. Every field is required.
type Form struct {
	PatientName  string `json:"patientName" validate:"required"`
	Phone        string `json:"phone" validate:"required,bdphone"`
	BloodGroup   string `json:"bloodGroup" validate:"required,bloodgroup"`
	Location     string `json:"location" validate:"required"`
	DonationDate string `json:"donationDate" validate:"required,datetime=2006-01-02"`
	DonationTime string `json:"donationTime" validate:"required,datetime=15:04"`
	Reason       string `json:"reason" validate:"required"`
}

// Option configures a Composer.
type Option func(*Composer)

// WithClock sets the clock used for the default donation date.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		c.now = now
	}
}

// Composer holds the draft form and the active request, if any.
type Composer struct {
	api    *client.API
	store  *session.Store
	logger *zap.Logger
	now    func() time.Time

	mu         sync.Mutex
	draft      Form
	active     *domain.BloodRequest
	cancelOpen bool
}

// New creates a composer with an empty draft dated today.
func New(api *client.API, store *session.Store, logger *zap.Logger, opts ...Option) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Composer{
		api:    api,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.draft = Form{DonationDate: c.today()}
	return c
}

// Load finds the active request for the logged-in donor's phone. Without
// a session there is nothing to look up and the composer stays empty.
func (c *Composer) Load(ctx context.Context) (State, error) {
	sess := c.store.Current()
	if !sess.IsLoggedIn {
		return c.State(), nil
	}

	var (
		donor    *domain.DonorProfile
		requests []domain.BloodRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		donor, err = c.api.GetDonor(gctx, sess.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		requests, err = c.api.ListRequests(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("loading active request failed", zap.String("code", domain.CodeOf(err)), zap.Error(err))
		return c.State(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = nil
	for i := range requests {
		if phone.Same(requests[i].Phone, donor.Phone) {
			r := requests[i]
			c.active = &r
			break
		}
	}
	if c.draft.Phone == "" {
		c.draft.Phone = donor.Phone
	}
	c.cancelOpen = false
	return c.stateLocked(), nil
}

// Create validates form and posts it. A form for a phone that already has
// an active request is refused without contacting the backend. On success
// the draft resets, keeping only the phone, and the new request becomes
// active. The returned string is the reference to show the user.
func (c *Composer) Create(ctx context.Context, form Form) (string, error) {
	form = trimmed(form)

	c.mu.Lock()
	c.draft = form
	active := c.active
	c.mu.Unlock()

	if err := validation.Struct(form); err != nil {
		return "", err
	}
	if active != nil && phone.Same(active.Phone, form.Phone) {
		return "", domain.ErrDuplicateActiveRequest
	}

	req := domain.BloodRequest{
		PatientName:  form.PatientName,
		Phone:        form.Phone,
		BloodGroup:   domain.BloodGroup(form.BloodGroup),
		Location:     form.Location,
		DonationDate: form.DonationDate,
		DonationTime: form.DonationTime,
		Reason:       form.Reason,
	}
	ref, err := c.api.CreateRequest(ctx, req)
	if err != nil {
		c.logger.Warn("creating request failed", zap.String("code", domain.CodeOf(err)), zap.Error(err))
		return "", err
	}
	req.RequestID = ref

	c.mu.Lock()
	c.active = &req
	c.cancelOpen = false
	c.draft = Form{Phone: form.Phone, DonationDate: c.today()}
	c.mu.Unlock()

	c.logger.Info("request created", zap.String("reference", ref), zap.String("blood_group", form.BloodGroup))
	return ref, nil
}

// OpenCancel asks for confirmation before cancelling the active request.
// It reports false when there is nothing to cancel.
func (c *Composer) OpenCancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return false
	}
	c.cancelOpen = true
	return true
}

// AbortCancel closes the confirmation without cancelling.
func (c *Composer) AbortCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelOpen = false
}

// ConfirmCancel deletes the active request once the confirmation is open.
// With no active request or no open confirmation it does nothing and
// reports false. A failed delete leaves the composer unchanged.
func (c *Composer) ConfirmCancel(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.active == nil || !c.cancelOpen {
		c.mu.Unlock()
		return false, nil
	}
	active := *c.active
	c.mu.Unlock()

	if err := c.api.CancelRequest(ctx, active.Key()); err != nil {
		c.logger.Warn("cancelling request failed",
			zap.String("reference", active.Reference()),
			zap.String("code", domain.CodeOf(err)),
			zap.Error(err),
		)
		return false, err
	}

	c.mu.Lock()
	c.active = nil
	c.cancelOpen = false
	c.mu.Unlock()

	c.logger.Info("request cancelled", zap.String("reference", active.Reference()))
	return true, nil
}

// State returns whether a request is active.
func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Composer) stateLocked() State {
	if c.active != nil {
		return HasActiveRequest
	}
	return NoActiveRequest
}

// Active returns the active request.
func (c *Composer) Active() (domain.BloodRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return domain.BloodRequest{}, false
	}
	return *c.active, true
}

// CancelPending reports whether the cancel confirmation is open.
func (c *Composer) CancelPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelOpen
}

// Draft returns the form as last entered.
func (c *Composer) Draft() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Progress is the display percentage for the active request, 0 if none.
func (c *Composer) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return 0
	}
	return domain.Progress(c.active.Status)
}

func (c *Composer) today() string {
	return c.now().Format(time.DateOnly)
}

// trimmed tidies free-text fields. The phone is left as typed so the
// format check sees exactly what the user entered.
func trimmed(f Form) Form {
	f.PatientName = strings.TrimSpace(f.PatientName)
	f.BloodGroup = strings.ToUpper(strings.TrimSpace(f.BloodGroup))
	f.Location = strings.TrimSpace(f.Location)
	f.DonationDate = strings.TrimSpace(f.DonationDate)
	f.DonationTime = strings.TrimSpace(f.DonationTime)
	f.Reason = strings.TrimSpace(f.Reason)
	return f
}
