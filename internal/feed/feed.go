// Package feed shows a logged-in donor the open blood requests that match
// their blood group and lets them accept one.
package feed

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/client"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/phone"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/session"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/validation"
)

// NoticeAccepted is shown after a confirmed acceptance.
const NoticeAccepted = "Added to queue successfully!"

// View is what the feed screen renders.
type View struct {
	Donor    domain.DonorProfile   `json:"donor"`
	Requests []domain.BloodRequest `json:"requests"`
	// Matches is nil while the profile is incomplete.
	Matches           []domain.BloodRequest `json:"matches"`
	ProfileIncomplete bool                  `json:"profileIncomplete"`
	Notice            string                `json:"notice,omitempty"`
}

// ProfileInput completes a donor profile.
type ProfileInput struct {
	BloodGroup string `json:"bloodGroup" validate:"required,bloodgroup"`
	Gender     string `json:"gender" validate:"required,gender"`
}

// Feed holds the donor's view of open requests. Every mutation goes to the
// backend first; the view only changes from confirmed server state.
type Feed struct {
	api    *client.API
	store  *session.Store
	logger *zap.Logger

	mu   sync.Mutex
	view View
}

// New creates a feed bound to the session in store.
func New(api *client.API, store *session.Store, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{api: api, store: store, logger: logger}
}

// Load fetches the donor profile and the open requests concurrently and
// derives the matches. On failure the previous view is kept.
func (f *Feed) Load(ctx context.Context) (View, error) {
	donorID, err := f.store.UserID()
	if err != nil {
		return View{}, err
	}

	var (
		donor    *domain.DonorProfile
		requests []domain.BloodRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		donor, err = f.api.GetDonor(gctx, donorID)
		return err
	})
	g.Go(func() error {
		var err error
		requests, err = f.api.ListRequests(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		f.logger.Warn("loading feed failed", zap.String("code", domain.CodeOf(err)), zap.Error(err))
		return f.View(), err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.view = build(*donor, requests)
	f.logger.Debug("feed loaded",
		zap.String("user_id", donorID),
		zap.Int("requests", len(requests)),
		zap.Int("matches", len(f.view.Matches)),
	)
	return f.view, nil
}

// Refresh re-fetches only the request list, keeping the loaded profile.
// It loads everything when nothing has been loaded yet.
func (f *Feed) Refresh(ctx context.Context) (View, error) {
	if _, err := f.store.UserID(); err != nil {
		return View{}, err
	}

	f.mu.Lock()
	donor := f.view.Donor
	f.mu.Unlock()
	if donor.ID == "" {
		return f.Load(ctx)
	}

	requests, err := f.api.ListRequests(ctx)
	if err != nil {
		f.logger.Warn("refreshing requests failed", zap.String("code", domain.CodeOf(err)), zap.Error(err))
		return f.View(), err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.view = build(donor, requests)
	return f.view, nil
}

// CompleteProfile sets the missing blood group and gender, then reloads.
func (f *Feed) CompleteProfile(ctx context.Context, in ProfileInput) (View, error) {
	donorID, err := f.store.UserID()
	if err != nil {
		return View{}, err
	}

	in.BloodGroup = strings.ToUpper(strings.TrimSpace(in.BloodGroup))
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	if err := validation.Struct(in); err != nil {
		return f.View(), err
	}

	update := client.ProfileUpdate{BloodGroup: domain.BloodGroup(in.BloodGroup), Gender: in.Gender}
	if err := f.api.UpdateDonor(ctx, donorID, update); err != nil {
		f.logger.Warn("updating profile failed", zap.String("code", domain.CodeOf(err)), zap.Error(err))
		return f.View(), err
	}
	f.logger.Info("profile updated", zap.String("user_id", donorID))

	return f.Load(ctx)
}

// Accept records that the donor will donate for requestID and re-fetches
// the list so the new status shows. Nothing is changed locally before the
// backend confirms.
func (f *Feed) Accept(ctx context.Context, requestID string) (View, error) {
	donorID, err := f.store.UserID()
	if err != nil {
		return View{}, err
	}
	requestID = strings.TrimSpace(requestID)
	if err := validation.Var("requestId", requestID, "required"); err != nil {
		return f.View(), err
	}

	if err := f.api.AcceptRequest(ctx, donorID, requestID); err != nil {
		f.logger.Warn("accepting request failed",
			zap.String("request_id", requestID),
			zap.String("code", domain.CodeOf(err)),
			zap.Error(err),
		)
		return f.View(), err
	}
	f.logger.Info("request accepted", zap.String("user_id", donorID), zap.String("request_id", requestID))

	view, err := f.Refresh(ctx)
	if err != nil {
		return view, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.view.Notice = NoticeAccepted
	return f.view, nil
}

// View returns the last loaded view.
func (f *Feed) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// Match returns the requests whose blood group equals the donor's,
// excluding the donor's own postings. Groups are compared literally; no
// compatibility rules apply.
func Match(donor domain.DonorProfile, requests []domain.BloodRequest) []domain.BloodRequest {
	matches := []domain.BloodRequest{}
	if donor.BloodGroup == "" {
		return matches
	}
	for _, r := range requests {
		if r.BloodGroup != donor.BloodGroup {
			continue
		}
		if phone.Same(r.Phone, donor.Phone) {
			continue
		}
		matches = append(matches, r)
	}
	return matches
}

func build(donor domain.DonorProfile, requests []domain.BloodRequest) View {
	v := View{
		Donor:             donor,
		Requests:          requests,
		ProfileIncomplete: !donor.Complete(),
	}
	if !v.ProfileIncomplete {
		v.Matches = Match(donor, requests)
	}
	return v
}
