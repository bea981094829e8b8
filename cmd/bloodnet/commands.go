package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/auth"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/feed"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/shell"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":    cmdLogin,
	"logout":   cmdLogout,
	"whoami":   cmdWhoami,
	"register": cmdRegister,
	"feed":     cmdFeed,
	"accept":   cmdAccept,
	"profile":  cmdProfile,
	"request":  cmdRequest,
	"open":     cmdOpen,
}

func newFlagSet(a *app, name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.Usage = func() {
		fmt.Fprintf(a.errOut, "usage: bloodnet %s\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// parse parses args and reports flag errors as errUsage.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login", "login -phone <phone> [-password <password>]")
	var in auth.LoginInput
	fs.StringVar(&in.Phone, "phone", "", "Phone number")
	fs.StringVar(&in.Password, "password", "", "Password (read from stdin when omitted)")
	if err := parse(fs, args); err != nil {
		return err
	}

	if in.Password == "" && in.Phone != "" {
		pw, err := a.prompt("Password: ")
		if err != nil {
			return err
		}
		in.Password = pw
	}

	sess, err := a.auth.Login(ctx, in)
	if err != nil {
		return err
	}
	return a.emit(sess, func(w io.Writer) {
		fmt.Fprintf(w, "Logged in as %s\n", sess.UserID)
	})
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	res, err := a.shell.Logout(ctx)
	if err != nil {
		return err
	}
	return a.emit(res, func(w io.Writer) {
		fmt.Fprintln(w, "Logged out")
	})
}

func cmdWhoami(_ context.Context, a *app, _ []string) error {
	st := a.shell.Status()
	return a.emit(st, func(w io.Writer) {
		if st.Session.IsLoggedIn {
			fmt.Fprintf(w, "Logged in as %s\n", st.Session.UserID)
		} else {
			fmt.Fprintln(w, "Not logged in")
		}
		fmt.Fprintf(w, "Actions: %s\n", strings.Join(st.Actions, ", "))
	})
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "register", "register -name <name> -phone <phone> -password <pw> [options]")
	var form auth.RegistrationForm
	fs.StringVar(&form.Name, "name", "", "Full name")
	fs.StringVar(&form.Email, "email", "", "Email address (optional)")
	fs.StringVar(&form.Phone, "phone", "", "Phone number (01XXXXXXXXX)")
	fs.StringVar(&form.Password, "password", "", "Password")
	fs.BoolVar(&form.Donor, "donor", false, "Register as a blood donor")
	fs.StringVar(&form.BloodGroup, "blood-group", "", "Blood group (donors)")
	fs.StringVar(&form.Gender, "gender", "", "Gender: male, female or other (donors)")
	otp := fs.String("otp", "", "Verification code; prompts when omitted")
	if err := parse(fs, args); err != nil {
		return err
	}

	reg := a.auth.NewRegistration()
	if err := reg.RequestCode(ctx, form); err != nil {
		return err
	}
	fmt.Fprintf(a.errOut, "%s Code sent to %s\n", reg.Status(), reg.DisplayPhone())

	code := *otp
	for reg.Phase() != auth.PhaseDone {
		if code == "" {
			line, err := a.prompt("Verification code (or \"edit\"): ")
			if err != nil {
				return err
			}
			code = strings.TrimSpace(line)
		}

		if strings.EqualFold(code, "edit") {
			code = ""
			edited, err := a.editRegistration(reg.EditInformation())
			if err != nil {
				return err
			}
			if err := reg.RequestCode(ctx, edited); err != nil {
				return err
			}
			fmt.Fprintf(a.errOut, "%s Code sent to %s\n", reg.Status(), reg.DisplayPhone())
			continue
		}

		err := reg.Confirm(ctx, code)
		code = ""
		if err == nil {
			break
		}
		if *otp != "" {
			return err
		}
		// Wrong or malformed code: show it and ask again.
		fmt.Fprintf(a.errOut, "Error: %v\n", err)
	}

	result := struct {
		Status string `json:"status"`
		Phone  string `json:"phone"`
	}{Status: reg.Status(), Phone: reg.DisplayPhone()}
	return a.emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s You can now log in with %s\n", result.Status, result.Phone)
	})
}

// editRegistration prompts for every field, keeping the current value on
// an empty answer.
func (a *app) editRegistration(form auth.RegistrationForm) (auth.RegistrationForm, error) {
	fields := []struct {
		label string
		value *string
	}{
		{"Name", &form.Name},
		{"Email", &form.Email},
		{"Phone", &form.Phone},
		{"Blood group", &form.BloodGroup},
		{"Gender", &form.Gender},
	}
	for _, f := range fields {
		line, err := a.prompt(fmt.Sprintf("%s [%s]: ", f.label, *f.value))
		if err != nil {
			return form, err
		}
		if v := strings.TrimSpace(line); v != "" {
			*f.value = v
		}
	}
	return form, nil
}

func cmdFeed(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "feed", "feed [-refresh <interval>]")
	interval := fs.Duration("refresh", 0, "Re-fetch requests at this interval until interrupted")
	if err := parse(fs, args); err != nil {
		return err
	}
	ctx = a.withUser(ctx)

	view, err := a.feed.Load(ctx)
	if err != nil {
		return err
	}
	if err := a.emit(view, func(w io.Writer) { printFeed(w, view) }); err != nil {
		return err
	}
	if *interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			view, err := a.feed.Refresh(ctx)
			if err != nil {
				// Keep polling; the next tick may succeed.
				a.printError(err)
				continue
			}
			if err := a.emit(view, func(w io.Writer) { printFeed(w, view) }); err != nil {
				return err
			}
		}
	}
}

func cmdAccept(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.errOut, "usage: bloodnet accept <request-id>")
		return errUsage
	}
	ctx = a.withUser(ctx)

	view, err := a.feed.Accept(ctx, args[0])
	if err != nil {
		return err
	}
	return a.emit(view, func(w io.Writer) {
		fmt.Fprintln(w, view.Notice)
		printFeed(w, view)
	})
}

func cmdProfile(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "profile", "profile -blood-group <group> -gender <gender>")
	var in feed.ProfileInput
	fs.StringVar(&in.BloodGroup, "blood-group", "", "Blood group, e.g. O+")
	fs.StringVar(&in.Gender, "gender", "", "male, female or other")
	if err := parse(fs, args); err != nil {
		return err
	}
	ctx = a.withUser(ctx)

	view, err := a.feed.CompleteProfile(ctx, in)
	if err != nil {
		return err
	}
	return a.emit(view, func(w io.Writer) {
		fmt.Fprintln(w, "Profile updated")
		printFeed(w, view)
	})
}

func cmdRequest(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.errOut, "usage: bloodnet request <create|status|cancel> [options]")
		return errUsage
	}
	ctx = a.withUser(ctx)

	if _, err := a.composer.Load(ctx); err != nil {
		// The composer is public: a stale login must not block posting.
		if args[0] != "create" {
			return err
		}
		a.logger.Warn("active request lookup failed, creating without it",
			zap.String("code", domain.CodeOf(err)), zap.Error(err))
	}

	switch args[0] {
	case "create":
		return requestCreate(ctx, a, args[1:])
	case "status":
		return requestStatus(a)
	case "cancel":
		return requestCancel(ctx, a, args[1:])
	default:
		fmt.Fprintf(a.errOut, "unknown request command %q\n", args[0])
		return errUsage
	}
}

func requestCreate(ctx context.Context, a *app, args []string) error {
	draft := a.composer.Draft()

	fs := newFlagSet(a, "request create", "request create -patient <name> -phone <phone> ... ")
	form := draft
	fs.StringVar(&form.PatientName, "patient", "", "Patient name")
	fs.StringVar(&form.Phone, "phone", draft.Phone, "Contact phone (01XXXXXXXXX)")
	fs.StringVar(&form.BloodGroup, "blood-group", "", "Blood group needed")
	fs.StringVar(&form.Location, "location", "", "Hospital or location")
	fs.StringVar(&form.DonationDate, "date", draft.DonationDate, "Donation date (YYYY-MM-DD)")
	fs.StringVar(&form.DonationTime, "time", "", "Donation time (HH:MM)")
	fs.StringVar(&form.Reason, "reason", "", "Reason, e.g. Surgery")
	if err := parse(fs, args); err != nil {
		return err
	}

	ref, err := a.composer.Create(ctx, form)
	if err != nil {
		return err
	}
	result := struct {
		RequestID string `json:"requestId"`
		Message   string `json:"message"`
	}{RequestID: ref, Message: "Blood request submitted successfully!"}
	return a.emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s Reference: %s\n", result.Message, ref)
	})
}

type requestStatusView struct {
	State    string               `json:"state"`
	Request  *domain.BloodRequest `json:"request,omitempty"`
	Progress int                  `json:"progress"`
}

func requestStatus(a *app) error {
	v := requestStatusView{State: a.composer.State().String()}
	if r, ok := a.composer.Active(); ok {
		v.Request = &r
		v.Progress = a.composer.Progress()
	}
	return a.emit(v, func(w io.Writer) {
		if v.Request == nil {
			fmt.Fprintln(w, "No active request")
			return
		}
		printRequest(w, *v.Request)
		fmt.Fprintf(w, "  Progress: %d%%\n", v.Progress)
	})
}

func requestCancel(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "request cancel", "request cancel [-yes]")
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	if err := parse(fs, args); err != nil {
		return err
	}

	active, ok := a.composer.Active()
	if !a.composer.OpenCancel() || !ok {
		return a.emit(map[string]bool{"cancelled": false}, func(w io.Writer) {
			fmt.Fprintln(w, "No active request")
		})
	}

	if !*yes {
		answer, err := a.prompt(fmt.Sprintf("Cancel request %s? [y/N]: ", active.Reference()))
		if err != nil {
			return err
		}
		if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
			a.composer.AbortCancel()
		}
	}

	cancelled, err := a.composer.ConfirmCancel(ctx)
	if err != nil {
		return err
	}
	return a.emit(map[string]bool{"cancelled": cancelled}, func(w io.Writer) {
		if cancelled {
			fmt.Fprintf(w, "Request %s cancelled\n", active.Reference())
		} else {
			fmt.Fprintln(w, "Request kept")
		}
	})
}

func cmdOpen(_ context.Context, a *app, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.errOut, "usage: bloodnet open <path>")
		return errUsage
	}
	res := a.shell.Resolve(args[0])
	return a.emit(res, func(w io.Writer) {
		if res.Redirected {
			fmt.Fprintf(w, "%s requires login; showing %s (%s)\n", res.Requested, res.Screen, res.Path)
			return
		}
		if res.Screen == shell.ScreenNotFound {
			fmt.Fprintf(w, "%s: page not found\n", res.Requested)
			return
		}
		fmt.Fprintf(w, "%s -> %s\n", res.Path, res.Screen)
	})
}

func printFeed(w io.Writer, v feed.View) {
	name := v.Donor.Name
	if name == "" {
		name = v.Donor.ID
	}
	fmt.Fprintf(w, "Donor: %s  phone %s  blood group %s\n", name, v.Donor.Phone, orDash(string(v.Donor.BloodGroup)))

	if v.ProfileIncomplete {
		fmt.Fprintln(w, domain.ErrIncompleteProfile.Message)
		fmt.Fprintln(w, "Run: bloodnet profile -blood-group <group> -gender <gender>")
		return
	}
	if len(v.Matches) == 0 {
		fmt.Fprintf(w, "No matching requests (%d open)\n", len(v.Requests))
		return
	}
	fmt.Fprintf(w, "%d matching of %d open requests:\n", len(v.Matches), len(v.Requests))
	for _, r := range v.Matches {
		printRequest(w, r)
	}
}

func printRequest(w io.Writer, r domain.BloodRequest) {
	fmt.Fprintf(w, "- [%s] %s needs %s at %s on %s %s\n",
		r.Reference(), r.PatientName, r.BloodGroup, r.Location, r.DonationDate, r.DonationTime)
	fmt.Fprintf(w, "  Reason: %s  Contact: %s  Status: %s  (accept id: %s)\n",
		r.Reason, r.Phone, orDash(r.Status), r.Key())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
