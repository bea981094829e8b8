// Package shell routes between the client's screens and owns the login and
// logout affordances shown on every screen.
package shell

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/domain"
	"github.com/Mahi-B-Rahaman/IIUC-Blood-Network/internal/session"
)

// Screen identifies a view.
type Screen string

const (
	ScreenLogin     Screen = "login"
	ScreenHome      Screen = "home"
	ScreenRegister  Screen = "register"
	ScreenComposer  Screen = "composer"
	ScreenDashboard Screen = "dashboard"
	ScreenAbout     Screen = "about"
	ScreenNotFound  Screen = "not-found"
)

// Route paths.
const (
	PathLogin     = "/"
	PathHome      = "/mainpage"
	PathRegister  = "/register"
	PathComposer  = "/bloodrequest"
	PathDashboard = "/blooddashboard"
	PathAbout     = "/about"
)

// Route maps a path to a screen.
type Route struct {
	Path   string `json:"path"`
	Screen Screen `json:"screen"`
	Title  string `json:"title"`
	// Protected routes need a logged-in session.
	Protected bool `json:"protected"`
	// InNav routes appear in the navigation bar.
	InNav bool `json:"inNav"`
}

// Routes lists every known route in navigation order.
var Routes = []Route{
	{Path: PathLogin, Screen: ScreenLogin, Title: "IIUC_Blood.net", InNav: true},
	{Path: PathAbout, Screen: ScreenAbout, Title: "AboutUs", InNav: true},
	{Path: PathDashboard, Screen: ScreenDashboard, Title: "Dashboard", Protected: true, InNav: true},
	{Path: PathComposer, Screen: ScreenComposer, Title: "RequestBlood", InNav: true},
	{Path: PathHome, Screen: ScreenHome, Title: "Home", Protected: true},
	{Path: PathRegister, Screen: ScreenRegister, Title: "Register"},
}

// Resolution is the outcome of navigating to a path.
type Resolution struct {
	Requested  string `json:"requested"`
	Path       string `json:"path"`
	Screen     Screen `json:"screen"`
	Redirected bool   `json:"redirected"`
}

// Status is what the navigation bar shows.
type Status struct {
	Session domain.Session `json:"session"`
	// Actions are the auth affordances offered: "login" and "register"
	// when logged out, "logout" when logged in.
	Actions []string `json:"actions"`
	Nav     []Route  `json:"nav"`
}

// Shell reads the session store to guard routes; Logout is its only
// mutation.
type Shell struct {
	store  *session.Store
	logger *zap.Logger
}

// New creates a shell over store.
func New(store *session.Store, logger *zap.Logger) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shell{store: store, logger: logger}
}

// Resolve returns the screen for path. Protected screens redirect to the
// login screen when logged out; unknown paths resolve to not-found.
func (s *Shell) Resolve(path string) Resolution {
	clean := normalize(path)
	res := Resolution{Requested: path, Path: clean, Screen: ScreenNotFound}

	route, ok := Lookup(clean)
	if !ok {
		return res
	}
	if route.Protected && !s.store.Current().IsLoggedIn {
		s.logger.Debug("redirecting to login", zap.String("path", clean))
		res.Path = PathLogin
		res.Screen = ScreenLogin
		res.Redirected = true
		return res
	}
	res.Screen = route.Screen
	return res
}

// Logout clears the session and returns the login screen.
func (s *Shell) Logout(ctx context.Context) (Resolution, error) {
	err := s.store.Logout(ctx)
	return s.Resolve(PathLogin), err
}

// Status returns the session and matching affordances.
func (s *Shell) Status() Status {
	sess := s.store.Current()
	st := Status{Session: sess}
	if sess.IsLoggedIn {
		st.Actions = []string{"logout"}
	} else {
		st.Actions = []string{"login", "register"}
	}
	for _, r := range Routes {
		if r.InNav {
			st.Nav = append(st.Nav, r)
		}
	}
	return st
}

// Lookup finds the route registered at path.
func Lookup(path string) (Route, bool) {
	clean := normalize(path)
	for _, r := range Routes {
		if r.Path == clean {
			return r, true
		}
	}
	return Route{}, false
}

func normalize(path string) string {
	p := strings.TrimSpace(path)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return strings.ToLower(p)
}
