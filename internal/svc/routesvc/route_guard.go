// Package routesvc decides which view a path renders for a given session.
package routesvc

import "github.com/mkrupp/homecase-authshell/internal/domain"

// maxHops bounds Resolve. Every redirect target renders on the next hop.
const maxHops = 2

type rule struct {
	view      domain.View
	loggedIn  bool   // session state the view is reserved for
	otherwise string // redirect when the state does not match
}

var rules = map[string]rule{
	domain.PathHome:     {view: domain.ViewHome, loggedIn: true, otherwise: domain.PathLogin},
	domain.PathLogin:    {view: domain.ViewLogin, loggedIn: false, otherwise: domain.PathHome},
	domain.PathRegister: {view: domain.ViewRegister, loggedIn: false, otherwise: domain.PathHome},
}

// Decide maps a requested path and login state to a view or a redirect.
// Unknown paths always redirect: to home when logged in, else to login.
func Decide(path string, isLoggedIn bool) domain.Decision {
	r, ok := rules[path]
	if !ok {
		return domain.RedirectTo(landing(isLoggedIn))
	}

	if r.loggedIn != isLoggedIn {
		return domain.RedirectTo(r.otherwise)
	}

	return domain.Render(r.view)
}

// Resolve follows redirects from path until a view renders and returns the
// final location together with its view.
func Resolve(path string, isLoggedIn bool) (location string, view domain.View) {
	location = path

	for range maxHops {
		decision := Decide(location, isLoggedIn)
		if !decision.IsRedirect() {
			return location, decision.View
		}

		location = decision.Redirect
	}

	return location, Decide(location, isLoggedIn).View
}

func landing(isLoggedIn bool) string {
	if isLoggedIn {
		return domain.PathHome
	}

	return domain.PathLogin
}
