package domain

// Navigable paths.
const (
	PathHome     = "/"
	PathLogin    = "/login"
	PathRegister = "/register"
)

// View identifies a screen the shell can render.
type View string

const (
	ViewNone     View = ""
	ViewHome     View = "home"
	ViewLogin    View = "login"
	ViewRegister View = "register"
)

// Decision is the outcome of a route evaluation. Exactly one of View and
// Redirect is set.
type Decision struct {
	View     View
	Redirect string
}

// IsRedirect reports whether the decision navigates elsewhere.
func (d Decision) IsRedirect() bool {
	return d.Redirect != ""
}

// Render returns a decision rendering v.
func Render(v View) Decision {
	return Decision{View: v}
}

// RedirectTo returns a decision redirecting to path.
func RedirectTo(path string) Decision {
	return Decision{Redirect: path}
}
