// Package route names the logical paths of the application.
package route

const (
	Login     = "/"
	Bills     = "/employee/bills"
	NewBill   = "/employee/bill/new"
	Dashboard = "/admin/dashboard"
)

// Navigator swaps the rendered view for the one at path.
type Navigator func(path string)

// Recorder is a Navigator target that remembers the last requested path.
// HTTP handlers hand rec.Navigate to a container and redirect afterwards.
type Recorder struct {
	Path string
}

// Navigate records path.
func (r *Recorder) Navigate(path string) {
	r.Path = path
}

// Navigated reports whether a navigation was requested.
func (r *Recorder) Navigated() bool {
	return r.Path != ""
}

// Home returns the landing path for a role.
func Home(employee bool) string {
	if employee {
		return Bills
	}
	return Dashboard
}
