package middleware

import (
	"github.com/gofiber/fiber/v2"

	"billed/internal/model"
)

// SessionLocalKey is the key the authenticated user is stored under in Fiber's context locals.
const SessionLocalKey = "session_user"

// SessionLoader returns the user of the request, or an error when there is none.
type SessionLoader func(c *fiber.Ctx) (model.Session, error)

// RequireSession lets a request through only when load finds a user for which
// allow returns true; any other request is answered by deny. A nil allow
// accepts any user.
func RequireSession(load SessionLoader, allow func(model.Session) bool, deny fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := load(c)
		if err != nil || (allow != nil && !allow(s)) {
			return deny(c)
		}
		c.Locals(SessionLocalKey, s)
		return c.Next()
	}
}

// RedirectTo returns a deny handler sending the browser to path.
func RedirectTo(path string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Redirect(path, fiber.StatusSeeOther)
	}
}

// SessionFromCtx returns the user stored by RequireSession.
func SessionFromCtx(c *fiber.Ctx) (model.Session, bool) {
	s, ok := c.Locals(SessionLocalKey).(model.Session)
	return s, ok
}
