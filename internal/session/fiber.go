package session

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// Storage is a KeyValue whose changes are persisted by Save.
type Storage interface {
	KeyValue
	Save() error
}

// Opener returns the session storage of a request.
type Opener func(c *fiber.Ctx) (Storage, error)

// FiberOpener opens sessions from a fiber session store.
func FiberOpener(store *session.Store) Opener {
	return func(c *fiber.Ctx) (Storage, error) {
		sess, err := store.Get(c)
		if err != nil {
			return nil, err
		}
		return NewFiberStorage(sess), nil
	}
}

// FiberStorage adapts a fiber server side session to KeyValue.
// Changes are persisted by Save.
type FiberStorage struct {
	sess *session.Session
}

// NewFiberStorage wraps sess.
func NewFiberStorage(sess *session.Session) *FiberStorage {
	return &FiberStorage{sess: sess}
}

func (f *FiberStorage) Get(key string) string {
	s, _ := f.sess.Get(key).(string)
	return s
}

func (f *FiberStorage) Set(key, value string) {
	f.sess.Set(key, value)
}

func (f *FiberStorage) Delete(key string) {
	f.sess.Delete(key)
}

// Save persists the session and refreshes its cookie.
func (f *FiberStorage) Save() error {
	return f.sess.Save()
}
