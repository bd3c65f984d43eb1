package tokenstore

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

// CookieBinder issues stores that keep the whole session record in one sealed cookie.
type CookieBinder struct {
	sealer *Sealer
	opts   CookieOptions
}

// NewCookieBinder creates a binder sealing cookies with secret.
func NewCookieBinder(secret []byte, opts CookieOptions) (*CookieBinder, error) {
	sealer, err := NewSealer(secret)
	if err != nil {
		return nil, err
	}
	return &CookieBinder{sealer: sealer, opts: opts.normalize()}, nil
}

// Bind implements Binder.
func (b *CookieBinder) Bind(w http.ResponseWriter, r *http.Request) Store {
	return &CookieStore{w: w, r: r, sealer: b.sealer, opts: b.opts}
}

// CookieStore is a Store bound to one request/response pair. Writes are visible to
// later reads within the same request.
type CookieStore struct {
	w      http.ResponseWriter
	r      *http.Request
	sealer *Sealer
	opts   CookieOptions

	mu      sync.Mutex
	loaded  bool
	current *Record
}

func (s *CookieStore) Read(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.current, nil
	}
	s.loaded = true

	cookie, err := s.r.Cookie(s.opts.Name)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	data, err := s.sealer.Open(cookie.Value)
	if err != nil {
		log.Debug().Err(err).Msg("discarding unreadable session cookie")
		setCookie(s.w, s.opts.expired())
		return nil, nil
	}

	rec, err := decodeRecord(data)
	if err != nil {
		log.Debug().Err(err).Msg("discarding corrupt session cookie")
		setCookie(s.w, s.opts.expired())
		return nil, nil
	}

	s.current = rec
	return rec, nil
}

func (s *CookieStore) Write(ctx context.Context, rec *Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	value, err := s.sealer.Seal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	setCookie(s.w, s.opts.cookie(value))

	clone := *rec
	s.current = &clone
	s.loaded = true
	return nil
}

func (s *CookieStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	setCookie(s.w, s.opts.expired())
	s.current = nil
	s.loaded = true
	return nil
}
