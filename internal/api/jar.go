package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/alnah/go-ballot/internal/storage"
)

// CookieStorageKey is the storage entry holding persisted cookies.
const CookieStorageKey = "cookies"

// storedCookie is the persisted form of a cookie and the URL that set it.
type storedCookie struct {
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"httpOnly,omitempty"`
}

func (sc storedCookie) key() string {
	return sc.URL + "|" + sc.Domain + "|" + sc.Path + "|" + sc.Name
}

// PersistentJar is a public-suffix aware cookie jar whose contents survive
// process restarts. Every SetCookies rewrites the storage entry.
type PersistentJar struct {
	store storage.Storage
	now   func() time.Time

	mu      sync.Mutex
	jar     *cookiejar.Jar
	entries map[string]storedCookie
	lastErr error
}

// NewPersistentJar loads previously stored cookies from s. Expired cookies are
// dropped. An unreadable entry is discarded rather than failing startup.
func NewPersistentJar(s storage.Storage) (*PersistentJar, error) {
	return newPersistentJar(s, time.Now)
}

func newPersistentJar(s storage.Storage, now func() time.Time) (*PersistentJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	j := &PersistentJar{store: s, now: now, jar: jar, entries: make(map[string]storedCookie)}

	raw, ok, err := s.Get(CookieStorageKey)
	if err != nil {
		return nil, fmt.Errorf("load cookies: %w", err)
	}
	if !ok {
		return j, nil
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		_ = s.Remove(CookieStorageKey)
		return j, nil
	}
	for _, sc := range stored {
		if !sc.Expires.IsZero() && !sc.Expires.After(now()) {
			continue
		}
		u, err := url.Parse(sc.URL)
		if err != nil {
			continue
		}
		j.jar.SetCookies(u, []*http.Cookie{{
			Name:     sc.Name,
			Value:    sc.Value,
			Path:     sc.Path,
			Domain:   sc.Domain,
			Expires:  sc.Expires,
			Secure:   sc.Secure,
			HttpOnly: sc.HttpOnly,
		}})
		j.entries[sc.key()] = sc
	}
	return j, nil
}

// Cookies implements http.CookieJar.
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// SetCookies implements http.CookieJar. A persistence failure does not reject
// the cookies; it is reported by Err.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)

	origin := (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
	now := j.now()
	for _, c := range cookies {
		sc := storedCookie{
			URL:      origin,
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if c.MaxAge > 0 {
			sc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		if c.MaxAge < 0 || (!sc.Expires.IsZero() && !sc.Expires.After(now)) {
			delete(j.entries, sc.key())
			continue
		}
		j.entries[sc.key()] = sc
	}
	j.lastErr = j.save()
}

// Clear drops every cookie in memory and in storage.
func (j *PersistentJar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("create cookie jar: %w", err)
	}
	j.jar = jar
	j.entries = make(map[string]storedCookie)
	if err := j.store.Remove(CookieStorageKey); err != nil {
		return fmt.Errorf("remove cookies: %w", err)
	}
	return nil
}

// Err returns the error from the most recent persist, if any.
func (j *PersistentJar) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastErr
}

// save must be called with j.mu held.
func (j *PersistentJar) save() error {
	if len(j.entries) == 0 {
		return j.store.Remove(CookieStorageKey)
	}
	list := make([]storedCookie, 0, len(j.entries))
	for _, sc := range j.entries {
		list = append(list, sc)
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}
	if err := j.store.Set(CookieStorageKey, string(data)); err != nil {
		return fmt.Errorf("persist cookies: %w", err)
	}
	return nil
}

var _ http.CookieJar = (*PersistentJar)(nil)
