package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/yndnr/garagebook-go/internal/storage"
	"github.com/yndnr/garagebook-go/internal/telemetry/logger"
)

// CookiesKey is the storage key holding the serialized jar.
const CookiesKey = "cookies"

// storedCookie is the persisted form of a cookie set by the API origin.
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

func (c storedCookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// CredentialJar is an http.CookieJar for a single API origin whose cookies
// outlive the process. It holds every session-scoped credential the client has.
type CredentialJar struct {
	base   *url.URL
	store  storage.KV
	logger logger.Logger
	now    func() time.Time

	mu     sync.Mutex
	jar    *cookiejar.Jar
	stored map[string]storedCookie
}

// NewCredentialJar creates a jar for base and reloads cookies persisted in
// store. store may be nil, in which case nothing is persisted.
// A corrupt persisted record is discarded.
func NewCredentialJar(ctx context.Context, base *url.URL, store storage.KV, log logger.Logger) (*CredentialJar, error) {
	if log == nil {
		log = logger.Default()
	}
	jar, err := newCookieJar()
	if err != nil {
		return nil, err
	}

	j := &CredentialJar{
		base:   base,
		store:  store,
		logger: log,
		now:    time.Now,
		jar:    jar,
		stored: make(map[string]storedCookie),
	}
	j.load(ctx)
	return j, nil
}

func newCookieJar() (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// SetCookies implements http.CookieJar.
func (j *CredentialJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)
	if u.Host != j.base.Host {
		return
	}

	now := j.now()
	for _, c := range cookies {
		sc := storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
		if c.MaxAge > 0 {
			sc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		if c.MaxAge < 0 || sc.expired(now) {
			delete(j.stored, c.Name)
			continue
		}
		j.stored[c.Name] = sc
	}
	j.save()
}

// Cookies implements http.CookieJar.
func (j *CredentialJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// Value returns the value of the named cookie as it would be sent to the API origin.
func (j *CredentialJar) Value(name string) (string, bool) {
	for _, c := range j.Cookies(j.base) {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Len returns the number of cookies the jar would persist.
func (j *CredentialJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.stored)
}

// Purge removes every cookie, in memory and in storage. After Purge returns
// no session-scoped credential remains in memory, even when storage fails.
// A stored record that cannot be deleted is overwritten with an empty one.
func (j *CredentialJar) Purge(ctx context.Context) error {
	jar, err := newCookieJar()
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar = jar
	j.stored = make(map[string]storedCookie)
	if j.store == nil {
		return nil
	}
	return storage.Erase(ctx, j.store, CookiesKey, emptyJar)
}

// emptyJar is written over the cookie record when it cannot be deleted.
var emptyJar = []byte("[]")

func (j *CredentialJar) load(ctx context.Context) {
	if j.store == nil {
		return
	}

	data, err := j.store.Get(ctx, CookiesKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			j.logger.Warn("cookie store unreadable", "error", err)
		}
		return
	}

	var records []storedCookie
	if err := json.Unmarshal(data, &records); err != nil {
		j.logger.Warn("discarding corrupt cookie store", "error", err)
		if err := j.store.Delete(ctx, CookiesKey); err != nil {
			j.logger.Warn("delete cookie store", "error", err)
		}
		return
	}

	now := j.now()
	cookies := make([]*http.Cookie, 0, len(records))
	for _, r := range records {
		if r.Name == "" || r.expired(now) {
			continue
		}
		j.stored[r.Name] = r
		cookies = append(cookies, &http.Cookie{
			Name:     r.Name,
			Value:    r.Value,
			Path:     r.Path,
			Expires:  r.Expires,
			Secure:   r.Secure,
			HttpOnly: r.HTTPOnly,
		})
	}
	j.jar.SetCookies(j.base, cookies)
	j.logger.Debug("cookies restored", "count", len(cookies))
}

// save must be called with mu held.
func (j *CredentialJar) save() {
	if j.store == nil {
		return
	}

	records := make([]storedCookie, 0, len(j.stored))
	for _, c := range j.stored {
		records = append(records, c)
	}
	data, err := json.Marshal(records)
	if err != nil {
		j.logger.Warn("encode cookie store", "error", err)
		return
	}
	if err := j.store.Set(context.Background(), CookiesKey, data); err != nil {
		j.logger.Warn("persist cookie store", "error", err)
	}
}
