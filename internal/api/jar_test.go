package api_test

// Coverage Notes:
// - Cookies set by a server survive into a new jar over the same storage.
// - Expired and deleted (MaxAge<0) cookies are not persisted.
// - A corrupt storage entry is discarded without failing.

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-ballot/internal/api"
	"github.com/alnah/go-ballot/internal/storage"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestPersistentJar_RoundTripThroughClient(t *testing.T) {
	t.Parallel()

	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: "s3cr3t", Path: "/", HttpOnly: true})
		default:
			if c, err := r.Cookie("SESSION"); err == nil {
				seen = c.Value
			}
		}
	}))
	t.Cleanup(srv.Close)

	mem := storage.NewMemory()
	jar, err := api.NewPersistentJar(mem)
	require.NoError(t, err)

	c := newClient(t, srv.URL, api.WithCookieJar(jar))
	require.NoError(t, c.Post(context.Background(), "/auth/login", nil, nil))
	require.NoError(t, jar.Err())

	// Simulate the next run: fresh jar and client over the same storage.
	reloaded, err := api.NewPersistentJar(mem)
	require.NoError(t, err)
	c2 := newClient(t, srv.URL, api.WithCookieJar(reloaded))
	require.NoError(t, c2.Get(context.Background(), "/v1/votes/results", nil))

	assert.Equal(t, "s3cr3t", seen)
}

func TestPersistentJar_ExpiredCookiesDropped(t *testing.T) {
	t.Parallel()

	now := time.Now()
	mem := storage.NewMemory()
	u := mustURL(t, "http://vote.test/")

	jar, err := api.NewPersistentJarWithClock(mem, func() time.Time { return now })
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{
		{Name: "short", Value: "1", MaxAge: 60},
		{Name: "long", Value: "2", MaxAge: 3600},
	})

	later := now.Add(10 * time.Minute)
	reloaded, err := api.NewPersistentJarWithClock(mem, func() time.Time { return later })
	require.NoError(t, err)

	names := map[string]bool{}
	for _, c := range reloaded.Cookies(u) {
		names[c.Name] = true
	}
	assert.False(t, names["short"], "expired cookie should not be restored")
	assert.True(t, names["long"])
}

func TestPersistentJar_DeletionIsPersisted(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	u := mustURL(t, "http://vote.test/")

	jar, err := api.NewPersistentJar(mem)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: "SESSION", Value: "x"}})
	jar.SetCookies(u, []*http.Cookie{{Name: "SESSION", MaxAge: -1}})

	assert.Empty(t, jar.Cookies(u))
	_, ok, _ := mem.Get(api.CookieStorageKey)
	assert.False(t, ok, "empty jar should remove the storage entry")
}

func TestPersistentJar_Clear(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	u := mustURL(t, "http://vote.test/")

	jar, err := api.NewPersistentJar(mem)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: "SESSION", Value: "x"}})
	require.NoError(t, jar.Clear())

	assert.Empty(t, jar.Cookies(u))
	reloaded, err := api.NewPersistentJar(mem)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Cookies(u))
}

func TestPersistentJar_CorruptEntry(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory()
	require.NoError(t, mem.Set(api.CookieStorageKey, "not json"))

	jar, err := api.NewPersistentJar(mem)
	require.NoError(t, err)
	assert.Empty(t, jar.Cookies(mustURL(t, "http://vote.test/")))
	_, ok, _ := mem.Get(api.CookieStorageKey)
	assert.False(t, ok)
}
