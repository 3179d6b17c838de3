package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevice_LookupWithoutCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	d := NewDevice(rec, httptest.NewRequest(http.MethodGet, "/admin", nil), Config{})

	_, ok := d.Lookup()

	assert.False(t, ok)
	assert.Empty(t, rec.Result().Cookies())
}

func TestDevice_EnsureIssuesOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	d := NewDevice(rec, req, Config{Domain: "admin.example.org"})

	id, err := d.Ensure()
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	again, err := d.Ensure()
	require.NoError(t, err)
	assert.Equal(t, id, again)

	c := findCookie(t, rec, DefaultDeviceName)
	require.NotNil(t, c)
	assert.Equal(t, id, c.Value)
	assert.Equal(t, "admin.example.org", c.Domain)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Len(t, rec.Result().Cookies(), 1)

	got, ok := d.Lookup()
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestDevice_ReusesExistingCookie(t *testing.T) {
	existing := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: DefaultDeviceName, Value: existing})
	rec := httptest.NewRecorder()

	id, err := NewDevice(rec, req, Config{}).Ensure()

	require.NoError(t, err)
	assert.Equal(t, existing, id)
	assert.Empty(t, rec.Result().Cookies())
}

func TestDevice_IgnoresMalformedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: DefaultDeviceName, Value: "not-a-uuid"})
	rec := httptest.NewRecorder()
	d := NewDevice(rec, req, Config{})

	_, ok := d.Lookup()
	assert.False(t, ok)

	id, err := d.Ensure()
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", id)
	require.NotNil(t, findCookie(t, rec, DefaultDeviceName))
}

func TestDevice_ForgetExpiresCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: DefaultDeviceName, Value: uuid.NewString()})
	rec := httptest.NewRecorder()
	d := NewDevice(rec, req, Config{})

	_, ok := d.Lookup()
	require.True(t, ok)

	d.Forget()
	_, ok = d.Lookup()
	assert.False(t, ok)

	c := findCookie(t, rec, DefaultDeviceName)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)

	id, err := d.Ensure()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
