package cookie

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDeviceName is the cookie that tags a browser for the secondary credential location.
const DefaultDeviceName = "admin_device"

// Device is a request-scoped browser identifier held in a long-lived cookie.
// It is issued lazily, the first time a credential is written.
type Device struct {
	name   string
	domain string
	maxAge time.Duration
	w      http.ResponseWriter
	r      *http.Request

	mu        sync.Mutex
	id        string
	forgotten bool
}

// NewDevice binds a device identifier to one request/response pair.
func NewDevice(w http.ResponseWriter, r *http.Request, cfg Config) *Device {
	cfg = cfg.withDefaults()
	return &Device{name: DefaultDeviceName, domain: cfg.Domain, maxAge: cfg.MaxAge, w: w, r: r}
}

// Lookup returns the browser's device id if it has one.
func (d *Device) Lookup() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.id != "" {
		return d.id, true
	}
	if d.forgotten {
		return "", false
	}
	v, ok := Read(d.r, d.name)
	if !ok {
		return "", false
	}
	if _, err := uuid.Parse(v); err != nil {
		return "", false
	}
	d.id = v
	return v, true
}

// Ensure returns the device id, issuing a new one if the browser has none.
func (d *Device) Ensure() (string, error) {
	if id, ok := d.Lookup(); ok {
		return id, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.NewString()
	http.SetCookie(d.w, &http.Cookie{
		Name:     d.name,
		Value:    id,
		Path:     "/",
		Domain:   d.domain,
		HttpOnly: true,
		Secure:   IsSecure(d.r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(d.maxAge.Seconds()),
	})
	d.id = id
	return id, nil
}

// Forget expires the device cookie so the browser stops pointing at its
// secondary entry. Used when that entry could not be deleted.
func (d *Device) Forget() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.id = ""
	d.forgotten = true
	http.SetCookie(d.w, &http.Cookie{
		Name:     d.name,
		Value:    "",
		Path:     "/",
		Domain:   d.domain,
		HttpOnly: true,
		Secure:   IsSecure(d.r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
