// Package preconnect warms HTTP connections to origins the user is likely to visit.
package preconnect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Config holds the warmer settings
type Config struct {
	// Timeout bounds a single warmup request
	Timeout time.Duration

	// Window suppresses repeated warmups of the same origin
	Window time.Duration

	// Client is used for the warmup requests. Its transport keeps the idle
	// connection, so it should be shared with whatever performs the real load.
	Client *http.Client

	// Registerer receives the warmer's metrics; nil skips registration
	Registerer prometheus.Registerer

	// AllowPrivate permits warmups of loopback, private and link-local hosts.
	// Without it such origins are counted as invalid, and the default client
	// refuses to dial them even when a public name resolves to one.
	AllowPrivate bool
}

var errBlockedAddress = errors.New("address not allowed")

// Warmer implements suggest.Connector by sending a HEAD request to the origin
// of a URL in the background.
type Warmer struct {
	client       *http.Client
	timeout      time.Duration
	window       time.Duration
	allowPrivate bool

	mu     sync.Mutex
	recent map[string]time.Time
	now    func() time.Time

	wg       sync.WaitGroup
	attempts *prometheus.CounterVec
}

// New creates a warmer
func New(cfg Config) *Warmer {
	w := &Warmer{
		client:       cfg.Client,
		timeout:      cfg.Timeout,
		window:       cfg.Window,
		allowPrivate: cfg.AllowPrivate,
		recent:       make(map[string]time.Time),
		now:          time.Now,
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "preconnect_attempts_total",
			Help: "Speculative connection attempts by result.",
		}, []string{"result"}),
	}

	if w.timeout <= 0 {
		w.timeout = 5 * time.Second
	}
	if w.client == nil {
		w.client = newClient(w.timeout, w.allowPrivate)
	}
	if w.window <= 0 {
		w.window = 30 * time.Second
	}

	if cfg.Registerer != nil {
		if err := cfg.Registerer.Register(w.attempts); err != nil {
			log.Warn().Err(err).Msg("preconnect metrics not registered")
		}
	}

	return w
}

// SpeculativeConnect starts warming a connection to the origin of rawURL and
// returns immediately. Failures are logged and otherwise ignored.
func (w *Warmer) SpeculativeConnect(rawURL string) {
	origin, ok := originOf(rawURL)
	if !ok || (!w.allowPrivate && privateOrigin(origin)) {
		w.attempts.WithLabelValues("invalid").Inc()
		return
	}

	if !w.claim(origin) {
		w.attempts.WithLabelValues("suppressed").Inc()
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.warm(origin)
	}()
}

// Wait blocks until all started warmups have finished
func (w *Warmer) Wait() {
	w.wg.Wait()
}

func (w *Warmer) warm(origin string) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, origin, nil)
	if err != nil {
		w.attempts.WithLabelValues("error").Inc()
		return
	}

	start := time.Now()
	res, err := w.client.Do(req)
	if err != nil {
		w.attempts.WithLabelValues("error").Inc()
		log.Debug().Err(err).Msgf("preconnect %s failed", origin)
		return
	}
	res.Body.Close()

	w.attempts.WithLabelValues("ok").Inc()
	log.Debug().Msgf("preconnect %s: %d in %d ms", origin, res.StatusCode, int64(time.Since(start)/time.Millisecond))
}

// claim reports whether origin may be warmed now and records the attempt
func (w *Warmer) claim(origin string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()

	if last, ok := w.recent[origin]; ok && now.Sub(last) < w.window {
		return false
	}

	for o, t := range w.recent {
		if now.Sub(t) >= w.window {
			delete(w.recent, o)
		}
	}

	w.recent[origin] = now
	return true
}

func originOf(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	return scheme + "://" + strings.ToLower(u.Host) + "/", true
}

// privateOrigin reports whether origin names a host that must not be warmed
// from a server: localhost or a literal non-public address
func privateOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return true
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	if ip := net.ParseIP(host); ip != nil {
		return !publicIP(ip)
	}

	return false
}

func publicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast())
}

// guardDial rejects connections to non-public addresses after name resolution
func guardDial(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}

	ip := net.ParseIP(host)
	if ip == nil || !publicIP(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, address)
	}

	return nil
}

func newClient(timeout time.Duration, allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: timeout}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !allowPrivate {
		dialer.Control = guardDial
		// a proxy would be dialed instead of the checked origin
		transport.Proxy = nil
	}
	transport.DialContext = dialer.DialContext

	return &http.Client{Transport: transport}
}
