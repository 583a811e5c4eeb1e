package hook

import "fmt"

// LogBufferSize is the capacity of the on-device log line buffer. Any
// formatted message longer than this is truncated before being handed to
// OSLog, matching dh_log's fixed 256-byte staging buffer in the original
// runtime. Unlike the original, truncation is observable here through
// Logger.Truncated rather than silently dropping the tail.
const LogBufferSize = 256

// OSLog is the runtime's log sink, resolved once at startup the way the
// original probes for an OS-provided log function before falling back to
// a framebuffer banner. It is nil when no log sink is available; Logger
// then simply drops messages, matching dh_log's "otherwise silent"
// behavior. Rendering the fallback banner itself is out of scope here,
// same as in spec.md — set BannerFallback to wire one in.
var OSLog func(string)

// BannerFallback renders the startup banner when OSLog is unavailable.
// It is an external collaborator (a framebuffer renderer) that this
// package never implements; Init calls it if set.
var BannerFallback func()

var (
	initialized   bool
	hookProviders []func()
)

// RegisterHookProvider queues fn to run once, in registration order,
// the first time Init runs. Providers registered after Init has already
// run are not invoked until the package is reset, matching the
// register-before-bootstrap shape of the original runtime's static
// constructors.
func RegisterHookProvider(fn func()) {
	hookProviders = append(hookProviders, fn)
}

// Init performs one-time runtime bootstrap: it displays the startup
// banner (via OSLog if available, else BannerFallback) and then runs
// every registered hook provider. It is idempotent; calls after the
// first are no-ops, matching spec.md §4.10's "initialization guarded by
// a one-shot flag".
func Init() {
	if initialized {
		return
	}
	initialized = true

	banner()
	for _, provider := range hookProviders {
		provider()
	}
}

func banner() {
	const bannerText = "dolhook runtime initialized"
	switch {
	case OSLog != nil:
		OSLog(bannerText)
	case BannerFallback != nil:
		BannerFallback()
	}
}

// resetForTest clears Init's one-shot guard and registered providers. It
// is unexported and exists only for this package's own tests.
func resetForTest() {
	initialized = false
	hookProviders = nil
}

// Logger is a log sink bounded by LogBufferSize, mirroring dh_log's fixed
// staging buffer. It has no verbosity levels: every message goes to OSLog.
type Logger struct {
	truncated int
}

// Logf formats and emits a message through OSLog, truncating to
// LogBufferSize bytes and counting the truncation if the formatted
// message is longer.
func (l *Logger) Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if len(msg) > LogBufferSize {
		msg = msg[:LogBufferSize]
		l.truncated++
	}
	if OSLog != nil {
		OSLog(msg)
	}
}

// Truncated reports how many messages have been truncated so far.
func (l *Logger) Truncated() int { return l.truncated }
