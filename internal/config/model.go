// internal/config/model.go
//
// Typed configuration model for Forge.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `FORGE_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client in cmd/api *after* Load returns, so secrets
// never sit in flat files or git history.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Database section
//

// Database holds the control-plane DSN.  The DSN template stays in YAML so
// operators can tweak host, port, or flags without touching Vault; the
// password is a `vault:` reference injected at runtime.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password" validate:"required"`
}

//
// DNS provider section
//

// DNS configures the external provider the domain saga drives.  Fallback
// is the CNAME target custom domains must point at; Main is the apex under
// which every website gets its `<id>.<main>` subdomain.
type DNS struct {
	APIURL   string `koanf:"api_url"  validate:"required,url"`
	ZoneID   string `koanf:"zone_id"  validate:"required"`
	Token    string `koanf:"token"    validate:"required"`
	Main     string `koanf:"main_domain"     validate:"required,fqdn"`
	Fallback string `koanf:"fallback_domain" validate:"required,fqdn"`
}

//
// Saga section
//

// Saga bounds the domain lifecycle's provider retries.  Zero values are
// replaced by defaults in the lifecycle constructor.
type Saga struct {
	MaxAttempts    int           `koanf:"max_attempts"`
	InitialBackoff time.Duration `koanf:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff"`
}

//
// Reconciler section
//

// Reconciler controls the background sweep that repairs sagas interrupted
// by a crash.
type Reconciler struct {
	Interval   time.Duration `koanf:"interval"`
	StaleAfter time.Duration `koanf:"stale_after"`
}

//
// Resolver section
//

// Resolver tunes the host → website cache on the serving path.
type Resolver struct {
	IdleTTL    time.Duration `koanf:"idle_ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

//
// Assets section
//

// Assets configures the S3-compatible bucket that stores opaque page
// assets.  MaxSize is in bytes.
type Assets struct {
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	BaseURL   string `koanf:"base_url"`
	MaxSize   int64  `koanf:"max_size"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or FORGE_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // FORGE_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP       HTTP       `koanf:"http"`
	Database   Database   `koanf:"database"`
	DNS        DNS        `koanf:"dns"`
	Saga       Saga       `koanf:"saga"`
	Reconciler Reconciler `koanf:"reconciler"`
	Resolver   Resolver   `koanf:"resolver"`
	Assets     Assets     `koanf:"assets"`
	Paths      Paths      `koanf:"-"` // not loaded from config files
}
