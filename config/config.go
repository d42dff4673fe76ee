package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

// Config holds the project config values
type Config struct {
	URL          string `env:"DB_URI" envDefault:"mongodb://127.0.0.1:27017"`
	DatabaseName string `env:"DB_NAME" envDefault:"activities"`
	// DatabaseDriver is mongo or memory
	DatabaseDriver string `env:"DB_DRIVER" envDefault:"mongo"`
	BaseURL        string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	Port           string `env:"PORT" envDefault:"8080"`
	Env            string `env:"ENV" envDefault:"production"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	JWTSecret string `env:"JWT_SECRET"`
	// TokenCacheTTL is how long a verified bearer token is trusted without re-parsing
	TokenCacheTTL time.Duration `env:"TOKEN_CACHE_TTL" envDefault:"5m"`

	JoinCASAttempts         int           `env:"JOIN_CAS_ATTEMPTS" envDefault:"10"`
	FollowerRetryMaxTries   uint          `env:"FOLLOWER_RETRY_MAX_TRIES" envDefault:"5"`
	FollowerRetryInitial    time.Duration `env:"FOLLOWER_RETRY_INITIAL" envDefault:"50ms"`
	FollowerRetryMaxBackoff time.Duration `env:"FOLLOWER_RETRY_MAX_INTERVAL" envDefault:"2s"`
	ReconcileSchedule       string        `env:"RECONCILE_SCHEDULE" envDefault:"*/15 * * * *"`
	ReconcileLockTTL        time.Duration `env:"RECONCILE_LOCK_TTL" envDefault:"10m"`

	StripeSecretKey string `env:"STRIPE_SECRET_KEY"`

	CloudinaryCloudName string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`

	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	EmailFrom      string `env:"EMAIL_FROM" envDefault:"no-reply@activities.app"`
	// ExpoPushURL set to an empty value disables mobile push
	ExpoPushURL string `env:"EXPO_PUSH_URL" envDefault:"https://exp.host/--/api/v2/push/send"`
}

// New sets up all config related services
func New() (*Config, error) {
	conf := &Config{}
	if err := env.Parse(conf); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	//setup zap logger and replace default logger
	logger, err := setLogger(conf.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return conf, nil
}

func setLogger(environment string) (*zap.Logger, error) {
	switch environment {
	case "local":
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return c.Build()
	case "development":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().Errorw(message, "status", httpStatusCode, "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	w.Write([]byte(fmt.Sprintf(`{"response": "%s, %v"}`, message, err)))
}
