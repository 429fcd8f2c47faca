package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"time"
)

// Config holds the runtime settings of the booking service. Required values
// are enforced by must(); the rest fall back to defaults.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	JWTSecret string // secret used to verify session tokens

	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	DBMaxOpenConns int    // connection pool size
	DBAutoMigrate  bool   // create missing tables at startup

	PaymentWindow   time.Duration // how long a new booking waits for its first payment
	DefaultCurrency string        // currency of bookings whose zone has none

	BrokerURL             string // AMQP URL for booking events; empty disables publishing
	NotifyConsumerEnabled bool   // run the e-mail notification consumer in-process
}

// Load reads configuration values from environment variables and returns a
// Config. Missing required variables cause the program to exit with a fatal
// log message.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		JWTSecret: must("JWT_SECRET"),

		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBMaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
		DBAutoMigrate:  envBool("DB_AUTO_MIGRATE", false),

		PaymentWindow:   envDur("BOOKING_PAYMENT_WINDOW", 30*time.Minute),
		DefaultCurrency: envStr("BOOKING_DEFAULT_CURRENCY", "VND"),

		BrokerURL:             brokerURL(),
		NotifyConsumerEnabled: envBool("NOTIFY_CONSUMER_ENABLED", true),
	}
}

// brokerURL prefers RABBITMQ_URL and falls back to AMQP_URL. Empty means no
// broker is configured.
func brokerURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
