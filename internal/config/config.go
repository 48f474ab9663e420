package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Required variables fatal out when missing;
// the engine knobs default to the values the UI countdown and sweep
// cadence were designed around.
type Config struct {
    Env                string // application environment (e.g. "dev", "prod")
    Port               string // HTTP port to listen on
    DBUser             string // database username
    DBPass             string // database password (optional)
    DBHost             string // database host address
    DBPort             string // database port number
    DBName             string // database name
    JWTSecret          string // secret used to sign JWTs
    AccessTTLMin       int    // access token time-to-live in minutes
    BcryptCost         int    // bcrypt cost for password hashing
    HoldTTLMin         int    // ticket hold time-to-live in minutes
    SweepIntervalSec   int    // expiry sweep cadence in seconds
    CheckoutTimeoutSec int    // client-facing checkout timeout in seconds
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:                must("APP_ENV"),
        Port:               must("APP_PORT"),
        DBUser:             must("DB_USER"),
        DBPass:             os.Getenv("DB_PASS"), // empty allowed
        DBHost:             must("DB_HOST"),
        DBPort:             must("DB_PORT"),
        DBName:             must("DB_NAME"),
        JWTSecret:          must("JWT_SECRET"),
        AccessTTLMin:       mustInt("ACCESS_TOKEN_TTL_MIN"),
        BcryptCost:         mustInt("BCRYPT_COST"),
        HoldTTLMin:         envInt("HOLD_TTL_MIN", 15),
        SweepIntervalSec:   envInt("SWEEP_INTERVAL_SEC", 30),
        CheckoutTimeoutSec: envInt("CHECKOUT_TIMEOUT_SEC", 5),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an
// integer.  If conversion fails, the application logs a fatal error and
// exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
