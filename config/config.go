package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/linesmerrill/traffic-portal-api/logging"
	"github.com/linesmerrill/traffic-portal-api/models"
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string
	Env          string

	// DBDriver selects the report store, "mongo" or "mysql"
	DBDriver       string
	MySQLDSN       string
	DBMaxOpenConns int
	DBMaxIdleConns int

	JWTSecret    string
	AMQPURL      string
	AMQPExchange string

	OverdueSweepSpec string
	RequestTimeout   time.Duration
}

// New sets up all config related services. Values from the file named by
// ENV_FILE (default .env) fill in variables the environment does not set.
func New() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	envErr := godotenv.Load(envFile)
	env := os.Getenv("ENV")

	//setup zap logger and replace default logger
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)
	if envErr != nil {
		zap.S().Debugw("no env file loaded, using the process environment", "file", envFile)
	}

	return &Config{
		URL:              os.Getenv("DB_URI"),
		DatabaseName:     os.Getenv("DB_NAME"),
		BaseURL:          os.Getenv("BASE_URL"),
		Port:             getEnv("PORT", "8080"),
		Env:              env,
		DBDriver:         getEnv("DB_DRIVER", "mongo"),
		MySQLDSN:         os.Getenv("MYSQL_DSN"),
		DBMaxOpenConns:   getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:   getEnvInt("DB_MAX_IDLE_CONNS", 10),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AMQPURL:          os.Getenv("AMQP_URL"),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "traffic-portal"),
		OverdueSweepSpec: getEnv("OVERDUE_SWEEP_SCHEDULE", "@every 1h"),
		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
	}
}

func setLogger(env string) (*zap.Logger, error) {
	return logging.New(env)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err. Details of server side errors are logged
// but never written to the client.
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	detail := ""
	if httpStatusCode >= http.StatusInternalServerError {
		zap.S().Errorw(message, "status", httpStatusCode, "error", err)
	} else {
		zap.S().Warnw(message, "status", httpStatusCode, "error", err)
		if err != nil {
			detail = err.Error()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_ = json.NewEncoder(w).Encode(models.ErrorMessageResponse{
		Response: models.MessageError{Message: message, Error: detail},
	})
}
