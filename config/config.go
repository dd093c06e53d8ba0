package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	StoreBackend string // mongo | memory
	MongoURI     string
	MongoDBName  string

	WorkLogBackend string // mongo | postgres
	PostgresURL    string

	NotificationsBackend string // none | cassandra
	CassandraHosts       []string
	CassandraKeyspace    string

	LogFile  string
	LogLevel string

	DepartmentAliasesFile string

	RetryMaxAttempts     int
	RetryInitialInterval time.Duration

	SyncMembershipPolicy string // union | exact
	SyncChannelType      string // Private | Department
	SyncOnStartup        bool
	GlobalChannelName    string
}

// Load reads an optional .env file and then the process environment.
// A missing .env is fine; a malformed one is not.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %v", f, err)
		}
	}

	cfg := &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		StoreBackend:          strings.ToLower(getEnv("STORE_BACKEND", "mongo")),
		MongoURI:              getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:           getEnv("MONGO_DB_NAME", "tasks_hub"),
		WorkLogBackend:        strings.ToLower(getEnv("WORKLOG_BACKEND", "mongo")),
		PostgresURL:           os.Getenv("POSTGRES_URL"),
		NotificationsBackend:  strings.ToLower(getEnv("NOTIFICATIONS_BACKEND", "none")),
		CassandraHosts:        splitList(getEnv("CASS_DB", "localhost")),
		CassandraKeyspace:     getEnv("CASS_KEYSPACE", "notifications"),
		LogFile:               os.Getenv("LOG_FILE"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DepartmentAliasesFile: os.Getenv("DEPARTMENT_ALIASES_FILE"),
		SyncMembershipPolicy:  strings.ToLower(getEnv("SYNC_MEMBERSHIP_POLICY", "union")),
		SyncChannelType:       getEnv("SYNC_CHANNEL_TYPE", "Private"),
		GlobalChannelName:     getEnv("GLOBAL_CHANNEL_NAME", "General"),
	}

	var err error
	if cfg.RetryMaxAttempts, err = getInt("RETRY_MAX_ATTEMPTS", 8); err != nil {
		return nil, err
	}
	if cfg.RetryInitialInterval, err = getDuration("RETRY_INITIAL_INTERVAL", 5*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.SyncOnStartup, err = getBool("SYNC_ON_STARTUP", true); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("SERVER_PORT must be a number, got %q", c.ServerPort)
	}
	switch c.StoreBackend {
	case "mongo", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be mongo or memory, got %q", c.StoreBackend)
	}
	switch c.WorkLogBackend {
	case "mongo":
	case "postgres":
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required when WORKLOG_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("WORKLOG_BACKEND must be mongo or postgres, got %q", c.WorkLogBackend)
	}
	switch c.NotificationsBackend {
	case "none":
	case "cassandra":
		if len(c.CassandraHosts) == 0 {
			return errors.New("CASS_DB is required when NOTIFICATIONS_BACKEND=cassandra")
		}
	default:
		return fmt.Errorf("NOTIFICATIONS_BACKEND must be none or cassandra, got %q", c.NotificationsBackend)
	}
	switch c.SyncMembershipPolicy {
	case "union", "exact":
	default:
		return fmt.Errorf("SYNC_MEMBERSHIP_POLICY must be union or exact, got %q", c.SyncMembershipPolicy)
	}
	switch c.SyncChannelType {
	case "Private", "Department":
	default:
		return fmt.Errorf("SYNC_CHANNEL_TYPE must be Private or Department, got %q", c.SyncChannelType)
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false, got %q", key, v)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
