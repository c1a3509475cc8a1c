package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultIAMURL     = "https://iam.cloud.ibm.com/identity/token"
	DefaultWatsonxURL = "https://{region}.ml.cloud.ibm.com"
)

type Config struct {
	APIKey    string
	ProjectID string
	Region    string
	Model     string

	IAMURL     string
	WatsonxURL string

	APIPort      string
	HTTPTimeout  time.Duration
	RetryMax     int
	RetryBackoff time.Duration
	SessionTTL   time.Duration

	AMQPURL string
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:       env("IBM_API_KEY", ""),
		ProjectID:    env("IBM_PROJECT_ID", ""),
		Region:       env("WATSONX_REGION", RegionUSSouth),
		Model:        env("WATSONX_MODEL", ModelLlama32),
		IAMURL:       env("IAM_URL", DefaultIAMURL),
		WatsonxURL:   env("WATSONX_URL", DefaultWatsonxURL),
		APIPort:      env("API_PORT", "8080"),
		HTTPTimeout:  envDuration("HTTP_TIMEOUT", 60*time.Second),
		RetryMax:     envInt("RETRY_MAX", 3),
		RetryBackoff: envDuration("RETRY_BACKOFF", 500*time.Millisecond),
		SessionTTL:   envDuration("SESSION_TTL", 2*time.Hour),
		AMQPURL:      env("AMQP_URL", ""),
	}
}

// Validate rejects defaults that no request could ever satisfy.
func (c Config) Validate() error {
	if !validRegion(c.Region) {
		return fmt.Errorf("WATSONX_REGION %q is not one of %v", c.Region, Regions)
	}
	if !validModel(c.Model) {
		return fmt.Errorf("WATSONX_MODEL %q is not one of %v", c.Model, Models)
	}
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		n, _ := strconv.Atoi(v)
		if n > 0 {
			return n
		}
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			return d
		}
	}
	return def
}
