package instance

import (
	"os"

	"github.com/mozz-online/mozz-backend/pkg/env"
)

const (
	EnvInstanceID = "MOZZ_INSTANCE_ID"
	envDyno       = "DYNO"
)

// GetID identifies this process in logs. The explicit id wins, then the
// platform dyno name, then the hostname.
func GetID(fallback string) string {
	if id := env.Get(EnvInstanceID, env.Get(envDyno, "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}
