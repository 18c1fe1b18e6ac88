package app

import (
	"github.com/tessella/tessella-backend/internal/platform/envutil"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Port        string
	GateProfile string
}

func LoadConfig() Config {
	return Config{
		ServiceName: envutil.String("SERVICE_NAME", "tessella-backend"),
		Environment: envutil.String("ENVIRONMENT", "development"),
		Version:     envutil.String("SERVICE_VERSION", "dev"),
		Port:        envutil.String("PORT", "8080"),
		GateProfile: envutil.String("GATE_PROFILE", "default"),
	}
}
