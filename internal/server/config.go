package server

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	Port              string   `json:"port"`
	Ssl               bool     `json:"ssl"`
	SslCert           string   `json:"sslCert"`
	SslKey            string   `json:"sslKey"`
	FileLog           string   `json:"fileLog"`
	Production        bool     `json:"production"`
	Origin            string   `json:"origin"`
	CorsOrigins       []string `json:"corsOrigins"`
	RateLimit         uint     `json:"rateLimit"` // requests per second per IP
	WorkerConcurrency int      `json:"workerConcurrency"`
	WorkerSpeed       int      `json:"workerSpeed"` // notification pool size
	WorkerQueue       int      `json:"workerQueue"`
}

var GlobalConfig Config

func DefaultConfig() Config {
	return Config{
		Port:              "8000",
		Origin:            "http://localhost:3000",
		CorsOrigins:       []string{"http://localhost:3000"},
		RateLimit:         100,
		WorkerConcurrency: 10,
		WorkerSpeed:       2,
		WorkerQueue:       100,
	}
}

// ConfigLoad reads the JSON config at path over the defaults. A missing file
// keeps the defaults.
func ConfigLoad(path string) (Config, error) {
	config := DefaultConfig()
	configFile, err := os.Open(path)
	if os.IsNotExist(err) {
		GlobalConfig = config
		SetLogger(config.FileLog)
		return config, nil
	}
	if err != nil {
		return config, err
	}
	defer configFile.Close()
	if err := json.NewDecoder(configFile).Decode(&config); err != nil {
		return config, fmt.Errorf("decode %s: %w", path, err)
	}
	if config.Origin == "" {
		return config, fmt.Errorf("decode %s: origin is required", path)
	}
	if len(config.CorsOrigins) == 0 {
		config.CorsOrigins = []string{config.Origin}
	}
	GlobalConfig = config
	SetLogger(config.FileLog)
	return config, nil
}
