package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"ipucli/internal/config"
)

// ClientCounter reports the number of connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	paths     config.PathsConfig
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Runtime   map[string]any `json:"runtime,omitempty"`
	Checks    map[string]any `json:"checks,omitempty"`
}

// VersionInfo reports build metadata
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// NewHealthService creates a new health service with injected dependencies
func NewHealthService(version, buildTime string, paths config.PathsConfig, hub ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		paths:     paths,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// Health returns the overall service health, including the matrix file check.
func (s *HealthService) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
		Runtime: map[string]any{
			"uptime_seconds": time.Since(s.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
		Checks: map[string]any{},
	}

	if config.FileExists(s.paths.MatrixFile) {
		status.Checks["matrix_file"] = "ok"
	} else {
		status.Status = "degraded"
		status.Checks["matrix_file"] = "missing"
		s.logger.WarnContext(ctx, "matrix file missing",
			slog.String("path", s.paths.MatrixFile))
	}

	if s.hub != nil {
		status.Checks["websocket_clients"] = s.hub.ClientCount()
	}

	return status
}

// Ready reports whether the service can serve dashboard views. The matrix
// file must exist on disk.
func (s *HealthService) Ready(ctx context.Context) bool {
	return config.FileExists(s.paths.MatrixFile)
}

// Alive reports process liveness. Always true once the service is running.
func (s *HealthService) Alive(ctx context.Context) bool {
	return true
}

// Version returns build metadata for the version endpoint.
func (s *HealthService) Version() VersionInfo {
	return VersionInfo{
		Version:   s.version,
		BuildTime: s.buildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}
