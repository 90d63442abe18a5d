package sitepool

import "time"

// ResetForTesting exposes the singleton reset to the external test package.
var ResetForTesting = resetForTesting

// ConfigSnapshot is a flattened copy of the resolved configuration, exported
// so option tests can assert on it without reaching into internals.
type ConfigSnapshot struct {
	PoolSize             int
	SlotPrefix           string
	AcquireTimeout       time.Duration
	ProvisionTimeout     time.Duration
	CleanupTimeout       time.Duration
	ShutdownDrainTimeout time.Duration
	StaleHandleMarker    string
	MarkerFileName       string
	LeaseDir             string
	LedgerPath           string
	AdminBaseURL         string
	AdminToken           string
	AdminRPS             float64
	AdminBurst           int
	HasBackends          bool
}

// ApplyOptionsForTesting runs opts over a default configuration and returns
// the result, without building a manager.
func ApplyOptionsForTesting(opts ...ManagerOption) ConfigSnapshot {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return ConfigSnapshot{
		PoolSize:             cfg.PoolSize,
		SlotPrefix:           cfg.SlotPrefix,
		AcquireTimeout:       cfg.AcquireTimeout,
		ProvisionTimeout:     cfg.ProvisionTimeout,
		CleanupTimeout:       cfg.CleanupTimeout,
		ShutdownDrainTimeout: cfg.ShutdownDrainTimeout,
		StaleHandleMarker:    cfg.StaleHandleMarker,
		MarkerFileName:       cfg.MarkerFileName,
		LeaseDir:             cfg.LeaseDir,
		LedgerPath:           cfg.LedgerPath,
		AdminBaseURL:         cfg.adminBaseURL,
		AdminToken:           cfg.adminToken,
		AdminRPS:             cfg.adminRPS,
		AdminBurst:           cfg.adminBurst,
		HasBackends:          cfg.Backends != (Backends{}),
	}
}
