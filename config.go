package sitepool

import (
	"fmt"

	"github.com/giantswarm/sitepool/internal/adminapi"
	"github.com/giantswarm/sitepool/internal/core"
)

// managerConfig collects everything the options can set. It embeds the core
// config and adds the admin API settings, which exist only to build default
// backends and never reach the core.
type managerConfig struct {
	core.ManagerConfig

	adminBaseURL string
	adminToken   string
	adminRPS     float64
	adminBurst   int
}

func defaultManagerConfig() managerConfig {
	return managerConfig{
		ManagerConfig: core.ManagerConfig{
			PoolSize:             DefaultPoolSize,
			SlotPrefix:           DefaultSlotPrefix,
			AcquireTimeout:       DefaultAcquireTimeout,
			ProvisionTimeout:     DefaultProvisionTimeout,
			CleanupTimeout:       DefaultCleanupTimeout,
			ShutdownDrainTimeout: DefaultShutdownDrainTimeout,
			StaleHandleMarker:    DefaultStaleHandleMarker,
			MarkerFileName:       DefaultMarkerFileName,
		},
		adminRPS:   DefaultAdminRateLimit,
		adminBurst: DefaultAdminRateBurst,
	}
}

// toCoreConfig resolves the final core configuration. When no backends were
// injected it builds the admin API client; having neither backends nor an
// admin API address is a programmer error and panics.
func (c *managerConfig) toCoreConfig() core.ManagerConfig {
	if c.Backends == (Backends{}) {
		if c.adminBaseURL == "" {
			panic("sitepool: no backends configured: provide WithAdminAPI or WithBackends")
		}
		client, err := adminapi.New(adminapi.Config{
			BaseURL: c.adminBaseURL,
			Token:   c.adminToken,
			RPS:     c.adminRPS,
			Burst:   c.adminBurst,
			Logger:  core.Log(),
		})
		if err != nil {
			panic(fmt.Sprintf("sitepool: invalid admin API config: %v", err))
		}
		c.Backends = Backends{
			Provisioner:  client,
			Processes:    client,
			Repositories: client,
			Files:        client,
		}
	}
	return c.ManagerConfig
}
