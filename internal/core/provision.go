package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/giantswarm/sitepool/internal/backend"
	"github.com/giantswarm/sitepool/internal/sentinel"
)

// ErrNoFreeSlots is returned by Acquire when every slot is taken, dropped,
// or leased by another process. The pool fails fast rather than queueing
// callers; retry policy stays with the caller.
const ErrNoFreeSlots = sentinel.Error("sitepool: no free slots")

// provisioner turns free slot indexes into ready sites. It owns the
// decision between creating a site that does not exist yet and recycling
// one left over from an earlier run.
type provisioner struct {
	cfg      ManagerConfig
	backends backend.Backends
	registry *slotRegistry
}

func newProvisioner(cfg ManagerConfig, registry *slotRegistry) *provisioner {
	return &provisioner{
		cfg:      cfg,
		backends: cfg.Backends,
		registry: registry,
	}
}

// provision takes a free slot and returns it as a ready Site. On failure the
// slot goes back to the registry, so the caller never cleans up after a
// provision that returned an error.
func (p *provisioner) provision(ctx context.Context) (*Site, error) {
	idx, ok := p.registry.tryTake()
	if !ok {
		return nil, ErrNoFreeSlots
	}

	site, err := p.provisionSlot(ctx, idx)
	if err != nil {
		// The site was never handed out, so the slot returns directly
		// instead of going through the reclaim policy.
		p.registry.giveBack(idx)
		return nil, err
	}
	return site, nil
}

// provisionSlot makes the site for one slot index usable: a missing site is
// created fresh, an existing one is recycled through the cleanup pipeline.
func (p *provisioner) provisionSlot(ctx context.Context, idx int) (*Site, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProvisionTimeout)
	defer cancel()

	name := SlotName(p.cfg.SlotPrefix, idx)

	info, err := p.backends.Provisioner.FindByName(ctx, name)
	switch {
	case errors.Is(err, backend.ErrSiteNotFound):
		log().Debug("creating site", "site", name, "slot", idx)
		info, err = p.backends.Provisioner.Create(ctx, name)
		if err != nil {
			return nil, err
		}
		return newSite(idx, info, false), nil

	case err != nil:
		return nil, err

	default:
		log().Debug("recycling site", "site", name, "slot", idx)
		if err := p.recycle(ctx, info); err != nil {
			return nil, fmt.Errorf("recycle site %s: %w", name, err)
		}
		return newSite(idx, info, true), nil
	}
}
