package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
)

const (
	defaultPollInterval   = time.Second
	defaultConfirmTimeout = 5 * time.Minute
)

// Confirmer blocks until a mined transaction is buried under the configured
// number of blocks. Polling runs at a fixed interval with an upper bound.
type Confirmer struct {
	gateway       ChainGateway
	confirmations uint64
	interval      time.Duration
	timeout       time.Duration
}

// NewConfirmer creates a confirmer for the selected network
func NewConfirmer(gateway ChainGateway, cfg *config.RuntimeConfig) *Confirmer {
	c := &Confirmer{
		gateway:  gateway,
		interval: defaultPollInterval,
		timeout:  defaultConfirmTimeout,
	}
	if cfg.Network != nil {
		c.confirmations = cfg.Network.Confirmations
		if cfg.Network.PollInterval > 0 {
			c.interval = cfg.Network.PollInterval
		}
		if cfg.Network.ConfirmTimeout > 0 {
			c.timeout = cfg.Network.ConfirmTimeout
		}
	}
	return c
}

// Wait returns once the chain head reaches block + confirmations
func (c *Confirmer) Wait(ctx context.Context, block uint64) error {
	if c.confirmations == 0 {
		return nil
	}
	target := block + c.confirmations

	start := time.Now()
	deadline := start.Add(c.timeout)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var last uint64
	for {
		head, err := c.gateway.LatestBlock(ctx)
		if err != nil {
			return fmt.Errorf("failed to read latest block: %w", err)
		}
		last = head
		if head >= target {
			return nil
		}
		if time.Now().After(deadline) {
			return domain.ConfirmationTimeoutError{TargetBlock: target, LastBlock: last, Waited: time.Since(start)}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
