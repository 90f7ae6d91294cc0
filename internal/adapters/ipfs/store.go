package ipfs

import (
	"log/slog"

	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// NewContentStore selects the IPFS node when an API URL is configured and
// the local directory store otherwise
func NewContentStore(cfg *config.RuntimeConfig, log *slog.Logger) usecase.ContentStore {
	if cfg.IPFS.APIURL != "" {
		return NewHTTPStore(cfg.IPFS.APIURL, log.With("component", "ipfs"))
	}
	return NewLocalStore(cfg.IPFS.LocalDir)
}
