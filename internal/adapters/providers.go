package adapters

import (
	"github.com/google/wire"
	"github.com/trebuchet-org/treb-dao/internal/adapters/artifacts"
	"github.com/trebuchet-org/treb-dao/internal/adapters/chain"
	"github.com/trebuchet-org/treb-dao/internal/adapters/fs"
	"github.com/trebuchet-org/treb-dao/internal/adapters/interactive"
	"github.com/trebuchet-org/treb-dao/internal/adapters/ipfs"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

// FSSet provides filesystem-based implementations
var FSSet = wire.NewSet(
	fs.NewDeploymentConfigLoader,
	wire.Bind(new(usecase.DeploymentConfigLoader), new(*fs.DeploymentConfigLoader)),

	fs.NewDescriptorStore,
	wire.Bind(new(usecase.DescriptorStore), new(*fs.DescriptorStore)),
)

// ArtifactSet provides the compiled contract repository
var ArtifactSet = wire.NewSet(
	artifacts.NewRepository,
	wire.Bind(new(usecase.ABIResolver), new(*artifacts.Repository)),
	wire.Bind(new(chain.ArtifactSource), new(*artifacts.Repository)),
)

// ChainSet provides the JSON-RPC chain gateway
var ChainSet = wire.NewSet(
	chain.NewGateway,
	wire.Bind(new(usecase.ChainGateway), new(*chain.Gateway)),
)

// ContentSet provides content-addressed storage for proposal metadata
var ContentSet = wire.NewSet(
	ipfs.NewContentStore,
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewPrompterAdapter,
	wire.Bind(new(usecase.InteractivePrompter), new(*interactive.PrompterAdapter)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	FSSet,
	ArtifactSet,
	ChainSet,
	ContentSet,
	InteractiveSet,
)
