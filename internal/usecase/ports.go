package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// ChainGateway submits transactions, reads state and tracks the chain head
type ChainGateway interface {
	ChainID(ctx context.Context) (uint64, error)
	LatestBlock(ctx context.Context) (uint64, error)
	GetCode(ctx context.Context, address common.Address) ([]byte, error)

	// DeployContract creates a contract and waits for its receipt
	DeployContract(ctx context.Context, req DeployRequest) (*TxReceipt, error)

	// Call submits a state-changing call (or a native transfer when Method
	// is empty) and waits for its receipt
	Call(ctx context.Context, req CallRequest) (*TxReceipt, error)

	// Read performs a read-only call and returns the decoded outputs
	Read(ctx context.Context, req ReadRequest) ([]any, error)

	// AdvanceTime moves the clock of a dev chain forward and mines a block
	AdvanceTime(ctx context.Context, seconds uint64) error
}

// DeployRequest describes a contract creation
type DeployRequest struct {
	Name      string
	Kind      string
	Args      []any
	Libraries map[string]common.Address
	From      config.Sender
}

// CallRequest describes a state-changing call
type CallRequest struct {
	Target   common.Address
	Label    string // logical name for errors and logs
	Kind     string // artifact whose ABI encodes the call, "" for the fallback ABI
	Method   string
	Args     []any
	From     config.Sender
	Value    *big.Int
	GasLimit uint64
}

// ReadRequest describes a read-only call
type ReadRequest struct {
	Target common.Address
	Label  string
	Kind   string
	Method string
	Args   []any
}

// TxReceipt is the outcome of a mined transaction
type TxReceipt struct {
	TxHash          common.Hash
	BlockNumber     uint64
	ContractAddress common.Address
	Events          []models.Event
}

// ContentStore persists blobs in content-addressed storage
type ContentStore interface {
	Put(ctx context.Context, blob []byte) (models.ContentDigest, error)
}

// ABIResolver answers questions about compiled artifacts
type ABIResolver interface {
	// Selector returns the 4-byte selector of a method on an artifact
	Selector(kind, method string) ([4]byte, error)

	// HasArtifact reports whether an artifact with bytecode exists
	HasArtifact(kind string) bool
}

// DeploymentConfigLoader reads and validates a deployment configuration
type DeploymentConfigLoader interface {
	Load(path string) (*config.DeploymentConfig, error)
}

// DescriptorStore persists network descriptors
type DescriptorStore interface {
	Write(path string, descriptor *models.NetworkDescriptor) error
	Read(path string) (*models.NetworkDescriptor, error)
}

// InteractivePrompter asks the operator for decisions
type InteractivePrompter interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}

// Progress stages emitted by DeployDAO
const (
	StagePlanCreated   = "plan_created"
	StagePhaseStarting = "phase_starting"
	StageComponent     = "component_provisioned"
	StageLink          = "link_applied"
	StagePermission    = "permission_applied"
	StageHandoff       = "handoff_applied"
	StageAction        = "action_completed"
	StageActionFailed  = "action_failed"
	StageRunCompleted  = "run_completed"
)
