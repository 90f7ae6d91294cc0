package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/domain/models"
)

// recordedCall is one interaction with the fake gateway
type recordedCall struct {
	Op       string // deploy, call, read, advance
	Name     string // component name for deploys, label for calls
	Kind     string
	Method   string
	Target   common.Address
	Args     []any
	From     common.Address
	Value    *big.Int
	GasLimit uint64
}

func (c recordedCall) key() string {
	if c.Op == "deploy" {
		return "deploy:" + c.Name
	}
	return c.Name + "." + c.Method
}

// fakeGateway is an in-memory chain that records every call in order
type fakeGateway struct {
	mu       sync.Mutex
	calls    []recordedCall
	block    uint64
	deployed uint64
	chainID  uint64
	code     map[common.Address][]byte

	// failures by "Label.method" or "deploy:Name"
	failures map[string]error

	// reads by "Label.method"
	reads map[string][]any

	proposals int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		block:    100,
		chainID:  31337,
		code:     make(map[common.Address][]byte),
		failures: make(map[string]error),
		reads:    make(map[string][]any),
	}
}

// failWith makes the given call revert
func (g *fakeGateway) failWith(key string) {
	label, method := key, ""
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '.' {
			label, method = key[:i], key[i+1:]
			break
		}
	}
	g.failures[key] = domain.ChainCallError{Target: label, Method: method, Reason: "execution reverted"}
}

func (g *fakeGateway) ChainID(ctx context.Context) (uint64, error) {
	return g.chainID, nil
}

func (g *fakeGateway) LatestBlock(ctx context.Context) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.block, nil
}

func (g *fakeGateway) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	return g.code[address], nil
}

func (g *fakeGateway) DeployContract(ctx context.Context, req DeployRequest) (*TxReceipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	call := recordedCall{Op: "deploy", Name: req.Name, Kind: req.Kind, Args: req.Args, From: req.From.Address}
	g.calls = append(g.calls, call)
	if err, ok := g.failures[call.key()]; ok {
		return nil, err
	}

	g.deployed++
	g.block++
	addr := common.BigToAddress(new(big.Int).SetUint64(0x1000 + g.deployed))
	g.code[addr] = []byte{0x60, 0x80}
	return &TxReceipt{
		TxHash:          common.BigToHash(new(big.Int).SetUint64(g.block)),
		BlockNumber:     g.block,
		ContractAddress: addr,
	}, nil
}

func (g *fakeGateway) Call(ctx context.Context, req CallRequest) (*TxReceipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	call := recordedCall{
		Op:       "call",
		Name:     req.Label,
		Kind:     req.Kind,
		Method:   req.Method,
		Target:   req.Target,
		Args:     req.Args,
		From:     req.From.Address,
		Value:    req.Value,
		GasLimit: req.GasLimit,
	}
	g.calls = append(g.calls, call)
	if err, ok := g.failures[call.key()]; ok {
		return nil, err
	}

	g.block++
	receipt := &TxReceipt{
		TxHash:      common.BigToHash(new(big.Int).SetUint64(g.block)),
		BlockNumber: g.block,
	}
	if req.Method == "proposeCalls" || req.Method == "proposeContributionReward" {
		receipt.Events = []models.Event{{
			Name:    "NewProposal",
			Address: req.Target,
			Fields:  map[string]any{"_proposalId": [32]byte(fakeProposalID(g.proposals))},
		}}
		g.proposals++
	}
	return receipt, nil
}

func (g *fakeGateway) Read(ctx context.Context, req ReadRequest) ([]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	call := recordedCall{Op: "read", Name: req.Label, Kind: req.Kind, Method: req.Method, Target: req.Target, Args: req.Args}
	g.calls = append(g.calls, call)
	if v, ok := g.reads[call.key()]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("no read configured for %s", call.key())
}

func (g *fakeGateway) AdvanceTime(ctx context.Context, seconds uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, recordedCall{Op: "advance", Args: []any{seconds}})
	g.block++
	return nil
}

// callsTo returns recorded calls matching "Label.method" or "deploy:Name"
func (g *fakeGateway) callsTo(key string) []recordedCall {
	var out []recordedCall
	for _, c := range g.calls {
		if c.key() == key {
			out = append(out, c)
		}
	}
	return out
}

// keys returns the key of every recorded call with the given op
func (g *fakeGateway) keys(op string) []string {
	var out []string
	for _, c := range g.calls {
		if op == "" || c.Op == op {
			out = append(out, c.key())
		}
	}
	return out
}

func fakeProposalID(n int) common.Hash {
	return common.BigToHash(big.NewInt(int64(0xabc000 + n)))
}

// mockContentStore is a testify mock of ContentStore
type mockContentStore struct {
	mock.Mock
}

func (m *mockContentStore) Put(ctx context.Context, blob []byte) (models.ContentDigest, error) {
	args := m.Called(ctx, blob)
	return args.Get(0).(models.ContentDigest), args.Error(1)
}

// mockPrompter is a testify mock of InteractivePrompter
type mockPrompter struct {
	mock.Mock
}

func (m *mockPrompter) Confirm(ctx context.Context, message string) (bool, error) {
	args := m.Called(ctx, message)
	return args.Bool(0), args.Error(1)
}

// recordingSink keeps every progress event
type recordingSink struct {
	events []ProgressEvent
	infos  []string
	errors []string
}

func (s *recordingSink) OnProgress(ctx context.Context, event ProgressEvent) {
	s.events = append(s.events, event)
}

func (s *recordingSink) Info(message string)  { s.infos = append(s.infos, message) }
func (s *recordingSink) Error(message string) { s.errors = append(s.errors, message) }

func (s *recordingSink) stages() []string {
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Stage
	}
	return out
}

var (
	deployerAddr = common.HexToAddress("0x22Ff0428359EAB1644bf905DaD2733e7BF041E54")
	aliceAddr    = common.HexToAddress("0xDF775EdC85fACa1B11eB97FBDeCfB89deAd8C66c")
)

func testRuntimeConfig() *config.RuntimeConfig {
	deployer := config.Sender{Name: "deployer", Address: deployerAddr}
	return &config.RuntimeConfig{
		ProjectRoot: ".",
		DataDir:     ".trebdao",
		Network: &config.Network{
			Name:     "localhost",
			ChainID:  31337,
			Unlocked: true,
			Dev:      true,
		},
		Sender: &deployer,
		Senders: map[string]config.Sender{
			"deployer": deployer,
			"alice":    {Name: "alice", Address: aliceAddr},
		},
		NonInteractive: true,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// harness wires the use cases around a fake gateway
type harness struct {
	cfg       *config.RuntimeConfig
	gateway   *fakeGateway
	content   *mockContentStore
	sink      *recordingSink
	submitter *Submitter
}

func newHarness() *harness {
	cfg := testRuntimeConfig()
	gw := newFakeGateway()
	log := discardLogger()
	return &harness{
		cfg:       cfg,
		gateway:   gw,
		content:   &mockContentStore{},
		sink:      &recordingSink{},
		submitter: NewSubmitter(gw, NewConfirmer(gw, cfg), NewSenderBook(cfg), log),
	}
}

func (h *harness) provisioner() *ProvisionComponents {
	return NewProvisionComponents(h.submitter, h.sink, discardLogger())
}

func (h *harness) linker() *LinkPipeline {
	return NewLinkPipeline(h.submitter, h.sink, discardLogger())
}

func (h *harness) permissions(abis ABIResolver) *ConfigurePermissions {
	return NewConfigurePermissions(h.submitter, abis, h.sink, discardLogger())
}

func (h *harness) interpreter() *ReplayActions {
	return NewReplayActions(h.submitter, h.gateway, h.content, h.cfg, h.sink, discardLogger())
}

// staticABI resolves selectors from a fixed table
type staticABI map[string][4]byte

func (s staticABI) Selector(kind, method string) ([4]byte, error) {
	if id, ok := s[kind+"."+method]; ok {
		return id, nil
	}
	return [4]byte{}, fmt.Errorf("method %s not found in %s", method, kind)
}

func (s staticABI) HasArtifact(string) bool { return true }
