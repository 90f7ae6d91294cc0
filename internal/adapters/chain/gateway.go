package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

const (
	defaultReceiptInterval = time.Second
	defaultReceiptTimeout  = 5 * time.Minute
)

// ArtifactSource provides the ABIs and creation code the gateway encodes with
type ArtifactSource interface {
	ABI(kind string) (*abi.ABI, error)
	LinkedBytecode(kind string, libraries map[string]common.Address) ([]byte, error)
	Event(topic common.Hash, kind string) (*abi.Event, bool)
}

// Gateway implements usecase.ChainGateway over JSON-RPC. The connection is
// opened on first use so commands that never touch the chain need no node.
type Gateway struct {
	cfg       *config.RuntimeConfig
	artifacts ArtifactSource
	log       *slog.Logger

	mu      sync.Mutex
	rpc     *rpc.Client
	client  *ethclient.Client
	chainID *big.Int
}

// NewGateway creates a new chain gateway for the selected network
func NewGateway(cfg *config.RuntimeConfig, artifacts ArtifactSource, log *slog.Logger) *Gateway {
	return &Gateway{
		cfg:       cfg,
		artifacts: artifacts,
		log:       log.With("component", "chain"),
	}
}

func (g *Gateway) connect(ctx context.Context) (*ethclient.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	if g.cfg.Network == nil {
		return nil, domain.Configf("network", "no network selected (use --network)")
	}

	rc, err := rpc.DialContext(ctx, g.cfg.Network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	g.rpc = rc
	g.client = ethclient.NewClient(rc)
	return g.client, nil
}

// Close releases the RPC connection
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rpc != nil {
		g.rpc.Close()
		g.rpc, g.client = nil, nil
	}
}

func (g *Gateway) ChainID(ctx context.Context) (uint64, error) {
	id, err := g.chainIDBig(ctx)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

func (g *Gateway) chainIDBig(ctx context.Context) (*big.Int, error) {
	client, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	cached := g.chainID
	g.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	g.mu.Lock()
	g.chainID = id
	g.mu.Unlock()
	return id, nil
}

func (g *Gateway) LatestBlock(ctx context.Context) (uint64, error) {
	client, err := g.connect(ctx)
	if err != nil {
		return 0, err
	}
	return client.BlockNumber(ctx)
}

func (g *Gateway) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	client, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}
	return client.CodeAt(ctx, address, nil)
}

func (g *Gateway) DeployContract(ctx context.Context, req usecase.DeployRequest) (*usecase.TxReceipt, error) {
	contractABI, err := g.artifacts.ABI(req.Kind)
	if err != nil {
		return nil, err
	}
	code, err := g.artifacts.LinkedBytecode(req.Kind, req.Libraries)
	if err != nil {
		return nil, err
	}
	args, err := packArgs(contractABI.Constructor.Inputs, req.Args)
	if err != nil {
		return nil, domain.Configf(req.Name+".args", "%v", err)
	}

	return g.transact(ctx, txRequest{
		from:   req.From,
		data:   append(code, args...),
		label:  req.Name,
		method: "constructor",
		kind:   req.Kind,
	})
}

func (g *Gateway) Call(ctx context.Context, req usecase.CallRequest) (*usecase.TxReceipt, error) {
	tx := txRequest{
		from:  req.From,
		to:    &req.Target,
		value: req.Value,
		gas:   req.GasLimit,
		label: req.Label,
		kind:  req.Kind,
	}
	if req.Method != "" {
		method, data, err := g.encodeCall(req.Kind, req.Method, req.Args)
		if err != nil {
			return nil, domain.Configf(req.Label+"."+req.Method, "%v", err)
		}
		tx.method = method.Name
		tx.data = data
	}
	return g.transact(ctx, tx)
}

func (g *Gateway) Read(ctx context.Context, req usecase.ReadRequest) ([]any, error) {
	client, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}
	method, data, err := g.encodeCall(req.Kind, req.Method, req.Args)
	if err != nil {
		return nil, domain.Configf(req.Label+"."+req.Method, "%v", err)
	}

	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &req.Target, Data: data}, nil)
	if err != nil {
		return nil, domain.ChainCallError{Target: req.Label, Method: method.Name, Reason: revertReason(err), Err: err}
	}
	values, err := method.Outputs.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s.%s output: %w", req.Label, method.Name, err)
	}
	return values, nil
}

func (g *Gateway) AdvanceTime(ctx context.Context, seconds uint64) error {
	if _, err := g.connect(ctx); err != nil {
		return err
	}
	if err := g.rpc.CallContext(ctx, nil, "evm_increaseTime", seconds); err != nil {
		return fmt.Errorf("evm_increaseTime failed: %w", err)
	}
	if err := g.rpc.CallContext(ctx, nil, "evm_mine"); err != nil {
		return fmt.Errorf("evm_mine failed: %w", err)
	}
	return nil
}

func (g *Gateway) encodeCall(kind, name string, args []any) (*abi.Method, []byte, error) {
	contractABI, err := g.artifacts.ABI(kind)
	if err != nil {
		return nil, nil, err
	}
	method, err := findMethod(contractABI, name)
	if err != nil {
		return nil, nil, err
	}
	packed, err := packArgs(method.Inputs, args)
	if err != nil {
		return nil, nil, err
	}
	return method, append(append([]byte{}, method.ID...), packed...), nil
}

func findMethod(contractABI *abi.ABI, name string) (*abi.Method, error) {
	if m, ok := contractABI.Methods[name]; ok {
		return &m, nil
	}
	for _, m := range contractABI.Methods {
		if m.Sig == name {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("method %s not found in abi", name)
}

type txRequest struct {
	from   config.Sender
	to     *common.Address
	value  *big.Int
	data   []byte
	gas    uint64
	label  string
	method string
	kind   string
}

// transact submits a transaction and waits for its receipt. A failed
// receipt is a ChainCallError carrying the revert reason when available.
func (g *Gateway) transact(ctx context.Context, req txRequest) (*usecase.TxReceipt, error) {
	client, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}

	var hash common.Hash
	switch {
	case req.from.Key != nil:
		hash, err = g.sendSigned(ctx, client, req)
	case g.cfg.Network.Unlocked:
		hash, err = g.sendUnlocked(ctx, req)
	default:
		return nil, domain.Configf("senders."+req.from.Name,
			"%s has no private key and %s does not sign for its accounts", req.from.Address.Hex(), g.cfg.Network.Name)
	}
	if err != nil {
		return nil, domain.ChainCallError{Target: req.label, Method: req.method, Reason: revertReason(err), Err: err}
	}
	g.log.Debug("transaction sent", "target", req.label, "method", req.method, "from", req.from.Address.Hex(), "tx", hash.Hex())

	receipt, err := g.waitReceipt(ctx, client, hash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, domain.ChainCallError{
			Target: req.label,
			Method: req.method,
			TxHash: hash,
			Reason: g.replayRevert(ctx, client, req, receipt.BlockNumber),
		}
	}

	return &usecase.TxReceipt{
		TxHash:          hash,
		BlockNumber:     receipt.BlockNumber.Uint64(),
		ContractAddress: receipt.ContractAddress,
		Events:          g.decodeLogs(receipt.Logs, req.kind),
	}, nil
}

func (g *Gateway) sendSigned(ctx context.Context, client *ethclient.Client, req txRequest) (common.Hash, error) {
	chainID, err := g.chainIDBig(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	nonce, err := client.PendingNonceAt(ctx, req.from.Address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gas := req.gas
	if gas == 0 {
		gas, err = client.EstimateGas(ctx, ethereum.CallMsg{
			From:  req.from.Address,
			To:    req.to,
			Value: req.value,
			Data:  req.data,
		})
		if err != nil {
			return common.Hash{}, err
		}
		gas += gas / 5
	}

	value := req.value
	if value == nil {
		value = new(big.Int)
	}

	head, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get latest header: %w", err)
	}

	var tx *types.Transaction
	if head.BaseFee != nil {
		tip, err := client.SuggestGasTipCap(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to suggest tip: %w", err)
		}
		feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        req.to,
			Value:     value,
			Data:      req.data,
		})
	} else {
		price, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to suggest gas price: %w", err)
		}
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: price,
			Gas:      gas,
			To:       req.to,
			Value:    value,
			Data:     req.data,
		})
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), req.from.Key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

// sendUnlocked lets a dev node sign for one of its own accounts
func (g *Gateway) sendUnlocked(ctx context.Context, req txRequest) (common.Hash, error) {
	args := map[string]any{
		"from": req.from.Address,
		"data": hexutil.Bytes(req.data),
	}
	if req.to != nil {
		args["to"] = req.to
	}
	if req.value != nil {
		args["value"] = (*hexutil.Big)(req.value)
	}
	if req.gas > 0 {
		args["gas"] = hexutil.Uint64(req.gas)
	}

	var hash common.Hash
	if err := g.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// waitReceipt polls for the receipt of hash until it is mined or the
// network's confirmation bound elapses
func (g *Gateway) waitReceipt(ctx context.Context, client *ethclient.Client, hash common.Hash) (*types.Receipt, error) {
	interval := g.cfg.Network.PollInterval
	if interval <= 0 {
		interval = defaultReceiptInterval
	}
	timeout := g.cfg.Network.ConfirmTimeout
	if timeout <= 0 {
		timeout = defaultReceiptTimeout
	}

	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	timedOut := func() error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("waiting for receipt of %s: %w", hash.Hex(), err)
		}
		return domain.ConfirmationTimeoutError{TxHash: hash, Waited: time.Since(start)}
	}

	for {
		receipt, err := client.TransactionReceipt(waitCtx, hash)
		if err == nil {
			return receipt, nil
		}
		if waitCtx.Err() != nil {
			return nil, timedOut()
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get receipt for %s: %w", hash.Hex(), err)
		}

		select {
		case <-waitCtx.Done():
			return nil, timedOut()
		case <-ticker.C:
		}
	}
}

// replayRevert re-executes a failed transaction at its block to recover
// the revert reason
func (g *Gateway) replayRevert(ctx context.Context, client *ethclient.Client, req txRequest, block *big.Int) string {
	_, err := client.CallContract(ctx, ethereum.CallMsg{
		From:  req.from.Address,
		To:    req.to,
		Value: req.value,
		Data:  req.data,
		Gas:   req.gas,
	}, block)
	if err == nil {
		return "transaction reverted"
	}
	if reason := revertReason(err); reason != "" {
		return reason
	}
	return err.Error()
}

// revertReason extracts the Error(string) reason from an RPC error
func revertReason(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decErr := hexutil.Decode(s); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason
				}
			}
		}
	}
	if _, reason, ok := strings.Cut(err.Error(), "execution reverted: "); ok {
		return reason
	}
	return ""
}

var _ usecase.ChainGateway = (*Gateway)(nil)
