package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-dao/internal/domain"
	"github.com/trebuchet-org/treb-dao/internal/domain/config"
	"github.com/trebuchet-org/treb-dao/internal/usecase"
)

const schemeABI = `[
  {"type": "constructor", "inputs": [{"name": "avatar", "type": "address"}, {"name": "name", "type": "string"}]},
  {"type": "function", "name": "setNextStage", "stateMutability": "nonpayable", "inputs": [{"name": "next", "type": "address"}], "outputs": []},
  {"type": "function", "name": "getParametersHash", "stateMutability": "view", "inputs": [{"name": "params", "type": "uint256[2]"}, {"name": "voteOnBehalf", "type": "address"}], "outputs": [{"name": "", "type": "bytes32"}]},
  {"type": "event", "name": "ProposalStateChange", "anonymous": false, "inputs": [{"name": "_proposalId", "type": "bytes32", "indexed": true}, {"name": "_state", "type": "uint256", "indexed": false}]}
]`

var (
	avatar    = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	deployed  = common.HexToAddress("0xCf7Ed3AccA5a467e9e704C703E8D87F634fB0Fc9")
	unlocked  = config.Sender{Name: "alice", Address: common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")}
	zeroBloom = "0x" + strings.Repeat("00", 256)
	zeroHash  = common.Hash{}.Hex()
)

type testArtifacts struct {
	abi abi.ABI
}

func (a testArtifacts) ABI(kind string) (*abi.ABI, error) {
	if kind != "Scheme" {
		return nil, fmt.Errorf("artifact %s: %w", kind, domain.ErrNotFound)
	}
	return &a.abi, nil
}

func (a testArtifacts) LinkedBytecode(string, map[string]common.Address) ([]byte, error) {
	return []byte{0x60, 0x01}, nil
}

func (a testArtifacts) Event(topic common.Hash, _ string) (*abi.Event, bool) {
	for _, ev := range a.abi.Events {
		if ev.ID == topic {
			return &ev, true
		}
	}
	return nil, false
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// fakeNode answers the JSON-RPC methods the gateway uses
type fakeNode struct {
	mu sync.Mutex

	methods []string
	sent    []map[string]any
	raw     []*types.Transaction

	pendingPolls int
	status       string
	contract     *common.Address
	logs         func(tx common.Hash) []map[string]any
	callResult   string
	callErr      *rpcError
	sendErr      *rpcError
}

func newFakeNode() *fakeNode {
	return &fakeNode{status: "0x1"}
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, rpcErr := n.handle(req.Method, req.Params)
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (n *fakeNode) handle(method string, params []json.RawMessage) (any, *rpcError) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.methods = append(n.methods, method)

	switch method {
	case "eth_chainId":
		return "0x7a69", nil
	case "eth_blockNumber":
		return "0x10", nil
	case "eth_getCode":
		return "0x6001", nil
	case "eth_getTransactionCount":
		return "0x3", nil
	case "eth_estimateGas":
		if n.sendErr != nil {
			return nil, n.sendErr
		}
		return "0x5208", nil
	case "eth_maxPriorityFeePerGas":
		return "0x3b9aca00", nil
	case "eth_getBlockByNumber":
		return map[string]any{
			"parentHash":       zeroHash,
			"sha3Uncles":       zeroHash,
			"miner":            common.Address{}.Hex(),
			"stateRoot":        zeroHash,
			"transactionsRoot": zeroHash,
			"receiptsRoot":     zeroHash,
			"logsBloom":        zeroBloom,
			"difficulty":       "0x0",
			"number":           "0x10",
			"gasLimit":         "0x1c9c380",
			"gasUsed":          "0x0",
			"timestamp":        "0x0",
			"extraData":        "0x",
			"mixHash":          zeroHash,
			"nonce":            "0x0000000000000000",
			"baseFeePerGas":    "0x3b9aca00",
		}, nil
	case "eth_sendTransaction":
		if n.sendErr != nil {
			return nil, n.sendErr
		}
		var args map[string]any
		_ = json.Unmarshal(params[0], &args)
		n.sent = append(n.sent, args)
		return crypto.Keccak256Hash(params[0]).Hex(), nil
	case "eth_sendRawTransaction":
		var raw hexutil.Bytes
		_ = json.Unmarshal(params[0], &raw)
		tx := new(types.Transaction)
		if err := tx.UnmarshalBinary(raw); err != nil {
			return nil, &rpcError{Code: -32602, Message: err.Error()}
		}
		n.raw = append(n.raw, tx)
		return tx.Hash().Hex(), nil
	case "eth_getTransactionReceipt":
		if n.pendingPolls > 0 {
			n.pendingPolls--
			return nil, nil
		}
		var hash common.Hash
		_ = json.Unmarshal(params[0], &hash)
		return n.receipt(hash), nil
	case "eth_call":
		if n.callErr != nil {
			return nil, n.callErr
		}
		return n.callResult, nil
	case "evm_increaseTime":
		return 0, nil
	case "evm_mine":
		return "0x0", nil
	}
	return nil, &rpcError{Code: -32601, Message: "method not found: " + method}
}

func (n *fakeNode) receipt(hash common.Hash) map[string]any {
	logs := []map[string]any{}
	if n.logs != nil {
		logs = n.logs(hash)
	}
	receipt := map[string]any{
		"type":              "0x2",
		"status":            n.status,
		"cumulativeGasUsed": "0x5208",
		"gasUsed":           "0x5208",
		"effectiveGasPrice": "0x1",
		"logsBloom":         zeroBloom,
		"logs":              logs,
		"transactionHash":   hash.Hex(),
		"transactionIndex":  "0x0",
		"blockHash":         common.Hash{0xbb}.Hex(),
		"blockNumber":       "0x11",
		"contractAddress":   nil,
	}
	if n.contract != nil {
		receipt["contractAddress"] = n.contract.Hex()
	}
	return receipt
}

func (n *fakeNode) calledMethods() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.methods...)
}

func newTestGateway(t *testing.T, node *fakeNode, network *config.Network) *Gateway {
	t.Helper()
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	parsed, err := abi.JSON(strings.NewReader(schemeABI))
	require.NoError(t, err)

	if network != nil {
		network.RPCURL = srv.URL
		network.PollInterval = time.Millisecond
	}
	cfg := &config.RuntimeConfig{Network: network}
	g := NewGateway(cfg, testArtifacts{abi: parsed}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(g.Close)
	return g
}

func devNetwork() *config.Network {
	return &config.Network{Name: "localhost", Unlocked: true, Dev: true}
}

func revertData(t *testing.T, reason string) string {
	t.Helper()
	packed, err := abi.Arguments{{Type: mustType(t, "string")}}.Pack(reason)
	require.NoError(t, err)
	return hexutil.Encode(append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...))
}

func TestGatewayReads(t *testing.T) {
	ctx := context.Background()
	node := newFakeNode()
	g := newTestGateway(t, node, devNetwork())

	id, err := g.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(31337), id)

	block, err := g.LatestBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), block)

	code, err := g.GetCode(ctx, avatar)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01}, code)

	node.callResult = common.Hash{0xab}.Hex()
	values, err := g.Read(ctx, usecase.ReadRequest{
		Target: deployed,
		Label:  "DXDVotingMachine",
		Kind:   "Scheme",
		Method: "getParametersHash",
		Args:   []any{[]any{"1", "2"}, avatar},
	})
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, [32]byte{0xab}, values[0])
}

func TestGatewayDeployContract(t *testing.T) {
	node := newFakeNode()
	node.contract = &deployed
	node.pendingPolls = 2
	g := newTestGateway(t, node, devNetwork())

	receipt, err := g.DeployContract(context.Background(), usecase.DeployRequest{
		Name: "MasterWalletScheme",
		Kind: "Scheme",
		Args: []any{avatar, "Master Wallet"},
		From: unlocked,
	})
	require.NoError(t, err)
	assert.Equal(t, deployed, receipt.ContractAddress)
	assert.Equal(t, uint64(17), receipt.BlockNumber)

	require.Len(t, node.sent, 1)
	sent := node.sent[0]
	assert.True(t, strings.EqualFold(unlocked.Address.Hex(), sent["from"].(string)))
	assert.NotContains(t, sent, "to")
	data := sent["data"].(string)
	assert.True(t, strings.HasPrefix(data, "0x6001"))
	assert.Len(t, data, 2+4+128*2)
}

func TestGatewayCall(t *testing.T) {
	proposalID := common.Hash{0x42}
	stateChange := crypto.Keccak256Hash([]byte("ProposalStateChange(bytes32,uint256)"))

	t.Run("decodes events of the receipt", func(t *testing.T) {
		node := newFakeNode()
		node.logs = func(tx common.Hash) []map[string]any {
			return []map[string]any{
				{
					"address":          deployed.Hex(),
					"topics":           []string{stateChange.Hex(), proposalID.Hex()},
					"data":             hexutil.Encode(common.LeftPadBytes([]byte{1}, 32)),
					"blockNumber":      "0x11",
					"transactionHash":  tx.Hex(),
					"transactionIndex": "0x0",
					"blockHash":        common.Hash{0xbb}.Hex(),
					"logIndex":         "0x0",
					"removed":          false,
				},
				{
					"address":          avatar.Hex(),
					"topics":           []string{common.Hash{0x99}.Hex()},
					"data":             "0x",
					"blockNumber":      "0x11",
					"transactionHash":  tx.Hex(),
					"transactionIndex": "0x0",
					"blockHash":        common.Hash{0xbb}.Hex(),
					"logIndex":         "0x1",
					"removed":          false,
				},
			}
		}
		g := newTestGateway(t, node, devNetwork())

		receipt, err := g.Call(context.Background(), usecase.CallRequest{
			Target: deployed,
			Label:  "Submission",
			Kind:   "Scheme",
			Method: "setNextStage",
			Args:   []any{avatar},
			From:   unlocked,
		})
		require.NoError(t, err)
		require.Len(t, receipt.Events, 1, "unknown events are skipped")

		ev := receipt.Events[0]
		assert.Equal(t, "ProposalStateChange", ev.Name)
		assert.Equal(t, deployed, ev.Address)
		id, ok := ev.Field("_proposalId")
		require.True(t, ok)
		assert.Equal(t, [32]byte(proposalID), id)
		state, _ := ev.Field("_state")
		assert.Equal(t, big.NewInt(1), state)

		sent := node.sent[0]
		assert.True(t, strings.EqualFold(deployed.Hex(), sent["to"].(string)))
		assert.True(t, strings.HasPrefix(sent["data"].(string), hexutil.Encode(crypto.Keccak256([]byte("setNextStage(address)"))[:4])))
	})

	t.Run("native transfer with explicit gas", func(t *testing.T) {
		node := newFakeNode()
		g := newTestGateway(t, node, devNetwork())

		_, err := g.Call(context.Background(), usecase.CallRequest{
			Target:   avatar,
			Label:    "Avatar",
			Value:    big.NewInt(5),
			GasLimit: 9_000_000,
			From:     unlocked,
		})
		require.NoError(t, err)
		assert.Equal(t, "0x5", node.sent[0]["value"])
		assert.Equal(t, "0x895440", node.sent[0]["gas"])
	})

	t.Run("reverted receipt carries the reason", func(t *testing.T) {
		node := newFakeNode()
		node.status = "0x0"
		node.callErr = &rpcError{Code: 3, Message: "execution reverted", Data: revertData(t, "proposal not executable")}
		g := newTestGateway(t, node, devNetwork())

		_, err := g.Call(context.Background(), usecase.CallRequest{
			Target: deployed, Label: "DXDVotingMachine", Kind: "Scheme", Method: "setNextStage",
			Args: []any{avatar}, From: unlocked,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrChainCall))

		var callErr domain.ChainCallError
		require.True(t, errors.As(err, &callErr))
		assert.Equal(t, "proposal not executable", callErr.Reason)
		assert.Equal(t, "setNextStage", callErr.Method)
		assert.NotEqual(t, common.Hash{}, callErr.TxHash)
	})

	t.Run("rejected submission", func(t *testing.T) {
		node := newFakeNode()
		node.sendErr = &rpcError{Code: -32000, Message: "execution reverted: Ownable: caller is not the owner"}
		g := newTestGateway(t, node, devNetwork())

		_, err := g.Call(context.Background(), usecase.CallRequest{
			Target: deployed, Label: "Reputation", Kind: "Scheme", Method: "setNextStage",
			Args: []any{avatar}, From: unlocked,
		})
		var callErr domain.ChainCallError
		require.True(t, errors.As(err, &callErr))
		assert.Equal(t, "Ownable: caller is not the owner", callErr.Reason)
		assert.Equal(t, "Reputation", callErr.Target)
	})

	t.Run("bad arguments are configuration errors", func(t *testing.T) {
		g := newTestGateway(t, newFakeNode(), devNetwork())
		_, err := g.Call(context.Background(), usecase.CallRequest{
			Target: deployed, Label: "Submission", Kind: "Scheme", Method: "setNextStage",
			Args: []any{"not-an-address"}, From: unlocked,
		})
		assert.True(t, errors.Is(err, domain.ErrConfiguration))

		_, err = g.Call(context.Background(), usecase.CallRequest{
			Target: deployed, Label: "Submission", Kind: "Scheme", Method: "setPrevStage",
			Args: []any{avatar}, From: unlocked,
		})
		assert.True(t, errors.Is(err, domain.ErrConfiguration))
	})
}

func TestGatewaySignsWithLocalKey(t *testing.T) {
	key, err := crypto.HexToECDSA("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	deployer := config.Sender{Name: "deployer", Address: crypto.PubkeyToAddress(key.PublicKey), Key: key}

	node := newFakeNode()
	g := newTestGateway(t, node, &config.Network{Name: "gnosis"})

	_, err = g.Call(context.Background(), usecase.CallRequest{
		Target: deployed, Label: "Submission", Kind: "Scheme", Method: "setNextStage",
		Args: []any{avatar}, From: deployer,
	})
	require.NoError(t, err)

	require.Len(t, node.raw, 1)
	tx := node.raw[0]
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(3), tx.Nonce())
	assert.Equal(t, uint64(21000+4200), tx.Gas())
	assert.Equal(t, big.NewInt(31337), tx.ChainId())

	signer, err := types.Sender(types.LatestSignerForChainID(big.NewInt(31337)), tx)
	require.NoError(t, err)
	assert.Equal(t, deployer.Address, signer)
	assert.Empty(t, node.sent)
}

func TestGatewayRejectsUnsignableSender(t *testing.T) {
	g := newTestGateway(t, newFakeNode(), &config.Network{Name: "gnosis"})
	_, err := g.Call(context.Background(), usecase.CallRequest{
		Target: deployed, Label: "Submission", Kind: "Scheme", Method: "setNextStage",
		Args: []any{avatar}, From: unlocked,
	})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestGatewayAdvanceTime(t *testing.T) {
	node := newFakeNode()
	g := newTestGateway(t, node, devNetwork())

	require.NoError(t, g.AdvanceTime(context.Background(), 3600))
	assert.Equal(t, []string{"evm_increaseTime", "evm_mine"}, node.calledMethods())
}

func TestGatewayWithoutNetwork(t *testing.T) {
	g := newTestGateway(t, newFakeNode(), nil)
	_, err := g.ChainID(context.Background())
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestGatewayReceiptTimeout(t *testing.T) {
	t.Run("unmined transaction hits the confirmation bound", func(t *testing.T) {
		node := newFakeNode()
		node.pendingPolls = 1 << 30
		network := devNetwork()
		network.ConfirmTimeout = 50 * time.Millisecond
		g := newTestGateway(t, node, network)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		start := time.Now()
		_, err := g.Call(ctx, usecase.CallRequest{
			Target: deployed, Label: "Submission", Kind: "Scheme", Method: "setNextStage",
			Args: []any{avatar}, From: unlocked,
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrConfirmationTimeout), "got %v", err)
		assert.Less(t, time.Since(start), 2*time.Second)

		var timeout domain.ConfirmationTimeoutError
		require.True(t, errors.As(err, &timeout))
		assert.NotEqual(t, common.Hash{}, timeout.TxHash)
	})

	t.Run("cancelled run is not reported as a timeout", func(t *testing.T) {
		node := newFakeNode()
		node.pendingPolls = 1 << 30
		g := newTestGateway(t, node, devNetwork())

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		_, err := g.Call(ctx, usecase.CallRequest{
			Target: deployed, Label: "Submission", Kind: "Scheme", Method: "setNextStage",
			Args: []any{avatar}, From: unlocked,
		})
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrConfirmationTimeout))
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	})
}
