package onchain

// client.go: go-ethereum adapter for the Project Mocha contracts.
//
// Implements ports.LedgerReader, ports.Submitter and ports.ReceiptSource:
//   - fresh contract reads (farm data, stats, balances, allowances, pause
//     flag, authorized-manager pointer)
//   - off-chain simulation via eth_call before any purchase is signed
//   - legacy tx construction + EIP-155 signing + broadcast
//   - receipt polling with a bounded timeout

import (
	"context"
	"encoding/hex"
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
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
	"github.com/gethsun1/project-mocha-demo/internal/ports"
)

const (
	// Gas price cache TTL, avoids an extra RPC round trip per leg.
	gasPriceTTL = 2 * time.Minute

	// 0.05 gwei fallback, plenty on Scroll Sepolia.
	fallbackGasPriceWei = int64(50_000_000)

	receiptPollInterval = 3 * time.Second

	// Consecutive non-"not found" receipt errors before the watcher is
	// declared unavailable.
	maxReceiptIOErrors = 5
)

// Addresses are the deployed contract addresses the client talks to.
type Addresses struct {
	BeanToken   string
	LandToken   string
	FarmManager string
}

// Client talks to the Mocha contracts over a single RPC endpoint.
// A client without a private key is read-only: reads and simulation work,
// Submit fails.
type Client struct {
	eth        *ethclient.Client
	addrs      Addresses
	chainID    *big.Int
	privateKey []byte
	sender     common.Address

	mu           sync.RWMutex
	cachedGasWei *big.Int
	gasUpdatedAt time.Time
}

// NewClient dials the RPC endpoint. privateKeyHex may be empty (read-only)
// or hex with or without 0x prefix.
func NewClient(rpcURL string, chainID int64, addrs Addresses, privateKeyHex string) (*Client, error) {
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain: dial rpc %s: %w", rpcURL, err)
	}

	c := &Client{
		eth:     eth,
		addrs:   addrs,
		chainID: big.NewInt(chainID),
	}

	if privateKeyHex != "" {
		pkBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("onchain: decode private key: %w", err)
		}
		privKey, err := crypto.ToECDSA(pkBytes)
		if err != nil {
			return nil, fmt.Errorf("onchain: invalid private key: %w", err)
		}
		c.privateKey = pkBytes
		c.sender = crypto.PubkeyToAddress(privKey.PublicKey)
	}

	return c, nil
}

// Sender returns the signing address, empty for read-only clients.
func (c *Client) Sender() string {
	if c.privateKey == nil {
		return ""
	}
	return c.sender.Hex()
}

// Close releases the underlying RPC connection.
func (c *Client) Close() { c.eth.Close() }

// --- ports.LedgerReader ---

// FarmSnapshot reads getFarmData. A contract revert (nonexistent token)
// comes back as a zero-capacity snapshot rather than an error, so the
// validator classifies it as farm-not-found instead of a read failure.
func (c *Client) FarmSnapshot(ctx context.Context, farmID uint64) (domain.FarmSnapshot, error) {
	now := time.Now().UTC()
	out, err := c.call(ctx, c.addrs.LandToken, landTokenABI, "getFarmData", new(big.Int).SetUint64(farmID))
	if err != nil {
		if isRevert(err) {
			return domain.FarmSnapshot{FarmID: farmID, Source: domain.SourceLedger, FetchedAt: now}, nil
		}
		return domain.FarmSnapshot{}, fmt.Errorf("onchain: getFarmData(%d): %w", farmID, err)
	}

	data := *abi.ConvertType(out[0], new(farmDataTuple)).(*farmDataTuple)
	return domain.FarmSnapshot{
		FarmID:         farmID,
		Name:           data.Name,
		Location:       data.Location,
		GPSCoordinates: data.GpsCoordinates,
		TotalArea:      data.TotalArea.Uint64(),
		TreeCapacity:   data.TreeCapacity.Uint64(),
		CurrentTrees:   data.CurrentTrees.Uint64(),
		CreationTime:   time.Unix(data.CreationTime.Int64(), 0).UTC(),
		Farmer:         data.Farmer.Hex(),
		Active:         data.IsActive,
		MetadataURI:    data.MetadataURI,
		Source:         domain.SourceLedger,
		FetchedAt:      now,
	}, nil
}

func (c *Client) FarmStats(ctx context.Context, farmID uint64) (domain.FarmStats, error) {
	out, err := c.call(ctx, c.addrs.FarmManager, farmManagerABI, "getFarmStats", new(big.Int).SetUint64(farmID))
	if err != nil {
		return domain.FarmStats{}, fmt.Errorf("onchain: getFarmStats(%d): %w", farmID, err)
	}
	return domain.FarmStats{
		TotalInvestment: out[0].(*big.Int),
		TotalTrees:      out[1].(*big.Int).Uint64(),
		InvestorCount:   out[2].(*big.Int).Uint64(),
	}, nil
}

func (c *Client) AllFarms(ctx context.Context) ([]uint64, error) {
	out, err := c.call(ctx, c.addrs.FarmManager, farmManagerABI, "getAllFarms")
	if err != nil {
		return nil, fmt.Errorf("onchain: getAllFarms: %w", err)
	}
	raw := out[0].([]*big.Int)
	ids := make([]uint64, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, id.Uint64())
	}
	return ids, nil
}

func (c *Client) Balance(ctx context.Context, owner string) (*big.Int, error) {
	out, err := c.call(ctx, c.addrs.BeanToken, beanTokenABI, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("onchain: balanceOf(%s): %w", owner, err)
	}
	return out[0].(*big.Int), nil
}

func (c *Client) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	out, err := c.call(ctx, c.addrs.BeanToken, beanTokenABI, "allowance",
		common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, fmt.Errorf("onchain: allowance(%s,%s): %w", owner, spender, err)
	}
	return out[0].(*big.Int), nil
}

func (c *Client) LedgerDeps(ctx context.Context) (domain.LedgerDeps, error) {
	paused, err := c.call(ctx, c.addrs.BeanToken, beanTokenABI, "paused")
	if err != nil {
		if isRevert(err) {
			// Token without the pausable extension: treat as not paused.
			paused = []any{false}
		} else {
			return domain.LedgerDeps{}, fmt.Errorf("onchain: paused: %w", err)
		}
	}

	manager, err := c.call(ctx, c.addrs.LandToken, landTokenABI, "farmManager")
	if err != nil {
		return domain.LedgerDeps{}, fmt.Errorf("onchain: farmManager: %w", err)
	}

	return domain.LedgerDeps{
		TokenPaused:   paused[0].(bool),
		FarmManager:   manager[0].(common.Address).Hex(),
		ExpectManager: c.addrs.FarmManager,
	}, nil
}

// --- ports.Submitter ---

// Submit signs and broadcasts the call, returning the tx hash.
func (c *Client) Submit(ctx context.Context, spec ports.CallSpec) (string, error) {
	if c.privateKey == nil {
		return "", fmt.Errorf("onchain: no signing key configured")
	}

	target, callData, err := c.packCall(spec)
	if err != nil {
		return "", err
	}

	privKey, err := crypto.ToECDSA(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("onchain: private key: %w", err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.sender)
	if err != nil {
		return "", fmt.Errorf("onchain: nonce: %w", err)
	}

	gasPrice := c.gasPrice(ctx)

	gasLimit := spec.GasLimit
	if gasLimit == 0 {
		gasLimit, err = c.eth.EstimateGas(ctx, ethereum.CallMsg{
			From:     c.sender,
			To:       &target,
			GasPrice: gasPrice,
			Data:     callData,
		})
		if err != nil {
			return "", fmt.Errorf("onchain: estimate gas: %w", err)
		}
	}

	tx := types.NewTransaction(nonce, target, big.NewInt(0), gasLimit, gasPrice, callData)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), privKey)
	if err != nil {
		return "", fmt.Errorf("onchain: sign tx: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("onchain: send tx: %w", err)
	}

	txHash := signed.Hash().Hex()
	slog.Debug("onchain: transaction sent",
		"method", spec.Method, "target", spec.Target, "gas", gasLimit, "tx", txHash)
	return txHash, nil
}

// Simulate runs the call via eth_call from the sender address. A revert is
// reported as *ports.RevertError with the node's message preserved.
func (c *Client) Simulate(ctx context.Context, spec ports.CallSpec) error {
	target, callData, err := c.packCall(spec)
	if err != nil {
		return err
	}

	_, err = c.eth.CallContract(ctx, ethereum.CallMsg{
		From: c.sender,
		To:   &target,
		Data: callData,
	}, nil)
	if err == nil {
		return nil
	}
	if isRevert(err) {
		return &ports.RevertError{Raw: err.Error()}
	}
	return fmt.Errorf("onchain: simulate %s: %w", spec.Method, err)
}

// --- ports.ReceiptSource ---

// WaitForReceipt polls for the tx receipt until terminal or timeout. A
// timeout is StatusTimedOut, not an error; repeated RPC failures are.
func (c *Client) WaitForReceipt(ctx context.Context, txHash string, timeout time.Duration) (domain.TerminalStatus, error) {
	hash := common.HexToHash(txHash)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	ioErrors := 0
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return domain.StatusTimedOut, nil
		case <-ticker.C:
			receipt, err := c.eth.TransactionReceipt(ctx, hash)
			if err != nil {
				if errors.Is(err, ethereum.NotFound) {
					ioErrors = 0
					continue // not yet mined
				}
				ioErrors++
				if ioErrors >= maxReceiptIOErrors {
					return "", fmt.Errorf("onchain: receipt poll for %s: %w", txHash, err)
				}
				continue
			}
			if receipt.Status != types.ReceiptStatusSuccessful {
				return domain.StatusReverted, nil
			}
			return domain.StatusSuccess, nil
		}
	}
}

// --- internals ---

// call executes a read against the given contract and unpacks the result.
func (c *Client) call(ctx context.Context, target string, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	callData, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	to := common.HexToAddress(target)
	res, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: callData}, nil)
	if err != nil {
		return nil, err
	}

	out, err := contractABI.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// packCall turns a port-level CallSpec into target + calldata. Methods are
// enumerated: the orchestrator only ever submits these two.
func (c *Client) packCall(spec ports.CallSpec) (common.Address, []byte, error) {
	target := common.HexToAddress(spec.Target)

	switch spec.Method {
	case "approve":
		if len(spec.Args) != 2 {
			return common.Address{}, nil, fmt.Errorf("onchain: approve expects 2 args, got %d", len(spec.Args))
		}
		spender, ok := spec.Args[0].(string)
		if !ok {
			return common.Address{}, nil, fmt.Errorf("onchain: approve spender must be an address string")
		}
		amount, ok := spec.Args[1].(*big.Int)
		if !ok {
			return common.Address{}, nil, fmt.Errorf("onchain: approve amount must be *big.Int")
		}
		data, err := beanTokenABI.Pack("approve", common.HexToAddress(spender), amount)
		if err != nil {
			return common.Address{}, nil, fmt.Errorf("onchain: pack approve: %w", err)
		}
		return target, data, nil

	case "purchaseTrees":
		if len(spec.Args) != 2 {
			return common.Address{}, nil, fmt.Errorf("onchain: purchaseTrees expects 2 args, got %d", len(spec.Args))
		}
		farmID, ok := spec.Args[0].(uint64)
		if !ok {
			return common.Address{}, nil, fmt.Errorf("onchain: purchaseTrees farmId must be uint64")
		}
		treeCount, ok := spec.Args[1].(uint64)
		if !ok {
			return common.Address{}, nil, fmt.Errorf("onchain: purchaseTrees treeCount must be uint64")
		}
		data, err := farmManagerABI.Pack("purchaseTrees",
			new(big.Int).SetUint64(farmID), new(big.Int).SetUint64(treeCount))
		if err != nil {
			return common.Address{}, nil, fmt.Errorf("onchain: pack purchaseTrees: %w", err)
		}
		return target, data, nil
	}

	return common.Address{}, nil, fmt.Errorf("onchain: unsupported method %q", spec.Method)
}

// gasPrice returns a cached suggested gas price with a 10% inclusion buffer,
// falling back to a constant when the node misbehaves.
func (c *Client) gasPrice(ctx context.Context) *big.Int {
	c.mu.RLock()
	cached := c.cachedGasWei
	updatedAt := c.gasUpdatedAt
	c.mu.RUnlock()

	if cached != nil && time.Since(updatedAt) < gasPriceTTL {
		return cached
	}

	price, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		slog.Warn("onchain: suggest gas price failed, using fallback", "err", err)
		if cached != nil {
			return cached
		}
		return big.NewInt(fallbackGasPriceWei)
	}

	buffered := new(big.Int).Mul(price, big.NewInt(11))
	buffered.Div(buffered, big.NewInt(10))

	c.mu.Lock()
	c.cachedGasWei = buffered
	c.gasUpdatedAt = time.Now()
	c.mu.Unlock()

	return buffered
}

// isRevert detects execution reverts in node error strings. Geth and Scroll
// both surface them as "execution reverted[: reason]".
func isRevert(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert")
}
