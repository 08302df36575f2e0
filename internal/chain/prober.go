// Package chain checks tracked contract addresses against their networks.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const pausableABIJSON = `[{"inputs":[],"name":"paused","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"}]`

var pausableABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(pausableABIJSON))
	if err != nil {
		panic("failed to parse pausable ABI: " + err.Error())
	}
	pausableABI = parsed
}

var (
	// ErrInvalidAddress is returned for strings that are not 20-byte hex addresses.
	ErrInvalidAddress = errors.New("invalid contract address")
	// ErrNetworkNotConfigured is returned when no RPC endpoint is known for a network.
	ErrNetworkNotConfigured = errors.New("network rpc url not configured")
)

// Inspection is what the chain reports for one address.
type Inspection struct {
	Network     string
	Address     string
	HasCode     bool
	CodeSize    int
	BlockNumber uint64
	Balance     decimal.Decimal
	// Paused is nil when the contract does not expose paused().
	Paused *bool
}

// Options parameterise the prober.
type Options struct {
	// RPCURLs maps lower-case network names to JSON-RPC endpoints.
	RPCURLs map[string]string
	Timeout time.Duration
}

// Prober dials one client per network on first use.
type Prober struct {
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	clients map[string]*ethclient.Client
}

// NewProber builds a prober.
func NewProber(opts Options, logger zerolog.Logger) *Prober {
	return &Prober{
		opts:    opts,
		logger:  logger.With().Str("component", "chain_prober").Logger(),
		clients: make(map[string]*ethclient.Client),
	}
}

// Inspect reads code, balance, head block and pause state for address on network.
func (p *Prober) Inspect(ctx context.Context, network, address string) (Inspection, error) {
	if !common.IsHexAddress(address) {
		return Inspection{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	network = strings.ToLower(strings.TrimSpace(network))

	timeout := p.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := p.client(ctx, network)
	if err != nil {
		return Inspection{}, err
	}

	addr := common.HexToAddress(address)
	out := Inspection{Network: network, Address: addr.Hex()}

	code, err := client.CodeAt(ctx, addr, nil)
	if err != nil {
		return Inspection{}, fmt.Errorf("get code: %w", err)
	}
	out.CodeSize = len(code)
	out.HasCode = len(code) > 0

	balance, err := client.BalanceAt(ctx, addr, nil)
	if err != nil {
		return Inspection{}, fmt.Errorf("get balance: %w", err)
	}
	out.Balance = weiToEther(balance)

	block, err := client.BlockNumber(ctx)
	if err != nil {
		return Inspection{}, fmt.Errorf("block number: %w", err)
	}
	out.BlockNumber = block

	if out.HasCode {
		out.Paused = p.paused(ctx, client, addr)
	}

	p.logger.Debug().
		Str("network", network).
		Str("address", out.Address).
		Int("code_size", out.CodeSize).
		Uint64("block", block).
		Msg("inspected contract")
	return out, nil
}

// Close drops every dialled client.
func (p *Prober) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for network, c := range p.clients {
		c.Close()
		delete(p.clients, network)
	}
}

func (p *Prober) paused(ctx context.Context, client *ethclient.Client, addr common.Address) *bool {
	payload, err := pausableABI.Pack("paused")
	if err != nil {
		return nil
	}
	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil || len(res) == 0 {
		return nil
	}
	outputs, err := pausableABI.Unpack("paused", res)
	if err != nil || len(outputs) != 1 {
		return nil
	}
	v, ok := outputs[0].(bool)
	if !ok {
		return nil
	}
	return &v
}

func (p *Prober) client(ctx context.Context, network string) (*ethclient.Client, error) {
	url := strings.TrimSpace(p.opts.RPCURLs[network])
	if url == "" {
		return nil, fmt.Errorf("%w: %s", ErrNetworkNotConfigured, network)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[network]; ok {
		return c, nil
	}
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s rpc: %w", network, err)
	}
	p.clients[network] = c
	return c, nil
}

func weiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}
