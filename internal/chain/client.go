package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"
)

// mint-style token contract: owner() plus a (address,uint256) method.
const contractABI = `[
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"%s","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

var reMethod = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Backend is the node access the client needs; *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	receiptReader
}

type receiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Settlement is the terminal outcome of a mined transaction.
type Settlement struct {
	Success     bool
	BlockNumber uint64
	GasUsed     uint64
}

type ClientConfig struct {
	Contract          common.Address
	Method            string
	PollInterval      time.Duration
	SettlementTimeout time.Duration
	// RateLimit caps RPC calls per second, 0 disables throttling.
	RateLimit float64
}

type Client struct {
	contract *bind.BoundContract
	receipts receiptReader

	key     *ecdsa.PrivateKey
	chainID *big.Int
	method  string

	poll    time.Duration
	timeout time.Duration
	limiter *rate.Limiter
}

func NewClient(b Backend, key *ecdsa.PrivateKey, chainID *big.Int, cfg ClientConfig) (*Client, error) {
	if !reMethod.MatchString(cfg.Method) {
		return nil, fmt.Errorf("invalid transfer method %q", cfg.Method)
	}
	if cfg.Method == "owner" {
		return nil, errors.New("transfer method cannot be owner")
	}

	parsed, err := abi.JSON(strings.NewReader(fmt.Sprintf(contractABI, cfg.Method)))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}

	c := &Client{
		contract: bind.NewBoundContract(cfg.Contract, parsed, b, b, b),
		receipts: b,
		key:      key,
		chainID:  chainID,
		method:   cfg.Method,
		poll:     cfg.PollInterval,
		timeout:  cfg.SettlementTimeout,
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return c, nil
}

func (c *Client) Owner(ctx context.Context) (common.Address, error) {
	if err := c.wait(ctx); err != nil {
		return common.Address{}, err
	}

	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "owner"); err != nil {
		return common.Address{}, fmt.Errorf("call owner: %w", err)
	}
	if len(out) == 0 {
		return common.Address{}, errors.New("call owner: empty result")
	}
	owner := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return owner, nil
}

func (c *Client) SubmitTransfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	if err := c.wait(ctx); err != nil {
		return common.Hash{}, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx

	tx, err := c.contract.Transact(opts, c.method, to, amount)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

// AwaitSettlement polls for the receipt until the transaction has at least
// minConfirmations blocks on top (the mining block counts as one) or the
// settlement timeout expires.
func (c *Client) AwaitSettlement(ctx context.Context, hash common.Hash, minConfirmations uint64) (Settlement, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if minConfirmations == 0 {
		minConfirmations = 1
	}

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		st, done, err := c.checkReceipt(ctx, hash, minConfirmations)
		if err != nil {
			return Settlement{}, err
		}
		if done {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return Settlement{}, fmt.Errorf("await %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) checkReceipt(ctx context.Context, hash common.Hash, minConfirmations uint64) (Settlement, bool, error) {
	if err := c.wait(ctx); err != nil {
		return Settlement{}, false, fmt.Errorf("await %s: %w", hash.Hex(), err)
	}

	receipt, err := c.receipts.TransactionReceipt(ctx, hash)
	if err != nil {
		if !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil {
			log.Printf("[CHAIN] receipt %s: %v", hash.Hex(), err)
		}
		return Settlement{}, false, nil
	}
	if receipt == nil || receipt.BlockNumber == nil {
		return Settlement{}, false, nil
	}

	mined := receipt.BlockNumber.Uint64()
	if minConfirmations > 1 {
		if err := c.wait(ctx); err != nil {
			return Settlement{}, false, fmt.Errorf("await %s: %w", hash.Hex(), err)
		}
		head, err := c.receipts.BlockNumber(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[CHAIN] block number: %v", err)
			}
			return Settlement{}, false, nil
		}
		if head < mined || head-mined+1 < minConfirmations {
			return Settlement{}, false, nil
		}
	}

	return Settlement{
		Success:     receipt.Status == types.ReceiptStatusSuccessful,
		BlockNumber: mined,
		GasUsed:     receipt.GasUsed,
	}, true, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// the limiter refuses early when the wait would pass the deadline
		if _, ok := ctx.Deadline(); ok {
			return fmt.Errorf("%v: %w", err, context.DeadlineExceeded)
		}
		return err
	}
	return nil
}
