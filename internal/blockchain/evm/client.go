package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"hashstake/dashboard/internal/config"
	"hashstake/dashboard/internal/models"
	"hashstake/dashboard/internal/staking"
)

// Backend is the part of ethclient.Client the dashboard uses
type Backend interface {
	ethereum.ContractCaller
	ethereum.GasEstimator
	ethereum.GasPricer
	ethereum.TransactionSender
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Client wraps the RPC connection and the optional signing key of the connected wallet
type Client struct {
	backend        Backend
	closer         func()
	chainConfig    *config.ChainConfig
	privateKey     *ecdsa.PrivateKey // nil for watch-only or disconnected wallets
	fromAddress    common.Address
	confirmTimeout time.Duration
	pollInterval   time.Duration
	logger         *zap.Logger
}

// NewClient dials the chain's RPC endpoint and loads the wallet key, if any
func NewClient(
	chainCfg *config.ChainConfig,
	walletCfg *config.WalletConfig,
	confirmTimeout time.Duration,
	logger *zap.Logger,
) (*Client, error) {
	ethClient, err := ethclient.Dial(chainCfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint %s: %w", chainCfg.RPCEndpoint, err)
	}

	c, err := NewClientWithBackend(ethClient, chainCfg, walletCfg.PrivateKey, confirmTimeout, logger)
	if err != nil {
		ethClient.Close()
		return nil, err
	}
	c.closer = ethClient.Close
	return c, nil
}

// NewClientWithBackend builds a client on an existing backend. privateKeyHex
// may be empty, in which case the client can only read.
func NewClientWithBackend(
	backend Backend,
	chainCfg *config.ChainConfig,
	privateKeyHex string,
	confirmTimeout time.Duration,
	logger *zap.Logger,
) (*Client, error) {
	c := &Client{
		backend:        backend,
		chainConfig:    chainCfg,
		confirmTimeout: confirmTimeout,
		pollInterval:   2 * time.Second,
		logger:         logger.Named("evm"),
	}

	if privateKeyHex != "" {
		// Parse private key (remove 0x prefix if present)
		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		c.privateKey = privateKey
		c.fromAddress = crypto.PubkeyToAddress(privateKey.PublicKey)
	}

	c.logger.Info("EVM client initialized",
		zap.String("chain_id", chainCfg.ChainID),
		zap.String("chain_name", chainCfg.Name),
		zap.Bool("can_sign", c.privateKey != nil),
		zap.String("signer_address", c.fromAddress.Hex()))

	return c, nil
}

// Close closes the underlying RPC connection
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// ChainID returns the configured chain ID
func (c *Client) ChainID() string {
	return c.chainConfig.ChainID
}

// SignerAddress returns the address of the loaded key and whether a key is loaded
func (c *Client) SignerAddress() (common.Address, bool) {
	return c.fromAddress, c.privateKey != nil
}

// Caller returns the read-only contract caller
func (c *Client) Caller() ethereum.ContractCaller {
	return c.backend
}

// WaitForTransaction waits for a transaction to be mined
func (c *Client) WaitForTransaction(ctx context.Context, txHash common.Hash, timeout time.Duration) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for transaction %s", txHash.Hex())
		case <-ticker.C:
			receipt, err := c.backend.TransactionReceipt(ctx, txHash)
			if err == nil && receipt != nil {
				if receipt.Status == types.ReceiptStatusFailed {
					return receipt, fmt.Errorf("transaction reverted: %s", txHash.Hex())
				}
				return receipt, nil
			}
			// Transaction not yet mined, continue waiting
		}
	}
}

// SignAndSendTransaction creates, signs, and sends a transaction
func (c *Client) SignAndSendTransaction(
	ctx context.Context,
	to common.Address,
	data []byte,
	value *big.Int,
) (common.Hash, error) {
	if c.privateKey == nil {
		return common.Hash{}, errors.New("no signing key loaded")
	}

	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get chain ID: %w", err)
	}

	nonce, err := c.backend.PendingNonceAt(ctx, c.fromAddress)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	gasLimit, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.fromAddress,
		To:    &to,
		Data:  data,
		Value: value,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	// Add 20% buffer
	gasLimit = gasLimit * 120 / 100

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), c.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.Info("Transaction sent",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas_limit", gasLimit))

	return signedTx.Hash(), nil
}

// SubmitAndWait signs call with the loaded key, sends it and waits for the
// receipt. A sender without a matching key is rejected; everything after
// signing that goes wrong, reverts included, is a failed transaction.
// Once the transaction is sent, a failed wait still returns a receipt
// carrying its hash so the caller can trace it.
func (c *Client) SubmitAndWait(ctx context.Context, from models.Account, call *models.Call) (*models.Receipt, error) {
	if c.privateKey == nil || from.Address != c.fromAddress {
		return nil, fmt.Errorf("%w: no signing key for %s", staking.ErrTransactionRejected, from.Address.Hex())
	}
	if len(call.Data) == 0 {
		return nil, fmt.Errorf("%w: %s call has no calldata", staking.ErrTransactionFailed, call.Method)
	}

	txHash, err := c.SignAndSendTransaction(ctx, call.To, call.Data, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", staking.ErrTransactionFailed, err)
	}

	receipt, err := c.WaitForTransaction(ctx, txHash, c.confirmTimeout)
	if err != nil {
		sent := &models.Receipt{TxHash: txHash}
		if receipt != nil && receipt.BlockNumber != nil {
			sent.BlockNumber = receipt.BlockNumber.Uint64()
			sent.GasUsed = receipt.GasUsed
		}
		c.logger.Warn("Transaction sent but not confirmed",
			zap.String("method", call.Method),
			zap.String("tx_hash", txHash.Hex()),
			zap.Error(err))
		return sent, fmt.Errorf("%w: %w", staking.ErrTransactionFailed, err)
	}

	c.logger.Info("Transaction confirmed",
		zap.String("method", call.Method),
		zap.String("tx_hash", txHash.Hex()),
		zap.Uint64("gas_used", receipt.GasUsed),
		zap.Uint64("block_number", receipt.BlockNumber.Uint64()))

	return &models.Receipt{
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}
