package evm

import (
	"github.com/ethereum/go-ethereum/common"

	"hashstake/dashboard/internal/config"
	"hashstake/dashboard/internal/models"
)

// Wallet is the wallet connection configured for this process
type Wallet struct {
	account *models.Account
}

// NewWallet resolves the configured wallet. A loaded signing key wins;
// otherwise a watch address gives a read-only account; otherwise the
// wallet is disconnected.
func NewWallet(client *Client, cfg *config.WalletConfig) *Wallet {
	if addr, ok := client.SignerAddress(); ok {
		return &Wallet{account: &models.Account{Address: addr, CanSign: true}}
	}
	if cfg.WatchAddress != "" {
		return &Wallet{account: &models.Account{Address: common.HexToAddress(cfg.WatchAddress)}}
	}
	return &Wallet{}
}

// Account returns the connected account, or nil when disconnected
func (w *Wallet) Account() *models.Account {
	if w.account == nil {
		return nil
	}
	acct := *w.account
	return &acct
}
