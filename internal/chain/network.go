package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Network is static descriptive metadata about the target chain.
type Network struct {
	Name        string
	ChainID     *big.Int
	ExplorerURL string
}

// TxLink builds the explorer link used as a record's confirmation reference.
func (n Network) TxLink(hash common.Hash) string {
	return strings.TrimRight(n.ExplorerURL, "/") + "/tx/" + hash.Hex()
}

func (n Network) String() string {
	id := "?"
	if n.ChainID != nil {
		id = n.ChainID.String()
	}
	if n.Name == "" {
		return fmt.Sprintf("chain_id=%s", id)
	}
	return fmt.Sprintf("%s (chain_id=%s)", n.Name, id)
}
