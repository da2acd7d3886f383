package distribute

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type OwnerReader interface {
	Owner(ctx context.Context) (common.Address, error)
}

// VerifyAuthorized reports whether operator is the owner recorded by the
// contract. Addresses are compared case-insensitively.
func VerifyAuthorized(ctx context.Context, operator common.Address, r OwnerReader) (bool, error) {
	owner, err := r.Owner(ctx)
	if err != nil {
		return false, fmt.Errorf("read owner: %w", err)
	}

	if !strings.EqualFold(owner.Hex(), operator.Hex()) {
		log.Printf("[AUTH] operator %s is not the owner %s", operator.Hex(), owner.Hex())
		return false, nil
	}
	log.Printf("[AUTH] operator %s verified as owner", operator.Hex())
	return true, nil
}
