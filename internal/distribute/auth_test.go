package distribute

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type ownerFunc func(ctx context.Context) (common.Address, error)

func (f ownerFunc) Owner(ctx context.Context) (common.Address, error) { return f(ctx) }

func TestVerifyAuthorized(t *testing.T) {
	op := common.HexToAddress("0x" + strings.Repeat("ab", 20))

	ok, err := VerifyAuthorized(context.Background(), op, ownerFunc(func(ctx context.Context) (common.Address, error) {
		return op, nil
	}))
	if err != nil || !ok {
		t.Fatalf("expected authorized, ok=%v err=%v", ok, err)
	}

	other := common.HexToAddress("0x" + strings.Repeat("cd", 20))
	ok, err = VerifyAuthorized(context.Background(), op, ownerFunc(func(ctx context.Context) (common.Address, error) {
		return other, nil
	}))
	if err != nil || ok {
		t.Fatalf("expected not authorized, ok=%v err=%v", ok, err)
	}
}

func TestVerifyAuthorized_OwnerError(t *testing.T) {
	boom := errors.New("boom")
	ok, err := VerifyAuthorized(context.Background(), common.Address{}, ownerFunc(func(ctx context.Context) (common.Address, error) {
		return common.Address{}, boom
	}))
	if ok || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped owner error, ok=%v err=%v", ok, err)
	}
}
