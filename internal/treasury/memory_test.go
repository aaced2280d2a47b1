package treasury

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBookCredit(t *testing.T) {
	book := NewMemoryBook()
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")

	require.NoError(t, book.Credit(context.Background(), wallet, big.NewInt(7)))
	require.NoError(t, book.Credit(context.Background(), wallet, big.NewInt(5)))

	assert.Equal(t, "12", book.Balance(wallet).String())
}

func TestMemoryBookDistribute(t *testing.T) {
	book := NewMemoryBook()
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")

	err := book.Distribute(context.Background(), []Payout{
		{Wallet: a, Amount: big.NewInt(9)},
		{Wallet: b, Amount: big.NewInt(6)},
	})
	require.NoError(t, err)

	assert.Equal(t, "9", book.Balance(a).String())
	assert.Equal(t, "6", book.Balance(b).String())
}

func TestMemoryBookInjectedFailure(t *testing.T) {
	book := NewMemoryBook()
	wallet := common.HexToAddress("0x1111111111111111111111111111111111111111")

	boom := errors.New("settlement offline")
	book.Fail(boom)

	err := book.Distribute(context.Background(), []Payout{{Wallet: wallet, Amount: big.NewInt(3)}})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "0", book.Balance(wallet).String(), "failed distribution must not credit anything")

	book.Fail(nil)
	require.NoError(t, book.Credit(context.Background(), wallet, big.NewInt(3)))
	assert.Equal(t, "3", book.Balance(wallet).String())
}
