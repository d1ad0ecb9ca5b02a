package eth

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// EIP-55 reference checksums.
//
//nolint:gochecknoglobals // Test data
var checksummed = []string{
	"0x52908400098527886E0F7030069857D2E4169EE7",
	"0x8617E340B3D01FA5F11F306F4090FD50E238070D",
	"0xde709f2102306220921060314715629080e2fb77",
	"0x27b1fdb04752bbc536007a920d24acb045561c26",
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	"0x0000000000000000000000000000000000000000",
}

func TestToChecksumAddress(t *testing.T) {
	t.Parallel()

	for _, want := range checksummed {
		t.Run(want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, want, ToChecksumAddress(want))
			assert.Equal(t, want, ToChecksumAddress(strings.ToLower(want)))
			assert.Equal(t, want, ToChecksumAddress("0x"+strings.ToUpper(want[2:])))
		})
	}
}

func TestToChecksumAddress_MatchesGoEthereum(t *testing.T) {
	t.Parallel()

	for _, addr := range []string{
		"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		"0xdac17f958d2ee523a2206206994597c13d831ec7",
		"0x55d398326f99059ff775485246999027b3197955",
		"0xffffffffffffffffffffffffffffffffffffffff",
	} {
		assert.Equal(t, common.HexToAddress(addr).Hex(), ToChecksumAddress(addr))
	}
}

func TestToChecksumAddress_MalformedUnchanged(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "0x", "0x1234", "not-an-address", "0xZZb86991c6218b36c1d19d4a2e9eb0ce3606eb48"} {
		assert.Equal(t, in, ToChecksumAddress(in))
	}
}

func TestIsValidAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		want    bool
	}{
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", true}, // format only
		{"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"0X5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeA", false},
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed00", false},
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeZ", false},
		{"", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, IsValidAddress(tc.address), tc.address)
	}
}

func TestValidateAddress(t *testing.T) {
	t.Parallel()

	t.Run("accepts checksummed and single-case", func(t *testing.T) {
		t.Parallel()
		for _, addr := range checksummed {
			require.NoError(t, ValidateAddress(addr))
			require.NoError(t, ValidateAddress(strings.ToLower(addr)))
			require.NoError(t, ValidateAddress("0x"+strings.ToUpper(addr[2:])))
		}
	})

	t.Run("rejects malformed", func(t *testing.T) {
		t.Parallel()
		for _, addr := range []string{"", "0x1234", "vitalik.eth", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeG"} {
			err := ValidateAddress(addr)
			require.ErrorIs(t, err, tallyerr.ErrInvalidAddress, addr)
			assert.True(t, tallyerr.IsInputError(err))
		}
	})

	t.Run("bad checksum suggests the fix", func(t *testing.T) {
		t.Parallel()
		err := ValidateAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD")
		require.ErrorIs(t, err, tallyerr.ErrInvalidAddress)
		assert.Contains(t, err.Error(), "bad checksum")

		var te *tallyerr.TallyError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "Did you mean '0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed'?", te.Suggestion)
	})
}

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	const want = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	for _, in := range []string{want, strings.ToLower(want), "0x" + strings.ToUpper(want[2:])} {
		got, err := NormalizeAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := NormalizeAddress("0xa0B86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	require.ErrorIs(t, err, tallyerr.ErrInvalidAddress)

	_, err = NormalizeAddress("")
	require.Error(t, err)
}
