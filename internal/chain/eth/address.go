package eth

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

// addressLen is the length of a 0x-prefixed 20-byte address.
const addressLen = 2 + 2*20

// IsValidAddress reports whether address is 0x followed by 40 hex digits.
// The EIP-55 checksum is not checked.
func IsValidAddress(address string) bool {
	if len(address) != addressLen || !strings.HasPrefix(address, "0x") {
		return false
	}
	_, err := hex.DecodeString(address[2:])
	return err == nil
}

// ToChecksumAddress returns the EIP-55 form of address, or address unchanged
// when it is malformed.
func ToChecksumAddress(address string) string {
	if !IsValidAddress(address) {
		return address
	}
	return checksum(strings.ToLower(address[2:]))
}

// checksum upper-cases each letter of the lower-case hex whose keccak nibble
// is 8 or more.
func checksum(lower string) string {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(lower))
	digest := h.Sum(nil)

	var b strings.Builder
	b.Grow(addressLen)
	b.WriteString("0x")
	for i := range len(lower) {
		c := lower[i]
		nibble := digest[i/2] >> 4
		if i%2 == 1 {
			nibble = digest[i/2] & 0x0f
		}
		if c >= 'a' && nibble >= 8 {
			c -= 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ValidateAddress checks a wallet address. Single-case addresses carry no
// checksum and are accepted; mixed-case ones must match EIP-55.
func ValidateAddress(address string) error {
	if !IsValidAddress(address) {
		return tallyerr.WithDetails(tallyerr.ErrInvalidAddress, map[string]string{
			"address": address,
		})
	}

	digits := address[2:]
	if digits == strings.ToLower(digits) || digits == strings.ToUpper(digits) {
		return nil
	}

	want := checksum(strings.ToLower(digits))
	if address == want {
		return nil
	}
	err := tallyerr.WithDetails(tallyerr.ErrInvalidAddress, map[string]string{
		"address": address,
		"reason":  "bad checksum",
	})
	return tallyerr.WithSuggestion(err, "Did you mean '"+want+"'?")
}

// NormalizeAddress validates address and returns its checksummed form, which
// is how wallets are keyed in results and exports.
func NormalizeAddress(address string) (string, error) {
	if err := ValidateAddress(address); err != nil {
		return "", err
	}
	return ToChecksumAddress(address), nil
}
