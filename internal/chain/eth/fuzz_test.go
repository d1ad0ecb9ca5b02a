package eth

import (
	"strings"
	"testing"

	tallyerr "github.com/mrz1836/tally/pkg/errors"
)

func addAddressSeeds(f *testing.F) {
	f.Helper()
	for _, seed := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAe",
		"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGGG",
		"",
		"0x",
		"\x00\x01\x02",
	} {
		f.Add(seed)
	}
}

// FuzzValidateAddress checks that wallet validation never panics and that
// every rejection is an INVALID_ADDRESS input error.
func FuzzValidateAddress(f *testing.F) {
	addAddressSeeds(f)

	f.Fuzz(func(t *testing.T, input string) {
		err := ValidateAddress(input)
		if err == nil {
			if !IsValidAddress(input) {
				t.Errorf("ValidateAddress accepted malformed address %q", input)
			}
			return
		}
		if tallyerr.Code(err) != tallyerr.ErrInvalidAddress.Code {
			t.Errorf("ValidateAddress(%q) code = %s", input, tallyerr.Code(err))
		}
		if !tallyerr.IsInputError(err) {
			t.Errorf("ValidateAddress(%q) is not an input error", input)
		}
	})
}

// FuzzNormalizeAddress checks that normalized addresses are checksummed and
// validate again, and that checksumming leaves malformed input untouched.
func FuzzNormalizeAddress(f *testing.F) {
	addAddressSeeds(f)

	f.Fuzz(func(t *testing.T, input string) {
		if !IsValidAddress(input) {
			if got := ToChecksumAddress(input); got != input {
				t.Errorf("ToChecksumAddress modified malformed input %q to %q", input, got)
			}
			return
		}

		normalized, err := NormalizeAddress(input)
		if ValidateAddress(input) != nil {
			if err == nil {
				t.Errorf("NormalizeAddress accepted %q", input)
			}
			return
		}
		if err != nil {
			t.Fatalf("NormalizeAddress(%q): %v", input, err)
		}
		if !strings.EqualFold(normalized, input) {
			t.Errorf("NormalizeAddress(%q) = %q changed the address", input, normalized)
		}
		if ValidateAddress(normalized) != nil {
			t.Errorf("NormalizeAddress(%q) = %q does not validate", input, normalized)
		}
	})
}
