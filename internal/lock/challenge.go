package lock

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// codeSpace is the number of possible 6-digit codes.
var codeSpace = big.NewInt(1000000)

// newChallengeCode mints a 6-digit numeric one-time code.
func newChallengeCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generating challenge code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// codeMatches compares a submitted code against the minted one in
// constant time.
func codeMatches(submitted, minted string) bool {
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(minted)) == 1
}
