// Package codes mints the short numeric strings visitors type at the gate.
//
// Codes carry no cryptographic weight on their own: uniqueness among active
// codes is enforced at the persistence boundary and the issuance service
// retries minting on collision.  crypto/rand is still used so the sequence
// is not guessable from previously issued codes.
package codes

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// Length is the display length of a gate code.  Six digits keeps the code
// typeable on a keypad while leaving the active key space sparse.
const Length = 6

const codeSpace = 1_000_000 // 10^Length

// Mint returns a zero-padded numeric code of Length digits.
func Mint() (string, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return "", fmt.Errorf("read random code: %w", err)
	}
	n := binary.LittleEndian.Uint64(b[:]) % codeSpace
	return fmt.Sprintf("%0*d", Length, n), nil
}
