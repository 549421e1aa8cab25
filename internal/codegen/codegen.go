// Package codegen produces the human-readable bid codes. Uniqueness is
// enforced by the database index; callers retry on conflict.
package codegen

import (
	"crypto/rand"
	"math/big"
)

// alphabet omits 0/O/1/I to keep codes readable over the phone.
const alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const codeLength = 8

type Generator struct {
	prefix string
}

func New(prefix string) *Generator {
	if prefix == "" {
		prefix = "BID"
	}
	return &Generator{prefix: prefix}
}

func (g *Generator) NewBidCode() string {
	buf := make([]byte, codeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// a code collision is caught by the unique index anyway.
			n = big.NewInt(int64(i * 7 % len(alphabet)))
		}
		buf[i] = alphabet[n.Int64()]
	}
	return g.prefix + "-" + string(buf)
}
