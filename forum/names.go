package forum

import (
	"crypto/rand"
	"math/big"
)

// DefaultTokenNameLength matches the cookie names issued so far.
const DefaultTokenNameLength = 7

const tokenNameAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NameGenerator produces candidate token names. Uniqueness is the ledger's job.
type NameGenerator interface {
	NewName() (string, error)
}

// RandomNames draws Length characters uniformly from [A-Za-z0-9].
type RandomNames struct {
	Length int
}

func (g RandomNames) NewName() (string, error) {
	n := g.Length
	if n <= 0 {
		n = DefaultTokenNameLength
	}
	max := big.NewInt(int64(len(tokenNameAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = tokenNameAlphabet[idx.Int64()]
	}
	return string(buf), nil
}

// NameGeneratorFunc adapts a function to NameGenerator.
type NameGeneratorFunc func() (string, error)

func (f NameGeneratorFunc) NewName() (string, error) { return f() }
