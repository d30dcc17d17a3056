package security

import (
	"crypto/rand"
	"errors"
	"io"
)

const (
	upperLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerLetters = "abcdefghijkmnopqrstuvwxyz"
	digits       = "23456789"

	// PasswordAlphabet omits characters that are easy to misread (0/O, 1/l/I).
	PasswordAlphabet = upperLetters + lowerLetters + digits

	MinPasswordLength = 8
)

var (
	ErrInvalidLength   = errors.New("length must be non-negative")
	ErrInvalidAlphabet = errors.New("alphabet must hold between 1 and 256 bytes")
)

var source io.Reader = rand.Reader

// RandomString draws length bytes uniformly from alphabet.
func RandomString(length int, alphabet string) (string, error) {
	if length < 0 {
		return "", ErrInvalidLength
	}
	if len(alphabet) == 0 || len(alphabet) > 256 {
		return "", ErrInvalidAlphabet
	}

	out := make([]byte, 0, length)
	for len(out) < length {
		index, err := uniformIndex(len(alphabet))
		if err != nil {
			return "", err
		}
		out = append(out, alphabet[index])
	}
	return string(out), nil
}

// Password returns a random password holding at least one upper case letter, lower case
// letter and digit. Lengths below MinPasswordLength are raised to it.
func Password(length int) (string, error) {
	if length < MinPasswordLength {
		length = MinPasswordLength
	}

	out := make([]byte, 0, length)
	for _, class := range []string{upperLetters, lowerLetters, digits} {
		index, err := uniformIndex(len(class))
		if err != nil {
			return "", err
		}
		out = append(out, class[index])
	}
	rest, err := RandomString(length-len(out), PasswordAlphabet)
	if err != nil {
		return "", err
	}
	out = append(out, rest...)

	// Fisher-Yates so the guaranteed characters do not sit at fixed positions.
	for i := len(out) - 1; i > 0; i-- {
		j, err := uniformIndex(i + 1)
		if err != nil {
			return "", err
		}
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

// uniformIndex returns a value in [0, n) for 0 < n <= 256, rejecting bytes past the
// largest multiple of n to avoid modulo bias.
func uniformIndex(n int) (int, error) {
	limit := 256 - 256%n
	var buf [1]byte
	for {
		if _, err := io.ReadFull(source, buf[:]); err != nil {
			return 0, err
		}
		if int(buf[0]) < limit {
			return int(buf[0]) % n, nil
		}
	}
}
