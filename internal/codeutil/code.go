// Package codeutil generates and validates invite codes.
package codeutil

import (
	"strings"

	"github.com/valyala/fastrand"
)

// Alphabet leaves out 0/O, 1/I and similar lookalikes so codes survive
// being copied from a screen or read out loud.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const Length = 6

// Generate returns a fresh invite code. Uniqueness is enforced by the
// session store at create time, not here.
func Generate() string {
	var sb strings.Builder
	sb.Grow(Length)
	for i := 0; i < Length; i++ {
		sb.WriteByte(Alphabet[fastrand.Uint32n(uint32(len(Alphabet)))])
	}

	return sb.String()
}

// Valid reports whether code is a well-formed invite code.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return false
		}
	}

	return true
}
