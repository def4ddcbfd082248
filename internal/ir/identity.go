package ir

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// MakeSymbolID computes the deterministic id of a symbol: a function of
// commit revision, file path, language, fully-qualified name, and
// signature hash. Equal inputs yield equal ids; any differing field
// yields a different id. Reparsing the same file at the same commit
// reproduces the same id; a rename or signature change at a later commit
// produces a different one.
func MakeSymbolID(commitRevision, filePath string, lang Language, fqn, sigHash string) string {
	var sb strings.Builder
	sb.WriteString(commitRevision)
	sb.WriteByte(0)
	sb.WriteString(filePath)
	sb.WriteByte(0)
	sb.WriteString(string(lang))
	sb.WriteByte(0)
	sb.WriteString(fqn)
	sb.WriteByte(0)
	sb.WriteString(sigHash)

	h := xxhash.Sum64String(sb.String())
	return strconv.FormatUint(h, 16)
}

// SigHash digests the full signature text (or, when signature is empty,
// the fqn) into the sig_hash field stored alongside the symbol. xxhash64
// is a 64-bit non-cryptographic hash with known collision properties;
// collisions are tolerated here because the symbol id also encodes fqn
// and file path.
func SigHash(signature, fqn string) string {
	basis := signature
	if basis == "" {
		basis = fqn
	}
	return strconv.FormatUint(xxhash.Sum64String(basis), 16)
}

// ContentHash digests the full byte content of a file for the File.ContentHash
// field (§6.4). Must be collision-resistant; xxhash64 satisfies the "64-bit+
// non-cryptographic hash with known properties" allowance.
func ContentHash(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}
