// Package codec implements the wire-format framing for the compact
// attestation message: a big-endian header, a RAW DEFLATE chain
// with a preset dictionary, a fixed-width fingerprint and flag byte, and a
// trailing signature. The codec only splits framing; it never interprets
// certificate contents.
package codec

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/copperhead-labs/attestation-server/internal/verifyerr"
)

const (
	// ProtocolVersion is the only wire version this server understands.
	ProtocolVersion uint8 = 1

	// MaxEncodedChainLength bounds the inflated chain stream, in bytes.
	MaxEncodedChainLength = 3000

	// MaxMessageSize bounds the whole wire payload. Decode enforces it; the
	// HTTP transport only caps request bodies at 64 KiB.
	MaxMessageSize = 2953

	// FingerprintSize is the width of the persistent key fingerprint field.
	FingerprintSize = 32

	headerLen = 1 + 2 // version + compressed_len
)

// Message is the decoded form of an attestation wire payload.
type Message struct {
	Version uint8

	// Chain holds the DER-encoded certificates exactly as presented, leaf
	// first. The codec does not enforce a length on this slice; C2 does.
	Chain [][]byte

	PersistentFingerprint [FingerprintSize]byte
	OSEnforcedFlags       uint8

	// SignedRange is a read-only slice over the original wire bytes
	// covering [version ... os_enforced_flags], i.e. everything the
	// signature was computed over.
	SignedRange []byte

	Signature []byte
}

// Decode parses a wire payload into a Message. It performs only framing
// validation; it never inspects certificate contents.
func Decode(data []byte) (*Message, error) {
	if len(data) > MaxMessageSize {
		return nil, verifyerr.Newf(verifyerr.CodeTruncatedMessage, "payload of %d bytes exceeds MAX_MESSAGE_SIZE", len(data))
	}
	if len(data) < headerLen {
		return nil, verifyerr.New(verifyerr.CodeTruncatedMessage, "payload shorter than header")
	}

	version := data[0]
	if version > ProtocolVersion {
		return nil, verifyerr.Newf(verifyerr.CodeUnsupportedVersion, "version %d is newer than %d", version, ProtocolVersion)
	}

	compressedLen := int(binary.BigEndian.Uint16(data[1:3]))
	offset := headerLen
	if len(data) < offset+compressedLen+FingerprintSize+1 {
		return nil, verifyerr.New(verifyerr.CodeTruncatedMessage, "payload too short for declared chain length")
	}

	compressed := data[offset : offset+compressedLen]
	offset += compressedLen

	var fpr [FingerprintSize]byte
	copy(fpr[:], data[offset:offset+FingerprintSize])
	offset += FingerprintSize

	flags := data[offset]
	offset++

	signedRange := data[:offset]
	signature := data[offset:]

	chain, err := inflateChain(compressed)
	if err != nil {
		return nil, err
	}

	return &Message{
		Version:               version,
		Chain:                 chain,
		PersistentFingerprint: fpr,
		OSEnforcedFlags:       flags,
		SignedRange:           signedRange,
		Signature:             signature,
	}, nil
}

// inflateChain decompresses the RAW DEFLATE chain stream and splits it into
// its [u16 len][len bytes] DER records.
func inflateChain(compressed []byte) ([][]byte, error) {
	r := flate.NewReaderDict(bytes.NewReader(compressed), dictionary)
	defer r.Close()

	// Read one byte beyond the budget so an oversized stream is detected
	// without buffering an unbounded amount of attacker-controlled data.
	limited := io.LimitReader(r, MaxEncodedChainLength+1)
	inflated, err := io.ReadAll(limited)
	if err != nil {
		return nil, verifyerr.Newf(verifyerr.CodeTruncatedMessage, "inflate: %v", err)
	}
	if len(inflated) > MaxEncodedChainLength {
		return nil, verifyerr.Newf(verifyerr.CodeChainTooLarge, "inflated chain exceeds %d bytes", MaxEncodedChainLength)
	}

	var chain [][]byte
	for len(inflated) > 0 {
		if len(inflated) < 2 {
			return nil, verifyerr.New(verifyerr.CodeTruncatedMessage, "truncated chain record length")
		}
		recLen := int(binary.BigEndian.Uint16(inflated[:2]))
		inflated = inflated[2:]
		if len(inflated) < recLen {
			return nil, verifyerr.New(verifyerr.CodeTruncatedMessage, "truncated chain record body")
		}
		cert := make([]byte, recLen)
		copy(cert, inflated[:recLen])
		chain = append(chain, cert)
		inflated = inflated[recLen:]
	}

	return chain, nil
}

// Encode serializes chain/fingerprint/flags/signature into the wire format.
// It is the inverse of Decode and is used by tests and by clients
// constructing well-formed messages; the server itself only decodes.
func Encode(version uint8, chain [][]byte, fpr [FingerprintSize]byte, flags uint8, signature []byte) ([]byte, error) {
	compressed, err := deflateChain(chain)
	if err != nil {
		return nil, err
	}
	if len(compressed) > 0xFFFF {
		return nil, fmt.Errorf("codec: compressed chain too large to frame: %d bytes", len(compressed))
	}

	var buf bytes.Buffer
	buf.WriteByte(version)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(compressed)))
	buf.Write(lenBuf[:])
	buf.Write(compressed)
	buf.Write(fpr[:])
	buf.WriteByte(flags)
	buf.Write(signature)

	return buf.Bytes(), nil
}

func deflateChain(chain [][]byte) ([]byte, error) {
	var plain bytes.Buffer
	for _, cert := range chain {
		if len(cert) > 0xFFFF {
			return nil, fmt.Errorf("codec: certificate too large to frame: %d bytes", len(cert))
		}
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(cert)))
		plain.Write(lenBuf[:])
		plain.Write(cert)
	}

	var compressed bytes.Buffer
	w, err := flate.NewWriterDict(&compressed, flate.DefaultCompression, dictionary)
	if err != nil {
		return nil, fmt.Errorf("codec: new deflate writer: %w", err)
	}
	if _, err := w.Write(plain.Bytes()); err != nil {
		return nil, fmt.Errorf("codec: deflate write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: deflate close: %w", err)
	}

	return compressed.Bytes(), nil
}

// SignedPayload reconstructs the bytes the signature is computed over, for
// callers (e.g. C2/C7) that need to pass them to a crypto.Verifier. It is
// simply Message.SignedRange, exposed as a named accessor for readability
// at call sites.
func (m *Message) SignedPayload() []byte {
	return m.SignedRange
}
