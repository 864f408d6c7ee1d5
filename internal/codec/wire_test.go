package codec_test

import (
	"bytes"
	"testing"

	"github.com/copperhead-labs/attestation-server/internal/codec"
	"github.com/copperhead-labs/attestation-server/internal/verifyerr"
)

func sampleChain() [][]byte {
	return [][]byte{
		bytes.Repeat([]byte{0x01}, 300), // leaf
		bytes.Repeat([]byte{0x02}, 400),
		bytes.Repeat([]byte{0x03}, 500),
		bytes.Repeat([]byte{0x04}, 600), // root
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	var fpr [codec.FingerprintSize]byte
	copy(fpr[:], bytes.Repeat([]byte{0xAB}, 32))
	sig := []byte("fake-signature-bytes")

	wire, err := codec.Encode(codec.ProtocolVersion, sampleChain(), fpr, 0b00010101, sig)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	msg, err := codec.Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if msg.Version != codec.ProtocolVersion {
		t.Errorf("version = %d, want %d", msg.Version, codec.ProtocolVersion)
	}
	if len(msg.Chain) != 4 {
		t.Fatalf("chain length = %d, want 4", len(msg.Chain))
	}
	for i, want := range sampleChain() {
		if !bytes.Equal(msg.Chain[i], want) {
			t.Errorf("chain[%d] mismatch", i)
		}
	}
	if msg.PersistentFingerprint != fpr {
		t.Errorf("fingerprint mismatch")
	}
	if msg.OSEnforcedFlags != 0b00010101 {
		t.Errorf("flags = %b, want %b", msg.OSEnforcedFlags, 0b00010101)
	}
	if !bytes.Equal(msg.Signature, sig) {
		t.Errorf("signature mismatch")
	}

	// signed_range must cover exactly [version .. flags], i.e. the wire
	// payload with the signature stripped off the end.
	wantRange := wire[:len(wire)-len(sig)]
	if !bytes.Equal(msg.SignedRange, wantRange) {
		t.Errorf("signed range mismatch")
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	t.Parallel()

	var fpr [codec.FingerprintSize]byte
	wire, err := codec.Encode(codec.ProtocolVersion, sampleChain(), fpr, 0, []byte("sig"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	wire[0] = codec.ProtocolVersion + 1

	_, err = codec.Decode(wire)
	assertCode(t, err, verifyerr.CodeUnsupportedVersion)
}

func TestDecodeRejectsTruncatedMessage(t *testing.T) {
	t.Parallel()

	var fpr [codec.FingerprintSize]byte
	wire, err := codec.Encode(codec.ProtocolVersion, sampleChain(), fpr, 0, []byte("sig"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, err = codec.Decode(wire[:5])
	assertCode(t, err, verifyerr.CodeTruncatedMessage)
}

func TestDecodeRejectsOversizedMessage(t *testing.T) {
	t.Parallel()

	oversized := make([]byte, codec.MaxMessageSize+1)
	_, err := codec.Decode(oversized)
	assertCode(t, err, verifyerr.CodeTruncatedMessage)
}

func TestDecodeRejectsOversizedChain(t *testing.T) {
	t.Parallel()

	var big [][]byte
	// Enough low-entropy certs that the inflated stream exceeds
	// MAX_ENCODED_CHAIN_LENGTH while DEFLATE keeps the wire payload under
	// MAX_MESSAGE_SIZE, so the chain budget (not the message size) rejects it.
	for i := 0; i < 10; i++ {
		big = append(big, bytes.Repeat([]byte{byte(i + 1)}, 500))
	}

	var fpr [codec.FingerprintSize]byte
	wire, err := codec.Encode(codec.ProtocolVersion, big, fpr, 0, []byte("sig"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	_, err = codec.Decode(wire)
	assertCode(t, err, verifyerr.CodeChainTooLarge)
}

func assertCode(t *testing.T, err error, want verifyerr.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	ve, ok := verifyerr.As(err)
	if !ok {
		t.Fatalf("expected *verifyerr.Error, got %T: %v", err, err)
	}
	if ve.Code != want {
		t.Errorf("code = %s, want %s", ve.Code, want)
	}
}
