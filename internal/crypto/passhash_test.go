package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 64
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes(2): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two subsequent RandBytes(%d) are equal", n)
	}
}

func testHasher() *Hasher { return NewHasherWithParams(1, 8*1024, 1) }

func TestHash_NeverPlaintextAndSalted(t *testing.T) {
	t.Parallel()

	h := testHasher()
	h1, err := h.Hash("p@ssw0rd")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := h.Hash("p@ssw0rd")
	if err != nil {
		t.Fatalf("Hash(2): %v", err)
	}

	if strings.Contains(h1, "p@ssw0rd") {
		t.Fatalf("hash contains plaintext: %s", h1)
	}
	if !strings.HasPrefix(h1, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding: %s", h1)
	}
	if h1 == h2 {
		t.Fatalf("two hashes of the same password must differ (random salt)")
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	h := testHasher()
	enc, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := h.Verify("correct horse battery staple", enc)
	if err != nil || !ok {
		t.Fatalf("Verify correct: ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("wrong", enc)
	if err != nil || ok {
		t.Fatalf("Verify wrong: ok=%v err=%v", ok, err)
	}

	// parameters come from the encoded value, not the verifier
	ok, err = NewHasher().Verify("correct horse battery staple", enc)
	if err != nil || !ok {
		t.Fatalf("Verify with other params: ok=%v err=%v", ok, err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	h := testHasher()
	for _, enc := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=1$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$!!$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdA$",
	} {
		if _, err := h.Verify("x", enc); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("Verify(%q): want ErrMalformedHash, got %v", enc, err)
		}
	}
}
