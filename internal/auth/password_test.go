package auth

import (
	"errors"
	"strings"
	"testing"
)

var fastParams = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLength: 32, SaltLength: 16}

func TestPasswordHasherRoundTrip(t *testing.T) {
	hasher := NewPasswordHasherWithParams("pepper", fastParams)

	hash, err := hasher.Hash("password1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("unexpected encoding %q", hash)
	}

	ok, err := hasher.Verify("password1", hash)
	if err != nil || !ok {
		t.Fatalf("expected password to verify, ok=%v err=%v", ok, err)
	}

	ok, err = hasher.Verify("password2", hash)
	if err != nil || ok {
		t.Fatalf("expected wrong password to fail, ok=%v err=%v", ok, err)
	}
}

func TestPasswordHasherUsesPepper(t *testing.T) {
	hash, err := NewPasswordHasherWithParams("pepper-a", fastParams).Hash("password1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	ok, err := NewPasswordHasherWithParams("pepper-b", fastParams).Verify("password1", hash)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected verification with a different pepper to fail")
	}
}

func TestPasswordHasherSaltsEachHash(t *testing.T) {
	hasher := NewPasswordHasherWithParams("pepper", fastParams)
	a, _ := hasher.Hash("password1")
	b, _ := hasher.Hash("password1")
	if a == b {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestPasswordHasherRejectsMalformedHash(t *testing.T) {
	hasher := NewPasswordHasherWithParams("pepper", fastParams)
	for _, encoded := range []string{"", "plain", "$2y$10$abcdefghijklmnopqrstuv", "$argon2id$v=19$m=x$salt$key"} {
		if _, err := hasher.Verify("password1", encoded); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("Verify(%q) error = %v, want ErrInvalidHash", encoded, err)
		}
	}
}
