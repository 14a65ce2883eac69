package webhook

import (
	"crypto/rand"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	secret := "test-secret-key"
	body := []byte(`{"ref":"refs/heads/master"}`)

	tests := []struct {
		name       string
		header     string
		wantOK     bool
		wantReason RejectReason
	}{
		{
			name:   "valid sha1",
			header: SignBody("sha1", body, secret),
			wantOK: true,
		},
		{
			name:   "valid sha256",
			header: SignBody("sha256", body, secret),
			wantOK: true,
		},
		{
			name:   "valid sha512",
			header: SignBody("sha512", body, secret),
			wantOK: true,
		},
		{
			name:       "missing header",
			header:     "",
			wantReason: RejectSignatureMissing,
		},
		{
			name:       "no separator",
			header:     "deadbeef",
			wantReason: RejectSignatureMalformed,
		},
		{
			name:       "empty algorithm",
			header:     "=deadbeef",
			wantReason: RejectSignatureMalformed,
		},
		{
			name:       "empty digest",
			header:     "sha256=",
			wantReason: RejectSignatureMalformed,
		},
		{
			name:       "unknown algorithm",
			header:     "md5=deadbeef",
			wantReason: RejectSignatureMalformed,
		},
		{
			name:       "bad hex",
			header:     "sha256=zzzz",
			wantReason: RejectSignatureMalformed,
		},
		{
			name:       "wrong digest",
			header:     "sha256=0000000000000000000000000000000000000000000000000000000000000000",
			wantReason: RejectSignatureMismatch,
		},
		{
			name:       "wrong secret",
			header:     SignBody("sha256", body, "other-secret"),
			wantReason: RejectSignatureMismatch,
		},
		{
			name:       "signature for different body",
			header:     SignBody("sha256", []byte(`{"ref":"refs/heads/evil"}`), secret),
			wantReason: RejectSignatureMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := verifySignature(body, tt.header, secret)
			if ok != tt.wantOK {
				t.Errorf("verifySignature() ok = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK && reason != tt.wantReason {
				t.Errorf("verifySignature() reason = %v, want %v", reason, tt.wantReason)
			}
		})
	}
}

func TestSignBodyDeterministic(t *testing.T) {
	body := []byte("payload")
	if SignBody("sha256", body, "s") != SignBody("sha256", body, "s") {
		t.Error("same body and secret must produce the same signature")
	}
}

// Flipping a single byte anywhere in the body must change the digest.
// Checked probabilistically over random bodies.
func TestSignBodyAvalanche(t *testing.T) {
	for i := 0; i < 32; i++ {
		body := make([]byte, 64)
		rand.Read(body)
		orig := SignBody("sha256", body, "s")

		mutated := make([]byte, len(body))
		copy(mutated, body)
		mutated[i*2%len(body)] ^= 0x01

		if SignBody("sha256", mutated, "s") == orig {
			t.Fatalf("byte flip at %d did not change digest", i*2%len(body))
		}
	}
}
