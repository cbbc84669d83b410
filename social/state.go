package social

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const defaultStateTTL = 10 * time.Minute

// State travels through the provider round trip inside the state
// parameter.
type State struct {
	Nonce        string `json:"n"`
	Provider     string `json:"p"`
	CodeVerifier string `json:"cv,omitempty"`
	CallbackURL  string `json:"cb,omitempty"`
	IssuedAt     int64  `json:"iat"`
	ExpiresAt    int64  `json:"exp"`
}

// StateCodec seals State with AES-GCM and signs the ciphertext with
// HMAC-SHA256.
type StateCodec struct {
	encryptionKey []byte
	hmacKey       []byte
	ttl           time.Duration
	now           func() time.Time
}

// DeriveStateKeys derives the AES-256 and HMAC keys from a single secret
func DeriveStateKeys(secret string) (encryptionKey, hmacKey []byte) {
	enc := sha256.Sum256([]byte("oauth-state-encryption:" + secret))
	mac := sha256.Sum256([]byte("oauth-state-signature:" + secret))
	return enc[:], mac[:]
}

// NewStateCodec builds a codec keyed on secret. A zero ttl means ten minutes.
func NewStateCodec(secret string, ttl time.Duration) *StateCodec {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	enc, mac := DeriveStateKeys(secret)
	return &StateCodec{
		encryptionKey: enc,
		hmacKey:       mac,
		ttl:           ttl,
		now:           time.Now,
	}
}

// WithClock replaces the time source
func (s *StateCodec) WithClock(now func() time.Time) *StateCodec {
	if now != nil {
		s.now = now
	}
	return s
}

// TTL is the lifetime of an encoded state
func (s *StateCodec) TTL() time.Duration {
	return s.ttl
}

// Encode fills the nonce and timestamps when missing and seals the state
func (s *StateCodec) Encode(state *State) (string, error) {
	if state == nil {
		return "", ErrInvalidState
	}

	now := s.now()
	if state.Nonce == "" {
		state.Nonce = generateNonce()
	}
	if state.IssuedAt == 0 {
		state.IssuedAt = now.Unix()
	}
	if state.ExpiresAt == 0 {
		state.ExpiresAt = now.Add(s.ttl).Unix()
	}

	plaintext, err := json.Marshal(state)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to marshal oauth state")
	}

	gcm, err := s.aead()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate state nonce")
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	out := append(s.sign(sealed), sealed...)

	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decode verifies, decrypts and checks the expiry of a state token
func (s *StateCodec) Decode(token string) (*State, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(data) < sha256.Size {
		return nil, ErrInvalidState
	}

	signature, sealed := data[:sha256.Size], data[sha256.Size:]
	if !hmac.Equal(signature, s.sign(sealed)) {
		return nil, ErrInvalidState
	}

	gcm, err := s.aead()
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, ErrInvalidState
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidState
	}

	var state State
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return nil, ErrInvalidState
	}

	if s.now().Unix() > state.ExpiresAt {
		return nil, ErrStateExpired
	}

	return &state, nil
}

func (s *StateCodec) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create state cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create state cipher")
	}
	return gcm, nil
}

func (s *StateCodec) sign(data []byte) []byte {
	mac := hmac.New(sha256.New, s.hmacKey)
	mac.Write(data)
	return mac.Sum(nil)
}

func generateNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
