package auth

import (
	"crypto/rand"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const sealFormatVersion = 1

// ErrWrongPassphrase is returned when a sealed token cannot be opened.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted token")

// sealed is the stored envelope around an encrypted token.
type sealed struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// scrypt cost; tokens are opened on every API call, so N stays moderate.
var scryptN, scryptR, scryptP = 1 << 14, 8, 1

func seal(passphrase string, plain []byte) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	key, err := scrypt.Key([]byte(passphrase), salt[:], scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	// The key is unique per salt, so a fixed nonce is never reused under one key.
	var nonce [chacha20poly1305.NonceSize]byte
	return json.Marshal(sealed{
		V:      sealFormatVersion,
		Salt:   salt[:],
		N:      scryptN,
		R:      scryptR,
		P:      scryptP,
		Cipher: aead.Seal(nil, nonce[:], plain, salt[:]),
	})
}

func open(passphrase string, b []byte) ([]byte, error) {
	var env sealed
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode sealed token: %w", err)
	}
	if env.V > sealFormatVersion {
		return nil, fmt.Errorf("unsupported sealed token version %d", env.V)
	}
	key, err := scrypt.Key([]byte(passphrase), env.Salt, env.N, env.R, env.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	var nonce [chacha20poly1305.NonceSize]byte
	plain, err := aead.Open(nil, nonce[:], env.Cipher, env.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plain, nil
}
