package domain

import "context"

// KMSKeeper encrypts and decrypts small payloads with an external key.
// *gocloud.dev/secrets.Keeper satisfies it.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}
