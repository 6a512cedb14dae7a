package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"apub-go/internal/pub"
)

// fakeHeader is prepended by FakeEncryptor so ciphertext differs from
// plaintext while staying trivially reversible.
var fakeHeader = []byte("APUBENC\x00")

// ErrFakeWrongPassphrase is returned by FakeEncryptor.Unlock for any
// passphrase other than the one given to Setup.
var ErrFakeWrongPassphrase = errors.New("fake: wrong passphrase")

// FakeEncryptor is a deterministic pub.Encryptor that requires no crypto.
type FakeEncryptor struct {
	passphrase string
	configured bool
	unlocks    int
}

var _ pub.Encryptor = (*FakeEncryptor)(nil)

// NewFakeEncryptor returns an encryptor already set up with passphrase.
func NewFakeEncryptor(passphrase string) *FakeEncryptor {
	return &FakeEncryptor{passphrase: passphrase, configured: true}
}

func (e *FakeEncryptor) Setup(passphrase string) error {
	e.passphrase = passphrase
	e.configured = true
	return nil
}

func (e *FakeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(fakeHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	_, err := io.Copy(w, r)
	return err
}

func (e *FakeEncryptor) Unlock(passphrase string) (pub.DecryptionContext, error) {
	e.unlocks++
	if passphrase != e.passphrase {
		return nil, ErrFakeWrongPassphrase
	}
	return fakeDecryption{}, nil
}

func (e *FakeEncryptor) IsConfigured() bool { return e.configured }

// Unlocks returns how many times Unlock was called.
func (e *FakeEncryptor) Unlocks() int { return e.unlocks }

// Seal returns data as FakeEncryptor would encrypt it.
func Seal(data []byte) []byte {
	return append(append([]byte(nil), fakeHeader...), data...)
}

type fakeDecryption struct{}

func (fakeDecryption) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(fakeHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if !bytes.Equal(header, fakeHeader) {
		return fmt.Errorf("invalid header")
	}
	_, err := io.Copy(w, r)
	return err
}
