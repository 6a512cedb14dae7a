package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"apub-go/internal/pub"
)

// EncryptedSuffix marks archives that must be decrypted before use.
const EncryptedSuffix = ".age"

// UnlockFunc returns the decryption context for encrypted archives. It is
// called at most once, on the first encrypted archive.
type UnlockFunc func() (pub.DecryptionContext, error)

// DecryptingSource wraps another Source and transparently decrypts archives
// whose name ends in EncryptedSuffix.
type DecryptingSource struct {
	inner  pub.Source
	unlock UnlockFunc
	dir    string
	logger pub.Logger

	once  sync.Once
	dc    pub.DecryptionContext
	dcErr error
}

var _ pub.Source = (*DecryptingSource)(nil)

// NewDecryptingSource wraps inner. Decrypted copies are written under dir.
func NewDecryptingSource(inner pub.Source, unlock UnlockFunc, dir string, logger pub.Logger) *DecryptingSource {
	return &DecryptingSource{inner: inner, unlock: unlock, dir: dir, logger: logger}
}

func (s *DecryptingSource) Open(ctx context.Context, ref string) (*pub.LocalArchive, error) {
	a, err := s.inner.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(a.Name, EncryptedSuffix) {
		return a, nil
	}

	dc, err := s.context()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("unlocking key for %s: %w", a.Name, err)
	}

	name := strings.TrimSuffix(a.Name, EncryptedSuffix)
	s.logger.Info("decrypting archive", "archive", a.Name)
	tmp, err := copyTemp(s.dir, name, func(w io.Writer) error {
		in, err := os.Open(a.Path)
		if err != nil {
			return err
		}
		defer in.Close()
		return dc.Decrypt(in, w)
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("decrypting %s: %w", a.Name, err)
	}

	out := pub.NewLocalArchive(tmp, name, a.Close)
	out.OnClose(func() { os.Remove(tmp) })
	return out, nil
}

func (s *DecryptingSource) context() (pub.DecryptionContext, error) {
	s.once.Do(func() {
		if s.unlock == nil {
			s.dcErr = fmt.Errorf("encrypted archive without key: %w", pub.ErrConfigurationMissing)
			return
		}
		s.dc, s.dcErr = s.unlock()
	})
	return s.dc, s.dcErr
}
