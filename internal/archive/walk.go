package archive

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// entry is one archive member. open is only valid during the walk callback.
type entry struct {
	Name string
	Type fs.FileMode
	Perm fs.FileMode
	Size int64
	open func() (io.ReadCloser, error)
}

func (e entry) IsDir() bool     { return e.Type&fs.ModeDir != 0 }
func (e entry) IsRegular() bool { return e.Type.IsRegular() }

// walkFunc handles one entry. Returning an error stops the walk.
type walkFunc func(e entry) error

// walk calls fn for every entry of the archive at p in archive order.
func walk(ctx context.Context, p string, format Format, fn walkFunc) error {
	if format == FormatZip {
		return walkZip(ctx, p, fn)
	}

	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	r, closeFn, err := decompress(f, format)
	if err != nil {
		return err
	}
	defer closeFn()
	return walkTar(ctx, r, fn)
}

func decompress(r io.Reader, format Format) (io.Reader, func(), error) {
	noop := func() {}
	switch format {
	case FormatTar:
		return r, noop, nil
	case FormatTarGz:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	case FormatTarZst:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		return zr, zr.Close, nil
	case FormatTarXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("opening xz stream: %w", err)
		}
		return xr, noop, nil
	case FormatTarBz2:
		return bzip2.NewReader(r), noop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported archive format: %s", format)
	}
}

func walkZip(ctx context.Context, p string, fn walkFunc) error {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return fmt.Errorf("opening zip archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		mode := f.Mode()
		typ := mode.Type()
		if strings.HasSuffix(f.Name, "/") {
			typ = fs.ModeDir
		}
		e := entry{
			Name: f.Name,
			Type: typ,
			Perm: mode.Perm(),
			Size: int64(f.UncompressedSize64),
			open: f.Open,
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func walkTar(ctx context.Context, r io.Reader, fn walkFunc) error {
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar stream: %w", err)
		}

		var typ fs.FileMode
		switch hdr.Typeflag {
		case tar.TypeDir:
			typ = fs.ModeDir
		case tar.TypeReg:
		case tar.TypeSymlink:
			typ = fs.ModeSymlink
		case tar.TypeXGlobalHeader:
			continue
		default:
			typ = fs.ModeIrregular
		}
		e := entry{
			Name: hdr.Name,
			Type: typ,
			Perm: fs.FileMode(hdr.Mode).Perm(),
			Size: hdr.Size,
			open: func() (io.ReadCloser, error) { return io.NopCloser(tr), nil },
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

// cleanName returns the slash-separated relative form of an entry name, or
// "" for names that refer to the archive root.
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean("/" + name)
	name = strings.TrimPrefix(name, "/")
	if name == "." {
		return ""
	}
	return name
}
