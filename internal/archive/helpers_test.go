package archive

import (
	"archive/tar"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"apub-go/internal/pub"
)

// testMember is an archive member for fixtures. A name ending in "/" is a
// directory; a non-empty link makes a symlink.
type testMember struct {
	name string
	body string
	link string
}

var projectMembers = []testMember{
	{name: "project/"},
	{name: "project/index.html", body: "<html></html>"},
	{name: "project/src/app.js", body: "console.log('hi')"},
	{name: "project/.gitignore", body: "dist/\n"},
	{name: "project/.env", body: "KEY=value\n"},
	{name: "project/.DS_Store", body: "junk"},
	{name: "__MACOSX/project/._index.html", body: "resource fork"},
	{name: "project/.git/config", body: "[core]"},
}

func writeZip(t *testing.T, path string, members []testMember) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, m := range members {
		hdr := &zip.FileHeader{Name: m.name, Method: zip.Deflate}
		body := m.body
		switch {
		case m.link != "":
			hdr.SetMode(fs.ModeSymlink | 0o777)
			body = m.link
		case strings.HasSuffix(m.name, "/"):
			hdr.SetMode(fs.ModeDir | 0o755)
		default:
			hdr.SetMode(0o644)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeTar(t *testing.T, w io.Writer, members []testMember) {
	t.Helper()
	tw := tar.NewWriter(w)
	for _, m := range members {
		hdr := &tar.Header{Name: m.name, Mode: 0o644, Size: int64(len(m.body))}
		switch {
		case m.link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = m.link
			hdr.Size = 0
		case strings.HasSuffix(m.name, "/"):
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
		default:
			hdr.Typeflag = tar.TypeReg
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := io.WriteString(tw, m.body); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
}

// writeArchive creates an archive of the given format under dir and returns
// it as a LocalArchive.
func writeArchive(t *testing.T, dir, name string, format Format, members []testMember) *pub.LocalArchive {
	t.Helper()
	path := filepath.Join(dir, name)
	if format == FormatZip {
		writeZip(t, path, members)
		return pub.NewLocalArchive(path, name, nil)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	switch format {
	case FormatTar:
		writeTar(t, f, members)
	case FormatTarGz:
		gw := gzip.NewWriter(f)
		writeTar(t, gw, members)
		if err := gw.Close(); err != nil {
			t.Fatal(err)
		}
	case FormatTarZst:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			t.Fatal(err)
		}
		writeTar(t, zw, members)
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
	case FormatTarXz:
		xw, err := xz.NewWriter(f)
		if err != nil {
			t.Fatal(err)
		}
		writeTar(t, xw, members)
		if err := xw.Close(); err != nil {
			t.Fatal(err)
		}
	default:
		t.Fatalf("no fixture writer for %s", format)
	}
	return pub.NewLocalArchive(path, name, nil)
}
