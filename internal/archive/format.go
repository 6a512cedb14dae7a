package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// Format is an archive container and compression combination.
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatTar
	FormatTarGz
	FormatTarZst
	FormatTarXz
	FormatTarBz2
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGz:
		return "tar.gz"
	case FormatTarZst:
		return "tar.zst"
	case FormatTarXz:
		return "tar.xz"
	case FormatTarBz2:
		return "tar.bz2"
	default:
		return "unknown"
	}
}

var suffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGz},
	{".tgz", FormatTarGz},
	{".tar.zst", FormatTarZst},
	{".tzst", FormatTarZst},
	{".tar.xz", FormatTarXz},
	{".txz", FormatTarXz},
	{".tar.bz2", FormatTarBz2},
	{".tbz2", FormatTarBz2},
	{".tar", FormatTar},
	{".zip", FormatZip},
}

// DetectFormat returns the format implied by the file name.
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s.suffix) {
			return s.format
		}
	}
	return FormatUnknown
}

var zipMagic = []byte("PK\x03\x04")

// resolveFormat detects the format from name, falling back to sniffing the
// file for a zip header.
func resolveFormat(path, name string) (Format, error) {
	if f := DetectFormat(name); f != FormatUnknown {
		return f, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("opening archive: %w", err)
	}
	defer file.Close()

	head := make([]byte, len(zipMagic))
	if _, err := io.ReadFull(file, head); err == nil && bytes.Equal(head, zipMagic) {
		return FormatZip, nil
	}
	return FormatUnknown, fmt.Errorf("unsupported archive format: %s", name)
}
