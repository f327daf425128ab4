package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"dualfm/pkg/fileops"
)

// List reads the member metadata of the archive at pathName without
// extracting any content. For zip archives this reads the central directory;
// for tar family archives it streams the headers.
//
// Returns fileops.ErrPathNotFound for a missing archive, ErrUnsupportedFormat
// for an unrecognized suffix, and ErrInvalidArchive when the headers cannot
// be parsed.
func List(pathName string) ([]Entry, error) {
	switch t := DetectType(pathName); {
	case t == TypeZip:
		return listZip(pathName)
	case t.IsTar():
		return listTar(pathName, t)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, pathName)
	}
}

func listZip(pathName string) ([]Entry, error) {
	zr, err := zip.OpenReader(pathName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", fileops.ErrPathNotFound, pathName)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer zr.Close()

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		entries = append(entries, zipEntry(f))
	}
	return entries, nil
}

// zipEntry converts a zip member header. Symlink targets are stored as
// member content, so LinkTarget stays empty here and is read at extraction.
func zipEntry(f *zip.File) Entry {
	mode := f.Mode()
	return Entry{
		Name:           f.Name,
		Size:           int64(f.UncompressedSize64),
		CompressedSize: int64(f.CompressedSize64),
		Mode:           mode,
		ModTime:        f.Modified,
		IsDir:          mode.IsDir() || strings.HasSuffix(f.Name, "/"),
		IsSymlink:      mode&fs.ModeSymlink != 0,
	}
}

func listTar(pathName string, t Type) ([]Entry, error) {
	f, err := os.Open(pathName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", fileops.ErrPathNotFound, pathName)
		}
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	dec, err := newDecompressor(t, bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var entries []Entry
	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		entries = append(entries, tarEntry(hdr))
	}
}

// tarEntry converts one tar header into an Entry.
func tarEntry(hdr *tar.Header) Entry {
	info := hdr.FileInfo()
	e := Entry{
		Name:    hdr.Name,
		Size:    hdr.Size,
		Mode:    info.Mode(),
		ModTime: hdr.ModTime,
	}
	switch hdr.Typeflag {
	case tar.TypeDir:
		e.IsDir = true
		e.Size = 0
	case tar.TypeSymlink:
		e.IsSymlink = true
		e.LinkTarget = hdr.Linkname
		e.Size = 0
	case tar.TypeLink:
		e.IsHardlink = true
		e.LinkTarget = hdr.Linkname
		e.Size = 0
	}
	return e
}
