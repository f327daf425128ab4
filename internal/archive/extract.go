package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"dualfm/internal/logging"
	"dualfm/pkg/fileops"
)

// chunkSize is the buffer size for member content copies. Cancellation is
// checked between chunks, never mid-chunk.
const chunkSize = 64 * 1024

// ExtractOptions configures Extract.
type ExtractOptions struct {
	// Source is the archive file to extract.
	Source string

	// Dest is the directory the archive is extracted into. It is created as
	// needed; an existing Dest is refused unless Overwrite is set.
	Dest string

	// Members selects a subset of member names to extract. Nil or empty
	// extracts everything. Safety validation always covers the full member
	// list regardless of the selection.
	Members []string

	// Overwrite permits extracting into an existing Dest and replacing
	// existing member files.
	Overwrite bool

	// SkipSafetyChecks disables the Validate-All phase: the archive-bomb
	// limits and the per-member name validation. Symlink and hardlink
	// targets are still validated at write time, and all writes remain
	// confined to Dest.
	SkipSafetyChecks bool

	// Security supplies the limits and name rules. Nil falls back to
	// fileops.DefaultSecurityConfig.
	Security *fileops.SecurityConfig

	// OnMember, when non-nil, is invoked after each member has been fully
	// written. It is never invoked after a failure or cancellation.
	OnMember func(Entry)
}

// Extract extracts an archive into opts.Dest in two phases. The Validate-All
// phase lists every member, applies the archive-bomb limits, and validates
// every member name against the destination, selected for extraction or not;
// one hostile member rejects the whole archive before anything is written.
// The Write-All phase then performs the writes through an os.Root opened on
// the destination, so even a filesystem racing against the extraction cannot
// redirect a write outside it.
//
// Returns ErrUnsupportedFormat, ErrInvalidArchive, fileops.ErrArchiveBomb,
// fileops.ErrPathTraversal, fileops.ErrAbsolutePath, fileops.ErrAlreadyExists
// for an existing destination without Overwrite, and fileops.ErrCancelled if
// ctx is cancelled between chunks.
func Extract(ctx context.Context, opts ExtractOptions) error {
	t := DetectType(opts.Source)
	if t == TypeUnknown {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.Source)
	}

	sec := opts.Security
	if sec == nil {
		sec = fileops.DefaultSecurityConfig()
	}

	destAbs, err := filepath.Abs(opts.Dest)
	if err != nil {
		return fmt.Errorf("cannot resolve destination: %w", err)
	}

	entries, err := List(opts.Source)
	if err != nil {
		return err
	}

	if !opts.SkipSafetyChecks {
		if err := validateAll(opts.Source, t, destAbs, entries, sec); err != nil {
			return err
		}
	}

	// The destination gate runs after validation so a hostile archive is
	// reported as hostile, not as a destination conflict.
	if _, err := os.Lstat(destAbs); err == nil {
		if !opts.Overwrite {
			return fmt.Errorf("%w: %s", fileops.ErrAlreadyExists, destAbs)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot access destination: %w", err)
	}

	if err := fileops.EnsureDirectoryExists(destAbs); err != nil {
		return err
	}
	root, err := os.OpenRoot(destAbs)
	if err != nil {
		return fmt.Errorf("cannot open destination root: %w", err)
	}
	defer root.Close()

	logging.Debug("Extracting archive", "source", opts.Source, "dest", destAbs, "type", t.String(), "members", len(entries))

	x := &extractor{
		root:      root,
		dest:      destAbs,
		sec:       sec,
		overwrite: opts.Overwrite,
		onMember:  opts.OnMember,
	}
	if t == TypeZip {
		return extractZip(ctx, opts.Source, x, memberSet(opts.Members))
	}
	return extractTar(ctx, opts.Source, t, x, memberSet(opts.Members))
}

// validateAll is the read-only rejection phase: aggregate limits first, then
// every member name and every link target known from the listing.
func validateAll(source string, t Type, dest string, entries []Entry, sec *fileops.SecurityConfig) error {
	compressed, uncompressed, count, err := aggregate(source, t, entries)
	if err != nil {
		return err
	}
	if err := sec.CheckArchiveBomb(compressed, uncompressed, count); err != nil {
		return err
	}

	for _, e := range entries {
		if err := sec.ValidateArchiveMember(e.Name, dest); err != nil {
			return err
		}
		switch {
		case e.IsSymlink && e.LinkTarget != "":
			// Zip symlink targets live in member content and are validated
			// at write time instead.
			linkDir := filepath.Join(dest, filepath.FromSlash(path.Dir(memberRelPath(e.Name))))
			if err := fileops.ValidateSymlinkTarget(e.LinkTarget, linkDir, dest); err != nil {
				return err
			}
		case e.IsHardlink:
			if err := sec.ValidateArchiveMember(e.LinkTarget, dest); err != nil {
				return err
			}
		}
	}
	return nil
}

// memberSet normalizes a member selection for matching against header names.
func memberSet(members []string) map[string]struct{} {
	if len(members) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[memberRelPath(m)] = struct{}{}
	}
	return set
}

// extractor holds the confined write state for one extraction.
type extractor struct {
	root      *os.Root
	dest      string
	sec       *fileops.SecurityConfig
	overwrite bool
	onMember  func(Entry)
}

func extractTar(ctx context.Context, source string, t Type, x *extractor, selected map[string]struct{}) error {
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	dec, err := newDecompressor(t, bufio.NewReader(f))
	if err != nil {
		return err
	}
	defer dec.Close()

	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		if err := ctx.Err(); err != nil {
			return fileops.ErrCancelled
		}

		rel := memberRelPath(hdr.Name)
		if selected != nil {
			if _, ok := selected[rel]; !ok {
				continue
			}
		}
		switch hdr.Typeflag {
		case tar.TypeDir, tar.TypeReg, tar.TypeSymlink, tar.TypeLink:
		default:
			// Devices, fifos, and sockets are not extracted.
			continue
		}

		if err := x.tarMember(ctx, rel, hdr, tr); err != nil {
			return err
		}
		if x.onMember != nil {
			x.onMember(tarEntry(hdr))
		}
	}
}

func (x *extractor) tarMember(ctx context.Context, rel string, hdr *tar.Header, r io.Reader) error {
	perm := hdr.FileInfo().Mode().Perm()
	switch hdr.Typeflag {
	case tar.TypeDir:
		return x.dir(rel, perm)
	case tar.TypeReg:
		return x.file(ctx, rel, r, perm, hdr.ModTime)
	case tar.TypeSymlink:
		return x.symlink(rel, hdr.Linkname)
	case tar.TypeLink:
		return x.hardlink(rel, hdr.Linkname)
	default:
		return nil
	}
}

func extractZip(ctx context.Context, source string, x *extractor, selected map[string]struct{}) error {
	zr, err := zip.OpenReader(source)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return fileops.ErrCancelled
		}

		rel := memberRelPath(f.Name)
		if selected != nil {
			if _, ok := selected[rel]; !ok {
				continue
			}
		}

		if err := x.zipMember(ctx, rel, f); err != nil {
			return err
		}
		if x.onMember != nil {
			x.onMember(zipEntry(f))
		}
	}
	return nil
}

func (x *extractor) zipMember(ctx context.Context, rel string, f *zip.File) error {
	mode := f.Mode()
	switch {
	case zipIsDir(f):
		return x.dir(rel, mode.Perm())
	case mode&fs.ModeSymlink != 0:
		target, err := readZipLinkTarget(f)
		if err != nil {
			return err
		}
		return x.symlink(rel, target)
	default:
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
		err = x.file(ctx, rel, rc, mode.Perm(), f.Modified)
		rc.Close()
		return err
	}
}

// readZipLinkTarget reads a zip symlink member's content, which is its
// target path. A real target never approaches the cap.
func readZipLinkTarget(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	return string(data), nil
}

func (x *extractor) dir(rel string, perm fs.FileMode) error {
	if perm == 0 {
		perm = 0o755
	}
	if err := x.root.MkdirAll(filepath.FromSlash(rel), perm); err != nil {
		return fmt.Errorf("failed to create member directory %s: %w", rel, err)
	}
	return nil
}

func (x *extractor) file(ctx context.Context, rel string, r io.Reader, perm fs.FileMode, modTime time.Time) error {
	if err := x.ensureParent(rel); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}

	relNative := filepath.FromSlash(rel)
	if x.overwrite {
		_ = x.root.Remove(relNative)
	}

	// Always O_EXCL: with overwrite the stale entry was just removed, and
	// without it an existing file must fail rather than be truncated.
	f, err := x.root.OpenFile(relNative, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", fileops.ErrAlreadyExists, rel)
		}
		return fmt.Errorf("failed to create member file %s: %w", rel, err)
	}

	if _, err := copyChunked(ctx, f, r); err != nil {
		f.Close()
		_ = x.root.Remove(relNative)
		return err
	}
	if err := f.Close(); err != nil {
		_ = x.root.Remove(relNative)
		return fmt.Errorf("failed to finish member file %s: %w", rel, err)
	}

	if !modTime.IsZero() {
		// Best effort.
		_ = x.root.Chtimes(relNative, modTime, modTime)
	}
	return nil
}

func (x *extractor) symlink(rel, target string) error {
	// Link-target confinement is load-bearing and is enforced here even
	// when the Validate-All phase was skipped.
	linkDir := filepath.Join(x.dest, filepath.FromSlash(path.Dir(rel)))
	if err := fileops.ValidateSymlinkTarget(target, linkDir, x.dest); err != nil {
		return err
	}

	if err := x.ensureParent(rel); err != nil {
		return err
	}

	relNative := filepath.FromSlash(rel)
	if x.overwrite {
		_ = x.root.Remove(relNative)
	}
	if err := x.root.Symlink(target, relNative); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", fileops.ErrAlreadyExists, rel)
		}
		return fmt.Errorf("failed to create symlink member %s: %w", rel, err)
	}
	return nil
}

func (x *extractor) hardlink(rel, target string) error {
	if err := x.sec.ValidateArchiveMember(target, x.dest); err != nil {
		return err
	}

	if err := x.ensureParent(rel); err != nil {
		return err
	}

	relNative := filepath.FromSlash(rel)
	if x.overwrite {
		_ = x.root.Remove(relNative)
	}
	if err := x.root.Link(filepath.FromSlash(memberRelPath(target)), relNative); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", fileops.ErrAlreadyExists, rel)
		}
		return fmt.Errorf("failed to create hardlink member %s: %w", rel, err)
	}
	return nil
}

func (x *extractor) ensureParent(rel string) error {
	parent := path.Dir(rel)
	if parent == "." {
		return nil
	}
	if err := x.root.MkdirAll(filepath.FromSlash(parent), 0o755); err != nil {
		return fmt.Errorf("failed to create member directory %s: %w", parent, err)
	}
	return nil
}

// copyChunked copies member content in fixed-size chunks, honoring ctx at
// every chunk boundary. Read failures mid-stream report the archive as
// invalid; write failures are filesystem errors.
func copyChunked(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, fileops.ErrCancelled
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, fmt.Errorf("failed to write member data: %w", werr)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, fmt.Errorf("%w: %v", ErrInvalidArchive, rerr)
		}
	}
}

// zipIsDir reports whether a zip member denotes a directory, either by mode
// or by the trailing-slash convention.
func zipIsDir(f *zip.File) bool {
	return f.FileInfo().IsDir() || len(f.Name) > 0 && f.Name[len(f.Name)-1] == '/'
}
