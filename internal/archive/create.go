package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"

	"dualfm/internal/logging"
	"dualfm/pkg/fileops"
)

// CreateOptions configures Create.
type CreateOptions struct {
	// Sources are the files and directories to archive. Directories are
	// archived recursively, hidden entries included. An empty list is
	// ErrNoFiles.
	Sources []string

	// Dest is the archive file to produce. Its extension selects the
	// format.
	Dest string

	// Level is the compression level, MinCompressionLevel (store) through
	// MaxCompressionLevel (smallest). Out-of-range values fall back to
	// DefaultCompressionLevel.
	Level int

	// BaseDir, when set, makes member names relative to it, preserving the
	// source layout. Sources outside BaseDir are rejected. When empty, each
	// source is archived under its own base name.
	BaseDir string

	// Overwrite permits replacing an existing Dest.
	Overwrite bool

	// OnMember, when non-nil, is invoked after each member has been
	// written. It is never invoked after a failure or cancellation.
	OnMember func(Entry)
}

// memberSource is one resolved archive member and where its bytes live.
type memberSource struct {
	abs       string
	rel       string // slash-separated member name
	size      int64
	mode      fs.FileMode
	modTime   time.Time
	isDir     bool
	isSymlink bool
}

func (m memberSource) entry() Entry {
	return Entry{
		Name:      m.rel,
		Size:      m.size,
		Mode:      m.mode,
		ModTime:   m.modTime,
		IsDir:     m.isDir,
		IsSymlink: m.isSymlink,
	}
}

// Create builds an archive from opts.Sources. The full member list is
// resolved up front, before the destination is touched, so name collisions
// and unreadable sources fail with nothing written. The archive itself is
// produced through an atomic temp-and-rename write: an interrupted or
// cancelled create leaves no partial archive behind.
//
// Symlinks are archived as symlinks, never followed. Returns
// ErrUnsupportedFormat for an unrecognized extension, ErrNoFiles for an
// empty source set, fileops.ErrAlreadyExists when Dest exists without
// Overwrite, and fileops.ErrCancelled if ctx is cancelled.
func Create(ctx context.Context, opts CreateOptions) error {
	t := DetectType(opts.Dest)
	if t == TypeUnknown {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.Dest)
	}
	if len(opts.Sources) == 0 {
		return fmt.Errorf("%w: no sources given", ErrNoFiles)
	}
	level := clampLevel(opts.Level)

	destAbs, err := filepath.Abs(opts.Dest)
	if err != nil {
		return fmt.Errorf("cannot resolve destination: %w", err)
	}
	if !opts.Overwrite {
		if _, err := os.Lstat(destAbs); err == nil {
			return fmt.Errorf("%w: %s", fileops.ErrAlreadyExists, destAbs)
		}
	}

	members, err := resolveSources(ctx, opts.Sources, opts.BaseDir, destAbs)
	if err != nil {
		return err
	}

	if err := fileops.EnsureDirectoryExists(filepath.Dir(destAbs)); err != nil {
		return err
	}
	af, err := fileops.CreateAtomic(destAbs)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			af.Discard()
		}
	}()

	var count int
	if t == TypeZip {
		count, err = writeZip(ctx, af, level, members, opts.OnMember)
	} else {
		count, err = writeTar(ctx, af, t, level, members, opts.OnMember)
	}
	if err != nil {
		return err
	}

	if err := af.Commit(opts.Overwrite); err != nil {
		return err
	}
	committed = true

	logging.Debug("Created archive", "dest", destAbs, "type", t.String(), "members", count, "level", level)
	return nil
}

// resolveSources expands the source list into the full member list, walking
// directories as it goes. Member names are validated for uniqueness and,
// under a base directory, for containment. A pre-existing destination
// archive found inside a source tree is skipped rather than archived into
// itself.
func resolveSources(ctx context.Context, sources []string, baseDir, destAbs string) ([]memberSource, error) {
	var baseAbs string
	if baseDir != "" {
		var err error
		baseAbs, err = filepath.Abs(baseDir)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve base directory: %w", err)
		}
	}

	var members []memberSource
	seen := make(map[string]struct{})

	add := func(m memberSource) error {
		if m.abs == destAbs {
			logging.Debug("Skipping destination found among sources", "path", m.abs)
			return nil
		}
		if _, dup := seen[m.rel]; dup {
			return fmt.Errorf("%w: duplicate member name %q", fileops.ErrInvalidName, m.rel)
		}
		seen[m.rel] = struct{}{}
		members = append(members, m)
		return nil
	}

	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			return nil, fmt.Errorf("%w: empty source path", fileops.ErrInvalidName)
		}
		abs, err := filepath.Abs(src)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve source path: %w", err)
		}

		info, err := os.Lstat(abs)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", fileops.ErrPathNotFound, src)
			}
			return nil, fmt.Errorf("cannot access source: %w", err)
		}

		rel, err := memberNameFor(abs, baseAbs)
		if err != nil {
			return nil, err
		}

		m := memberSource{
			abs:       abs,
			rel:       rel,
			mode:      info.Mode(),
			modTime:   info.ModTime(),
			isDir:     info.IsDir(),
			isSymlink: info.Mode()&fs.ModeSymlink != 0,
		}
		if !m.isDir && !m.isSymlink {
			m.size = info.Size()
		}

		switch {
		case rel != "":
			if err := add(m); err != nil {
				return nil, err
			}
		case !m.isDir:
			// A file source may not be the base directory itself.
			return nil, fmt.Errorf("%w: source %s has no member name", fileops.ErrInvalidName, src)
		}

		if m.isDir {
			if err := collectDir(ctx, abs, rel, add); err != nil {
				return nil, err
			}
		}
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("%w: nothing to archive", ErrNoFiles)
	}
	return members, nil
}

// memberNameFor decides the archive-side name for a source path. An empty
// result means the source is the base directory itself and only its
// children become members.
func memberNameFor(abs, baseAbs string) (string, error) {
	if baseAbs == "" {
		name := filepath.Base(abs)
		if name == "." || name == string(filepath.Separator) {
			return "", fmt.Errorf("%w: cannot derive a member name from %s", fileops.ErrInvalidName, abs)
		}
		return name, nil
	}

	rel, err := filepath.Rel(baseAbs, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s is outside the base directory", fileops.ErrPathTraversal, abs)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s is outside the base directory", fileops.ErrPathTraversal, abs)
	}
	return rel, nil
}

// collectDir streams a directory tree into the member list. Unreadable
// directories fail the create rather than silently thinning the archive.
func collectDir(ctx context.Context, dirAbs, prefix string, add func(memberSource) error) error {
	scanner, err := fileops.NewDirectoryScanner(dirAbs, &fileops.ScanOptions{
		IncludeHidden: true,
		OnEntry: func(se fileops.ScanEntry) error {
			rel := filepath.ToSlash(se.Path)
			if prefix != "" {
				rel = prefix + "/" + rel
			}
			m := memberSource{
				abs:       filepath.Join(dirAbs, se.Path),
				rel:       rel,
				mode:      se.Mode,
				modTime:   se.ModTime,
				isDir:     se.IsDir,
				isSymlink: se.Mode&fs.ModeSymlink != 0,
			}
			if !m.isDir && !m.isSymlink {
				m.size = se.Size
			}
			return add(m)
		},
	})
	if err != nil {
		return err
	}
	defer scanner.Close()

	_, err = scanner.Scan(ctx)
	return err
}

func writeTar(ctx context.Context, w io.Writer, t Type, level int, members []memberSource, onMember func(Entry)) (int, error) {
	comp, err := newCompressor(t, w, level)
	if err != nil {
		return 0, err
	}
	tw := tar.NewWriter(comp)

	count := 0
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			tw.Close()
			comp.Close()
			return count, fileops.ErrCancelled
		}
		if err := writeTarMember(ctx, tw, m); err != nil {
			tw.Close()
			comp.Close()
			return count, err
		}
		count++
		if onMember != nil {
			onMember(m.entry())
		}
	}

	if err := tw.Close(); err != nil {
		comp.Close()
		return count, fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := comp.Close(); err != nil {
		return count, fmt.Errorf("failed to finish compression: %w", err)
	}
	return count, nil
}

func writeTarMember(ctx context.Context, tw *tar.Writer, m memberSource) error {
	hdr := &tar.Header{
		Name:    m.rel,
		Mode:    int64(m.mode.Perm()),
		ModTime: m.modTime,
	}

	switch {
	case m.isDir:
		hdr.Name += "/"
		hdr.Typeflag = tar.TypeDir
	case m.isSymlink:
		target, err := fileops.GetSymlinkTarget(m.abs)
		if err != nil {
			return err
		}
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = target
	default:
		hdr.Typeflag = tar.TypeReg
		hdr.Size = m.size
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write member header %s: %w", m.rel, err)
	}
	if hdr.Typeflag == tar.TypeReg {
		return streamInto(ctx, tw, m)
	}
	return nil
}

func writeZip(ctx context.Context, w io.Writer, level int, members []memberSource, onMember func(Entry)) (int, error) {
	zw := zip.NewWriter(w)
	method := uint16(zip.Deflate)
	if level == MinCompressionLevel {
		method = zip.Store
	} else {
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	}

	count := 0
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return count, fileops.ErrCancelled
		}
		if err := writeZipMember(ctx, zw, m, method); err != nil {
			zw.Close()
			return count, err
		}
		count++
		if onMember != nil {
			onMember(m.entry())
		}
	}

	if err := zw.Close(); err != nil {
		return count, fmt.Errorf("failed to finish archive: %w", err)
	}
	return count, nil
}

func writeZipMember(ctx context.Context, zw *zip.Writer, m memberSource, method uint16) error {
	hdr := &zip.FileHeader{
		Name:     m.rel,
		Method:   method,
		Modified: m.modTime,
	}

	switch {
	case m.isDir:
		hdr.Name += "/"
		hdr.Method = zip.Store
		hdr.SetMode(m.mode.Perm() | fs.ModeDir)
		if _, err := zw.CreateHeader(hdr); err != nil {
			return fmt.Errorf("failed to write member header %s: %w", m.rel, err)
		}
		return nil
	case m.isSymlink:
		target, err := fileops.GetSymlinkTarget(m.abs)
		if err != nil {
			return err
		}
		hdr.Method = zip.Store
		hdr.SetMode(m.mode.Perm() | fs.ModeSymlink)
		mw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("failed to write member header %s: %w", m.rel, err)
		}
		if _, err := io.WriteString(mw, target); err != nil {
			return fmt.Errorf("failed to write member data: %w", err)
		}
		return nil
	default:
		hdr.SetMode(m.mode.Perm())
		mw, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("failed to write member header %s: %w", m.rel, err)
		}
		return streamInto(ctx, mw, m)
	}
}

// streamInto copies a source file into the archive writer in chunks,
// honoring ctx between chunks. The copy is capped at the size recorded in
// the member header, so a file growing mid-archive cannot corrupt the
// stream. The file is opened without following symlinks; a path swapped for
// a link after resolution fails rather than leaking an outside file.
func streamInto(ctx context.Context, w io.Writer, m memberSource) error {
	f, err := fileops.OpenNoFollow(m.abs)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	r := io.LimitReader(f, m.size)
	for {
		if err := ctx.Err(); err != nil {
			return fileops.ErrCancelled
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("failed to write member data: %w", werr)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read %s: %w", m.abs, rerr)
		}
	}
}
