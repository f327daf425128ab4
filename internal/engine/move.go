package engine

import (
	"context"
	"errors"
	"os"

	"dualfm/internal/logging"
	"dualfm/pkg/fileops"
)

// MoveFile moves source to dest. A same-filesystem move is a single atomic
// rename and needs no chunking. When the OS refuses the rename, typically
// across filesystems, the engine falls back to a chunked copy followed by
// source deletion. The source is removed only after the destination is
// fully in place, never on failure or cancellation, so an aborted move
// leaves the source intact.
func (e *Engine) MoveFile(ctx context.Context, source, dest string, overwrite bool) error {
	e.begin()
	if err := e.checkpoint(ctx); err != nil {
		return err
	}

	renameErr := fileops.Rename(source, dest, overwrite)
	if renameErr == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(renameErr, &linkErr) {
		return renameErr
	}

	logging.Debug("Rename refused, copying across filesystems", "source", source, "dest", dest)

	if err := e.copyPath(ctx, source, dest, overwrite, KindMove); err != nil {
		return err
	}
	return fileops.DeleteFile(source, true)
}
