// Package fileops provides secure, atomic file operations with defense-in-depth
// validation for paths, filenames, and archive members.
//
// The package is the trust boundary of the application: every path that reaches
// a disk-mutating syscall elsewhere in the program is expected to have passed
// through the validators here first, anchored to an explicit base directory.
//
// # Validation Layers
//
// Three validation layers cover three distinct attack surfaces:
//
//  1. ValidatePath - general filesystem paths, trusted base directory supplied
//     by the caller. Rejects traversal, unsafe components, and symlink leaves.
//  2. IsSafeFilename / SanitizeFilename - single filename components. Rejects
//     or rewrites separator characters, control characters, and reserved names.
//  3. ValidateArchiveMember - archive member names, which trust nothing.
//     Rejects absolute paths and any name that would resolve outside the
//     extraction directory (zip-slip defense).
//
// Validation is advisory-then-enforced: checks are repeated at open time using
// no-follow-symlink open semantics (OpenNoFollow), because a check-then-use gap
// between validation and open is a real race a hostile filesystem can win.
//
// # Atomic Operations
//
// CopyFile, MoveFile, and the lower-level AtomicFile implement a temp-file plus
// atomic-rename protocol with backup and rollback. A destination file either
// appears fully written or not at all; no ".tmp_" or ".backup_" artifact
// survives a failed or cancelled operation.
//
// # Configuration
//
// Limits and the forbidden-filename set live in SecurityConfig, which is
// constructed explicitly (DefaultSecurityConfig) and passed by reference.
// There is no package-level mutable state, so concurrent callers can use
// isolated configurations.
package fileops
