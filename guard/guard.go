// Package guard decides whether a client-supplied path may be read.
//
// The guard is pure string manipulation: it performs no filesystem access,
// holds no state, and is safe to call from any number of goroutines.
package guard

import (
	"path/filepath"
	"strings"
)

// Reason classifies why a candidate path was rejected.
type Reason int

const (
	// ReasonNone means the path was approved.
	ReasonNone Reason = iota
	// MissingInput means the raw path was empty or absent.
	MissingInput
	// TraversalDetected means the raw path contains a parent-directory segment.
	TraversalDetected
	// NotInAllowedRoot means the resolved path is outside every allowed root.
	NotInAllowedRoot
	// InvalidFormat means the path could not be resolved to an absolute form.
	InvalidFormat
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "approved"
	case MissingInput:
		return "missing input"
	case TraversalDetected:
		return "traversal detected"
	case NotInAllowedRoot:
		return "not in allowed root"
	case InvalidFormat:
		return "invalid format"
	default:
		return "unknown"
	}
}

// Verdict is the guard's decision for one candidate path.
type Verdict struct {
	Approved bool
	// Path is the fully resolved, OS-native absolute path. Set when the path
	// was approved, and on NotInAllowedRoot rejections so the refusal can be
	// logged with the resolved target. Rejections that fire before
	// resolution (missing input, traversal, invalid format) leave it empty.
	Path   string
	Reason Reason
}

// Evaluate decides whether rawPath may be read under the given confinement.
//
// Relative paths resolve against baseDir, never against an allowed root —
// resolving against a root would let relative paths implicitly escape
// whichever root the caller happened to name. allowedRoots must already be
// normalized absolute paths (the config loader guarantees this).
func Evaluate(rawPath, baseDir string, allowedRoots []string) Verdict {
	if rawPath == "" {
		return Verdict{Reason: MissingInput}
	}
	if strings.ContainsRune(rawPath, 0) {
		return Verdict{Reason: InvalidFormat}
	}

	// Traversal is checked on the original string, before any resolution:
	// cleaning collapses ".." segments and would hide the attempt. Both
	// separator styles are treated as separators so an escape written for
	// either platform is caught everywhere.
	if hasParentSegment(rawPath) {
		return Verdict{Reason: TraversalDetected}
	}

	var abs string
	if filepath.IsAbs(rawPath) {
		abs = filepath.Clean(rawPath)
	} else {
		resolved, err := filepath.Abs(filepath.Join(baseDir, rawPath))
		if err != nil {
			return Verdict{Reason: InvalidFormat}
		}
		abs = resolved
	}

	for _, root := range allowedRoots {
		if underRoot(abs, root) {
			return Verdict{Approved: true, Path: abs}
		}
	}
	return Verdict{Reason: NotInAllowedRoot, Path: abs}
}

// hasParentSegment reports whether any path segment of raw is exactly "..".
func hasParentSegment(raw string) bool {
	segments := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	for _, seg := range segments {
		if seg == ".." {
			return true
		}
	}
	return false
}

// underRoot reports whether candidate is root itself or a descendant of it.
// Comparison is segment-wise so root /a/b never matches /a/b2, and
// case-folded so roots and candidates are compared the same way the
// configuration normalizes them.
func underRoot(candidate, root string) bool {
	cand := segments(candidate)
	base := segments(root)
	if len(base) > len(cand) {
		return false
	}
	for i, seg := range base {
		if !strings.EqualFold(cand[i], seg) {
			return false
		}
	}
	return true
}

// segments splits a cleaned absolute path into its components.
func segments(p string) []string {
	p = filepath.ToSlash(filepath.Clean(p))
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
