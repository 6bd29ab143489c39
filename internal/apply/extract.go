package apply

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/twitchdesk/twitchdesk-desktop/internal/types"
)

// ErrMissingMember is returned when a bundle lacks a required executable.
var ErrMissingMember = errors.New("bundle is missing a required member")

// maxEntrySize caps a single extracted file.
const maxEntrySize = 500 << 20

// RequiredMembers returns the executables every bundle must contain for goos.
func RequiredMembers(goos string) []string {
	members := []string{MainExecutable, PreviewExecutable}
	if goos == "windows" {
		for i := range members {
			members[i] += ".exe"
		}
	}
	return members
}

// ExtractResult lists what landed in the scratch directory.
type ExtractResult struct {
	Dir     string
	Files   []string // base names, in archive order
	Skipped []string // entry names that were not extracted
}

// Has reports whether name was extracted
func (r *ExtractResult) Has(name string) bool {
	for _, f := range r.Files {
		if f == name {
			return true
		}
	}
	return false
}

// Path returns the extracted location of name
func (r *ExtractResult) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// Extract unpacks the top-level regular files of bundle into dest and checks
// that every required member is present. Nested, absolute, volume-qualified
// and parent-relative entries are skipped, as are directories and links, so
// nothing is ever written outside dest.
func Extract(bundle, dest string, required []string) (*ExtractResult, error) {
	format, err := types.ArchiveFormatFromName(bundle)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	result := &ExtractResult{Dir: dest}

	switch format {
	case types.ArchiveZip:
		err = extractZip(bundle, dest, result)
	case types.ArchiveTarGz:
		err = extractTarGz(bundle, dest, result)
	}
	if err != nil {
		return nil, err
	}

	for _, name := range required {
		if !result.Has(name) {
			return nil, fmt.Errorf("%w: %s", ErrMissingMember, name)
		}
		// Archives do not reliably carry the executable bit
		if runtime.GOOS != "windows" {
			if err := os.Chmod(result.Path(name), 0o755); err != nil {
				return nil, fmt.Errorf("failed to mark %s executable: %w", name, err)
			}
		}
	}

	return result, nil
}

// topLevelName returns the single path component an entry names, or false
// when the entry must not be extracted.
func topLevelName(entry string) (string, bool) {
	name := strings.ReplaceAll(entry, `\`, "/")
	if name == "" || strings.HasPrefix(name, "/") || filepath.VolumeName(name) != "" || strings.Contains(name, ":") {
		return "", false
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if clean == "." || strings.Contains(clean, "/") {
		return "", false
	}
	return clean, true
}

// safeTarget joins name onto dest and confirms the result stays inside dest.
func safeTarget(dest, name string) (string, bool) {
	target := filepath.Join(dest, name)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel != name || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", false
	}
	return target, true
}

func extractZip(bundle, dest string, result *ExtractResult) error {
	// ErrInsecurePath still yields a usable reader; such entries are
	// filtered below like any other unsafe name.
	r, err := zip.OpenReader(bundle)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("failed to open zip bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if !f.Mode().IsRegular() {
			result.Skipped = append(result.Skipped, f.Name)
			continue
		}
		name, ok := topLevelName(f.Name)
		if !ok {
			result.Skipped = append(result.Skipped, f.Name)
			continue
		}
		target, ok := safeTarget(dest, name)
		if !ok {
			result.Skipped = append(result.Skipped, f.Name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to read %s from bundle: %w", f.Name, err)
		}
		err = writeEntry(target, rc, f.Mode().Perm())
		_ = rc.Close()
		if err != nil {
			return err
		}
		result.Files = append(result.Files, name)
	}

	return nil
}

func extractTarGz(bundle, dest string, result *ExtractResult) error {
	f, err := os.Open(bundle)
	if err != nil {
		return fmt.Errorf("failed to open bundle: %w", err)
	}
	defer func() { _ = f.Close() }()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read gzip stream: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			result.Skipped = append(result.Skipped, hdr.Name)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read tar entry: %w", err)
		}

		if hdr.Typeflag != tar.TypeReg {
			result.Skipped = append(result.Skipped, hdr.Name)
			continue
		}
		name, ok := topLevelName(hdr.Name)
		if !ok {
			result.Skipped = append(result.Skipped, hdr.Name)
			continue
		}
		target, ok := safeTarget(dest, name)
		if !ok {
			result.Skipped = append(result.Skipped, hdr.Name)
			continue
		}

		if err := writeEntry(target, tr, os.FileMode(hdr.Mode).Perm()); err != nil {
			return err
		}
		result.Files = append(result.Files, name)
	}

	return nil
}

func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(target), err)
	}

	n, err := io.Copy(out, io.LimitReader(r, maxEntrySize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(target), err)
	}
	if n > maxEntrySize {
		return fmt.Errorf("bundle entry %s exceeds %d bytes", filepath.Base(target), int64(maxEntrySize))
	}
	return nil
}
