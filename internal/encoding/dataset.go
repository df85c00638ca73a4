package encoding

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IdentityFolder is one enrolled identity in the dataset: a leaf folder named
// "<code>_<display name>" holding that person's enrollment photos.
type IdentityFolder struct {
	Code   string   // alphanumeric identity code, e.g. "231027"
	Name   string   // display name from the folder suffix
	Dir    string   // absolute folder path
	Images []string // dataset-relative image paths, sorted
}

// imageExtensions lists accepted enrollment photo formats (case-insensitive).
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IsImageFile reports whether the file name has an accepted image extension.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// parseFolderName splits "<code>_<name>" into its parts. The code must be
// non-empty and alphanumeric.
func parseFolderName(name string) (code, display string, ok bool) {
	code, display, found := strings.Cut(name, "_")
	if !found || code == "" {
		return "", "", false
	}
	for _, r := range code {
		isDigit := r >= '0' && r <= '9'
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isDigit && !isLetter {
			return "", "", false
		}
	}
	return code, display, true
}

// WalkDataset lists valid identity folders under root. Folders that do not
// follow the naming convention or contain no images are skipped silently, as
// are stray files at the top level. The result is sorted by identity code.
func WalkDataset(root string) ([]IdentityFolder, error) {
	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading dataset dir %s: %w", root, err)
	}

	var folders []IdentityFolder
	for _, entry := range dirEntries {
		if !entry.IsDir() {
			continue
		}

		code, display, ok := parseFolderName(entry.Name())
		if !ok {
			continue
		}

		dir := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue // unreadable folder contributes nothing
		}

		var images []string
		for _, f := range files {
			if f.IsDir() || !IsImageFile(f.Name()) {
				continue
			}
			images = append(images, filepath.Join(entry.Name(), f.Name()))
		}
		if len(images) == 0 {
			continue
		}
		sort.Strings(images)

		folders = append(folders, IdentityFolder{
			Code:   code,
			Name:   display,
			Dir:    dir,
			Images: images,
		})
	}

	sort.Slice(folders, func(i, j int) bool { return folders[i].Code < folders[j].Code })
	return folders, nil
}
