package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// Directory names below a dataset root.
const (
	ProteomeDir      = "proteomes"
	TranscriptomeDir = "transcriptomes"
)

var fastaExts = []string{".fa", ".fasta", ".faa", ".fna"}

// IsFASTA reports whether name carries a FASTA file extension.
func IsFASTA(name string) bool {
	return slices.Contains(fastaExts, strings.ToLower(filepath.Ext(name)))
}

// Discover lists the FASTA files of a dataset root: protein files under
// proteomes/ and transcript files under transcriptomes/. Either directory
// may be missing, but not both.
func Discover(root string) ([]FileSpec, error) {
	var specs []FileSpec
	found := 0

	for _, d := range []struct {
		dir  string
		kind seqdb.Kind
	}{
		{ProteomeDir, seqdb.Protein},
		{TranscriptomeDir, seqdb.RNA},
	} {
		entries, err := os.ReadDir(filepath.Join(root, d.dir))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: list %s: %w", seqdb.ErrIO, d.dir, err)
		}
		found++

		for _, e := range entries {
			if e.IsDir() || !IsFASTA(e.Name()) {
				continue
			}
			specs = append(specs, FileSpec{Path: filepath.Join(root, d.dir, e.Name()), Kind: d.kind})
		}
	}

	if found == 0 {
		return nil, fmt.Errorf("%w: %s has neither %s/ nor %s/", seqdb.ErrConfiguration, root, ProteomeDir, TranscriptomeDir)
	}
	return specs, nil
}
