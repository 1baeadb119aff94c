package generator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vanshika/sparqlconn/internal/resultio"
)

// FileName is the name WriteDataset uses for the generated document.
const FileName = "dataset.nq"

// WriteDataset serializes the dataset as N-Quads into dir/dataset.nq and
// returns the file path.
func WriteDataset(dataset Dataset, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := WriteTo(file, dataset); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, file.Close()
}

// WriteTo serializes the dataset as N-Quads to w.
func WriteTo(w io.Writer, dataset Dataset) error {
	return resultio.WriteStatements(w, dataset.Statements)
}
