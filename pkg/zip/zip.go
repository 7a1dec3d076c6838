// Package zip streams stored files into a zip archive.
package zip

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

// Entry is one file in an archive. Name is the path inside the archive and
// Path the file on disk.
type Entry struct {
	Name string
	Path string
}

// WriteFiles writes entries to w as a zip archive. Images are already
// compressed, so entries are stored rather than deflated.
func WriteFiles(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, entry := range entries {
		if err := addFile(zw, entry); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, entry Entry) error {
	f, err := os.Open(entry.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", entry.Name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", entry.Name, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = entry.Name
	header.Method = zip.Store

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, f); err != nil {
		return fmt.Errorf("copy %s: %w", entry.Name, err)
	}
	return nil
}
