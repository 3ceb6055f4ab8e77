package common

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"resumatch/internal/errors"
	"resumatch/internal/matching"
	"resumatch/internal/utils"
)

// FileProcessor reads documents from disk and writes command output
type FileProcessor struct {
	logger      *errors.Logger
	maxFileSize int64
}

// NewFileProcessor creates a file processor. maxFileSize <= 0 disables the size check.
func NewFileProcessor(logger *errors.Logger, maxFileSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxFileSize: maxFileSize}
}

// ReadFile reads a UTF-8 text file within the size limit
func (fp *FileProcessor) ReadFile(filename string) (string, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return "", errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return "", errors.NewValidationError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	file, err := os.Open(filename)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	var r io.Reader = file
	if fp.maxFileSize > 0 {
		r = io.LimitReader(file, fp.maxFileSize+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}
	if fp.maxFileSize > 0 && int64(len(content)) > fp.maxFileSize {
		return "", errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File %s exceeds the %s limit", filename, utils.FormatFileSize(fp.maxFileSize)), nil)
	}
	if !utf8.Valid(content) {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("File %s is not valid UTF-8 text", filename), nil)
	}
	return string(content), nil
}

// ExpandPaths replaces each directory with the text files directly inside it,
// sorted by name. Files are kept in the order given.
func (fp *FileProcessor) ExpandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", p), err)
		}
		if !info.IsDir() {
			if !utils.IsTextFile(p) {
				fp.logger.Warn("File may not be a text file", "filename", p)
			}
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
				fmt.Sprintf("Cannot read directory: %s", p), err)
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && utils.IsTextFile(e.Name()) {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		slices.Sort(found)
		out = append(out, found...)
	}
	return out, nil
}

// ReadDocuments expands paths and reads each file as a document with id
// "<prefix>-N" and its file name as label. Files that normalize to nothing
// are skipped, but still consume an index.
func (fp *FileProcessor) ReadDocuments(paths []string, prefix string) ([]matching.Document, error) {
	files, err := fp.ExpandPaths(paths)
	if err != nil {
		return nil, err
	}

	docs := make([]matching.Document, 0, len(files))
	for i, f := range files {
		content, err := fp.ReadFile(f)
		if err != nil {
			return nil, err
		}
		text := NormalizeText(content)
		if text == "" {
			fp.logger.Warn("Skipping empty document", "filename", f)
			continue
		}
		docs = append(docs, matching.Document{
			ID:    fmt.Sprintf("%s-%d", prefix, i+1),
			Label: StripExtension(f),
			Text:  text,
		})
	}
	return docs, nil
}

// WriteFile writes content to a file, creating its directory
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot prepare output path: %s", filename), err)
	}
	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}
