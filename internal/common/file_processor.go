package common

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"

	"careermatch/internal/errors"
	"careermatch/internal/resume"
	"careermatch/internal/utils"
)

// FileProcessor validates command-line paths and writes output files
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor rejects resume files larger than maxSize bytes; zero
// means no limit.
func NewFileProcessor(maxSize int64, logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// ValidateResumeFile checks that path has a supported resume extension and
// names a readable file within the size limit. An empty path is allowed.
func (fp *FileProcessor) ValidateResumeFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := resume.FormatFor(path); err != nil {
		return err
	}

	info, err := utils.CheckInputFile(path, fp.maxSize)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return errors.NewIOError(errors.ErrCodeFileNotFound, fmt.Sprintf("Resume not found: %s", path), err)
	case stderrors.Is(err, utils.ErrTooLarge):
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Resume file is too large", err).
			WithContext("path", path)
	case err != nil:
		return errors.NewIOError(errors.ErrCodeFileNotReadable, fmt.Sprintf("Cannot read resume: %s", path), err)
	}

	if fp.logger != nil {
		fp.logger.Debug("Resume file accepted", "path", path, "size", utils.FormatFileSize(info.Size()))
	}
	return nil
}

// WriteFile writes content to a file, creating the directory if needed
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if err := utils.EnsureParentDir(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED", "Cannot create output directory", err)
	}
	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}

// ValidateOutputFile makes sure filename can be created. An empty name means
// stdout.
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}
	if info, err := os.Stat(filename); err == nil && info.IsDir() {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Output path is a directory: %s", filename), nil)
	}
	if err := utils.EnsureParentDir(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}
	return nil
}
