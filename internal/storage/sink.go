package storage

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rohmanhakim/silent-crawler/internal/metadata"
	"github.com/rohmanhakim/silent-crawler/internal/results"
	"github.com/rohmanhakim/silent-crawler/pkg/failure"
	"github.com/rohmanhakim/silent-crawler/pkg/fileutil"
	"github.com/rohmanhakim/silent-crawler/pkg/hashutil"
)

/*
Responsibilities
- Serialize crawl results as pretty-printed JSON
- Write the document atomically to the requested path

Output Characteristics
- Stable key order: urls, directories, subdomains, then external when present
- Insertion order of every list is preserved
- Overwrite-safe reruns
*/

type Sink interface {
	Write(resultSets results.ResultSets) (WriteResult, failure.ClassifiedError)
}

type JSONFileSink struct {
	metadataSink metadata.MetadataSink
	path         string
}

func NewJSONFileSink(
	metadataSink metadata.MetadataSink,
	path string,
) *JSONFileSink {
	return &JSONFileSink{
		metadataSink: metadataSink,
		path:         path,
	}
}

func (s *JSONFileSink) Path() string {
	return s.path
}

func (s *JSONFileSink) Write(resultSets results.ResultSets) (WriteResult, failure.ClassifiedError) {
	writeResult, err := write(s.path, resultSets)
	if err != nil {
		var storageError *StorageError
		errors.As(err, &storageError)
		s.metadataSink.RecordError(
			time.Now(),
			"storage",
			"JSONFileSink.Write",
			mapStorageErrorToMetadataCause(storageError),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrWritePath, storageError.Path),
			},
		)
		return WriteResult{}, storageError
	}
	return writeResult, nil
}

// EncodeJSON renders result sets with two-space indentation and a trailing newline.
func EncodeJSON(resultSets results.ResultSets) ([]byte, error) {
	if resultSets.URLs == nil {
		resultSets.URLs = []string{}
	}
	if resultSets.Directories == nil {
		resultSets.Directories = []string{}
	}
	if resultSets.Subdomains == nil {
		resultSets.Subdomains = []string{}
	}
	data, err := json.MarshalIndent(resultSets, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func write(path string, resultSets results.ResultSets) (WriteResult, failure.ClassifiedError) {
	content, err := EncodeJSON(resultSets)
	if err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseEncodeFailure,
			Path:      path,
		}
	}

	if path == "" {
		return WriteResult{}, &StorageError{
			Message:   "empty output path",
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      path,
		}
	}

	if writeErr := fileutil.WriteFile(path, content); writeErr != nil {
		cause := ErrCauseWriteFailure
		retryable := false
		var fileErr *fileutil.FileError
		if errors.As(writeErr, &fileErr) {
			switch {
			case fileErr.Cause == fileutil.ErrCausePathError:
				cause = ErrCausePathError
			case fileErr.Retryable:
				cause = ErrCauseDiskFull
				retryable = true
			}
		}
		return WriteResult{}, &StorageError{
			Message:   writeErr.Error(),
			Retryable: retryable,
			Cause:     cause,
			Path:      path,
		}
	}

	contentHash, err := hashutil.HashBytes(content, hashutil.HashAlgoBLAKE3)
	if err != nil {
		// the document is on disk; only the digest is missing
		contentHash = ""
	}

	return NewWriteResult(path, len(content), contentHash), nil
}
