package storage

// Persistence

type WriteResult struct {
	path        string
	sizeByte    int
	contentHash string
}

func NewWriteResult(
	path string,
	sizeByte int,
	contentHash string,
) WriteResult {
	return WriteResult{
		path:        path,
		sizeByte:    sizeByte,
		contentHash: contentHash,
	}
}

func (w *WriteResult) Path() string {
	return w.path
}

func (w *WriteResult) SizeByte() int {
	return w.sizeByte
}

// ContentHash is the BLAKE3 hex digest of the written document.
func (w *WriteResult) ContentHash() string {
	return w.contentHash
}
