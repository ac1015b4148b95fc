package httpclient

import "io"

// DefaultUploadChunkSize is the largest slice of a file handed to the network
// in one read during uploads.
const DefaultUploadChunkSize = 8 * 1024

// ChunkedReader limits every Read of the wrapped reader to size bytes.
type ChunkedReader struct {
	r    io.Reader
	size int
	read int64
}

// NewChunkedReader wraps r. A size <= 0 means DefaultUploadChunkSize.
func NewChunkedReader(r io.Reader, size int) *ChunkedReader {
	if size <= 0 {
		size = DefaultUploadChunkSize
	}
	return &ChunkedReader{r: r, size: size}
}

func (c *ChunkedReader) Read(p []byte) (int, error) {
	if len(p) > c.size {
		p = p[:c.size]
	}
	n, err := c.r.Read(p)
	c.read += int64(n)
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (c *ChunkedReader) BytesRead() int64 {
	return c.read
}
