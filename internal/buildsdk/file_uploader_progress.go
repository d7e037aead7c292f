package buildsdk

import (
	"io"
	"time"
)

type ProgressCallback func(path string, uploaded int64, total int64)

const progressInterval = 500 * time.Millisecond

// progressReader wraps the upload body and reports bytes read, at most every
// progressInterval and once more at EOF.
type progressReader struct {
	reader    io.Reader
	path      string
	sent      int64
	total     int64
	callback  ProgressCallback
	lastFired time.Time
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.sent += int64(n)
	}

	if pr.callback != nil {
		now := time.Now()
		if now.Sub(pr.lastFired) > progressInterval || err == io.EOF {
			pr.callback(pr.path, pr.sent, pr.total)
			pr.lastFired = now
		}
	}

	return n, err
}
