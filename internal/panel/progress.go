package panel

import (
	"io"
	"math"
)

// ProgressFunc receives upload progress as a whole percentage of bytes sent.
type ProgressFunc func(serverID, remotePath string, percent int)

// progressReader reports read progress over a body of known size.
// It calls report only when the rounded percentage changes.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(percent int)
}

func newProgressReader(r io.Reader, total int64, report func(int)) *progressReader {
	return &progressReader{r: r, total: total, last: -1, report: report}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)

	switch {
	case p.total > 0 && n > 0:
		p.emit(int(math.Round(float64(p.read) * 100 / float64(p.total))))
	case p.total == 0 && err == io.EOF:
		p.emit(100)
	}

	return n, err
}

func (p *progressReader) emit(percent int) {
	if percent == p.last || p.report == nil {
		return
	}
	p.last = percent
	p.report(percent)
}
