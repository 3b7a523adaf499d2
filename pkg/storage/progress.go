package storage

import (
	"context"
	"io"
)

// ProgressFunc receives the transferred fraction in [0, 1].
type ProgressFunc func(fraction float64)

// ProgressReader counts bytes as the blob driver consumes them and stops the
// transfer once ctx is done.
type ProgressReader struct {
	ctx    context.Context
	r      io.Reader
	total  int64
	read   int64
	report ProgressFunc
}

func NewProgressReader(ctx context.Context, r io.Reader, total int64, report ProgressFunc) *ProgressReader {
	if report == nil {
		report = func(float64) {}
	}
	return &ProgressReader{ctx: ctx, r: r, total: total, report: report}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}

	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.total > 0 {
			fraction := float64(p.read) / float64(p.total)
			if fraction > 1 {
				fraction = 1
			}
			p.report(fraction)
		}
	}
	return n, err
}
