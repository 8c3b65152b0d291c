package source

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"

	"github.com/wippyai/livid/errors"
)

// Producer is a stream of raw text records under a fixed header.
type Producer interface {
	// Header returns the input column names.
	Header() []string
	// Read returns the next record, or io.EOF.
	Read() ([]string, error)
	// Rewind repositions the stream to the first data record.
	Rewind() error
}

// CSV reads delimited text. Seekable inputs are rewound by seeking; other
// inputs are cached in memory as they are read and replayed.
type CSV struct {
	src    io.Reader
	seeker io.Seeker
	r      *csv.Reader
	header []string
	delim  rune

	cache     [][]string
	pos       int
	drained   bool
	replaying bool
}

// Open opens path as a CSV producer. An empty path or "-" reads stdin.
func Open(path string, delim rune) (*CSV, io.Closer, error) {
	if path == "" || path == "-" {
		c, err := NewCSV(os.Stdin, delim)
		return c, nopCloser{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.IO(errors.PhaseSource, path, err)
	}
	c, err := NewCSV(f, delim)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return c, f, nil
}

// NewCSV reads the header from r. An input without a header is an error.
func NewCSV(r io.Reader, delim rune) (*CSV, error) {
	if delim == 0 {
		delim = ','
	}
	c := &CSV{src: r, delim: delim}
	if s, ok := r.(io.Seeker); ok {
		// Pipes and terminals implement Seek but fail on it.
		if _, err := s.Seek(0, io.SeekCurrent); err == nil {
			c.seeker = s
		}
	}
	if c.seeker == nil {
		c.src = bufio.NewReader(r)
	}

	c.r = c.newReader(c.src)
	header, err := c.r.Read()
	if err == io.EOF {
		return nil, errors.InvalidInput(errors.PhaseSource, "input has no header line")
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSource, errors.KindInvalidData, err, "read header")
	}
	c.header = append([]string(nil), header...)
	return c, nil
}

func (c *CSV) newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = c.delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func (c *CSV) Header() []string { return c.header }

// Seekable reports whether Rewind re-reads the underlying input.
func (c *CSV) Seekable() bool { return c.seeker != nil }

func (c *CSV) Read() ([]string, error) {
	if c.seeker == nil && c.replaying {
		if c.pos < len(c.cache) {
			rec := c.cache[c.pos]
			c.pos++
			return rec, nil
		}
		if c.drained {
			return nil, io.EOF
		}
		c.replaying = false
	}

	rec, err := c.r.Read()
	if err == io.EOF {
		c.drained = true
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSource, errors.KindInvalidData, err, "read record")
	}
	if c.seeker == nil {
		c.cache = append(c.cache, rec)
		c.pos = len(c.cache)
	}
	return rec, nil
}

func (c *CSV) Rewind() error {
	if c.seeker == nil {
		c.pos = 0
		c.replaying = true
		return nil
	}
	if _, err := c.seeker.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(errors.PhaseSource, errors.KindIO, err, "rewind input")
	}
	c.r = c.newReader(c.src)
	if _, err := c.r.Read(); err != nil {
		return errors.Wrap(errors.PhaseSource, errors.KindInvalidData, err, "re-read header")
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
