// Package checkpoint saves and restores the simulation state.
//
// A checkpoint is a zstd-compressed stream of JSON lines: one header line
// followed by one line per living creature. The header is mandatory and
// schema-checked; a creature line that fails to decode ends the stream, so
// a file cut short by a crash restores the creatures written before the cut.
package checkpoint

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pthm-cable/wator/components"
)

// Version is the stream format written by this package.
const Version = 1

var (
	// ErrNotFound means no checkpoint exists at the requested path.
	ErrNotFound = errors.New("checkpoint not found")
	// ErrCorruptHeader means the mandatory header record is unreadable.
	ErrCorruptHeader = errors.New("checkpoint header corrupt")
)

// Header is the first record of every checkpoint.
type Header struct {
	Version int    `json:"version"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	NextID  uint64 `json:"next_id"`
	Tick    int    `json:"tick"`
	Frame   int    `json:"frame"` // viewer frame counter
	Seed    uint64 `json:"seed,omitempty"`
	Sharks  int    `json:"sharks"`
	Fishes  int    `json:"fishes"`
}

// Record is one creature.
type Record struct {
	ID        uint64 `json:"id"`
	Parent    uint64 `json:"parent,omitempty"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Kind      string `json:"kind"`
	Mode      string `json:"mode"`
	SpawnAge  int    `json:"spawn_age"`
	StarveAge int    `json:"starve_age,omitempty"`
	Alive     bool   `json:"alive"`
	TotalAge  int    `json:"total_age"`
	Age       int    `json:"age"`
	Starve    int    `json:"starve,omitempty"`
}

const headerSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "width", "height", "next_id", "tick"],
  "properties": {
    "version": {"const": 1},
    "width":   {"type": "integer", "minimum": 1},
    "height":  {"type": "integer", "minimum": 1},
    "next_id": {"type": "integer", "minimum": 1},
    "tick":    {"type": "integer", "minimum": 0},
    "frame":   {"type": "integer", "minimum": 0},
    "seed":    {"type": "integer", "minimum": 0},
    "sharks":  {"type": "integer", "minimum": 0},
    "fishes":  {"type": "integer", "minimum": 0}
  }
}`

var headerValidator = jsonschema.MustCompileString("wator://checkpoint/header.json", headerSchema)

// Writer streams a checkpoint.
type Writer struct {
	enc *zstd.Encoder
	bw  *bufio.Writer
	je  *json.Encoder
	n   int
}

// NewWriter writes the header and returns a writer for the creature
// records. Close must be called to flush the stream.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)
	cw := &Writer{enc: enc, bw: bw, je: json.NewEncoder(bw)}

	if h.Version == 0 {
		h.Version = Version
	}
	if err := cw.je.Encode(h); err != nil {
		enc.Close()
		return nil, fmt.Errorf("encode header: %w", err)
	}
	return cw, nil
}

// Write appends one creature record.
func (w *Writer) Write(rec Record) error {
	if err := w.je.Encode(rec); err != nil {
		return fmt.Errorf("encode creature %d: %w", rec.ID, err)
	}
	w.n++
	return nil
}

// Count returns the number of creature records written.
func (w *Writer) Count() int { return w.n }

// Close flushes and terminates the compressed stream.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		w.enc.Close()
		return err
	}
	return w.enc.Close()
}

// Reader iterates a checkpoint one record at a time.
type Reader struct {
	dec       *zstd.Decoder
	br        *bufio.Reader
	header    Header
	taken     map[components.Position]bool
	done      bool
	truncated bool
}

// NewReader decodes and validates the header. Any failure to do so is
// reported as ErrCorruptHeader.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHeader, err)
	}
	cr := &Reader{
		dec:   dec,
		br:    bufio.NewReaderSize(dec, 64*1024),
		taken: make(map[components.Position]bool),
	}

	line, err := cr.br.ReadBytes('\n')
	if err != nil {
		dec.Close()
		return nil, fmt.Errorf("%w: %v", ErrCorruptHeader, err)
	}
	if err := decodeHeader(line, &cr.header); err != nil {
		dec.Close()
		return nil, fmt.Errorf("%w: %v", ErrCorruptHeader, err)
	}
	return cr, nil
}

func decodeHeader(line []byte, h *Header) error {
	var doc any
	if err := json.Unmarshal(line, &doc); err != nil {
		return err
	}
	if err := headerValidator.Validate(doc); err != nil {
		return err
	}
	return json.Unmarshal(line, h)
}

// Header returns the decoded header.
func (r *Reader) Header() Header { return r.header }

// Next returns the next creature record. It returns false at the end of
// the stream, including when the remaining bytes do not decode.
func (r *Reader) Next() (Record, bool) {
	if r.done {
		return Record{}, false
	}
	line, err := r.br.ReadBytes('\n')
	if err != nil {
		r.done = true
		// Every record the writer emits ends in a newline, so anything
		// left over is a partial write.
		if !errors.Is(err, io.EOF) || len(bytes.TrimSpace(line)) > 0 {
			r.truncated = true
		}
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(line, &rec); err != nil {
		r.done, r.truncated = true, true
		return Record{}, false
	}
	if err := r.accept(rec); err != nil {
		r.done, r.truncated = true, true
		return Record{}, false
	}
	return rec, true
}

// accept checks that rec fits the sea the header describes and claims a
// cell no earlier living record holds.
func (r *Reader) accept(rec Record) error {
	st, err := rec.State()
	if err != nil {
		return err
	}
	if err := rec.check(r.header); err != nil {
		return err
	}
	if st.Alive {
		if r.taken[st.Pos] {
			return fmt.Errorf("creature %d: cell %s already occupied", rec.ID, st.Pos)
		}
		r.taken[st.Pos] = true
	}
	return nil
}

// Truncated reports whether the stream ended on an undecodable record.
func (r *Reader) Truncated() bool { return r.truncated }

// Close releases the decoder.
func (r *Reader) Close() {
	r.dec.Close()
}
