// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture implements the edge capture stream shared by capture
// bridges, WebSocket relays and recording files.
//
// A stream is a CBOR sequence of batches. Each batch is an integer-keyed
// map {0: seq, 1: [timestamp, ...]} where seq increases by one per batch
// and timestamps are edge times in microseconds, in arrival order.
package capture

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// MaxBatchEdges caps the number of edges accepted in a single batch
const MaxBatchEdges = 4096

// ErrSequenceGap is returned alongside a batch when one or more batches
// before it were lost
var ErrSequenceGap = errors.New("capture sequence gap")

// Batch is a group of edge timestamps captured together
type Batch struct {
	Seq   uint32   `cbor:"0,keyasint"`
	Edges []uint32 `cbor:"1,keyasint"`
}

var decMode = mustDecMode()

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		MaxArrayElements: MaxBatchEdges,
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("capture: decode mode: %v", err))
	}
	return dm
}

// Reader decodes batches from a capture stream
type Reader struct {
	dec     *cbor.Decoder
	started bool
	nextSeq uint32
	lost    uint64
}

// NewReader creates a reader over r
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: decMode.NewDecoder(r)}
}

// Next returns the next batch.
// If batches were skipped since the previous one, the batch is returned
// together with an error wrapping ErrSequenceGap. Returns io.EOF at a
// clean end of stream.
func (r *Reader) Next() (Batch, error) {
	var b Batch
	if err := r.dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return Batch{}, io.EOF
		}
		return Batch{}, fmt.Errorf("failed to decode batch: %w", err)
	}

	expected := r.nextSeq
	first := !r.started
	r.started = true
	r.nextSeq = b.Seq + 1

	if !first && b.Seq != expected {
		missed := b.Seq - expected
		r.lost += uint64(missed)
		return b, fmt.Errorf("%w: expected seq %d, got %d", ErrSequenceGap, expected, b.Seq)
	}
	return b, nil
}

// Lost returns the number of batches skipped so far
func (r *Reader) Lost() uint64 {
	return r.lost
}

// Writer encodes batches onto a capture stream
type Writer struct {
	enc *cbor.Encoder
	seq uint32
}

// NewWriter creates a writer on w
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: cbor.NewEncoder(w)}
}

// WriteBatch writes edges as the next batch in the sequence
func (w *Writer) WriteBatch(edges []uint32) error {
	if len(edges) > MaxBatchEdges {
		return fmt.Errorf("batch too large: %d edges (max %d)", len(edges), MaxBatchEdges)
	}
	if err := w.enc.Encode(Batch{Seq: w.seq, Edges: edges}); err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}
	w.seq++
	return nil
}

// Skip advances the sequence number by n without writing, so that a
// reader of the stream sees a gap where edges were lost
func (w *Writer) Skip(n uint32) {
	w.seq += n
}

// Unmarshal decodes a single batch from one transport message
func Unmarshal(data []byte) (Batch, error) {
	var b Batch
	if err := decMode.Unmarshal(data, &b); err != nil {
		return Batch{}, fmt.Errorf("failed to decode batch: %w", err)
	}
	return b, nil
}

// Marshal encodes a single batch, for transports that frame messages
// themselves (WebSocket binary messages)
func Marshal(b Batch) ([]byte, error) {
	if len(b.Edges) > MaxBatchEdges {
		return nil, fmt.Errorf("batch too large: %d edges (max %d)", len(b.Edges), MaxBatchEdges)
	}
	return cbor.Marshal(b)
}
