package convert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/danieljhkim/bwplan/internal/lenient"
)

// ErrInvalidInput is returned when upstream planner output cannot be parsed.
var ErrInvalidInput = errors.New("invalid planner output")

// PlanRow is one proposed tier transfer from the cache planner.
type PlanRow struct {
	TierSrc   *lenient.Int    `json:"tier_src"`
	TierDst   *lenient.Int    `json:"tier_dst"`
	Node      *lenient.String `json:"node"`
	StartPID  *lenient.Int    `json:"start_pid"`
	EndPID    *lenient.Int    `json:"end_pid"`
	PageBytes *lenient.Int    `json:"page_bytes"`
	Layer     *lenient.Int    `json:"layer"`
	Bytes     *lenient.Int    `json:"bytes"`
	PCluster  *lenient.Int    `json:"pcluster"`
	Fanout    *lenient.Int    `json:"fanout"`
	Overlap   *lenient.Int    `json:"overlap"`
}

// ResolvedRow is a PlanRow with every default applied.
type ResolvedRow struct {
	TierSrc   int64
	TierDst   int64
	Node      string
	StartPID  int64
	EndPID    int64
	PageBytes int64
	Layer     int64
	Bytes     int64
	PCluster  int64
	Fanout    int64
	Overlap   int64
}

// Resolve applies defaults: tiers 0, the configured node and page size,
// end_pid equal to start_pid, cluster 0, fanout 1, overlap 1.
func (r PlanRow) Resolve(opts Options) ResolvedRow {
	opts = opts.withDefaults()
	start := lenient.IntOr(r.StartPID, 0)
	return ResolvedRow{
		TierSrc:   lenient.IntOr(r.TierSrc, 0),
		TierDst:   lenient.IntOr(r.TierDst, 0),
		Node:      lenient.StringOr(r.Node, opts.DefaultNode),
		StartPID:  start,
		EndPID:    lenient.IntOr(r.EndPID, start),
		PageBytes: lenient.IntOr(r.PageBytes, opts.DefaultPageBytes),
		Layer:     lenient.IntOr(r.Layer, 0),
		Bytes:     lenient.IntOr(r.Bytes, 0),
		PCluster:  lenient.IntOr(r.PCluster, 0),
		Fanout:    lenient.IntOr(r.Fanout, 1),
		Overlap:   lenient.IntOr(r.Overlap, 1),
	}
}

// PageRow is one entry of an admission or eviction stream.
type PageRow struct {
	PageID *lenient.Int `json:"page_id"`
	Layer  *lenient.Int `json:"layer"`
}

// Bucket is one byte bucket produced by the checkpoint differ.
type Bucket struct {
	BucketID *lenient.Int `json:"bucket_id"`
	Size     *lenient.Int `json:"size"`
	Items    []BucketItem `json:"items"`
}

// BucketItem is one shard range assigned to a bucket.
type BucketItem struct {
	URI       *lenient.String `json:"uri"`
	NBytes    *lenient.Int    `json:"nbytes"`
	Offset    *lenient.Int    `json:"offset"`
	Tensor    *lenient.String `json:"tensor"`
	ShardRank *lenient.Int    `json:"shard_rank"`
}

// RawManifest is the differ's per-version inventory, grouped by tensor.
type RawManifest struct {
	ModelID *lenient.String `json:"model_id"`
	Version *lenient.String `json:"version"`
	Tensors []RawTensor     `json:"tensors"`
}

// RawTensor lists the shards of one tensor.
type RawTensor struct {
	Name   lenient.String `json:"name"`
	Shards []RawShard     `json:"shards"`
}

// RawShard is one stored shard of a tensor.
type RawShard struct {
	URI   *lenient.String `json:"uri"`
	Bytes *lenient.Int    `json:"bytes"`
	Hash  *lenient.String `json:"hash"`
}

// ReadPlanRows decodes a JSON array of cache planner rows.
func ReadPlanRows(r io.Reader) ([]PlanRow, error) {
	return readRecords[PlanRow](r, "plan rows")
}

// ReadPageRows decodes a JSON array of admission or eviction rows.
func ReadPageRows(r io.Reader) ([]PageRow, error) {
	return readRecords[PageRow](r, "page rows")
}

// ReadBuckets decodes a JSON array of buckets. A {"buckets": [...]} object,
// as written by the differ's plan output, is accepted too. Empty input
// yields no buckets.
func ReadBuckets(r io.Reader) ([]Bucket, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read buckets: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Bucket{}, nil
	}
	var wrapped struct {
		Buckets []Bucket `json:"buckets"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		return nonNil(wrapped.Buckets), nil
	}
	var buckets []Bucket
	if err := json.Unmarshal(data, &buckets); err != nil {
		return nil, fmt.Errorf("%w: buckets: %v", ErrInvalidInput, err)
	}
	return nonNil(buckets), nil
}

// ReadRawManifest decodes one raw manifest object.
func ReadRawManifest(r io.Reader) (RawManifest, error) {
	var m *RawManifest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		return RawManifest{}, fmt.Errorf("%w: manifest: %v", ErrInvalidInput, err)
	}
	if err := expectEOF(dec, "manifest"); err != nil {
		return RawManifest{}, err
	}
	if m == nil {
		return RawManifest{}, fmt.Errorf("%w: manifest: document is null", ErrInvalidInput)
	}
	return *m, nil
}

func readRecords[T any](r io.Reader, what string) ([]T, error) {
	var records []T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, what, err)
	}
	if err := expectEOF(dec, what); err != nil {
		return nil, err
	}
	return nonNil(records), nil
}

// expectEOF fails when anything but whitespace follows the decoded value.
func expectEOF(dec *json.Decoder, what string) error {
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: unexpected data after JSON value", ErrInvalidInput, what)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
