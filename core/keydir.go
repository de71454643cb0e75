package core

import (
	"cmp"
	"slices"
	"strings"

	"github.com/0xRadioAc7iv/go-seqcask/internal/seqdb"
)

// bucket is one dataset/kind/sample partition of the index.
type bucket struct {
	Dataset string
	Kind    seqdb.Kind
	Sample  string
}

func bucketOf(k seqdb.Key) bucket {
	return bucket{Dataset: k.Dataset, Kind: k.Kind, Sample: k.Sample}
}

// KeyDir is the in-memory index of every committed entry.
//
// Besides the key -> location map it keeps, per bucket, the sorted list of
// sequence ids so that prefix searches are a binary search plus a short scan.
// The KeyDir is rebuilt on startup by replaying the datafiles.
type KeyDir struct {
	entries     map[seqdb.Key]seqdb.Location
	ids         map[bucket][]string
	files       map[uint32]seqdb.FileRecord
	blocks      map[bucket][]seqdb.SampleBlock
	generations map[string]uint64
	nextFileID  uint32
}

func NewKeyDir() *KeyDir {
	return &KeyDir{
		entries:     make(map[seqdb.Key]seqdb.Location),
		ids:         make(map[bucket][]string),
		files:       make(map[uint32]seqdb.FileRecord),
		blocks:      make(map[bucket][]seqdb.SampleBlock),
		generations: make(map[string]uint64),
		nextFileID:  1,
	}
}

// reserve records that id has been handed out.
func (kd *KeyDir) reserve(id uint32) {
	if id >= kd.nextFileID {
		kd.nextFileID = id + 1
	}
}

// apply makes a committed file visible.
func (kd *KeyDir) apply(p *pendingFile) {
	kd.files[p.file.ID] = p.file

	touched := make(map[bucket]struct{})
	for _, e := range p.entries {
		if _, exists := kd.entries[e.Key]; !exists {
			b := bucketOf(e.Key)
			kd.ids[b] = append(kd.ids[b], e.Key.SequenceID)
			touched[b] = struct{}{}
		}
		kd.entries[e.Key] = e.Location
	}
	for b := range touched {
		slices.Sort(kd.ids[b])
	}

	for _, sb := range p.blocks {
		b := bucket{Dataset: sb.Dataset, Kind: sb.Kind, Sample: sb.Sample}
		kd.blocks[b] = append(kd.blocks[b], sb)
		slices.SortFunc(kd.blocks[b], func(x, y seqdb.SampleBlock) int {
			if c := cmp.Compare(x.FileID, y.FileID); c != 0 {
				return c
			}
			return cmp.Compare(x.Start, y.Start)
		})
	}
}

// truncate drops every committed file of dataset and bumps its generation.
func (kd *KeyDir) truncate(dataset string) {
	for k := range kd.entries {
		if k.Dataset == dataset {
			delete(kd.entries, k)
		}
	}
	for b := range kd.ids {
		if b.Dataset == dataset {
			delete(kd.ids, b)
		}
	}
	for b := range kd.blocks {
		if b.Dataset == dataset {
			delete(kd.blocks, b)
		}
	}
	for id, f := range kd.files {
		if f.Dataset == dataset {
			delete(kd.files, id)
		}
	}
	kd.generations[dataset]++
}

// prefix returns up to limit entries of b whose id starts with prefix.
func (kd *KeyDir) prefix(b bucket, prefix string, limit int) []seqdb.Entry {
	ids := kd.ids[b]
	i, _ := slices.BinarySearch(ids, prefix)

	var out []seqdb.Entry
	for ; i < len(ids) && strings.HasPrefix(ids[i], prefix); i++ {
		if limit > 0 && len(out) == limit {
			break
		}
		k := seqdb.Key{Dataset: b.Dataset, Kind: b.Kind, Sample: b.Sample, SequenceID: ids[i]}
		out = append(out, seqdb.Entry{Key: k, Location: kd.entries[k]})
	}
	return out
}
