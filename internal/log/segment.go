package log

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogo/protobuf/proto"

	api "transactions/api/v1"
)

// segment pairs a store with its index; files are named after the base offset
type segment struct {
	store *store
	index *index

	baseOffset uint64
	nextOffset uint64

	config Config
}

func newSegment(dir string, baseOffset uint64, c Config) (*segment, error) {
	s := &segment{
		baseOffset: baseOffset,
		config:     c,
	}

	storeFile, err := os.OpenFile(
		filepath.Join(dir, fmt.Sprintf("%d.store", baseOffset)),
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0644,
	)
	if err != nil {
		return nil, err
	}
	if s.store, err = newStore(storeFile); err != nil {
		return nil, err
	}

	indexFile, err := os.OpenFile(
		filepath.Join(dir, fmt.Sprintf("%d.index", baseOffset)),
		os.O_RDWR|os.O_CREATE,
		0644,
	)
	if err != nil {
		return nil, err
	}
	if s.index, err = newIndex(indexFile, c); err != nil {
		return nil, err
	}

	s.nextOffset = baseOffset
	if off, _, err := s.index.Read(-1); err == nil {
		s.nextOffset = baseOffset + uint64(off) + 1
	}
	return s, nil
}

// Append stamps the record with the next offset and persists it
func (s *segment) Append(record *api.Record) (uint64, error) {
	offset := s.nextOffset
	record.Offset = offset

	b, err := proto.Marshal(record)
	if err != nil {
		return 0, err
	}
	_, pos, err := s.store.Append(b)
	if err != nil {
		return 0, err
	}
	if err = s.index.Write(uint32(offset-s.baseOffset), pos); err != nil {
		return 0, err
	}

	s.nextOffset++
	return offset, nil
}

func (s *segment) Read(offset uint64) (*api.Record, error) {
	_, pos, err := s.index.Read(int64(offset - s.baseOffset))
	if err != nil {
		return nil, err
	}
	b, err := s.store.ReadAt(pos)
	if err != nil {
		return nil, err
	}

	record := &api.Record{}
	if err = proto.Unmarshal(b, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Contains reports whether offset was written to this segment
func (s *segment) Contains(offset uint64) bool {
	return s.baseOffset <= offset && offset < s.nextOffset
}

// IsMaxed reports whether the store or index is full. The index check leaves
// room for one entry so the next Append can't overflow it.
func (s *segment) IsMaxed() bool {
	return s.store.Size() >= s.config.Segment.MaxStoreBytes ||
		s.index.size+entryWidth > s.config.Segment.MaxIndexBytes
}

func (s *segment) Close() error {
	if err := s.index.Close(); err != nil {
		return err
	}
	return s.store.Close()
}

// Remove closes the segment and deletes its files
func (s *segment) Remove() error {
	if err := s.Close(); err != nil {
		return err
	}
	if err := os.Remove(s.index.Name()); err != nil {
		return err
	}
	return os.Remove(s.store.Name())
}
