package hfs

import (
	"container/list"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/dsoprea/go-logging"
)

// SectorSize is the fixed 512-byte physical sector size (§4.1). BlockIO
// passes every read and write to the device at exactly the byte offset and
// length its caller gives; it does not align them to sector boundaries.
const SectorSize = 512

// device is the minimal seekable-byte-device contract BlockIO requires.
// *os.File and any io.ReaderAt+io.WriterAt+Syncer (e.g. a test harness's
// in-memory buffer) satisfy it.
type device interface {
	io.ReaderAt
	io.WriterAt
}

// Syncer is implemented by devices that can flush buffered writes. Devices
// that don't implement it (e.g. an in-memory test buffer) are treated as
// always-synced.
type Syncer interface {
	Sync() error
}

// Sizer is implemented by devices that know their own length.
type Sizer interface {
	Size() (int64, error)
}

// BlockIO presents a device as an indexable, typed byte substrate (§4.1).
// All multi-byte integer accessors elsewhere in this package go through
// explicit big-endian decode/encode helpers rather than through BlockIO
// itself, per design note §9.
type BlockIO struct {
	dev        device
	deviceSize int64

	cache     *list.List // of *cacheEntry, most-recently-used at Front
	cacheMap  map[uint64]*list.Element
	cacheCap  int
}

type cacheEntry struct {
	blockNum int64
	blockLen int
	data     []byte
}

// cacheKey hashes a (blockNum, blockLen) pair the way BeHierarchic hashes
// cache keys for its own block cache: a single xxhash sum over the packed
// key bytes, used as the map key for the LRU ring.
func cacheKey(blockNum int64, blockLen int) uint64 {
	var buf [16]byte
	be := defaultEncoding
	be.PutUint64(buf[0:8], uint64(blockNum))
	be.PutUint64(buf[8:16], uint64(blockLen))
	return xxhash.Sum64(buf[:])
}

// NewBlockIO wraps dev. cacheEntries is the LRU capacity (§4.1 permits up to
// 32); pass 0 to disable caching entirely, which the checker does (§4.1) to
// guarantee every read hits the medium.
func NewBlockIO(dev device, deviceSize int64, cacheEntries int) *BlockIO {
	b := &BlockIO{
		dev:        dev,
		deviceSize: deviceSize,
	}
	if cacheEntries > 0 {
		b.cache = list.New()
		b.cacheMap = make(map[uint64]*list.Element)
		b.cacheCap = cacheEntries
	}
	return b
}

// Size returns the device's total byte length.
func (b *BlockIO) Size() int64 {
	return b.deviceSize
}

// ReadAt reads length bytes at byteOffset. Callers that need block-numbered
// access can use ReadBlock instead; ReadAt is the primitive both build on.
func (b *BlockIO) ReadAt(byteOffset int64, length int) (data []byte, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	if byteOffset+int64(length) > b.deviceSize {
		return nil, &IoError{Kind: IoErrorTruncated, ByteOffset: byteOffset, Err: io.ErrUnexpectedEOF}
	}

	data = make([]byte, length)
	n, err := b.dev.ReadAt(data, byteOffset)
	if err != nil && !(err == io.EOF && n == length) {
		return nil, &IoError{Kind: IoErrorRead, ByteOffset: byteOffset, Err: err}
	}
	if n != length {
		return nil, &IoError{Kind: IoErrorTruncated, ByteOffset: byteOffset, Err: io.ErrUnexpectedEOF}
	}
	return data, nil
}

// WriteAt writes data at byteOffset. Writes may be buffered by the host OS
// but the contract (§4.1) requires Sync before any repair/format function
// returns success; WriteAt itself is a write-through operation with respect
// to BlockIO's own cache.
func (b *BlockIO) WriteAt(byteOffset int64, data []byte) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			err = log.Wrap(errRaw.(error))
		}
	}()

	n, err := b.dev.WriteAt(data, byteOffset)
	if err != nil {
		return &IoError{Kind: IoErrorWrite, ByteOffset: byteOffset, Err: err}
	}
	if n != len(data) {
		return &IoError{Kind: IoErrorWrite, ByteOffset: byteOffset, Err: io.ErrShortWrite}
	}

	b.invalidateRange(byteOffset, len(data))

	return nil
}

// ReadBlock reads a length-byte region starting at allocation-block bn
// relative to base (the byte offset of block 0) with a single ReadAt of that
// exact range; the range is not rounded out to whole sectors. The LRU cache,
// if enabled, is consulted first.
func (b *BlockIO) ReadBlock(base int64, bn int64, length int) ([]byte, error) {
	byteOffset := base + bn*int64(length)

	if b.cache != nil {
		key := cacheKey(byteOffset, length)
		if el, ok := b.cacheMap[key]; ok {
			b.cache.MoveToFront(el)
			entry := el.Value.(*cacheEntry)
			out := make([]byte, length)
			copy(out, entry.data)
			return out, nil
		}
	}

	data, err := b.ReadAt(byteOffset, length)
	if err != nil {
		return nil, err
	}

	if b.cache != nil {
		b.cachePut(byteOffset, length, data)
	}

	return data, nil
}

// WriteBlock writes data at allocation-block bn relative to base. Being
// write-through (§4.1), the corresponding cache entry, if any, is evicted
// rather than updated in place.
func (b *BlockIO) WriteBlock(base int64, bn int64, data []byte) error {
	byteOffset := base + bn*int64(len(data))
	return b.WriteAt(byteOffset, data)
}

func (b *BlockIO) cachePut(byteOffset int64, length int, data []byte) {
	key := cacheKey(byteOffset, length)
	if el, ok := b.cacheMap[key]; ok {
		b.cache.MoveToFront(el)
		el.Value.(*cacheEntry).data = data
		return
	}

	if b.cache.Len() >= b.cacheCap {
		oldest := b.cache.Back()
		if oldest != nil {
			b.cache.Remove(oldest)
			old := oldest.Value.(*cacheEntry)
			delete(b.cacheMap, cacheKey(old.blockNum, old.blockLen))
		}
	}

	entry := &cacheEntry{blockNum: byteOffset, blockLen: length, data: data}
	el := b.cache.PushFront(entry)
	b.cacheMap[key] = el
}

// invalidateRange evicts any cached entry that overlaps [off, off+n): a
// write-through cache never serves stale bytes.
func (b *BlockIO) invalidateRange(off int64, n int) {
	if b.cache == nil {
		return
	}
	for el := b.cache.Front(); el != nil; {
		next := el.Next()
		entry := el.Value.(*cacheEntry)
		entryEnd := entry.blockNum + int64(entry.blockLen)
		if entry.blockNum < off+int64(n) && off < entryEnd {
			b.cache.Remove(el)
			delete(b.cacheMap, cacheKey(entry.blockNum, entry.blockLen))
		}
		el = next
	}
}

// Sync flushes buffered writes. Required before any repair or format
// function returns success (§4.1).
func (b *BlockIO) Sync() error {
	if s, ok := b.dev.(Syncer); ok {
		if err := s.Sync(); err != nil {
			return &IoError{Kind: IoErrorWrite, ByteOffset: -1, Err: err}
		}
	}
	return nil
}
