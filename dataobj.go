package milvus

// DataObj is a payload held by the cache. The cache treats payloads as
// opaque; it only consults their byte size for usage accounting.
//
// Size must be non-negative and must not change while the payload is cached:
// the size reported at insert time is the size subtracted on eviction, so a
// payload that grows or shrinks after insertion corrupts the usage counter.
//
// Payloads are shared by reference. Get returns the same DataObj the caller
// inserted, and eviction only drops the cache's reference; handles already
// returned to callers stay valid.
type DataObj interface {
	// Size returns the payload's in-memory footprint in bytes.
	Size() int64
}

// Blob is a DataObj backed by a byte slice.
type Blob []byte

// Compile-time check that Blob implements DataObj.
var _ DataObj = Blob(nil)

// Size returns the length of the underlying slice.
func (b Blob) Size() int64 {
	return int64(len(b))
}
