package layerfile

// Magic is "AGDB" read as a little-endian u32.
const Magic uint32 = 0x42444741

const (
	VersionMajor uint16 = 1
	VersionMinor uint16 = 0
)

// sectionKind tags one entry in the section directory.
type sectionKind uint32

const (
	sectionStringDict sectionKind = iota + 1
	sectionChunkTable
	sectionSourceTable
	sectionEmbeddingMatrix
	sectionRelationships
	sectionLayerMetadata
)

// fileHeaderSize is the fixed byte size of FileHeaderV1:
// magic(4) + verMajor(2) + verMinor(2) + reserved0(4) + reserved1(4) +
// fileLength(8) + sectionDirOffset(8) + sectionDirCount(4) + reserved2(4).
const fileHeaderSize = 40

// sectionEntrySize is the fixed byte size of one section directory entry:
// kind(4) + offset(8) + length(8).
const sectionEntrySize = 20

// chunkRecordSize is the fixed byte size of one chunk table record:
// id(4) + kindStringId(8) + contentStringId(8) + authorStringId(8) +
// confidence(4) + createdAtUnixMs(8) + embeddingRow(4) +
// sourceStart(4) + sourceCount(4) + relStart(4) + relCount(4) + reserved(4).
const chunkRecordSize = 64

// provenanceRecordSize is the fixed byte size of one source-table record:
// tag(4) + chunkId(4) + stringId(8).
const provenanceRecordSize = 16

// relationshipRecordSize is the fixed byte size of one relationships
// record: from(4) + to(4) + kind(4) + weight(4) + reserved(4).
const relationshipRecordSize = 20

// embeddingMatrixHeaderSize is the fixed byte size of the embedding
// matrix section header: dim(4) + elementType(4) + quantScale(4) + rowCount(8).
const embeddingMatrixHeaderSize = 20

type fileHeaderV1 struct {
	Magic            uint32
	VersionMajor     uint16
	VersionMinor     uint16
	Reserved0        uint32
	Reserved1        uint32
	FileLength       uint64
	SectionDirOffset uint64
	SectionDirCount  uint32
	Reserved2        uint32
}

type sectionEntry struct {
	Kind   sectionKind
	Offset uint64
	Length uint64
}
