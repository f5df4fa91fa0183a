package layerfile

import (
	"github.com/agentsdb/agentsdb-go/internal/agerrors"
)

func parseLayerFile(path string, raw []byte) (*LayerFile, error) {
	hdr, err := parseHeader(path, raw)
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) != hdr.FileLength {
		return nil, agerrors.FormatError(agerrors.CodeFileLengthMismatch,
			"declared file length does not match actual file length", path).
			WithDetail("header", hdr.FileLength).WithDetail("actual", len(raw))
	}

	entries, err := parseSectionDirectory(path, raw, hdr)
	if err != nil {
		return nil, err
	}

	sections := make(map[sectionKind]sectionEntry, len(entries))
	for _, e := range entries {
		if _, dup := sections[e.Kind]; dup {
			return nil, agerrors.FormatError(agerrors.CodeDuplicateSection,
				"section kind appears more than once", path).WithDetail("kind", e.Kind)
		}
		if e.Offset+e.Length > uint64(len(raw)) {
			return nil, agerrors.FormatError(agerrors.CodeInvalidRange,
				"section extends past end of file", path).WithDetail("kind", e.Kind)
		}
		sections[e.Kind] = e
	}

	for _, required := range []sectionKind{sectionStringDict, sectionChunkTable, sectionEmbeddingMatrix} {
		if _, ok := sections[required]; !ok {
			return nil, agerrors.FormatError(agerrors.CodeMissingSection,
				"required section missing", path).WithDetail("kind", required)
		}
	}

	slice := func(k sectionKind) []byte {
		e, ok := sections[k]
		if !ok {
			return nil
		}
		return raw[e.Offset : e.Offset+e.Length]
	}

	dict, err := decodeStringDict(slice(sectionStringDict), path)
	if err != nil {
		return nil, err
	}

	records, err := decodeChunkTable(slice(sectionChunkTable), path)
	if err != nil {
		return nil, err
	}

	var sources []rawProvenance
	if b := slice(sectionSourceTable); b != nil {
		sources, err = decodeSourceTable(b, path)
		if err != nil {
			return nil, err
		}
	}

	schema, embedRaw, rowCount, err := decodeEmbeddingMatrix(slice(sectionEmbeddingMatrix), path)
	if err != nil {
		return nil, err
	}
	if int(rowCount) != len(records) {
		return nil, agerrors.FormatError(agerrors.CodeInvalidRange,
			"embedding row count does not match chunk count", path).
			WithDetail("row_count", rowCount).WithDetail("chunk_count", len(records))
	}

	var rels []Relationship
	if b := slice(sectionRelationships); b != nil {
		rels, err = decodeRelationships(b, path)
		if err != nil {
			return nil, err
		}
	}

	var metadata []byte
	if b := slice(sectionLayerMetadata); b != nil {
		metadata = append([]byte(nil), b...)
	}

	if err := validateRecords(path, records, len(dict), len(sources), rowCount, len(rels)); err != nil {
		return nil, err
	}
	if err := validateRelationships(path, rels, records); err != nil {
		return nil, err
	}

	return &LayerFile{
		Path:     path,
		Schema:   schema,
		dict:     dict,
		records:  records,
		sources:  sources,
		embedRaw: embedRaw,
		rowSize:  embeddingRowSize(schema.ElementType, schema.Dim),
		rels:     rels,
		metadata: metadata,
	}, nil
}

func parseHeader(path string, raw []byte) (fileHeaderV1, error) {
	if len(raw) < fileHeaderSize {
		return fileHeaderV1{}, agerrors.FormatError(agerrors.CodeTruncated,
			"file shorter than fixed header", path).
			WithDetail("at", 0).WithDetail("needed", fileHeaderSize)
	}
	r := newByteReader(raw[:fileHeaderSize], path)
	magic, _ := r.u32()
	if magic != Magic {
		return fileHeaderV1{}, agerrors.FormatError(agerrors.CodeBadMagic,
			"bad magic", path).WithDetail("expected", Magic).WithDetail("got", magic)
	}
	verMajor, _ := r.u16()
	verMinor, _ := r.u16()
	reserved0, _ := r.u32()
	reserved1, _ := r.u32()
	if reserved0 != 0 || reserved1 != 0 {
		return fileHeaderV1{}, agerrors.FormatError(agerrors.CodeNonZeroReserved,
			"reserved header field is non-zero", path)
	}
	if verMajor != VersionMajor {
		return fileHeaderV1{}, agerrors.FormatError(agerrors.CodeUnsupportedVersion,
			"unsupported layer file version", path).
			WithDetail("major", verMajor).WithDetail("minor", verMinor)
	}
	fileLength, _ := r.u64()
	sectionDirOffset, _ := r.u64()
	sectionDirCount, _ := r.u32()
	reserved2, _ := r.u32()
	if reserved2 != 0 {
		return fileHeaderV1{}, agerrors.FormatError(agerrors.CodeNonZeroReserved,
			"reserved header field is non-zero", path)
	}
	return fileHeaderV1{
		Magic: magic, VersionMajor: verMajor, VersionMinor: verMinor,
		FileLength: fileLength, SectionDirOffset: sectionDirOffset,
		SectionDirCount: sectionDirCount,
	}, nil
}

func parseSectionDirectory(path string, raw []byte, hdr fileHeaderV1) ([]sectionEntry, error) {
	need := int(hdr.SectionDirCount) * sectionEntrySize
	if hdr.SectionDirOffset+uint64(need) > uint64(len(raw)) {
		return nil, agerrors.FormatError(agerrors.CodeTruncated,
			"section directory extends past end of file", path).
			WithDetail("at", hdr.SectionDirOffset).WithDetail("needed", need)
	}
	r := newByteReader(raw[hdr.SectionDirOffset:hdr.SectionDirOffset+uint64(need)], path)
	out := make([]sectionEntry, 0, hdr.SectionDirCount)
	for i := uint32(0); i < hdr.SectionDirCount; i++ {
		kind, err := r.u32()
		if err != nil {
			return nil, err
		}
		offset, err := r.u64()
		if err != nil {
			return nil, err
		}
		length, err := r.u64()
		if err != nil {
			return nil, err
		}
		out = append(out, sectionEntry{Kind: sectionKind(kind), Offset: offset, Length: length})
	}
	return out, nil
}

func decodeChunkTable(buf []byte, path string) ([]chunkRecord, error) {
	r := newByteReader(buf, path)
	count, err := r.u64()
	if err != nil {
		return nil, err
	}
	out := make([]chunkRecord, 0, count)
	for i := uint64(0); i < count; i++ {
		id, err := r.u32()
		if err != nil {
			return nil, err
		}
		kindID, err := r.u64()
		if err != nil {
			return nil, err
		}
		contentID, err := r.u64()
		if err != nil {
			return nil, err
		}
		authorID, err := r.u64()
		if err != nil {
			return nil, err
		}
		conf, err := r.f32()
		if err != nil {
			return nil, err
		}
		createdAt, err := r.u64()
		if err != nil {
			return nil, err
		}
		row, err := r.u32()
		if err != nil {
			return nil, err
		}
		srcStart, err := r.u32()
		if err != nil {
			return nil, err
		}
		srcCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		relStart, err := r.u32()
		if err != nil {
			return nil, err
		}
		relCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		if err := r.skip(4); err != nil {
			return nil, err
		}
		out = append(out, chunkRecord{
			ID: id, KindStringID: kindID, ContentStringID: contentID,
			AuthorStringID: authorID, Confidence: conf, CreatedAtUnixMs: createdAt,
			EmbeddingRow: row, SourceStart: srcStart, SourceCount: srcCount,
			RelStart: relStart, RelCount: relCount,
		})
	}
	return out, nil
}

func decodeEmbeddingMatrix(buf []byte, path string) (LayerSchema, []byte, uint64, error) {
	r := newByteReader(buf, path)
	dim, err := r.u32()
	if err != nil {
		return LayerSchema{}, nil, 0, err
	}
	et, err := r.u32()
	if err != nil {
		return LayerSchema{}, nil, 0, err
	}
	scale, err := r.f32()
	if err != nil {
		return LayerSchema{}, nil, 0, err
	}
	rowCount, err := r.u64()
	if err != nil {
		return LayerSchema{}, nil, 0, err
	}
	if dim == 0 {
		return LayerSchema{}, nil, 0, agerrors.FormatError(agerrors.CodeInvalidValue,
			"embedding dim must be > 0", path).WithDetail("field", "dim")
	}
	elementType := ElementType(et)
	if elementType != ElementF32 && elementType != ElementI8 {
		return LayerSchema{}, nil, 0, agerrors.FormatError(agerrors.CodeInvalidValue,
			"unrecognized embedding element type", path).WithDetail("field", "element_type")
	}
	if elementType == ElementI8 && scale <= 0 {
		return LayerSchema{}, nil, 0, agerrors.FormatError(agerrors.CodeInvalidValue,
			"quant_scale must be > 0 for i8 embeddings", path).WithDetail("field", "quant_scale")
	}
	schema := LayerSchema{Dim: dim, ElementType: elementType, QuantScale: scale}
	rowSize := embeddingRowSize(elementType, dim)
	rows, err := r.take(int(rowCount) * rowSize)
	if err != nil {
		return LayerSchema{}, nil, 0, err
	}
	return schema, rows, rowCount, nil
}

func validateRecords(path string, records []chunkRecord, dictLen, sourcesLen int, rowCount uint64, relsLen int) error {
	seen := make(map[uint32]struct{}, len(records))
	for _, rec := range records {
		if rec.ID == 0 {
			return agerrors.FormatError(agerrors.CodeInvalidChunkID,
				"stored chunk id must be non-zero", path)
		}
		if _, dup := seen[rec.ID]; dup {
			return agerrors.FormatError(agerrors.CodeDuplicateChunkID,
				"duplicate chunk id within layer", path).WithDetail("id", rec.ID)
		}
		seen[rec.ID] = struct{}{}

		for _, sid := range []uint64{rec.KindStringID, rec.ContentStringID, rec.AuthorStringID} {
			if sid >= uint64(dictLen) {
				return agerrors.FormatError(agerrors.CodeInvalidStringID,
					"string id out of range", path).WithDetail("id", sid).WithDetail("count", dictLen)
			}
		}
		if int(rec.EmbeddingRow) >= int(rowCount) {
			return agerrors.FormatError(agerrors.CodeInvalidEmbeddingRow,
				"embedding row out of range", path).
				WithDetail("embedding_row", rec.EmbeddingRow).WithDetail("row_count", rowCount)
		}
		end := int(rec.SourceStart) + int(rec.SourceCount)
		if rec.SourceCount > 0 && end > sourcesLen {
			return agerrors.FormatError(agerrors.CodeInvalidRange,
				"source slice out of range", path).WithDetail("id", rec.ID)
		}
		relEnd := int(rec.RelStart) + int(rec.RelCount)
		if rec.RelCount > 0 && relEnd > relsLen {
			return agerrors.FormatError(agerrors.CodeInvalidRelationshipsRange,
				"relationship slice out of range", path).WithDetail("id", rec.ID)
		}
	}
	return nil
}

// validateRelationships checks that every relationship's endpoints name
// chunk ids that actually exist among records.
func validateRelationships(path string, rels []Relationship, records []chunkRecord) error {
	if len(rels) == 0 {
		return nil
	}
	ids := make(map[ChunkID]struct{}, len(records))
	for _, rec := range records {
		ids[ChunkID(rec.ID)] = struct{}{}
	}
	for _, rel := range rels {
		if _, ok := ids[rel.From]; !ok {
			return agerrors.FormatError(agerrors.CodeInvalidRelationshipsRange,
				"relationship From references unknown chunk id", path).WithDetail("id", rel.From)
		}
		if _, ok := ids[rel.To]; !ok {
			return agerrors.FormatError(agerrors.CodeInvalidRelationshipsRange,
				"relationship To references unknown chunk id", path).WithDetail("id", rel.To)
		}
	}
	return nil
}
