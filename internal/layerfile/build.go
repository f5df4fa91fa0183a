package layerfile

import "github.com/agentsdb/agentsdb-go/internal/agerrors"

// buildLayerBytes serializes a complete, already-id-assigned chunk set
// into the full Layer File byte layout.
func buildLayerBytes(path string, schema LayerSchema, chunks []Chunk, rels []Relationship, metadataBytes []byte) ([]byte, error) {
	dict := newStringDict()
	authorHuman := dict.intern(string(AuthorHuman))
	authorMcp := dict.intern(string(AuthorMcp))

	var sourceRecords []rawProvenance
	chunkRecords := make([]chunkRecord, 0, len(chunks))
	embed := &byteWriter{}

	for row, c := range chunks {
		if c.ID == 0 {
			return nil, agerrors.FormatError(agerrors.CodeInvalidChunkID,
				"chunk passed to buildLayerBytes must already have an assigned id", path)
		}
		if int(schema.Dim) != len(c.Vector) {
			return nil, agerrors.FormatError(agerrors.CodeInvalidValue,
				"chunk vector length does not match layer schema dim", path).
				WithDetail("id", c.ID).WithDetail("got", len(c.Vector)).WithDetail("want", schema.Dim)
		}
		encodeEmbeddingRow(embed, c.Vector, schema.ElementType, schema.QuantScale)

		kindID := dict.intern(c.Kind)
		contentID := dict.intern(c.Content)
		var authorID uint64
		switch c.Author {
		case AuthorHuman:
			authorID = authorHuman
		case AuthorMcp:
			authorID = authorMcp
		default:
			return nil, agerrors.FormatError(agerrors.CodeInvalidAuthor,
				"chunk author must be human or mcp", path).WithDetail("id", c.ID)
		}

		srcStart := len(sourceRecords)
		for _, src := range c.Sources {
			if src.Kind == ProvenanceChunkID {
				sourceRecords = append(sourceRecords, rawProvenance{
					Tag: uint32(ProvenanceChunkID), ChunkID: uint32(src.ChunkID),
				})
			} else {
				sid := dict.intern(src.Source)
				sourceRecords = append(sourceRecords, rawProvenance{
					Tag: uint32(ProvenanceSourceString), StringID: sid,
				})
			}
		}

		chunkRecords = append(chunkRecords, chunkRecord{
			ID: uint32(c.ID), KindStringID: kindID, ContentStringID: contentID,
			AuthorStringID: authorID, Confidence: c.Confidence,
			CreatedAtUnixMs: c.CreatedAtUnixMs, EmbeddingRow: uint32(row),
			SourceStart: uint32(srcStart), SourceCount: uint32(len(c.Sources)),
		})
	}

	chunkTableBytes := encodeChunkTable(chunkRecords)
	dictBytes := dict.encode()
	sourceBytes := encodeSourceTable(sourceRecords)
	relBytes := encodeRelationships(rels)

	embedHeader := &byteWriter{}
	embedHeader.u32(schema.Dim)
	embedHeader.u32(uint32(schema.ElementType))
	embedHeader.f32(schema.QuantScale)
	embedHeader.u64(uint64(len(chunks)))
	embedSection := append(embedHeader.buf, embed.buf...)

	type sec struct {
		kind sectionKind
		body []byte
	}
	secs := []sec{
		{sectionStringDict, dictBytes},
		{sectionChunkTable, chunkTableBytes},
		{sectionSourceTable, sourceBytes},
		{sectionEmbeddingMatrix, embedSection},
		{sectionRelationships, relBytes},
	}
	if metadataBytes != nil {
		secs = append(secs, sec{sectionLayerMetadata, metadataBytes})
	}

	dirOffset := uint64(fileHeaderSize)
	bodyOffset := dirOffset + uint64(len(secs))*sectionEntrySize

	entries := make([]sectionEntry, 0, len(secs))
	body := &byteWriter{}
	for _, s := range secs {
		entries = append(entries, sectionEntry{Kind: s.kind, Offset: bodyOffset + uint64(len(body.buf)), Length: uint64(len(s.body))})
		body.bytes(s.body)
	}

	total := bodyOffset + uint64(len(body.buf))

	hdr := &byteWriter{}
	hdr.u32(Magic)
	hdr.u16(VersionMajor)
	hdr.u16(VersionMinor)
	hdr.u32(0)
	hdr.u32(0)
	hdr.u64(total)
	hdr.u64(dirOffset)
	hdr.u32(uint32(len(entries)))
	hdr.u32(0)

	dir := &byteWriter{}
	for _, e := range entries {
		dir.u32(uint32(e.Kind))
		dir.u64(e.Offset)
		dir.u64(e.Length)
	}

	out := make([]byte, 0, total)
	out = append(out, hdr.buf...)
	out = append(out, dir.buf...)
	out = append(out, body.buf...)
	return out, nil
}

func encodeChunkTable(records []chunkRecord) []byte {
	w := &byteWriter{}
	w.u64(uint64(len(records)))
	for _, rec := range records {
		w.u32(rec.ID)
		w.u64(rec.KindStringID)
		w.u64(rec.ContentStringID)
		w.u64(rec.AuthorStringID)
		w.f32(rec.Confidence)
		w.u64(rec.CreatedAtUnixMs)
		w.u32(rec.EmbeddingRow)
		w.u32(rec.SourceStart)
		w.u32(rec.SourceCount)
		w.u32(rec.RelStart)
		w.u32(rec.RelCount)
		w.u32(0)
	}
	return w.buf
}
