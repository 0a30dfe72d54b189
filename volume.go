package hfs

// Volume is the opened, variant-dispatched view of an HFS or HFS+ volume
// (§4.2): the block device, the decoded primary header, the allocation
// bitmap location, and the catalog/extents[/attributes] B-trees, all
// wired together so the checker and formatter can operate uniformly across
// both on-disk variants.
type Volume struct {
	Type FSType
	Bio  *BlockIO

	BlockSize   uint32
	TotalBlocks uint32

	MDB *MDB          // set iff Type == FSHFS
	VH  *VolumeHeader // set iff Type == FSHFSPlus or FSHFSX

	// bitmapOffset is the absolute byte offset of the allocation bitmap.
	// For HFS+ it is read through the AllocationFile's own fork extents
	// (it is itself an allocation-mapped file); for classic HFS it is the
	// fixed drVBMSt sector run.
	bitmapOffset int64
	bitmapBytes  int64

	Catalog    *BTree
	Extents    *BTree
	Attributes *BTree // HFS+ only; nil for classic HFS

	keyLenWidth int // 1 for HFS, 2 for HFS+
}

// allocBlockBase returns the byte offset of allocation block 0.
func (v *Volume) allocBlockBase() int64 {
	if v.Type == FSHFS {
		return int64(v.MDB.AllocBlockStart) * SectorSize
	}
	return 0 // HFS+ allocation blocks are numbered from the start of the volume
}

// openVolumeExtentsResolver returns an overflowResolver backed by the
// volume's real extents-overflow B-tree, for chasing fork continuations
// past a system file's inline extent record (§4.5).
func openVolumeExtentsResolver(v *Volume) overflowResolver {
	if v.Extents == nil {
		return nil
	}
	return func(forkType byte, cnid uint32, cnt uint32) (ExtentRecord, bool) {
		var found ExtentRecord
		ok := false
		_ = v.Extents.WalkLeaves(v.keyLenWidth, func(_ uint32, key, value []byte) error {
			if ok {
				return nil
			}
			var ek ExtentKey
			if v.Type == FSHFS {
				ek = decodeExtentKeyHFS(key)
			} else {
				ek = decodeExtentKeyHFSPlus(key)
			}
			if ek.ForkType != forkType || ek.CNID != cnid || ek.StartBlock != cnt {
				return nil
			}
			if v.Type == FSHFS {
				found = decodeExtentRecordHFS(value)
			} else {
				found = decodeExtentRecordHFSPlus(value)
			}
			ok = true
			return nil
		})
		return found, ok
	}
}

// OpenVolume probes the signature at offset 1024, decodes the primary
// header for the detected variant, and instantiates the catalog, extents,
// and (HFS+ only) attributes B-trees from the header's fork descriptors.
// If the primary header fails to decode, the copy 1024 bytes before the end
// of the device is decoded instead (§4.2's BothHeadersCorrupt policy); a
// primary header that decodes but fails validation is rejected without
// consulting that copy.
func OpenVolume(dev device, deviceSize int64, cacheEntries int) (*Volume, error) {
	bio := NewBlockIO(dev, deviceSize, cacheEntries)

	fsType, err := Probe(dev, deviceSize)
	if err != nil {
		return nil, err
	}

	switch fsType {
	case FSHFS:
		return openHFSVolume(bio, deviceSize)
	case FSHFSPlus, FSHFSX:
		return openHFSPlusVolume(bio, deviceSize, fsType)
	default:
		return nil, ErrNotAFilesystem
	}
}

func openHFSVolume(bio *BlockIO, deviceSize int64) (*Volume, error) {
	raw, err := bio.ReadAt(volumeHeaderOffset, mdbSize)
	if err != nil {
		return nil, err
	}

	mdb, err := decodeMDB(raw)
	primaryErr := err
	if err != nil {
		altRaw, altErr := bio.ReadAt(deviceSize-2*SectorSize, mdbSize)
		if altErr != nil {
			return nil, ErrBothHeadersCorrupt
		}
		mdb, err = decodeMDB(altRaw)
		if err != nil {
			return nil, ErrBothHeadersCorrupt
		}
	}
	if verr := validateMDB(mdb); verr != nil {
		if primaryErr == nil {
			return nil, verr
		}
		return nil, ErrBothHeadersCorrupt
	}

	v := &Volume{
		Type:        FSHFS,
		Bio:         bio,
		BlockSize:   mdb.AllocBlockSize,
		TotalBlocks: uint32(mdb.AllocBlocks),
		MDB:         mdb,
		keyLenWidth: 1,
	}
	v.bitmapOffset = int64(mdb.BitmapStart) * SectorSize
	v.bitmapBytes = int64((mdb.AllocBlocks + 7) / 8)

	base := v.allocBlockBase()

	extentsRec := chaseOverflow(mdb.ExtentsFile.Extents, nil, ForkTypeData, cnidExtentsFile)
	if len(extentsRec) > 0 {
		extentsBase := base + int64(extentsRec[0].StartBlock)*int64(v.BlockSize)
		v.Extents, err = openBTree(bio, extentsBase, uint16(v.BlockSize), extentKeyComparator(FSHFS), nil)
		if err != nil {
			return nil, err
		}
	}

	catalogRec := chaseOverflow(mdb.CatalogFile.Extents, openVolumeExtentsResolver(v), ForkTypeData, cnidCatalogFile)
	if len(catalogRec) > 0 {
		catalogBase := base + int64(catalogRec[0].StartBlock)*int64(v.BlockSize)
		v.Catalog, err = openBTree(bio, catalogBase, uint16(v.BlockSize), catalogKeyComparator(FSHFS, KeyCompareBinary), nil)
		if err != nil {
			return nil, err
		}
	}

	return v, nil
}

func openHFSPlusVolume(bio *BlockIO, deviceSize int64, fsType FSType) (*Volume, error) {
	raw, err := bio.ReadAt(volumeHeaderOffset, 512)
	if err != nil {
		return nil, err
	}

	vh, err := decodeVolumeHeader(raw)
	primaryErr := err
	if err != nil {
		altRaw, altErr := bio.ReadAt(deviceSize-SectorSize*2, 512)
		if altErr != nil {
			return nil, ErrBothHeadersCorrupt
		}
		vh, err = decodeVolumeHeader(altRaw)
		if err != nil {
			return nil, ErrBothHeadersCorrupt
		}
	}
	if verr := validateVolumeHeader(vh); verr != nil {
		if primaryErr == nil {
			return nil, verr
		}
		return nil, ErrBothHeadersCorrupt
	}

	v := &Volume{
		Type:        fsType,
		Bio:         bio,
		BlockSize:   vh.BlockSize,
		TotalBlocks: vh.TotalBlocks,
		VH:          vh,
		keyLenWidth: 2,
	}

	allocationRec := vh.AllocationFile.Extents
	if len(allocationRec) > 0 {
		v.bitmapOffset = int64(allocationRec[0].StartBlock) * int64(v.BlockSize)
	}
	v.bitmapBytes = int64((vh.TotalBlocks + 7) / 8)

	keyCompare := uint8(KeyCompareCaseFoldUnicode)
	if fsType == FSHFSX {
		keyCompare = KeyCompareBinaryUnicode
	}

	extentsRec := vh.ExtentsFile.Extents
	if len(extentsRec) > 0 {
		extentsBase := int64(extentsRec[0].StartBlock) * int64(v.BlockSize)
		v.Extents, err = openBTree(bio, extentsBase, uint16(v.BlockSize), extentKeyComparator(fsType), nil)
		if err != nil {
			return nil, err
		}
	}

	resolver := openVolumeExtentsResolver(v)

	catalogRec := chaseOverflow(vh.CatalogFile.Extents, resolver, ForkTypeData, cnidCatalogFile)
	if len(catalogRec) > 0 {
		catalogBase := int64(catalogRec[0].StartBlock) * int64(v.BlockSize)
		v.Catalog, err = openBTree(bio, catalogBase, uint16(v.BlockSize), catalogKeyComparator(fsType, keyCompare), nil)
		if err != nil {
			return nil, err
		}
	}

	attributesRec := chaseOverflow(vh.AttributesFile.Extents, resolver, ForkTypeData, cnidAttributesFile)
	if len(attributesRec) > 0 {
		attributesBase := int64(attributesRec[0].StartBlock) * int64(v.BlockSize)
		v.Attributes, err = openBTree(bio, attributesBase, uint16(v.BlockSize), attributeKeyComparator(keyCompare), nil)
		if err != nil {
			return nil, err
		}
	}

	return v, nil
}

// Reserved CNIDs for the volume's own system files (§3 GLOSSARY).
const (
	cnidExtentsFile    = 3
	cnidCatalogFile    = 4
	cnidAttributesFile = 8
)

// ReadBitmap reads the full on-disk allocation bitmap into memory.
func (v *Volume) ReadBitmap() (*Bitmap, error) {
	raw, err := v.Bio.ReadAt(v.bitmapOffset, int(v.bitmapBytes))
	if err != nil {
		return nil, err
	}
	return bitmapFromBytes(raw, v.TotalBlocks), nil
}

// WriteBitmap writes b back to the bitmap's on-disk location.
func (v *Volume) WriteBitmap(b *Bitmap) error {
	return v.Bio.WriteAt(v.bitmapOffset, b.Bytes())
}
