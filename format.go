package hfs

import (
	"strings"
	"time"
)

// Format geometry constants (§4.6).
const (
	hfsMaxAllocBlocks  = 65535
	hfsPlusBigDevice   = 1 << 30 // 1 GiB
	hfsPlusSmallBlock  = 512
	hfsPlusLargeBlock  = 4096
	hfsPlusCatalogNodeSize = 4096
	hfsPlusCatalogMinNodes = 4
)

// ValidateVolumeName rejects the two characters the classic on-disk format
// cannot represent in a Pascal-string name: ':' (the path separator) and
// the null byte.
func ValidateVolumeName(name string) error {
	if strings.ContainsAny(name, ":\x00") {
		return &FormatError{Location: "volume name", Reason: "contains ':' or a null byte"}
	}
	if len(name) == 0 {
		return &FormatError{Location: "volume name", Reason: "empty"}
	}
	return nil
}

func roundUp(n, multiple int64) int64 {
	if multiple == 0 {
		return n
	}
	return ((n + multiple - 1) / multiple) * multiple
}

// hfsGeometry computes the §4.6 classic-HFS allocation geometry.
func hfsGeometry(deviceSize int64) (allocBlockSize uint32, totalBlocks uint32) {
	size := roundUp(deviceSize/65536, 512)
	if size < 512 {
		size = 512
	}
	allocBlockSize = uint32(size)

	total := deviceSize / int64(allocBlockSize)
	if total > hfsMaxAllocBlocks {
		total = hfsMaxAllocBlocks
	}
	return allocBlockSize, uint32(total)
}

// hfsCatalogBlocks returns the minimum catalog-file allocation-block count
// for a volume of totalBlocks allocation blocks (§4.6).
func hfsCatalogBlocks(totalBlocks uint32) uint32 {
	blocks := uint32(4)
	if totalBlocks > 250 {
		blocks += totalBlocks / 250
	}
	return blocks
}

// hfsPlusGeometry computes the §4.6 HFS+ allocation geometry.
func hfsPlusGeometry(deviceSize int64) (blockSize uint32, totalBlocks uint32) {
	blockSize = hfsPlusSmallBlock
	if deviceSize > hfsPlusBigDevice {
		blockSize = hfsPlusLargeBlock
	}
	totalBlocks = uint32(deviceSize / int64(blockSize))
	return blockSize, totalBlocks
}

// writeBootBlocks zero-fills the first 1024 bytes with the "LK" sentinel at
// offset 0 (§4.6).
func writeBootBlocks(bio *BlockIO) error {
	buf := make([]byte, volumeHeaderOffset)
	buf[0], buf[1] = 'L', 'K'
	return bio.WriteAt(0, buf)
}

// writeEmptyHeaderNode writes a single-node B-tree (extents or
// attributes, per §4.6): treeDepth=0, rootNode=0, empty leaf chain, node-map
// bit 0 set.
func writeEmptyHeaderNode(bio *BlockIO, base int64, nodeSize uint16, btreeType uint8, keyCompareType uint8, totalNodes uint32) error {
	node := make([]byte, nodeSize)

	desc := NodeDescriptor{FLink: 0, BLink: 0, Kind: NodeHeader, Height: 0, NumRecords: 3}
	encodeNodeDescriptor(desc, node)

	header := BTHeaderRec{
		TreeDepth:      0,
		RootNode:       0,
		LeafRecords:    0,
		FirstLeafNode:  0,
		LastLeafNode:   0,
		NodeSize:       nodeSize,
		MaxKeyLength:   btreeMaxKeyLength(btreeType),
		TotalNodes:     totalNodes,
		FreeNodes:      totalNodes - 1,
		ClumpSize:      uint32(nodeSize),
		BTreeType:      btreeType,
		KeyCompareType: keyCompareType,
	}
	encodeBTHeaderRec(header, node[nodeDescriptorSize:])

	// Map record: bit 0 (node 0, the header itself) is marked allocated.
	node[nodeDescriptorSize+btHeaderRecSize] = 0x80

	// Reverse-growing record offset table: 3 records (header, userData-less
	// map record, and the trailing free-space sentinel) plus the closing
	// total-length entry, per §3. Entry k sits at nodeSize-2*(k+1).
	tail := int(nodeSize)
	putU16(node[tail-2:], uint16(nodeDescriptorSize))
	putU16(node[tail-4:], uint16(nodeDescriptorSize+btHeaderRecSize))
	putU16(node[tail-6:], uint16(nodeDescriptorSize+btHeaderRecSize+1))
	putU16(node[tail-8:], uint16(nodeDescriptorSize+btHeaderRecSize+1))

	return bio.WriteAt(base, node)
}

func btreeMaxKeyLength(btreeType uint8) uint16 {
	switch btreeType {
	case BTreeTypeExtents:
		return 10
	case BTreeTypeAttributes:
		return 0x218
	default:
		return 516
	}
}

// writeRootOnlyCatalog writes a two-node catalog tree (§4.6): node 0 is the
// header node (treeDepth=1, rootNode=1, one leaf record), node 1 is a leaf
// holding the root directory's folder record, keyed (parentID=1, name="").
func writeRootOnlyCatalog(bio *BlockIO, base int64, nodeSize uint16, fsType FSType, keyCompareType uint8, now time.Time) error {
	node0 := make([]byte, nodeSize)
	desc0 := NodeDescriptor{FLink: 0, BLink: 0, Kind: NodeHeader, Height: 0, NumRecords: 3}
	encodeNodeDescriptor(desc0, node0)

	header := BTHeaderRec{
		TreeDepth:      1,
		RootNode:       1,
		LeafRecords:    1,
		FirstLeafNode:  1,
		LastLeafNode:   1,
		NodeSize:       nodeSize,
		MaxKeyLength:   516,
		TotalNodes:     hfsPlusCatalogMinNodes,
		FreeNodes:      hfsPlusCatalogMinNodes - 2,
		ClumpSize:      uint32(nodeSize),
		BTreeType:      BTreeTypeCatalog,
		KeyCompareType: keyCompareType,
	}
	encodeBTHeaderRec(header, node0[nodeDescriptorSize:])

	tail0 := int(nodeSize)
	node0[nodeDescriptorSize+btHeaderRecSize] = 0xC0 // bits 0 and 1 set
	putU16(node0[tail0-2:], uint16(nodeDescriptorSize))
	putU16(node0[tail0-4:], uint16(nodeDescriptorSize+btHeaderRecSize))
	putU16(node0[tail0-6:], uint16(nodeDescriptorSize+btHeaderRecSize+1))
	putU16(node0[tail0-8:], uint16(nodeDescriptorSize+btHeaderRecSize+1))

	if err := bio.WriteAt(base, node0); err != nil {
		return err
	}

	node1 := make([]byte, nodeSize)
	desc1 := NodeDescriptor{FLink: 0, BLink: 0, Kind: NodeLeaf, Height: 1, NumRecords: 1}
	encodeNodeDescriptor(desc1, node1)

	rootKey := CatalogKey{ParentCNID: 1, NameRaw: nil, Unicode: fsType != FSHFS}
	var keyBytes []byte
	if fsType == FSHFS {
		keyBytes = encodeCatalogKeyHFS(rootKey)
	} else {
		keyBytes = encodeCatalogKeyHFSPlus(rootKey)
	}

	createStamp := toMacTime(safeNow(now))
	var valueBytes []byte
	if fsType == FSHFS {
		// HFSCatalogFolder: recordType(1) + reserved(1) + flags(2) + valence(2) +
		// folderID(4) + createDate(4) + modifyDate(4) + ..., per
		// decodeCatalogRecordHFS's offsets.
		valueBytes = make([]byte, 0x46)
		valueBytes[0] = byte(RecFolder)
		putU16(valueBytes[4:], 0) // valence
		putU32(valueBytes[6:], 2) // root folder CNID
		putU32(valueBytes[0xa:], createStamp)
		putU32(valueBytes[0xe:], createStamp)
	} else {
		valueBytes = make([]byte, 88)
		putU16(valueBytes, uint16(RecFolder))
		putU32(valueBytes[4:], 0) // valence
		putU32(valueBytes[8:], 2) // root folder CNID
		putU32(valueBytes[12:], createStamp)
		putU32(valueBytes[16:], createStamp)
	}

	recOffset := nodeDescriptorSize
	copy(node1[recOffset:], keyBytes)
	valueOffset := recOffset + len(keyBytes)
	if valueOffset%2 != 0 {
		valueOffset++
	}
	copy(node1[valueOffset:], valueBytes)
	recEnd := valueOffset + len(valueBytes)

	// Offset table entry 0 (record start) at nodeSize-2, entry 1 (free
	// space start) at nodeSize-4.
	putU16(node1[int(nodeSize)-2:], uint16(recOffset))
	putU16(node1[int(nodeSize)-4:], uint16(recEnd))

	return bio.WriteAt(base+int64(nodeSize), node1)
}

// FormatHFS initializes a fresh classic-HFS volume image on bio, following
// the §4.6 write order.
func FormatHFS(bio *BlockIO, deviceSize int64, volumeName string, now time.Time) error {
	if err := ValidateVolumeName(volumeName); err != nil {
		return err
	}

	allocBlockSize, totalBlocks := hfsGeometry(deviceSize)
	catalogBlocks := hfsCatalogBlocks(totalBlocks)
	extentsBlocks := uint32(1)

	if err := writeBootBlocks(bio); err != nil {
		return err
	}

	bitmapStartSector := uint16(3)
	bitmapBytes := (totalBlocks + 7) / 8
	bitmap := NewBitmap(totalBlocks)
	bitmap.SetRange(0, extentsBlocks+catalogBlocks)

	extentsStart := uint16(0)
	catalogStart := uint16(extentsBlocks)

	mdb := &MDB{
		CreateDate:      safeNow(now),
		ModifyDate:      safeNow(now),
		BitmapStart:     bitmapStartSector,
		AllocBlockSize:  allocBlockSize,
		ClumpSize:       allocBlockSize,
		AllocBlockStart: uint16(int64(bitmapStartSector) + int64((bitmapBytes+511)/512)),
		NextCNID:        16, // first CNID above the reserved system range
		FreeBlocks:      uint16(totalBlocks - extentsBlocks - catalogBlocks),
		VolumeName:      volumeName,
		AllocBlocks:     uint16(totalBlocks),
		DirCount:        1, // the root directory, written by writeRootOnlyCatalog below
		ExtentsFile: ForkDescriptorHFS{
			LogicalSize: extentsBlocks * allocBlockSize,
			Extents:     ExtentRecord{{StartBlock: uint32(extentsStart), BlockCount: extentsBlocks}},
		},
		CatalogFile: ForkDescriptorHFS{
			LogicalSize: catalogBlocks * allocBlockSize,
			Extents:     ExtentRecord{{StartBlock: uint32(catalogStart), BlockCount: catalogBlocks}},
		},
	}

	if err := bio.WriteAt(volumeHeaderOffset, encodeMDB(mdb)); err != nil {
		return err
	}
	if err := bio.WriteAt(int64(bitmapStartSector)*SectorSize, bitmap.Bytes()); err != nil {
		return err
	}

	allocBase := int64(mdb.AllocBlockStart) * SectorSize
	extentsBase := allocBase + int64(extentsStart)*int64(allocBlockSize)
	catalogBase := allocBase + int64(catalogStart)*int64(allocBlockSize)

	if err := writeEmptyHeaderNode(bio, extentsBase, uint16(allocBlockSize), BTreeTypeExtents, KeyCompareBinary, extentsBlocks); err != nil {
		return err
	}
	if err := writeRootOnlyCatalog(bio, catalogBase, uint16(allocBlockSize), FSHFS, KeyCompareBinary, now); err != nil {
		return err
	}

	if err := bio.WriteAt(deviceSize-2*SectorSize, encodeMDB(mdb)); err != nil {
		return err
	}

	return bio.Sync()
}

// FormatHFSPlus initializes a fresh HFS+ (or, if caseSensitive, HFSX)
// volume image on bio, following the §4.6 write order. No volume name is
// written: the root folder's catalog record is keyed (parentID=1, name="").
// The allocation file starts at the first block past the boot blocks and
// the primary volume header; those reserved blocks are left unmarked.
func FormatHFSPlus(bio *BlockIO, deviceSize int64, caseSensitive bool, now time.Time) error {
	blockSize, totalBlocks := hfsPlusGeometry(deviceSize)

	allocationBytes := (totalBlocks + 7) / 8
	allocationBlocks := uint32((int64(allocationBytes) + int64(blockSize) - 1) / int64(blockSize))

	extentsBlocks := uint32((int64(blockSize) + int64(blockSize) - 1) / int64(blockSize))
	catalogBytes := uint32(hfsPlusCatalogMinNodes * hfsPlusCatalogNodeSize)
	catalogBlocks := (catalogBytes + blockSize - 1) / blockSize

	if err := writeBootBlocks(bio); err != nil {
		return err
	}

	bitmap := NewBitmap(totalBlocks)
	allocationStart := uint32((volumeHeaderOffset + SectorSize + int64(blockSize) - 1) / int64(blockSize))
	extentsStart := allocationStart + allocationBlocks
	catalogStart := extentsStart + extentsBlocks
	firstFree := catalogStart + catalogBlocks
	bitmap.SetRange(allocationStart, allocationBlocks+extentsBlocks+catalogBlocks)

	sig := uint16(sigHFSPlus)
	keyCompare := uint8(KeyCompareCaseFoldUnicode)
	if caseSensitive {
		sig = sigHFSX
		keyCompare = KeyCompareBinaryUnicode
	}

	vh := &VolumeHeader{
		Signature:      sig,
		Version:        hfsPlusVersion,
		CreateDate:     safeNow(now),
		ModifyDate:     safeNow(now),
		BlockSize:      blockSize,
		TotalBlocks:    totalBlocks,
		FreeBlocks:     totalBlocks - (allocationBlocks + extentsBlocks + catalogBlocks),
		NextAllocation: firstFree,
		RsrcClumpSize:  blockSize,
		DataClumpSize:  blockSize,
		NextCatalogID:  16,
		FolderCount:    1,
		AllocationFile: ForkData{
			LogicalSize: uint64(allocationBlocks) * uint64(blockSize),
			ClumpSize:   blockSize,
			TotalBlocks: allocationBlocks,
			Extents:     ExtentRecord{{StartBlock: allocationStart, BlockCount: allocationBlocks}},
		},
		ExtentsFile: ForkData{
			LogicalSize: uint64(extentsBlocks) * uint64(blockSize),
			ClumpSize:   blockSize,
			TotalBlocks: extentsBlocks,
			Extents:     ExtentRecord{{StartBlock: extentsStart, BlockCount: extentsBlocks}},
		},
		CatalogFile: ForkData{
			LogicalSize: uint64(catalogBlocks) * uint64(blockSize),
			ClumpSize:   blockSize,
			TotalBlocks: catalogBlocks,
			Extents:     ExtentRecord{{StartBlock: catalogStart, BlockCount: catalogBlocks}},
		},
	}

	raw, err := encodeVolumeHeader(vh)
	if err != nil {
		return err
	}
	if err := bio.WriteAt(volumeHeaderOffset, raw); err != nil {
		return err
	}

	if err := bio.WriteAt(int64(allocationStart)*int64(blockSize), bitmap.Bytes()); err != nil {
		return err
	}

	extentsBase := int64(extentsStart) * int64(blockSize)
	if err := writeEmptyHeaderNode(bio, extentsBase, uint16(blockSize), BTreeTypeExtents, KeyCompareBinary, extentsBlocks); err != nil {
		return err
	}

	catalogBase := int64(catalogStart) * int64(blockSize)
	if err := writeRootOnlyCatalog(bio, catalogBase, hfsPlusCatalogNodeSize, sigToFSType(sig), keyCompare, now); err != nil {
		return err
	}

	if err := bio.WriteAt(deviceSize-2*SectorSize, raw); err != nil {
		return err
	}

	return bio.Sync()
}

func sigToFSType(sig uint16) FSType {
	if sig == sigHFSX {
		return FSHFSX
	}
	return FSHFSPlus
}
