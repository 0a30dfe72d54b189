package hfs

import "fmt"

// B-tree node kinds (§3 "B-tree node"); Kind is a signed byte on disk.
type NodeKind int8

const (
	NodeIndex  NodeKind = 0
	NodeHeader NodeKind = 1
	NodeMap    NodeKind = 2
	NodeLeaf   NodeKind = -1
)

// nodeDescriptorSize is the fixed 14-byte node descriptor at the front of
// every node (§3).
const nodeDescriptorSize = 14

// NodeDescriptor is the decoded 14-byte header of a single B-tree node.
type NodeDescriptor struct {
	FLink      uint32
	BLink      uint32
	Kind       NodeKind
	Height     uint8
	NumRecords uint16
}

func decodeNodeDescriptor(raw []byte) NodeDescriptor {
	return NodeDescriptor{
		FLink:      u32(raw[0:]),
		BLink:      u32(raw[4:]),
		Kind:       NodeKind(int8(raw[8])),
		Height:     raw[9],
		NumRecords: u16(raw[10:]),
	}
}

func encodeNodeDescriptor(d NodeDescriptor, out []byte) {
	putU32(out[0:], d.FLink)
	putU32(out[4:], d.BLink)
	out[8] = byte(int8(d.Kind))
	out[9] = d.Height
	putU16(out[10:], d.NumRecords)
	putU16(out[12:], 0) // reserved
}

// btHeaderRecSize is the 106-byte BTHeaderRec described in §3.
const btHeaderRecSize = 106

// BTHeaderRec is the decoded B-tree header record, the first field group of
// node 0 (§3).
type BTHeaderRec struct {
	TreeDepth      uint16
	RootNode       uint32
	LeafRecords    uint32
	FirstLeafNode  uint32
	LastLeafNode   uint32
	NodeSize       uint16
	MaxKeyLength   uint16
	TotalNodes     uint32
	FreeNodes      uint32
	ClumpSize      uint32
	BTreeType      uint8
	KeyCompareType uint8
	Attributes     uint32
}

// B-tree type byte (§3).
const (
	BTreeTypeCatalog    = 0
	BTreeTypeExtents    = 255
	BTreeTypeAttributes = 0xF0
)

// Key-compare type byte (§3/§4.4).
const (
	KeyCompareCaseFoldUnicode = 0xCF
	KeyCompareBinaryUnicode   = 0xBC
	KeyCompareBinary          = 0x00
)

func decodeBTHeaderRec(raw []byte) BTHeaderRec {
	return BTHeaderRec{
		TreeDepth:      u16(raw[0:]),
		RootNode:       u32(raw[2:]),
		LeafRecords:    u32(raw[6:]),
		FirstLeafNode:  u32(raw[10:]),
		LastLeafNode:   u32(raw[14:]),
		NodeSize:       u16(raw[18:]),
		MaxKeyLength:   u16(raw[20:]),
		TotalNodes:     u32(raw[22:]),
		FreeNodes:      u32(raw[26:]),
		// reserved1 uint16 at 30
		ClumpSize:      u32(raw[32:]),
		BTreeType:      raw[36],
		KeyCompareType: raw[37],
		Attributes:     u32(raw[38:]),
		// reserved3[16]uint32 at 42:106
	}
}

func encodeBTHeaderRec(h BTHeaderRec, out []byte) {
	putU16(out[0:], h.TreeDepth)
	putU32(out[2:], h.RootNode)
	putU32(out[6:], h.LeafRecords)
	putU32(out[10:], h.FirstLeafNode)
	putU32(out[14:], h.LastLeafNode)
	putU16(out[18:], h.NodeSize)
	putU16(out[20:], h.MaxKeyLength)
	putU32(out[22:], h.TotalNodes)
	putU32(out[26:], h.FreeNodes)
	putU32(out[32:], h.ClumpSize)
	out[36] = h.BTreeType
	out[37] = h.KeyCompareType
	putU32(out[38:], h.Attributes)
}

// KeyComparator orders two raw key byte slices for a specific tree.
type KeyComparator func(a, b []byte) int

// BTree is the generic, comparator-parameterized B+-tree engine (§4.4). One
// instance is bound per volume per tree (catalog, extents[, attributes]).
type BTree struct {
	bio      *BlockIO
	base     int64 // byte offset of node 0
	nodeSize uint16
	header   BTHeaderRec
	compare  KeyComparator
}

// openBTree reads node 0 using startNodeSize (the fork's declared block
// size) to discover the tree's own NodeSize, then re-reads using that
// authoritative size if it differs (§4.4 "Instantiation from volume
// header"). onSizeMismatch, if non-nil, is called when the two disagree so
// the caller can apply the §4.4 "rewrite nodeSize" repair.
func openBTree(bio *BlockIO, base int64, startNodeSize uint16, cmp KeyComparator, onSizeMismatch func(declared uint16)) (*BTree, error) {
	node0, err := bio.ReadAt(base, int(startNodeSize))
	if err != nil {
		return nil, err
	}

	desc := decodeNodeDescriptor(node0)
	if desc.Kind != NodeHeader {
		return nil, &FormatError{Location: "btree node 0", Reason: "kind is not header"}
	}

	header := decodeBTHeaderRec(node0[nodeDescriptorSize:])

	if header.NodeSize != 0 && header.NodeSize != startNodeSize {
		if onSizeMismatch != nil {
			onSizeMismatch(header.NodeSize)
		}
		node0, err = bio.ReadAt(base, int(header.NodeSize))
		if err != nil {
			return nil, err
		}
		header = decodeBTHeaderRec(node0[nodeDescriptorSize:])
	}

	nodeSize := header.NodeSize
	if nodeSize == 0 {
		nodeSize = startNodeSize
	}

	return &BTree{bio: bio, base: base, nodeSize: nodeSize, header: header, compare: cmp}, nil
}

// readNode reads raw node i.
func (t *BTree) readNode(i uint32) ([]byte, error) {
	return t.bio.ReadAt(t.base+int64(i)*int64(t.nodeSize), int(t.nodeSize))
}

// writeNode writes raw node i back to disk.
func (t *BTree) writeNode(i uint32, raw []byte) error {
	return t.bio.WriteAt(t.base+int64(i)*int64(t.nodeSize), raw)
}

// nodeRecords slices a decoded node into its variable-length records using
// the reverse-growing offset table at the end of the node: entry k is the
// 16-bit big-endian word at nodeSize-2*(k+1) (§3/§4.4).
func nodeRecords(node []byte, numRecords uint16, nodeSize uint16) [][]byte {
	offsets := make([]int, numRecords+1)
	for k := 0; k <= int(numRecords); k++ {
		offsets[k] = int(u16(node[int(nodeSize)-2-2*k:]))
	}

	records := make([][]byte, numRecords)
	for i := 0; i < int(numRecords); i++ {
		start, stop := offsets[i], offsets[i+1]
		if start < 0 || stop > len(node) || start > stop {
			continue
		}
		records[i] = node[start:stop]
	}
	return records
}

// Records returns the decoded records of node i along with its descriptor.
func (t *BTree) Records(i uint32) (NodeDescriptor, [][]byte, error) {
	raw, err := t.readNode(i)
	if err != nil {
		return NodeDescriptor{}, nil, err
	}
	desc := decodeNodeDescriptor(raw)
	recs := nodeRecords(raw, desc.NumRecords, t.nodeSize)
	return desc, recs, nil
}

// WalkLeaves visits every record of every leaf node in ascending key order,
// starting at FirstLeafNode, calling visit(key, value) for each record. A
// record is split into key/value by keyLen, the generic B-tree key-length
// prefix convention (§3 "B-tree key"): 1 byte for HFS, 2 bytes for HFS+.
func (t *BTree) WalkLeaves(keyLenWidth int, visit func(nodeNum uint32, key, value []byte) error) error {
	if t.header.FirstLeafNode == 0 && t.header.LastLeafNode == 0 && t.header.LeafRecords == 0 {
		return nil // empty tree (§4.4)
	}

	i := t.header.FirstLeafNode
	for {
		desc, recs, err := t.Records(i)
		if err != nil {
			return err
		}
		if desc.Kind != NodeLeaf {
			return &InvariantViolation{Phase: "btree", Severity: SeverityCritical, Location: fmt.Sprintf("node %d", i), Description: "expected leaf kind in leaf chain"}
		}

		for _, rec := range recs {
			keyLen, key, value := splitKeyValue(rec, keyLenWidth)
			_ = keyLen
			if err := visit(i, key, value); err != nil {
				return err
			}
		}

		if i == t.header.LastLeafNode {
			break
		}
		i = desc.FLink
	}
	return nil
}

// splitKeyValue separates a leaf record into its length-prefixed key and
// trailing value, padding the key to an even boundary the way HFS+ pads odd
// key lengths (§3).
func splitKeyValue(rec []byte, keyLenWidth int) (keyLen int, key, value []byte) {
	if keyLenWidth == 1 {
		keyLen = int(rec[0])
		cut := (1 + keyLen + 1) &^ 1 // round up to even, include the length byte
		if cut > len(rec) {
			cut = len(rec)
		}
		return keyLen, rec[1 : 1+keyLen], rec[cut:]
	}
	keyLen = int(u16(rec))
	cut := (2 + keyLen + 1) &^ 1
	if cut > len(rec) {
		cut = len(rec)
	}
	return keyLen, rec[2 : 2+keyLen], rec[cut:]
}

// ValidationResult accumulates §4.4 structural validation findings.
type ValidationResult struct {
	Violations []InvariantViolation
	Critical   bool
}

// Validate performs the §4.4 structural validation: bounds-checks
// rootNode/firstLeafNode/lastLeafNode/freeNodes against totalNodes, then
// walks the leaf chain checking kind, numRecords, ascending key order
// within and across nodes, chain termination, and cycle freedom.
func (t *BTree) Validate(keyLenWidth int) *ValidationResult {
	res := &ValidationResult{}
	h := t.header

	if h.RootNode >= h.TotalNodes && h.TotalNodes > 0 {
		res.Violations = append(res.Violations, InvariantViolation{Phase: "btree", Severity: SeverityCritical, Location: "rootNode", Description: "rootNode >= totalNodes"})
		res.Critical = true
	}
	if h.FirstLeafNode >= h.TotalNodes && h.TotalNodes > 0 {
		res.Violations = append(res.Violations, InvariantViolation{Phase: "btree", Severity: SeverityCritical, Location: "firstLeafNode", Description: "firstLeafNode >= totalNodes"})
		res.Critical = true
	}
	if h.LastLeafNode >= h.TotalNodes && h.TotalNodes > 0 {
		res.Violations = append(res.Violations, InvariantViolation{Phase: "btree", Severity: SeverityCritical, Location: "lastLeafNode", Description: "lastLeafNode >= totalNodes"})
		res.Critical = true
	}
	if h.FreeNodes > h.TotalNodes {
		res.Violations = append(res.Violations, InvariantViolation{Phase: "btree", Severity: SeverityError, Location: "freeNodes", Description: "freeNodes > totalNodes"})
	}
	if h.TreeDepth == 0 && h.LeafRecords != 0 {
		res.Violations = append(res.Violations, InvariantViolation{Phase: "btree", Severity: SeverityCritical, Location: "treeDepth", Description: "treeDepth is 0 but tree is non-empty"})
		res.Critical = true
	}
	if res.Critical {
		return res
	}

	if h.FirstLeafNode == 0 && h.LastLeafNode == 0 && h.LeafRecords == 0 {
		return res // empty tree is valid (§4.4)
	}

	maxRecordsPerNode := (int(t.nodeSize) - nodeDescriptorSize) / 4

	visited := make(map[uint32]bool)
	var prevLastKey []byte

	i := h.FirstLeafNode
	for {
		if visited[i] {
			res.Violations = append(res.Violations, InvariantViolation{Phase: "btree", Severity: SeverityCritical, Location: fmt.Sprintf("node %d", i), Description: "leaf chain cycle detected"})
			res.Critical = true
			return res
		}
		visited[i] = true

		desc, recs, err := t.Records(i)
		if err != nil {
			res.Violations = append(res.Violations, InvariantViolation{Phase: "btree", Severity: SeverityCritical, Location: fmt.Sprintf("node %d", i), Description: fmt.Sprintf("unreadable: %v", err)})
			res.Critical = true
			return res
		}

		if desc.Kind != NodeLeaf {
			res.Violations = append(res.Violations, InvariantViolation{Phase: "btree", Severity: SeverityError, Location: fmt.Sprintf("node %d", i), Description: "kind is not leaf in leaf chain"})
		}
		if int(desc.NumRecords) > maxRecordsPerNode {
			res.Violations = append(res.Violations, InvariantViolation{Phase: "btree", Severity: SeverityError, Location: fmt.Sprintf("node %d", i), Description: "numRecords exceeds node capacity"})
		}

		var lastKey []byte
		for ri, rec := range recs {
			_, key, _ := splitKeyValue(rec, keyLenWidth)
			if ri > 0 && t.compare(lastKey, key) >= 0 {
				res.Violations = append(res.Violations, InvariantViolation{Phase: "btree", Severity: SeverityError, Location: fmt.Sprintf("node %d record %d", i, ri), Description: "keys out of order within node"})
			}
			lastKey = key
		}

		if prevLastKey != nil && len(lastKey) > 0 && t.compare(prevLastKey, lastKey) >= 0 {
			// only meaningful once we have both a previous and current key
		}
		if prevLastKey != nil && len(recs) > 0 {
			_, firstKey, _ := splitKeyValue(recs[0], keyLenWidth)
			if t.compare(prevLastKey, firstKey) >= 0 {
				res.Violations = append(res.Violations, InvariantViolation{Phase: "btree", Severity: SeverityError, Location: fmt.Sprintf("node %d", i), Description: "out of order: last key of previous leaf is not less than first key of this leaf"})
			}
		}
		if len(lastKey) > 0 {
			prevLastKey = lastKey
		}

		if i == h.LastLeafNode {
			if desc.FLink != 0 {
				res.Violations = append(res.Violations, InvariantViolation{Phase: "btree", Severity: SeverityError, Location: fmt.Sprintf("node %d", i), Description: "lastLeafNode.fLink is not 0"})
			}
			break
		}
		i = desc.FLink
	}

	return res
}

// repairNodeDescriptor applies the §4.4 "repair-at-node" heuristic: rewrite
// Kind to leaf if the node is reachable from the leaf chain; otherwise keep
// an index, header or map Kind and rewrite any other Kind to index. It then
// clamps NumRecords to the node's capacity. It always returns true: no
// descriptor is classed as too damaged to repair in place.
func repairNodeDescriptor(desc *NodeDescriptor, nodeSize uint16, inLeafChain bool) bool {
	maxRecordsPerNode := uint16((int(nodeSize) - nodeDescriptorSize) / 4)

	if inLeafChain {
		desc.Kind = NodeLeaf
	} else if desc.Kind != NodeIndex && desc.Kind != NodeHeader && desc.Kind != NodeMap {
		desc.Kind = NodeIndex
	}

	if desc.NumRecords > maxRecordsPerNode {
		desc.NumRecords = maxRecordsPerNode
	}

	return true
}
