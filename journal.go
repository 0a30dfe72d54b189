package hfs

import (
	"reflect"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

// Journal constants (§4.8), grounded bit-for-bit on
// original_source/src/fsck/journal.h's HFSPlus_Journal* structs.
const (
	journalMagic  = 0x4A4E4C78
	journalEndian = 0x12345678

	journalOnOtherDevice = 1 << 0
	journalNeedInit      = 1 << 1

	journalInfoBlockSize   = 4 + 32 + 8 + 8 + 432 // 484
	journalHeaderSize      = 4 + 4 + 8 + 8 + 8 + 4 + 4 + 4 + 88
	blockListHeaderSize    = 2 + 2 + 4 + 32 // 40
	blockInfoSize          = 8 + 4 + 8      // 20
	maxJournalTransactions = 1000
)

// journalInfoBlockRaw is the fixed 484-byte on-disk journal info block.
type journalInfoBlockRaw struct {
	Flags            uint32
	DeviceSignature  [8]uint32
	Offset           uint64
	Size             uint64
	Reserved         [432]byte
}

// JournalInfoBlock is the decoded form.
type JournalInfoBlock struct {
	OnOtherDevice bool
	NeedsInit     bool
	Offset        uint64
	Size          uint64
}

func decodeJournalInfoBlock(raw []byte) (jib JournalInfoBlock, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	var r journalInfoBlockRaw
	unpackErr := restruct.Unpack(raw, defaultEncoding, &r)
	log.PanicIf(unpackErr)

	jib = JournalInfoBlock{
		OnOtherDevice: r.Flags&journalOnOtherDevice != 0,
		NeedsInit:     r.Flags&journalNeedInit != 0,
		Offset:        r.Offset,
		Size:          r.Size,
	}
	return jib, nil
}

// journalHeaderRaw is the fixed on-disk journal header.
type journalHeaderRaw struct {
	Magic     uint32
	Endian    uint32
	Start     uint64
	End       uint64
	Size      uint64
	BlhdrSize uint32
	Checksum  uint32
	JhdrSize  uint32
	Reserved  [88]byte
}

// JournalHeader is the decoded form.
type JournalHeader struct {
	Start     uint64
	End       uint64
	Size      uint64
	BlhdrSize uint32
	JhdrSize  uint32
	Checksum  uint32
	raw       []byte // original bytes, for checksum recomputation on write
}

func decodeJournalHeader(raw []byte) (jh JournalHeader, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	var r journalHeaderRaw
	unpackErr := restruct.Unpack(raw, defaultEncoding, &r)
	log.PanicIf(unpackErr)

	if r.Magic != journalMagic {
		return JournalHeader{}, &FormatError{Location: "JournalHeader.magic", Reason: "magic mismatch"}
	}
	if r.Endian != journalEndian {
		return JournalHeader{}, &FormatError{Location: "JournalHeader.endian", Reason: "endian sentinel mismatch"}
	}

	jh = JournalHeader{
		Start:     r.Start,
		End:       r.End,
		Size:      r.Size,
		BlhdrSize: r.BlhdrSize,
		JhdrSize:  r.JhdrSize,
		Checksum:  r.Checksum,
		raw:       append([]byte(nil), raw...),
	}
	return jh, nil
}

// journalChecksum computes the §4.8 "zero checksum, recompute 32-bit
// big-endian word sum" algorithm over header bytes.
func journalChecksum(raw []byte, checksumOffset int) uint32 {
	buf := append([]byte(nil), raw...)
	putU32(buf[checksumOffset:], 0)

	var sum uint32
	for i := 0; i+4 <= len(buf); i += 4 {
		sum += u32(buf[i:])
	}
	return sum
}

const journalHeaderChecksumOffset = 4 + 4 + 8 + 8 + 8 + 4 // after magic,endian,start,end,size,blhdrSize

// validateJournal implements the §4.8 validation sequence. jibRaw and
// jhdrRaw are the raw bytes of the journal info block and journal header
// respectively.
func validateJournal(jibRaw, jhdrRaw []byte) (JournalInfoBlock, JournalHeader, error) {
	jib, err := decodeJournalInfoBlock(jibRaw)
	if err != nil {
		return JournalInfoBlock{}, JournalHeader{}, err
	}
	if jib.OnOtherDevice {
		return jib, JournalHeader{}, &FormatError{Location: "JournalInfoBlock.flags", Reason: "ON_OTHER_DEVICE is unsupported"}
	}
	if jib.NeedsInit {
		return jib, JournalHeader{}, &FormatError{Location: "JournalInfoBlock.flags", Reason: "NEEDS_INIT set"}
	}

	jh, err := decodeJournalHeader(jhdrRaw)
	if err != nil {
		return jib, JournalHeader{}, err
	}

	if jh.Size != jib.Size {
		return jib, jh, &FormatError{Location: "JournalHeader.size", Reason: "does not match journal info block size"}
	}
	if jh.Start > jh.Size || jh.End > jh.Size {
		return jib, jh, &FormatError{Location: "JournalHeader", Reason: "start or end exceeds size"}
	}
	if jh.JhdrSize != 0 && int(jh.JhdrSize) != journalHeaderSize {
		return jib, jh, &FormatError{Location: "JournalHeader.jhdrSize", Reason: "does not match sizeof(JournalHeader) (§9 open question, now enforced)"}
	}
	if jh.BlhdrSize != 0 && int(jh.BlhdrSize) != blockListHeaderSize {
		return jib, jh, &FormatError{Location: "JournalHeader.blhdrSize", Reason: "does not match sizeof(BlockListHeader) (§9 open question, now enforced)"}
	}

	computed := journalChecksum(jh.raw, journalHeaderChecksumOffset)
	if computed != jh.Checksum {
		return jib, jh, &FormatError{Location: "JournalHeader.checksum", Reason: "checksum mismatch"}
	}

	return jib, jh, nil
}

// blockListHeaderRaw is the fixed on-disk transaction block-list header.
type blockListHeaderRaw struct {
	Bsize     uint16
	NumBlocks uint16
	Checksum  uint32
	Reserved  [8]uint32
}

// blockInfoRaw is the fixed on-disk per-block transaction record.
type blockInfoRaw struct {
	Bnum uint64
	Bsize uint32
	Next  uint64
}

// replayJournal implements §4.8's replay loop: walk forward from start to
// end, wrapping at size back to journalHeaderSize, applying each
// transaction's blocks to the volume when repair is true. It returns the
// number of transactions walked (for tests) and any error.
//
// Loop guard: aborts after maxJournalTransactions as a corruption indicator
// (§4.8).
func replayJournal(bio *BlockIO, journalBase int64, jh JournalHeader, blockSize uint32, totalBlocks uint32, repair bool) (transactionsApplied int, err error) {
	if jh.Start == jh.End {
		return 0, nil // clean, no-op (§8.2)
	}

	pos := jh.Start
	txns := 0

	for pos != jh.End {
		if txns >= maxJournalTransactions {
			return txns, &InvariantViolation{Phase: "journal", Severity: SeverityCritical, Location: "replay", Description: "exceeded 1000 transactions without reaching end; journal is corrupt"}
		}

		blhRaw, rerr := bio.ReadAt(journalBase+int64(pos), blockListHeaderSize)
		if rerr != nil {
			return txns, rerr
		}

		var blh blockListHeaderRaw
		if perr := restructUnpackBLH(blhRaw, &blh); perr != nil {
			return txns, perr
		}

		computed := journalChecksum(blhRaw, 4) // bsize(2)+numBlocks(2) precede checksum
		if computed != blh.Checksum {
			return txns, &FormatError{Location: "BlockListHeader.checksum", Reason: "checksum mismatch"}
		}

		cursor := pos + uint64(blockListHeaderSize)
		var next uint64

		for i := 0; i < int(blh.NumBlocks); i++ {
			biRaw, rerr := bio.ReadAt(journalBase+int64(cursor), blockInfoSize)
			if rerr != nil {
				return txns, rerr
			}
			var bi blockInfoRaw
			if perr := restructUnpackBI(biRaw, &bi); perr != nil {
				return txns, perr
			}
			cursor += uint64(blockInfoSize)

			if bi.Bsize > 8*blockSize {
				return txns, &InvariantViolation{Phase: "journal", Severity: SeverityError, Location: "BlockInfo.bsize", Description: "exceeds 8 allocation blocks"}
			}
			if uint32(bi.Bnum) >= totalBlocks {
				return txns, &InvariantViolation{Phase: "journal", Severity: SeverityError, Location: "BlockInfo.bnum", Description: "out of range"}
			}

			payload, rerr := bio.ReadAt(journalBase+int64(cursor), int(bi.Bsize))
			if rerr != nil {
				return txns, rerr
			}
			cursor += uint64(bi.Bsize)

			if repair {
				if werr := bio.WriteAt(int64(bi.Bnum)*int64(blockSize), payload); werr != nil {
					return txns, werr
				}
			}

			next = bi.Next
		}

		txns++
		if next == 0 {
			break
		}
		pos = next
		if pos >= jh.Size {
			pos = uint64(journalHeaderSize) + (pos - jh.Size)
		}
	}

	return txns, nil
}

// restructUnpackBLH/restructUnpackBI wrap restruct.Unpack with the same
// panic-to-error convention used throughout this package.
func restructUnpackBLH(raw []byte, out *blockListHeaderRaw) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("error not an error: [%v]", errRaw)
			}
		}
	}()
	unpackErr := restruct.Unpack(raw, defaultEncoding, out)
	log.PanicIf(unpackErr)
	return nil
}

func restructUnpackBI(raw []byte, out *blockInfoRaw) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("error not an error: [%v]", errRaw)
			}
		}
	}()
	unpackErr := restruct.Unpack(raw, defaultEncoding, out)
	log.PanicIf(unpackErr)
	return nil
}
