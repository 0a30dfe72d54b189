package hfs

// FSType identifies which filesystem variant a volume's signature
// advertises (§4.2).
type FSType int

const (
	FSUnknown FSType = iota
	FSHFS
	FSHFSPlus
	FSHFSX
)

func (t FSType) String() string {
	switch t {
	case FSHFS:
		return "HFS"
	case FSHFSPlus:
		return "HFS+"
	case FSHFSX:
		return "HFSX"
	default:
		return "unknown"
	}
}

const (
	sigHFS     = 0x4244 // "BD"
	sigHFSPlus = 0x482B // "H+"
	sigHFSX    = 0x4858 // "HX"

	// volumeHeaderOffset is the byte offset of the MDB / HFS+ volume header:
	// sector 2, the first sector after the two opaque boot blocks (§3).
	volumeHeaderOffset = 1024
)

// Probe reads the two signature bytes at byte offset 1024 and dispatches
// per §4.2. It fails with ErrNotAFilesystem if the probe read itself fails.
func Probe(dev device, deviceSize int64) (FSType, error) {
	bio := NewBlockIO(dev, deviceSize, 0)

	data, err := bio.ReadAt(volumeHeaderOffset, 2)
	if err != nil {
		return FSUnknown, ErrNotAFilesystem
	}

	switch u16(data) {
	case sigHFS:
		return FSHFS, nil
	case sigHFSPlus:
		return FSHFSPlus, nil
	case sigHFSX:
		return FSHFSX, nil
	default:
		return FSUnknown, nil
	}
}
