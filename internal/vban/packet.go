package vban

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformed = errors.New("malformed vban packet")

const (
	headerSize = 28
	nameSize   = 16
	labelSize  = 60

	subProtoText    = 0x40
	subProtoService = 0x60
	subProtoMask    = 0xe0

	textFormatUTF8 = 0x10

	serviceRTRegister = 32
	serviceRTPacket   = 33

	registerName = "Register RTP"
)

var magic = [4]byte{'V', 'B', 'A', 'N'}

// bpsRates lists the serial bit rates selectable in a text stream header.
var bpsRates = []int{
	0, 110, 150, 300, 600, 1200, 2400, 4800, 9600, 14400, 19200, 31250,
	38400, 57600, 115200, 128000, 230400, 250000, 256000, 460800, 921600,
	1000000, 1500000, 2000000, 3000000,
}

func bpsIndex(bps int) (byte, error) {
	for i, r := range bpsRates {
		if r == bps {
			return byte(i), nil
		}
	}
	return 0, fmt.Errorf("unsupported bps %v", bps)
}

type header struct {
	Magic   [4]byte
	Format  byte // sub-protocol in the top 3 bits, rate index below
	NbS     byte
	NbC     byte
	Bit     byte
	Name    [nameSize]byte
	Counter uint32
}

func newHeader(format, nbs, nbc, bit byte, name string, counter uint32) header {
	h := header{Magic: magic, Format: format, NbS: nbs, NbC: nbc, Bit: bit, Counter: counter}
	copy(h.Name[:], name)
	return h
}

func (h header) subProtocol() byte {
	return h.Format & subProtoMask
}

func (h header) name() string {
	return cString(h.Name[:])
}

func parseHeader(b []byte) (header, error) {
	var h header
	if len(b) < headerSize {
		return h, fmt.Errorf("%w: %d byte header", ErrMalformed, len(b))
	}
	if err := binary.Read(bytes.NewReader(b[:headerSize]), binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Magic != magic {
		return h, fmt.Errorf("%w: bad magic %q", ErrMalformed, h.Magic[:])
	}
	return h, nil
}

func encode(h header, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(headerSize + len(payload))
	_ = binary.Write(&buf, binary.LittleEndian, h)
	buf.Write(payload)
	return buf.Bytes()
}

// textPacket wraps a script in a UTF-8 text stream packet.
func textPacket(streamName string, bps byte, channel byte, counter uint32, script string) []byte {
	h := newHeader(subProtoText|bps, 0, channel, textFormatUTF8, streamName, counter)
	return encode(h, []byte(script))
}

// registerPacket asks the engine to stream RT packets to us for timeout
// seconds.
func registerPacket(counter uint32, timeout byte) []byte {
	h := newHeader(subProtoService, 0, serviceRTRegister, timeout, registerName, counter)
	return encode(h, nil)
}

const (
	numInLevels  = 34
	numOutLevels = 64
	numStrips    = 8
	numBuses     = 8
	numLayers    = 8

	rtBodySize = 1384

	// byte ranges of rtBody used for change detection
	levelsStart = 16
	levelsEnd   = 212
)

// State bits of rtBody.StripState and rtBody.BusState.
const (
	stateMute = 0x00000001
	stateSolo = 0x00000002
	stateMono = 0x00000004
	stateEQ   = 0x00000100
	stateA1   = 0x00001000
	stateA2   = 0x00002000
	stateA3   = 0x00004000
	stateA4   = 0x00008000
	stateB1   = 0x00010000
	stateB2   = 0x00020000
	stateB3   = 0x00040000
	stateA5   = 0x00080000
)

// Route bits of the physical (A) and virtual (B) buses.
var physRouteBits = []uint32{stateA1, stateA2, stateA3, stateA4, stateA5}
var virtRouteBits = []uint32{stateB1, stateB2, stateB3}

// rtBody is the fixed layout of an RT packet payload.
type rtBody struct {
	Type       uint8
	Reserved   uint8
	BufferSize uint16
	Version    uint32
	OptionBits uint32
	SampleRate uint32

	InputLevels  [numInLevels]int16 // dB * 100
	OutputLevels [numOutLevels]int16

	TransportBits uint32
	StripState    [numStrips]uint32
	BusState      [numBuses]uint32
	StripGain     [numLayers][numStrips]int16 // layer 0 is the strip gain
	BusGain       [numBuses]int16
	StripLabel    [numStrips][labelSize]byte
	BusLabel      [numBuses][labelSize]byte
}

func parseRTBody(b []byte) (*rtBody, error) {
	if len(b) < rtBodySize {
		return nil, fmt.Errorf("%w: %d byte rt body", ErrMalformed, len(b))
	}
	body := new(rtBody)
	if err := binary.Read(bytes.NewReader(b[:rtBodySize]), binary.LittleEndian, body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return body, nil
}

func (r *rtBody) marshal() []byte {
	var buf bytes.Buffer
	buf.Grow(rtBodySize)
	_ = binary.Write(&buf, binary.LittleEndian, r)
	return buf.Bytes()
}

// diff reports which halves of the packet differ from prev.
func (r *rtBody) diff(prev *rtBody) (params, levels bool) {
	if prev == nil {
		return true, true
	}
	a, b := r.marshal(), prev.marshal()
	levels = !bytes.Equal(a[levelsStart:levelsEnd], b[levelsStart:levelsEnd])
	params = !bytes.Equal(a[levelsEnd:], b[levelsEnd:])
	return params, levels
}

func dB(v int16) float64 {
	return float64(v) / 100
}

func dB100(v float64) int16 {
	if v > 327 {
		v = 327
	}
	if v < -327 {
		v = -327
	}
	return int16(v * 100)
}

func setBit(state *uint32, bit uint32, on bool) {
	if on {
		*state |= bit
	} else {
		*state &^= bit
	}
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.ToValidUTF8(string(b), "")
}
