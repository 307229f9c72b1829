package netsim

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sarchlab/chronos/core"
)

// PCAPWriter appends one fixed-format record per delivered packet to a
// file under the directory named by CHRONOS_PCAP_DIR. It is wired to a
// Link only as a core.Hook, the same way any other diagnostic observer
// would be -- the Link and its Sockets have no idea PCAP emission exists.
//
// Record layout (little-endian), one per packet: 8-byte SentAt
// (nanoseconds), 2-byte source length, source bytes, 2-byte destination
// length, destination bytes, 4-byte payload length, payload bytes. This
// is a `chronos`-specific format, not actual libpcap framing.
type PCAPWriter struct {
	mu   sync.Mutex
	file *os.File
}

// OpenPCAPWriter creates (or truncates) name under dir and returns a
// writer appending to it. If dir is "", no file is opened and the
// returned writer's Func is a no-op -- the caller need not special-case a
// missing CHRONOS_PCAP_DIR at every call site.
func OpenPCAPWriter(dir, name string) (*PCAPWriter, error) {
	if dir == "" {
		return &PCAPWriter{}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("netsim: creating pcap dir: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("netsim: creating pcap file: %w", err)
	}

	return &PCAPWriter{file: f}, nil
}

// Func implements core.Hook. It only records HookPosPacketDelivered
// events; sent-but-lost or still-in-flight packets are not captured,
// matching what a real packet sniffer sitting at the receiver would see.
func (w *PCAPWriter) Func(ctx core.HookCtx) {
	if ctx.Pos != HookPosPacketDelivered || w.file == nil {
		return
	}

	pkt, ok := ctx.Item.(Packet)
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.writeRecord(pkt)
}

func (w *PCAPWriter) writeRecord(pkt Packet) error {
	var hdr [8]byte
	binary.LittleEndian.PutUint64(hdr[:], uint64(pkt.SentAt))
	if _, err := w.file.Write(hdr[:]); err != nil {
		return err
	}

	if err := writeLenPrefixed(w.file, []byte(pkt.Src)); err != nil {
		return err
	}
	if err := writeLenPrefixed(w.file, []byte(pkt.Dst)); err != nil {
		return err
	}

	var plen [4]byte
	binary.LittleEndian.PutUint32(plen[:], uint32(len(pkt.Payload)))
	if _, err := w.file.Write(plen[:]); err != nil {
		return err
	}
	_, err := w.file.Write(pkt.Payload)
	return err
}

func writeLenPrefixed(f *os.File, b []byte) error {
	var l [2]byte
	binary.LittleEndian.PutUint16(l[:], uint16(len(b)))
	if _, err := f.Write(l[:]); err != nil {
		return err
	}
	_, err := f.Write(b)
	return err
}

// Close flushes and closes the underlying file, if one was opened.
func (w *PCAPWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
