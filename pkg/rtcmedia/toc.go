package rtcmedia

import "time"

// configDurations maps the TOC configuration number (RFC 6716 section 3.1)
// to the duration of one frame.
var configDurations = [32]time.Duration{
	10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 60 * time.Millisecond, // SILK NB
	10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 60 * time.Millisecond, // SILK MB
	10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 60 * time.Millisecond, // SILK WB
	10 * time.Millisecond, 20 * time.Millisecond, // Hybrid SWB
	10 * time.Millisecond, 20 * time.Millisecond, // Hybrid FB
	2500 * time.Microsecond, 5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond, // CELT NB
	2500 * time.Microsecond, 5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond, // CELT WB
	2500 * time.Microsecond, 5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond, // CELT SWB
	2500 * time.Microsecond, 5 * time.Millisecond, 10 * time.Millisecond, 20 * time.Millisecond, // CELT FB
}

// PacketDuration returns the play time of an Opus packet from its TOC byte,
// or 0 if the packet is malformed.
func PacketDuration(pkt []byte) time.Duration {
	if len(pkt) == 0 {
		return 0
	}
	toc := pkt[0]
	fd := configDurations[toc>>3]
	switch toc & 0b11 {
	case 0:
		return fd
	case 1, 2:
		return 2 * fd
	default:
		if len(pkt) < 2 {
			return 0
		}
		return fd * time.Duration(pkt[1]&0b00111111)
	}
}
