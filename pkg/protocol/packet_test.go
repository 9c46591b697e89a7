package protocol

import (
	"bytes"
	"testing"
)

func TestDchPacket_Parse_SingleFrame(t *testing.T) {
	packet, err := ParseDchPacket(dchV2Fixture)
	if err != nil {
		t.Fatalf("Failed to parse DCH packet: %v", err)
	}
	if len(packet.Frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(packet.Frames))
	}
}

func TestDchPacket_Parse_ConcatenatedFrames(t *testing.T) {
	// one TCP read can deliver several frames back to back
	data := append(append([]byte{}, dchV2Fixture...), dchV3Fixture...)

	packet, err := ParseDchPacket(data)
	if err != nil {
		t.Fatalf("Failed to parse DCH packet: %v", err)
	}
	if len(packet.Frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(packet.Frames))
	}
	if packet.Frames[0].Header.Version() != DchVersion2 {
		t.Errorf("Expected first frame v2, got %d", packet.Frames[0].Header.Version())
	}
	if packet.Frames[1].Header.Version() != DchVersion3 {
		t.Errorf("Expected second frame v3, got %d", packet.Frames[1].Header.Version())
	}

	encoded, err := packet.Encode()
	if err != nil {
		t.Fatalf("Failed to encode DCH packet: %v", err)
	}
	if !bytes.Equal(encoded, data) {
		t.Errorf("Round trip mismatch:\n got %X\nwant %X", encoded, data)
	}
}

func TestDchPacket_Parse_Rejected(t *testing.T) {
	wrongFirst := append(append([]byte{}, dchV2Fixture...), dchV2Fixture...)
	wrongFirst[0] = 0x00
	wrongLast := append(append([]byte{}, dchV2Fixture...), dchV2Fixture...)
	wrongLast[len(wrongLast)-1] = 0x00

	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Wrong first byte", wrongFirst},
		{"Wrong last byte", wrongLast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseDchPacket(tt.data); err == nil {
				t.Error("Expected parse error")
			}
		})
	}
}

func TestDchPacket_Parse_AllOrNothing(t *testing.T) {
	// first frame is valid, the second one is garbage with the right outer
	// markers: the whole packet must be rejected, no partial result
	data := append(append([]byte{}, dchV2Fixture...), 0x5B, 0x00, 0x5D)

	if _, err := ParseDchPacket(data); err == nil {
		t.Error("Expected parse error on trailing garbage frame")
	}
}
