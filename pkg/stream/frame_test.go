package stream

import (
	"testing"
)

func TestFrameDecoderPush(t *testing.T) {
	tests := []struct {
		name       string
		chunks     []string
		wantFrames []Frame
	}{
		{
			name:       "single complete frame",
			chunks:     []string{"event: message\ndata: hello\n\n"},
			wantFrames: []Frame{{Event: "message", Data: "hello"}},
		},
		{
			name:       "event type defaults to message",
			chunks:     []string{"data: hello\n\n"},
			wantFrames: []Frame{{Event: "message", Data: "hello"}},
		},
		{
			name:       "escaped newlines are restored",
			chunks:     []string{`data: line one\nline two` + "\n\n"},
			wantFrames: []Frame{{Event: "message", Data: "line one\nline two"}},
		},
		{
			name:       "frame without payload is discarded",
			chunks:     []string{"event: start\n\n"},
			wantFrames: nil,
		},
		{
			name:       "payload that trims to nothing is discarded",
			chunks:     []string{"data:  \n\n"},
			wantFrames: nil,
		},
		{
			name:   "multiple frames in one chunk",
			chunks: []string{"event: status\ndata: {\"status\":\"searching\"}\n\nevent: message\ndata: hi\n\n"},
			wantFrames: []Frame{
				{Event: "status", Data: `{"status":"searching"}`},
				{Event: "message", Data: "hi"},
			},
		},
		{
			name:       "frame split across chunks",
			chunks:     []string{"event: mess", "age\ndata: hel", "lo\n\n"},
			wantFrames: []Frame{{Event: "message", Data: "hello"}},
		},
		{
			name:       "delimiter split across chunks",
			chunks:     []string{"data: hello\n", "\ndata: world\n\n"},
			wantFrames: []Frame{{Event: "message", Data: "hello"}, {Event: "message", Data: "world"}},
		},
		{
			name:       "incomplete frame stays buffered",
			chunks:     []string{"data: partial"},
			wantFrames: nil,
		},
		{
			name:       "unknown event type passes through",
			chunks:     []string{"event: tool_start\ndata: {\"tool\":\"search\"}\n\n"},
			wantFrames: []Frame{{Event: "tool_start", Data: `{"tool":"search"}`}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder := NewFrameDecoder()
			var got []Frame
			for _, chunk := range tt.chunks {
				got = append(got, decoder.Push(chunk)...)
			}

			if len(got) != len(tt.wantFrames) {
				t.Fatalf("frame count = %d, want %d (%v)", len(got), len(tt.wantFrames), got)
			}
			for i := range got {
				if got[i] != tt.wantFrames[i] {
					t.Errorf("frame[%d] = %+v, want %+v", i, got[i], tt.wantFrames[i])
				}
			}
		})
	}
}

// Splitting one logical stream at any byte offset must not change the
// decoded result.
func TestFrameDecoderBoundaryInvariance(t *testing.T) {
	raw := "event: start\ndata: {}\n\nevent: message\ndata: hello\\nworld\n\nevent: end\ndata: {\"ragLogId\":\"abc\"}\n\n"

	reference := NewFrameDecoder().Push(raw)
	if len(reference) != 3 {
		t.Fatalf("reference frame count = %d, want 3", len(reference))
	}

	for offset := 0; offset <= len(raw); offset++ {
		decoder := NewFrameDecoder()
		got := decoder.Push(raw[:offset])
		got = append(got, decoder.Push(raw[offset:])...)

		if len(got) != len(reference) {
			t.Fatalf("offset %d: frame count = %d, want %d", offset, len(got), len(reference))
		}
		for i := range got {
			if got[i] != reference[i] {
				t.Errorf("offset %d: frame[%d] = %+v, want %+v", offset, i, got[i], reference[i])
			}
		}
	}
}

func TestFrameDecoderFlush(t *testing.T) {
	decoder := NewFrameDecoder()
	if frames := decoder.Push("event: message\ndata: tail"); frames != nil {
		t.Fatalf("expected no frames before delimiter, got %v", frames)
	}

	frames := decoder.Flush()
	if len(frames) != 1 || frames[0].Data != "tail" {
		t.Fatalf("flush = %v, want one frame with data %q", frames, "tail")
	}

	if frames := decoder.Flush(); frames != nil {
		t.Errorf("second flush should be empty, got %v", frames)
	}
}
