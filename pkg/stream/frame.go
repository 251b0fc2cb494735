package stream

import (
	"strings"

	"ai-notetaking-client/internal/constant"
)

// Frame is one decoded event from the agent response stream.
type Frame struct {
	Event string
	Data  string
}

// FrameDecoder converts raw text chunks into frames. Frames are delimited
// by a blank line; a chunk may end in the middle of a frame, so the trailing
// partial segment is carried over and re-examined on the next chunk. A frame
// is never emitted until its full payload has arrived.
type FrameDecoder struct {
	buffer string
}

func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Push appends a chunk to the buffer and returns every frame the chunk
// completed, in order.
func (d *FrameDecoder) Push(chunk string) []Frame {
	d.buffer += chunk

	segments := strings.Split(d.buffer, "\n\n")
	// Last segment is incomplete (or empty) until the next delimiter shows up.
	d.buffer = segments[len(segments)-1]

	var frames []Frame
	for _, segment := range segments[:len(segments)-1] {
		if frame, ok := parseFrame(segment); ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

// Flush decodes whatever is left in the buffer as a final frame. Called on
// graceful stream closure, where the server may not terminate the last frame
// with a blank line.
func (d *FrameDecoder) Flush() []Frame {
	segment := d.buffer
	d.buffer = ""
	if frame, ok := parseFrame(segment); ok {
		return []Frame{frame}
	}
	return nil
}

func parseFrame(segment string) (Frame, bool) {
	frame := Frame{Event: constant.StreamEventMessage}

	for _, line := range strings.Split(segment, "\n") {
		switch {
		case strings.HasPrefix(line, "event: "):
			frame.Event = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			frame.Data = unescapeData(strings.TrimPrefix(line, "data: "))
		}
	}

	// Frames without a payload carry nothing actionable.
	if strings.TrimSpace(frame.Data) == "" {
		return Frame{}, false
	}
	return frame, true
}

// unescapeData restores the line breaks the server escaped so that payloads
// stay single-line on the wire.
func unescapeData(data string) string {
	return strings.ReplaceAll(data, `\n`, "\n")
}
