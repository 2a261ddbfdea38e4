package vad

import "testing"

func silenceFrame() []byte {
	return make([]byte, FrameBytes)
}

// toneFrame is a square wave that flips sign every 8 samples (1 kHz at
// 16 kHz), keeping its zero-crossing rate in the voiced range.
func toneFrame(amplitude int16) []byte {
	f := make([]byte, FrameBytes)
	for i := 0; i+1 < len(f); i += 2 {
		var s int16
		if (i/2/8)%2 == 0 {
			s = amplitude
		} else {
			s = -amplitude
		}
		f[i] = byte(uint16(s))
		f[i+1] = byte(uint16(s) >> 8)
	}
	return f
}

func TestHasSpeechShorterThanFrameIsFalse(t *testing.T) {
	d := New(2, 30, 350)
	if d.HasSpeech(make([]byte, FrameBytes-1)) {
		t.Fatal("expected false for sub-frame input")
	}
}

func TestHasSpeechSilence(t *testing.T) {
	d := New(2, 30, 350)
	audio := append(silenceFrame(), silenceFrame()...)
	if d.HasSpeech(audio) {
		t.Fatal("expected silence to not be classified as speech")
	}
}

func TestHasSpeechLoudTone(t *testing.T) {
	d := New(2, 30, 350)
	audio := append(toneFrame(12000), toneFrame(12000)...)
	if !d.HasSpeech(audio) {
		t.Fatal("expected loud alternating tone to classify as speech")
	}
}

func TestProcessChunkNeverEmitsSentenceEndFromIdle(t *testing.T) {
	d := New(2, 30, 60)
	for i := 0; i < 10; i++ {
		_, end := d.ProcessChunk(silenceFrame())
		if end {
			t.Fatal("sentence-end emitted while never having spoken")
		}
	}
}

func TestProcessChunkSpeakingThenSentenceEnd(t *testing.T) {
	d := New(2, 30, 60) // maxSilence = 2 frames
	loud := toneFrame(12000)
	quiet := silenceFrame()

	for i := 0; i < minSpeechFrames; i++ {
		has, end := d.ProcessChunk(loud)
		if !has || end {
			t.Fatalf("frame %d: expected (true,false), got (%v,%v)", i, has, end)
		}
	}
	if d.state != stateSpeaking {
		t.Fatal("expected state to be Speaking after minSpeechFrames")
	}

	has, end := d.ProcessChunk(quiet)
	if has || end {
		t.Fatalf("expected (false,false) on first silence frame, got (%v,%v)", has, end)
	}
	has, end = d.ProcessChunk(quiet)
	if has || !end {
		t.Fatalf("expected (false,true) once maxSilence reached, got (%v,%v)", has, end)
	}
	if d.state != stateIdle {
		t.Fatal("expected state to return to Idle after sentence-end")
	}
}

func TestFilterSpeechPreservesOrderAndDropsSilence(t *testing.T) {
	d := New(2, 30, 350)
	loud := toneFrame(12000)
	quiet := silenceFrame()
	audio := append(append(append([]byte{}, loud...), quiet...), loud...)

	out := d.FilterSpeech(audio)
	if len(out) != 2*FrameBytes {
		t.Fatalf("expected 2 speech frames retained, got %d bytes", len(out))
	}
}

func TestResetClearsStateMachine(t *testing.T) {
	d := New(2, 30, 60)
	loud := toneFrame(12000)
	for i := 0; i < minSpeechFrames; i++ {
		d.ProcessChunk(loud)
	}
	d.Reset()
	if d.state != stateIdle || d.speechFrames != 0 || d.silenceFrames != 0 {
		t.Fatal("expected Reset to zero the state machine")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	d := New(2, 30, 60)
	loud := toneFrame(12000)
	for i := 0; i < minSpeechFrames; i++ {
		d.ProcessChunk(loud)
	}
	clone := d.Clone()
	if clone.state != stateIdle {
		t.Fatal("expected clone to start in Idle regardless of source state")
	}
}
