package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAudioFileType(t *testing.T) {
	assert.True(t, ValidateAudioFileType("audio/webm", "clip.webm"))
	assert.True(t, ValidateAudioFileType("", "clip.mp3"))
	assert.True(t, ValidateAudioFileType("AUDIO/MPEG", "clip.bin"))
	assert.False(t, ValidateAudioFileType("video/mp4", "clip.mp4"))
	assert.False(t, ValidateAudioFileType("", "notes.txt"))
	assert.False(t, ValidateAudioFileType("", ""))
}

func TestContentTypeForFilename(t *testing.T) {
	assert.Equal(t, "audio/webm", ContentTypeForFilename("a.webm"))
	assert.Equal(t, "audio/mpeg", ContentTypeForFilename("A.MP3"))
	assert.Equal(t, "application/octet-stream", ContentTypeForFilename("a.txt"))
}

func TestNoteAudioKey(t *testing.T) {
	assert.Equal(t, "notes/sess-1/note-1.mp3", NoteAudioKey("sess-1", "note-1", "voice.mp3"))
	// Unknown extensions fall back to .webm, the device recorder default.
	assert.Equal(t, "notes/sess-1/note-1.webm", NoteAudioKey("sess-1", "note-1", "voice"))
}
