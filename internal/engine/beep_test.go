package engine

import (
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
)

func TestInitSpeaker_FirstFormatWins(t *testing.T) {
	first := beep.Format{SampleRate: 44100, NumChannels: 2, Precision: 2}
	errA := initSpeaker(first)
	errB := initSpeaker(beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2})

	assert.Equal(t, errA, errB, "later formats must not re-init the speaker")
	assert.Equal(t, beep.SampleRate(44100), speakerSampleRate,
		"the first decoded format fixes the speaker sample rate")
}

func TestLevelToVolume(t *testing.T) {
	assert.Equal(t, 0.0, levelToVolume(1))
	assert.Equal(t, -1.0, levelToVolume(0.5))
	assert.Equal(t, -2.0, levelToVolume(0.25))
	assert.Equal(t, -10.0, levelToVolume(0))
}
