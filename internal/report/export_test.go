package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/gesturelab/internal/model"
)

func TestWriteFrames(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFrames(&buf, []model.FrameRecord{{
		Participant: 1,
		Modality:    3,
		Technique:   model.TechniqueOverride,
		Timestamp:   1250 * time.Millisecond,
		Training:    true,
		Phase:       model.PhaseRepetitions,
		Repetition:  4,
		ShowRepeats: 2,
		Expected:    "fist",
		Detected:    model.NoDetection,
		Joints:      []model.Vec3{{X: 0.5, Y: -1, Z: 0}},
	}})
	require.NoError(t, err)
	assert.Equal(t,
		"participantNb;modalityNb;showTechnique;timeStamp;isTraining;isLerping;studyStep;isAnim;currentRepetitionNb;showGestureRepeats;currentExpectedGestureName;detectedGestureName;jointsPositions\n"+
			"1;3;OVERRIDE_HAND;1.25;True;False;REPETITIONS;False;4;2;fist;n/a;0.5;-1;0;\n",
		buf.String())
}

func TestWriteCycles(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCycles(&buf, []model.CycleRecord{{
		Participant:        2,
		Modality:           1,
		Technique:          model.TechniqueGhost,
		Gesture:            "wave",
		ShowRepeats:        1,
		TimeToFirstPerform: 3 * time.Second,
		TimeToRepetitions:  500 * time.Millisecond,
		SuccessWhileShow:   4,
		AskedWhileTry:      1,
		SuccessWhileTry:    1,
		SuccessWhileRepeat: 9,
	}})
	require.NoError(t, err)
	assert.Equal(t,
		"participantNb;modalityNb;showTechnique;gestureName;isTraining;showGestureRepeats;timeBeforeTriggerSecondPhase;timeBeforeTriggerThirdPhase;nbOfSuccessInFirstPhase;nbGestureAskedWhileTry;nbOfSuccessInSecondPhase;nbOfSuccessInThirdPhase\n"+
			"2;1;GHOST_HAND;wave;False;1;3;0.5;4;1;1;9;\n",
		buf.String())
}
