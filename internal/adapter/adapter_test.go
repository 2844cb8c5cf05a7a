package adapter

import (
	"context"
	"testing"

	"github.com/meetbot/core/internal/autoleave"
	"github.com/meetbot/core/internal/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeetingTypeFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want MeetingType
	}{
		{"https://us02web.zoom.us/j/1234567890?pwd=abc", MeetingTypeZoom},
		{"https://meet.google.com/abc-defg-hij", MeetingTypeGoogleMeet},
		{"https://teams.microsoft.com/l/meetup-join/19%3ameeting", MeetingTypeTeams},
		{"https://teams.live.com/meet/123", MeetingTypeTeams},
	}
	for _, c := range cases {
		got, err := MeetingTypeFromURL(c.url)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestMeetingTypeFromURL_Unrecognized(t *testing.T) {
	_, err := MeetingTypeFromURL("https://example.com/not-a-meeting")
	assert.Error(t, err)
}

func TestZoomMeetingIDAndPasscode(t *testing.T) {
	id, err := ZoomMeetingID("https://us02web.zoom.us/j/98765432100?pwd=s3cr3t")
	require.NoError(t, err)
	assert.Equal(t, "98765432100", id)
	assert.Equal(t, "s3cr3t", ZoomPasscode("https://us02web.zoom.us/j/98765432100?pwd=s3cr3t"))
}

func TestZoomMeetingID_NoDigitsFails(t *testing.T) {
	_, err := ZoomMeetingID("https://us02web.zoom.us/j/")
	assert.Error(t, err)
}

func TestAudioProfileFor(t *testing.T) {
	zoom := AudioProfileFor(MeetingTypeZoom)
	assert.Equal(t, 32000, zoom.SampleRate)
	assert.Equal(t, "S16LE", zoom.SampleFormat)
	assert.Equal(t, 0.9, zoom.ChunkInterval)

	meet := AudioProfileFor(MeetingTypeGoogleMeet)
	assert.Equal(t, 48000, meet.SampleRate)
	assert.Equal(t, "F32LE", meet.SampleFormat)
	assert.Equal(t, 0.1, meet.ChunkInterval)

	teams := AudioProfileFor(MeetingTypeTeams)
	assert.Equal(t, 48000, teams.SampleRate)
}

func TestZoomAdapter_InitSendsJoinedMessage(t *testing.T) {
	var got []AdapterMessage
	cb := Callbacks{SendMessage: func(msg AdapterMessage) { got = append(got, msg) }}
	policy := autoleave.NewPolicy(autoleave.DefaultConfig())

	a, err := NewZoomAdapter("https://us02web.zoom.us/j/1112223330?pwd=xyz", cb, policy)
	require.NoError(t, err)
	assert.Equal(t, MeetingTypeZoom, a.MeetingType())

	require.NoError(t, a.Init(context.Background()))
	require.Len(t, got, 1)
	assert.Equal(t, statemachine.MsgBotJoinedMeeting, got[0].Kind)

	require.NoError(t, a.Leave(context.Background()))
	require.Len(t, got, 2)
	assert.Equal(t, statemachine.MsgBotLeftMeeting, got[1].Kind)
}

func TestZoomAdapter_InvalidURLFails(t *testing.T) {
	_, err := NewZoomAdapter("https://us02web.zoom.us/j/", Callbacks{}, nil)
	assert.Error(t, err)
}

func TestZoomAdapter_SendRawAudioRejectsEmpty(t *testing.T) {
	a, err := NewZoomAdapter("https://us02web.zoom.us/j/1112223330", Callbacks{}, nil)
	require.NoError(t, err)
	assert.Error(t, a.SendRawAudio(nil, 32000))
	assert.NoError(t, a.SendRawAudio([]byte{1, 2, 3}, 32000))
}

func TestZoomAdapter_CheckAutoLeaveConditionsWithoutPolicy(t *testing.T) {
	a, err := NewZoomAdapter("https://us02web.zoom.us/j/1112223330", Callbacks{}, nil)
	require.NoError(t, err)
	_, fired := a.CheckAutoLeaveConditions()
	assert.False(t, fired)
}

func TestGoogleMeetAdapter_MeetingType(t *testing.T) {
	a := NewGoogleMeetAdapter("https://meet.google.com/abc-defg-hij", Callbacks{}, nil)
	assert.Equal(t, MeetingTypeGoogleMeet, a.MeetingType())
	require.NoError(t, a.Init(context.Background()))
	ts, ok := a.GetFirstBufferTimestampMs()
	assert.True(t, ok)
	assert.Positive(t, ts)
}

func TestTeamsAdapter_MeetingType(t *testing.T) {
	a := NewTeamsAdapter("https://teams.microsoft.com/l/meetup-join/19%3ameeting", Callbacks{}, nil)
	assert.Equal(t, MeetingTypeTeams, a.MeetingType())
	_, ok := a.GetFirstBufferTimestampMs()
	assert.False(t, ok, "no timestamp before Init is called")
}
