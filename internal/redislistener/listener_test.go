package redislistener

import (
	"testing"

	"github.com/meetbot/core/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestChannel_NamingConvention(t *testing.T) {
	assert.Equal(t, "bot_abc123", Channel("abc123"))
}

func TestDispatch_UnknownCommandIsIgnored(t *testing.T) {
	logger, _ := logging.NewApplicationLogger()
	var got []Command
	l := &Listener{handler: func(c Command) { got = append(got, c) }, logger: logger}

	l.dispatch(`{}`)
	assert.Empty(t, got)
}

func TestDispatch_MalformedPayloadIsIgnored(t *testing.T) {
	logger, _ := logging.NewApplicationLogger()
	var got []Command
	l := &Listener{handler: func(c Command) { got = append(got, c) }, logger: logger}

	l.dispatch(`not json`)
	assert.Empty(t, got)
}

func TestDispatch_SyncCommandReachesHandler(t *testing.T) {
	logger, _ := logging.NewApplicationLogger()
	var got []Command
	l := &Listener{handler: func(c Command) { got = append(got, c) }, logger: logger}

	l.dispatch(`{"command":"sync"}`)
	assert.Equal(t, []Command{{Name: "sync"}}, got)
}

func TestDispatch_SyncMediaRequestsCommandReachesHandler(t *testing.T) {
	logger, _ := logging.NewApplicationLogger()
	var got []Command
	l := &Listener{handler: func(c Command) { got = append(got, c) }, logger: logger}

	l.dispatch(`{"command":"sync_media_requests"}`)
	assert.Equal(t, []Command{{Name: "sync_media_requests"}}, got)
}
