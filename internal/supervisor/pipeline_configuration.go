// Package supervisor wires the core's per-bot runtime together: the
// state machine, Adapter, media pipeline, and the cooperative event loop
// that dispatches messages from all of them (spec.md §4.2/§9), grounded on
// original_source/bots/bot_controller/bot_controller.py.
package supervisor

import "fmt"

// PipelineConfiguration is a fixed, enumerated capability set — only the
// seven combinations original_source/bots/bot_controller/pipeline_configuration.py
// validates are constructible; there is no general constructor.
type PipelineConfiguration struct {
	RecordVideo          bool
	RecordAudio          bool
	TranscribeAudio      bool
	RTMPStreamAudio      bool
	RTMPStreamVideo      bool
	WebsocketStreamAudio bool
}

// RecorderBot records audio and video and transcribes.
func RecorderBot() PipelineConfiguration {
	return PipelineConfiguration{RecordVideo: true, RecordAudio: true, TranscribeAudio: true}
}

// AudioRecorderBot records audio only and transcribes.
func AudioRecorderBot() PipelineConfiguration {
	return PipelineConfiguration{RecordAudio: true, TranscribeAudio: true}
}

// RTMPStreamingBot streams audio and video to an RTMP endpoint and transcribes.
func RTMPStreamingBot() PipelineConfiguration {
	return PipelineConfiguration{TranscribeAudio: true, RTMPStreamAudio: true, RTMPStreamVideo: true}
}

// RecorderBotWithWebsocketAudio is RecorderBot plus websocket audio egress.
func RecorderBotWithWebsocketAudio() PipelineConfiguration {
	return PipelineConfiguration{RecordVideo: true, RecordAudio: true, TranscribeAudio: true, WebsocketStreamAudio: true}
}

// AudioRecorderBotWithWebsocketAudio is AudioRecorderBot plus websocket audio egress.
func AudioRecorderBotWithWebsocketAudio() PipelineConfiguration {
	return PipelineConfiguration{RecordAudio: true, TranscribeAudio: true, WebsocketStreamAudio: true}
}

// PureTranscriptionBot only transcribes; no recording or streaming.
func PureTranscriptionBot() PipelineConfiguration {
	return PipelineConfiguration{TranscribeAudio: true}
}

// PureTranscriptionBotWithWebsocketAudio is PureTranscriptionBot plus websocket audio egress.
func PureTranscriptionBotWithWebsocketAudio() PipelineConfiguration {
	return PipelineConfiguration{TranscribeAudio: true, WebsocketStreamAudio: true}
}

// Validate reports an error if cfg is not one of the seven enumerated
// configurations, mirroring PipelineConfiguration.__post_init__.
func (cfg PipelineConfiguration) Validate() error {
	for _, valid := range []PipelineConfiguration{
		RecorderBot(), AudioRecorderBot(), RTMPStreamingBot(),
		RecorderBotWithWebsocketAudio(), AudioRecorderBotWithWebsocketAudio(),
		PureTranscriptionBot(), PureTranscriptionBotWithWebsocketAudio(),
	} {
		if cfg == valid {
			return nil
		}
	}
	return fmt.Errorf("supervisor: invalid pipeline configuration: %+v", cfg)
}
