// Package store holds the gorm data model for the bot controller: Bot,
// BotEvent, Recording, Utterance, Participant, ParticipantEvent,
// ChatMessage, MediaRequest, WebhookSubscription, WebhookDeliveryAttempt,
// and CreditTransaction (spec.md §3). Column tagging follows the teacher's
// internal_callcontext.CallContext: explicit column/type tags, a
// BeforeCreate-assigned snowflake id, and a TableName() method per model.
package store

import (
	"time"

	"gorm.io/gorm"
)

// State is one of the bot lifecycle states (spec.md §4.1).
type State string

const (
	StateScheduled             State = "scheduled"
	StateReady                 State = "ready"
	StateJoining               State = "joining"
	StateJoinedNotRecording    State = "joined_not_recording"
	StateJoinedRecording       State = "joined_recording"
	StateJoinedRecordingPaused State = "joined_recording_paused"
	StateLeaving               State = "leaving"
	StatePostProcessing        State = "post_processing"
	StateEnded                 State = "ended"
	StateFatalError            State = "fatal_error"
	StateWaitingRoom           State = "waiting_room"
	StateDataDeleted           State = "data_deleted"
)

// TerminalStates are states that are irreversible and trigger billing
// (spec.md §3, §4.1).
var TerminalStates = map[State]bool{
	StateEnded:       true,
	StateFatalError:  true,
	StateDataDeleted: true,
}

func (s State) IsTerminal() bool { return TerminalStates[s] }

// RecordingType and TranscriptionType enumerate Recording.RecordingType /
// Recording.TranscriptionType.
type RecordingType string

const (
	RecordingTypeAudioVideo RecordingType = "audio_video"
	RecordingTypeAudioOnly  RecordingType = "audio_only"
	RecordingTypeNone       RecordingType = "none"
)

type TranscriptionType string

const (
	TranscriptionTypeNonRealtime TranscriptionType = "non_realtime"
	TranscriptionTypeRealtime    TranscriptionType = "realtime"
	TranscriptionTypeNone        TranscriptionType = "none"
)

// RecordingState and TranscriptionState track Recording progress.
type RecordingState string

const (
	RecordingStateNotStarted RecordingState = "not_started"
	RecordingStateInProgress RecordingState = "in_progress"
	RecordingStateComplete  RecordingState = "complete"
	RecordingStateFailed    RecordingState = "failed"
)

type TranscriptionState string

const (
	TranscriptionStateNotStarted TranscriptionState = "not_started"
	TranscriptionStateInProgress TranscriptionState = "transcription_in_progress"
	TranscriptionStateComplete   TranscriptionState = "complete"
	TranscriptionStateFailed     TranscriptionState = "failed"
)

// Bot is one meeting attendance attempt (spec.md §3).
type Bot struct {
	ID                   uint64     `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	MeetingURL           string     `json:"meetingUrl" gorm:"column:meeting_url;type:text;not null"`
	DisplayName          string     `json:"displayName" gorm:"column:display_name;type:varchar(255);not null;default:''"`
	Settings             JSON       `json:"settings" gorm:"column:settings;type:jsonb;not null;default:'{}'"`
	State                State      `json:"state" gorm:"column:state;type:varchar(40);not null"`
	ScheduledJoinAt      *time.Time `json:"scheduledJoinAt" gorm:"column:scheduled_join_at"`
	DeduplicationKey     *string    `json:"deduplicationKey" gorm:"column:deduplication_key;type:varchar(255)"`
	Metadata             JSON       `json:"metadata" gorm:"column:metadata;type:jsonb;not null;default:'{}'"`
	ProjectID            uint64     `json:"projectId" gorm:"column:project_id;type:bigint;not null;default:0"`
	OrganizationID       uint64     `json:"organizationId" gorm:"column:organization_id;type:bigint;not null;default:0"`
	LastHeartbeatAt      *time.Time `json:"lastHeartbeatAt" gorm:"column:last_heartbeat_at"`
	FirstHeartbeatAt     *time.Time `json:"firstHeartbeatAt" gorm:"column:first_heartbeat_at"`
	CreatedAt            time.Time  `json:"createdAt" gorm:"type:timestamp;not null;default:now();<-:create"`
	UpdatedAt            time.Time  `json:"updatedAt" gorm:"type:timestamp;not null;default:now()"`
}

func (Bot) TableName() string { return "bots" }

func (b *Bot) BeforeCreate(tx *gorm.DB) error {
	if b.ID == 0 {
		b.ID = NewID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	if b.State == "" {
		if b.ScheduledJoinAt != nil {
			b.State = StateScheduled
		} else {
			b.State = StateReady
		}
	}
	return nil
}

// BotEvent is an append-only audit record (spec.md §3, §4.1).
type BotEvent struct {
	ID                      uint64     `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	BotID                   uint64     `json:"botId" gorm:"column:bot_id;type:bigint;not null;index"`
	EventType               string     `json:"eventType" gorm:"column:event_type;type:varchar(80);not null"`
	EventSubType            *string    `json:"eventSubType" gorm:"column:event_sub_type;type:varchar(80)"`
	OldState                State      `json:"oldState" gorm:"column:old_state;type:varchar(40);not null"`
	NewState                State      `json:"newState" gorm:"column:new_state;type:varchar(40);not null"`
	Metadata                JSON       `json:"metadata" gorm:"column:metadata;type:jsonb;not null;default:'{}'"`
	CreatedAt               time.Time  `json:"createdAt" gorm:"type:timestamp;not null;default:now();<-:create"`
	RequestedActionTakenAt  *time.Time `json:"requestedActionTakenAt" gorm:"column:requested_action_taken_at"`
}

func (BotEvent) TableName() string { return "bot_events" }

func (e *BotEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == 0 {
		e.ID = NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	return nil
}

// Recording is the per-bot media+transcript artifact (spec.md §3).
type Recording struct {
	ID                   uint64             `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	BotID                uint64             `json:"botId" gorm:"column:bot_id;type:bigint;not null;index"`
	ObjectID             string             `json:"objectId" gorm:"column:object_id;type:varchar(64);not null;uniqueIndex"`
	RecordingType        RecordingType      `json:"recordingType" gorm:"column:recording_type;type:varchar(40);not null"`
	TranscriptionType    TranscriptionType  `json:"transcriptionType" gorm:"column:transcription_type;type:varchar(40);not null"`
	TranscriptionProvider string            `json:"transcriptionProvider" gorm:"column:transcription_provider;type:varchar(60)"`
	State                RecordingState     `json:"state" gorm:"column:state;type:varchar(40);not null;default:not_started"`
	TranscriptionState   TranscriptionState `json:"transcriptionState" gorm:"column:transcription_state;type:varchar(40);not null;default:not_started"`
	StorageKey           string             `json:"storageKey" gorm:"column:storage_key;type:varchar(255)"`
	FirstBufferTimestampMs *int64           `json:"firstBufferTimestampMs" gorm:"column:first_buffer_timestamp_ms"`
	CreatedAt            time.Time          `json:"createdAt" gorm:"type:timestamp;not null;default:now();<-:create"`
}

func (Recording) TableName() string { return "recordings" }

func (r *Recording) BeforeCreate(tx *gorm.DB) error {
	if r.ID == 0 {
		r.ID = NewID()
	}
	if r.ObjectID == "" {
		r.ObjectID = NewObjectID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return nil
}

// UtteranceSource distinguishes per-participant audio from platform captions.
type UtteranceSource string

const (
	UtteranceSourcePerParticipantAudio UtteranceSource = "per_participant_audio"
	UtteranceSourceClosedCaption       UtteranceSource = "closed_caption_from_platform"
)

// Utterance is a contiguous speech segment (spec.md §3).
type Utterance struct {
	ID             uint64          `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	RecordingID    uint64          `json:"recordingId" gorm:"column:recording_id;type:bigint;not null;index"`
	ParticipantID  uint64          `json:"participantId" gorm:"column:participant_id;type:bigint;not null;index"`
	Source         UtteranceSource `json:"source" gorm:"column:source;type:varchar(40);not null"`
	AudioBlob      []byte          `json:"-" gorm:"column:audio_blob;type:bytea"`
	AudioFormat    string          `json:"audioFormat" gorm:"column:audio_format;type:varchar(20)"`
	SampleRate     int             `json:"sampleRate" gorm:"column:sample_rate"`
	StartOffsetMs  int64           `json:"startOffsetMs" gorm:"column:start_offset_ms;not null"`
	DurationMs     int64           `json:"durationMs" gorm:"column:duration_ms;not null"`
	Transcription  JSON            `json:"transcription" gorm:"column:transcription;type:jsonb"`
	FailureData    JSON            `json:"failureData" gorm:"column:failure_data;type:jsonb"`
	SourceUUID     *string         `json:"sourceUuid" gorm:"column:source_uuid;type:varchar(120)"`
	CreatedAt      time.Time       `json:"createdAt" gorm:"type:timestamp;not null;default:now();<-:create"`
}

func (Utterance) TableName() string { return "utterances" }

func (u *Utterance) BeforeCreate(tx *gorm.DB) error {
	if u.ID == 0 {
		u.ID = NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	return nil
}

// Participant is a speaker in a bot's meeting (spec.md §3).
type Participant struct {
	ID          uint64  `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	BotID       uint64  `json:"botId" gorm:"column:bot_id;type:bigint;not null;index:idx_participant_bot_uuid,unique,priority:1"`
	UUID        string  `json:"uuid" gorm:"column:uuid;type:varchar(120);not null;index:idx_participant_bot_uuid,unique,priority:2"`
	UserUUID    *string `json:"userUuid" gorm:"column:user_uuid;type:varchar(120)"`
	DisplayName string  `json:"displayName" gorm:"column:display_name;type:varchar(255)"`
	IsTheBot    bool    `json:"isTheBot" gorm:"column:is_the_bot;not null;default:false"`
}

func (Participant) TableName() string { return "participants" }

func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == 0 {
		p.ID = NewID()
	}
	return nil
}

// ParticipantEventType enumerates join/leave events.
type ParticipantEventType string

const (
	ParticipantEventJoined ParticipantEventType = "joined"
	ParticipantEventLeft   ParticipantEventType = "left"
)

// ParticipantEvent is the join/leave timeline per participant (spec.md §3).
type ParticipantEvent struct {
	ID            uint64               `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	ParticipantID uint64               `json:"participantId" gorm:"column:participant_id;type:bigint;not null;index"`
	EventType     ParticipantEventType `json:"eventType" gorm:"column:event_type;type:varchar(20);not null"`
	Timestamp     time.Time            `json:"timestamp" gorm:"column:timestamp;type:timestamp;not null"`
}

func (ParticipantEvent) TableName() string { return "participant_events" }

func (p *ParticipantEvent) BeforeCreate(tx *gorm.DB) error {
	if p.ID == 0 {
		p.ID = NewID()
	}
	return nil
}

// ChatMessage is a chat line observed in the meeting (spec.md §3).
type ChatMessage struct {
	ID            uint64    `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	BotID         uint64    `json:"botId" gorm:"column:bot_id;type:bigint;not null;index"`
	ParticipantID uint64    `json:"participantId" gorm:"column:participant_id;type:bigint;not null"`
	Text          string    `json:"text" gorm:"column:text;type:text;not null"`
	Timestamp     time.Time `json:"timestamp" gorm:"column:timestamp;type:timestamp;not null"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

func (c *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if c.ID == 0 {
		c.ID = NewID()
	}
	return nil
}

// MediaRequestType and MediaRequestState enumerate playback job kinds/states
// (spec.md §3).
type MediaRequestType string

const (
	MediaRequestAudio MediaRequestType = "audio"
	MediaRequestTTS   MediaRequestType = "text_to_speech"
	MediaRequestImage MediaRequestType = "image"
	MediaRequestVideo MediaRequestType = "video"
)

type MediaRequestState string

const (
	MediaRequestEnqueued     MediaRequestState = "enqueued"
	MediaRequestPlaying      MediaRequestState = "playing"
	MediaRequestFinished     MediaRequestState = "finished"
	MediaRequestFailedToPlay MediaRequestState = "failed_to_play"
	MediaRequestDropped      MediaRequestState = "dropped"
)

// MediaRequest is one playback job (spec.md §3).
type MediaRequest struct {
	ID                 uint64            `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	BotID              uint64            `json:"botId" gorm:"column:bot_id;type:bigint;not null;index"`
	Type               MediaRequestType  `json:"type" gorm:"column:type;type:varchar(20);not null"`
	State              MediaRequestState `json:"state" gorm:"column:state;type:varchar(20);not null;default:enqueued"`
	MediaBlob          []byte            `json:"-" gorm:"column:media_blob;type:bytea"`
	MediaBlobDurationMs *int64           `json:"mediaBlobDurationMs" gorm:"column:media_blob_duration_ms"`
	TextToSpeak        *string           `json:"textToSpeak" gorm:"column:text_to_speak;type:text"`
	TTSSettings        JSON              `json:"ttsSettings" gorm:"column:tts_settings;type:jsonb"`
	URL                *string           `json:"url" gorm:"column:url;type:text"`
	CreatedAt          time.Time         `json:"createdAt" gorm:"type:timestamp;not null;default:now();<-:create"`
}

func (MediaRequest) TableName() string { return "media_requests" }

func (m *MediaRequest) BeforeCreate(tx *gorm.DB) error {
	if m.ID == 0 {
		m.ID = NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return nil
}

// WebhookSubscription is a destination URL + trigger mask (spec.md §3).
type WebhookSubscription struct {
	ID        uint64    `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	ProjectID uint64    `json:"projectId" gorm:"column:project_id;type:bigint;not null;index"`
	BotID     *uint64   `json:"botId" gorm:"column:bot_id;type:bigint;index"`
	URL       string    `json:"url" gorm:"column:url;type:text;not null"`
	Triggers  JSON      `json:"triggers" gorm:"column:triggers;type:jsonb;not null;default:'[]'"`
	Secret    string    `json:"-" gorm:"column:secret;type:varchar(255);not null"`
	IsActive  bool      `json:"isActive" gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `json:"createdAt" gorm:"type:timestamp;not null;default:now();<-:create"`
}

func (WebhookSubscription) TableName() string { return "webhook_subscriptions" }

func (w *WebhookSubscription) BeforeCreate(tx *gorm.DB) error {
	if w.ID == 0 {
		w.ID = NewID()
	}
	return nil
}

// TriggersList returns the decoded trigger list.
func (w *WebhookSubscription) TriggersList() []string {
	var out []string
	_ = jsonUnmarshalSlice(w.Triggers, &out)
	return out
}

// WebhookDeliveryStatus enumerates WebhookDeliveryAttempt.Status.
type WebhookDeliveryStatus string

const (
	WebhookDeliveryPending WebhookDeliveryStatus = "pending"
	WebhookDeliverySuccess WebhookDeliveryStatus = "success"
	WebhookDeliveryFailure WebhookDeliveryStatus = "failure"
)

// WebhookDeliveryAttempt is one try at POSTing a webhook (spec.md §3).
type WebhookDeliveryAttempt struct {
	ID             uint64                `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	SubscriptionID uint64                `json:"subscriptionId" gorm:"column:subscription_id;type:bigint;not null;index"`
	BotID          *uint64               `json:"botId" gorm:"column:bot_id;type:bigint"`
	Trigger        string                `json:"trigger" gorm:"column:trigger;type:varchar(80);not null"`
	IdempotencyKey string                `json:"idempotencyKey" gorm:"column:idempotency_key;type:varchar(64);not null"`
	Payload        JSON                  `json:"payload" gorm:"column:payload;type:jsonb;not null"`
	Status         WebhookDeliveryStatus `json:"status" gorm:"column:status;type:varchar(20);not null;default:pending"`
	AttemptCount   int                   `json:"attemptCount" gorm:"column:attempt_count;not null;default:0"`
	LastAttemptAt  *time.Time            `json:"lastAttemptAt" gorm:"column:last_attempt_at"`
	ResponseBodies JSON                  `json:"responseBodies" gorm:"column:response_bodies;type:jsonb;not null;default:'[]'"`
	CreatedAt      time.Time             `json:"createdAt" gorm:"type:timestamp;not null;default:now();<-:create"`
}

func (WebhookDeliveryAttempt) TableName() string { return "webhook_delivery_attempts" }

func (w *WebhookDeliveryAttempt) BeforeCreate(tx *gorm.DB) error {
	if w.ID == 0 {
		w.ID = NewID()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now()
	}
	return nil
}

func (w *WebhookDeliveryAttempt) IsTerminal() bool {
	return w.Status == WebhookDeliverySuccess || w.Status == WebhookDeliveryFailure
}

// CreditTransaction is a monotonically applied delta to an organization's
// credit balance (spec.md §3, §4.12).
type CreditTransaction struct {
	ID                 uint64    `json:"id" gorm:"type:bigint;primaryKey;<-:create"`
	OrganizationID     uint64    `json:"organizationId" gorm:"column:organization_id;type:bigint;not null;index"`
	BotID              uint64    `json:"botId" gorm:"column:bot_id;type:bigint;not null;index"`
	CentiCreditsDelta  int64     `json:"centicreditsDelta" gorm:"column:centicredits_delta;not null"`
	Reason             string    `json:"reason" gorm:"column:reason;type:varchar(80);not null"`
	CreatedAt          time.Time `json:"createdAt" gorm:"type:timestamp;not null;default:now();<-:create"`
}

func (CreditTransaction) TableName() string { return "credit_transactions" }

func (c *CreditTransaction) BeforeCreate(tx *gorm.DB) error {
	if c.ID == 0 {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return nil
}
