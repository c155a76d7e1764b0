package chat

type MessageType string

const (
	MessageText   MessageType = "TEXT"
	MessageImage  MessageType = "IMAGE"
	MessageSystem MessageType = "SYSTEM"
)

// SystemSender is the sender id and role stamped on server-generated messages.
const SystemSender = "system"

type Conversation struct {
	ID             string   `json:"chatId"`
	WorkshopID     string   `json:"workshopId"`
	BookingID      string   `json:"bookingId,omitempty"`
	ConsultationID string   `json:"consultationId,omitempty"`
	Participants   []string `json:"participants"`
	CreatedAt      int64    `json:"createdAt"`
}

type Message struct {
	ID          string      `json:"id"`
	SenderID    string      `json:"senderId"`
	SenderRole  string      `json:"senderRole"`
	Type        MessageType `json:"type"`
	Text        string      `json:"text,omitempty"`
	Attachments []string    `json:"attachments"`
	CreatedAt   int64       `json:"createdAt"`
}

type Presence struct {
	Online   bool  `json:"online"`
	LastSeen int64 `json:"lastSeen"`
}

type CreateConversationRequest struct {
	WorkshopID     string   `json:"workshopId" validate:"required"`
	BookingID      string   `json:"bookingId,omitempty"`
	ConsultationID string   `json:"consultationId,omitempty"`
	Participants   []string `json:"participants" validate:"required,min=2,dive,required"`
}

type SendMessageRequest struct {
	Type        MessageType `json:"type" validate:"omitempty,oneof=TEXT IMAGE"`
	Text        string      `json:"text,omitempty"`
	Attachments []string    `json:"attachments,omitempty"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type TypingRequest struct {
	IsTyping bool `json:"isTyping"`
}

type PresenceRequest struct {
	Online bool `json:"online"`
}
