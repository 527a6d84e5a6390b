package messages

import (
	"encoding/json"
	"time"
)

// Действия, порождающие сообщение аудит-фида.
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionAssign   = "assign"
	ActionStatus   = "status"
	ActionCancel   = "cancel"
	ActionFeedback = "feedback"
	ActionDelete   = "delete"
)

// RequestUpdated публикуется после каждой успешной мутации заявки.
// Peer-процессы других операторов применяют Request к своему зеркалу;
// при Deleted=true запись убирается.
type RequestUpdated struct {
	RequestID string    `json:"request_id"`
	Action    string    `json:"action"`
	UpdatedAt time.Time `json:"updated_at"`

	// Причина отмены (только для action=cancel). В REST-контракте
	// бэкенда для неё места нет, живёт только в аудит-фиде.
	Note string `json:"note,omitempty"`

	// Сырая форма записи (backend.RawServiceRequest); получатель
	// прогоняет её через нормализацию как любой ответ бэкенда.
	Request json.RawMessage `json:"request,omitempty"`

	Deleted bool `json:"deleted,omitempty"`
}
