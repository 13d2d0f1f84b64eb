// Package messaging 把批次结果写入 Redis Stream，供外部消费者（报表、审计）读取
package messaging

import (
	"encoding/json"
	"time"
)

// Message 消息结构
type Message struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	ProjectPath string            `json:"project_path"`
	Payload     json.RawMessage   `json:"payload"`
	Metadata    map[string]string `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewMessage 创建新消息
func NewMessage(id, msgType, projectPath string, payload any) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:          id,
		Type:        msgType,
		ProjectPath: projectPath,
		Payload:     payloadBytes,
		Metadata:    make(map[string]string),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// UnmarshalPayload 解析消息载荷
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// Stream 流名称
type Stream string

// StreamBatchJournal 默认批次日志流
const StreamBatchJournal Stream = "screenplay_wizard:batches"
