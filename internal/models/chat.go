package models

// ChatMessage сообщение в чате заявки.
type ChatMessage struct {
	ID           int64  `json:"id"`
	Sender       string `json:"sender"`
	Content      string `json:"content"`
	CreatedAt    string `json:"created_at"`
	IsFromClient bool   `json:"is_from_client"`
}

// Attachment файл, проверенный порталом и готовый к пересылке на бэкенд.
type Attachment struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}
