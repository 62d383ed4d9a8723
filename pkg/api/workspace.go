package api

import "time"

// Workspace представляет доступный пользователю workspace (tenant)
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"` // роль пользователя в workspace
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// ErrorResponse представляет ответ сервера с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
