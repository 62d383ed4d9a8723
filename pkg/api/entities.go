package api

import "time"

// Tag представляет тег таксономии (категория, уровень, цвет)
type Tag struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Category    string    `json:"category"` // objectif | element | niveau | temps | format
	Color       string    `json:"color,omitempty"`
	Level       *int      `json:"level,omitempty"` // только для category=niveau
	WorkspaceID string    `json:"workspaceId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Exercice представляет упражнение тренировки
type Exercice struct {
	ID            string    `json:"id"`
	Nom           string    `json:"nom"`
	Description   string    `json:"description"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	SchemaURL     string    `json:"schemaUrl,omitempty"`
	VariablesText string    `json:"variablesText,omitempty"`
	WorkspaceID   string    `json:"workspaceId"`
	Tags          []Tag     `json:"tags,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BlocEchauffement представляет один блок разминки
type BlocEchauffement struct {
	ID            string `json:"id"`
	Titre         string `json:"titre"`
	Repetitions   string `json:"repetitions,omitempty"`
	Temps         string `json:"temps,omitempty"`
	Informations  string `json:"informations,omitempty"`
	FonctionnelID string `json:"fonctionnelId,omitempty"`
	Ordre         int    `json:"ordre"`
}

// Echauffement представляет разминку (набор блоков)
type Echauffement struct {
	ID          string             `json:"id"`
	Nom         string             `json:"nom"`
	Description string             `json:"description,omitempty"`
	ImageURL    string             `json:"imageUrl,omitempty"`
	Blocs       []BlocEchauffement `json:"blocs,omitempty"`
	WorkspaceID string             `json:"workspaceId"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// SituationMatch представляет игровую ситуацию или матч
type SituationMatch struct {
	ID          string    `json:"id"`
	Nom         string    `json:"nom,omitempty"`
	Type        string    `json:"type"` // Match | Situation
	Description string    `json:"description,omitempty"`
	Temps       string    `json:"temps,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	WorkspaceID string    `json:"workspaceId"`
	Tags        []Tag     `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Entrainement представляет тренировку (план занятия)
type Entrainement struct {
	ID               string    `json:"id"`
	Titre            string    `json:"titre"`
	Date             time.Time `json:"date"`
	ImageURL         string    `json:"imageUrl,omitempty"`
	EchauffementID   string    `json:"echauffementId,omitempty"`
	SituationMatchID string    `json:"situationMatchId,omitempty"`
	WorkspaceID      string    `json:"workspaceId"`
	Tags             []Tag     `json:"tags,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
