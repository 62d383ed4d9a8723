package api

import "time"

// SyncVersions представляет снимок "last modified" меток сервера
// по каждому типу сущностей активного workspace.
// Nil метка означает, что в workspace еще нет сущностей этого типа.
type SyncVersions struct {
	Exercices     *time.Time `json:"exercices"`
	Entrainements *time.Time `json:"entrainements"`
	Tags          *time.Time `json:"tags"`
	Echauffements *time.Time `json:"echauffements"`
	Situations    *time.Time `json:"situations"`
	Timestamp     time.Time  `json:"timestamp"` // момент формирования снимка на сервере
}

// DashboardStats представляет агрегированную статистику workspace
type DashboardStats struct {
	TotalExercices     int `json:"totalExercices"`
	TotalEntrainements int `json:"totalEntrainements"`
	TotalEchauffements int `json:"totalEchauffements"`
	TotalSituations    int `json:"totalSituations"`
	TotalTags          int `json:"totalTags"`
}

// PreloadResponse представляет ответ комбинированного preload эндпоинта:
// все коллекции workspace плюс статистика одним запросом.
type PreloadResponse struct {
	Exercices     []Exercice       `json:"exercices"`
	Entrainements []Entrainement   `json:"entrainements"`
	Echauffements []Echauffement   `json:"echauffements"`
	Situations    []SituationMatch `json:"situations"`
	Tags          []Tag            `json:"tags"`
	Stats         DashboardStats   `json:"stats"`
}
