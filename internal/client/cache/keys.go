package cache

// Entity kinds as carried in change messages and sync versions
const (
	KindExercice     = "exercice"
	KindEntrainement = "entrainement"
	KindTag          = "tag"
	KindEchauffement = "echauffement"
	KindSituation    = "situation"
)

// Logical cache keys for the collection views
const (
	KeyExercicesList     = "exercices-list"
	KeyEntrainementsList = "entrainements-list"
	KeyTagsList          = "tags-list"
	KeyEchauffementsList = "echauffements-list"
	KeySituationsList    = "situations-matchs-list"
	KeyDashboardStats    = "dashboard-stats"
)

// listKeys maps an entity kind to its collection cache key
var listKeys = map[string]string{
	KindExercice:     KeyExercicesList,
	KindEntrainement: KeyEntrainementsList,
	KindTag:          KeyTagsList,
	KindEchauffement: KeyEchauffementsList,
	KindSituation:    KeySituationsList,
}

// ListKey returns the collection cache key for an entity kind
func ListKey(kind string) (string, bool) {
	key, ok := listKeys[kind]
	return key, ok
}

// EntityKey returns the cache key of an individual entity
func EntityKey(kind, id string) string {
	return kind + "-" + id
}
