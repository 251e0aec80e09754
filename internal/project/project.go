// Package project holds the domain shapes the orchestration layer reads.
// Persistence and CRUD for these types live behind the main application's
// REST layer; the orchestrator only ever receives them as context payloads.
package project

// Scene is a unit of prose within a chapter.
type Scene struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary,omitempty"`
	Content      string   `json:"content,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	POVCharacter string   `json:"pov_character,omitempty"`
}

// Chapter groups scenes in manuscript order.
type Chapter struct {
	ID       string  `json:"id"`
	Number   int     `json:"number"`
	Title    string  `json:"title"`
	Synopsis string  `json:"synopsis,omitempty"`
	Scenes   []Scene `json:"scenes,omitempty"`
}

// Character is a cast member with its descriptive sheet.
type Character struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Role        string   `json:"role,omitempty"` // protagonist, antagonist, supporting
	Description string   `json:"description,omitempty"`
	Traits      []string `json:"traits,omitempty"`
	Arc         string   `json:"arc,omitempty"`
}

// WorldNote is a free-form world building entry.
type WorldNote struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"` // location, faction, magic, history...
	Content  string `json:"content"`
}

// ContextData is the raw, tool-shaped context payload attached to an assist
// request. Which fields a tool reads is decided by its formatter; unused
// fields are simply ignored.
type ContextData struct {
	Chapters      []Chapter   `json:"chapters,omitempty"`
	Characters    []Character `json:"characters,omitempty"`
	SceneTags     []string    `json:"scene_tags,omitempty"`
	Character     *Character  `json:"character,omitempty"`
	RelatedScenes []Scene     `json:"related_scenes,omitempty"`
	Notes         []WorldNote `json:"notes,omitempty"`
	Scene         *Scene      `json:"scene,omitempty"`
}
