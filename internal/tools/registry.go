// Package tools defines the closed set of AI writing tools and their
// display metadata. The set is fixed at compile time: the catalog, the
// context formatters and the orchestrator all key off tools.ID, and the
// registry is the single source of truth for which identifiers exist.
package tools

// ID identifies an AI writing tool.
type ID string

const (
	ManuscriptChat           ID = "manuscript_chat"
	OutlineChat              ID = "outline_chat"
	CharacterChat            ID = "character_chat"
	WorldBuildingChat        ID = "world_building_chat"
	PlotHoleCheckManuscript  ID = "plot_hole_checker_manuscript"
	PlotHoleCheckOutline     ID = "plot_hole_checker_outline"
	WritingCoach             ID = "writing_coach"
	CharacterNameGenerator   ID = "character_name_generator"
)

// Definition describes a tool for pickers and for configuration lookups.
// PromptCategory is the key used to resolve the tool's system prompt.
type Definition struct {
	ID             ID     `json:"id"`
	DisplayName    string `json:"display_name"`
	Description    string `json:"description"`
	PromptCategory string `json:"prompt_category"`
}

// definitions is built once at init and never mutated afterwards.
var definitions = []Definition{
	{
		ID:             ManuscriptChat,
		DisplayName:    "Manuscript Chat",
		Description:    "Discuss your full manuscript with an assistant that has read every chapter.",
		PromptCategory: "manuscript_analysis",
	},
	{
		ID:             OutlineChat,
		DisplayName:    "Outline Chat",
		Description:    "Work through structure and pacing against your chapter outline.",
		PromptCategory: "outline_analysis",
	},
	{
		ID:             CharacterChat,
		DisplayName:    "Character Chat",
		Description:    "Talk to an assistant in the voice of one of your characters.",
		PromptCategory: "character_roleplay",
	},
	{
		ID:             WorldBuildingChat,
		DisplayName:    "World Building Chat",
		Description:    "Explore and extend your world notes with a lore-aware assistant.",
		PromptCategory: "world_building",
	},
	{
		ID:             PlotHoleCheckManuscript,
		DisplayName:    "Plot Hole Checker (Manuscript)",
		Description:    "Scan the full manuscript for contradictions and unresolved threads.",
		PromptCategory: "plot_hole_analysis",
	},
	{
		ID:             PlotHoleCheckOutline,
		DisplayName:    "Plot Hole Checker (Outline)",
		Description:    "Check the outline for logical gaps before the prose exists.",
		PromptCategory: "plot_hole_analysis",
	},
	{
		ID:             WritingCoach,
		DisplayName:    "Writing Coach",
		Description:    "Craft advice on technique, free of any project context.",
		PromptCategory: "writing_coach",
	},
	{
		ID:             CharacterNameGenerator,
		DisplayName:    "Character Name Generator",
		Description:    "Generate names that fit your world and avoid collisions with existing cast.",
		PromptCategory: "name_generation",
	},
}

var byID = func() map[ID]Definition {
	m := make(map[ID]Definition, len(definitions))
	for _, def := range definitions {
		m[def.ID] = def
	}
	return m
}()

// List returns all tool definitions in stable order.
func List() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Get returns the definition for an identifier.
func Get(id ID) (Definition, bool) {
	def, ok := byID[id]
	return def, ok
}

// Valid reports whether the identifier belongs to the closed set.
func Valid(id ID) bool {
	_, ok := byID[id]
	return ok
}
