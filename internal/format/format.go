// Package format turns raw project data into tool-specific context blocks
// for prompt insertion. Formatters are pure: no I/O, deterministic output,
// and missing optional fields degrade to placeholder text instead of failing.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/plumeworks/plume/internal/consts"
	"github.com/plumeworks/plume/internal/llm"
	"github.com/plumeworks/plume/internal/logger"
	"github.com/plumeworks/plume/internal/project"
	"github.com/plumeworks/plume/internal/tools"
)

const (
	untitled   = "(untitled)"
	noSynopsis = "(no synopsis)"
)

// Context selects and runs the formatter for the given tool. Identifiers
// outside the closed set fall through to an empty block with a warning;
// they never fail the call.
func Context(tool tools.ID, data *project.ContextData) string {
	if data == nil {
		data = &project.ContextData{}
	}

	var block string
	switch tool {
	case tools.ManuscriptChat, tools.PlotHoleCheckManuscript:
		block = Manuscript(data.Chapters)
	case tools.OutlineChat, tools.PlotHoleCheckOutline:
		block = Outline(data.Chapters, data.Characters, data.SceneTags)
	case tools.CharacterChat:
		block = CharacterSheet(data.Character, data.RelatedScenes)
	case tools.WorldBuildingChat:
		block = WorldNotes(data.Notes)
	case tools.CharacterNameGenerator:
		block = NamingContext(data.Scene, data.Notes)
	case tools.WritingCoach:
		// The coach works without project context.
		block = ""
	default:
		logger.Warn("format: no formatter for tool %q, proceeding without context", tool)
		block = ""
	}

	return bound(block)
}

// Manuscript renders chapters with scene summaries and bounded prose excerpts.
func Manuscript(chapters []project.Chapter) string {
	if len(chapters) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("MANUSCRIPT\n")
	for _, ch := range chapters {
		sb.WriteString(fmt.Sprintf("\n## Chapter %d: %s\n", ch.Number, orPlaceholder(ch.Title, untitled)))
		sb.WriteString(fmt.Sprintf("Synopsis: %s\n", orPlaceholder(ch.Synopsis, noSynopsis)))
		for _, scene := range ch.Scenes {
			sb.WriteString(fmt.Sprintf("\n### Scene: %s\n", orPlaceholder(scene.Title, untitled)))
			if scene.Summary != "" {
				sb.WriteString(fmt.Sprintf("Summary: %s\n", scene.Summary))
			}
			if excerpt := excerptOf(scene.Content); excerpt != "" {
				sb.WriteString(excerpt)
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

// Outline renders chapter synopses, the cast list and the scene tag vocabulary.
func Outline(chapters []project.Chapter, characters []project.Character, sceneTags []string) string {
	if len(chapters) == 0 && len(characters) == 0 && len(sceneTags) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("OUTLINE\n")
	for _, ch := range chapters {
		sb.WriteString(fmt.Sprintf("- Chapter %d: %s — %s\n", ch.Number, orPlaceholder(ch.Title, untitled), orPlaceholder(ch.Synopsis, noSynopsis)))
	}

	if len(characters) > 0 {
		sb.WriteString("\nCAST\n")
		for _, c := range characters {
			role := orPlaceholder(c.Role, "unspecified role")
			sb.WriteString(fmt.Sprintf("- %s (%s): %s\n", orPlaceholder(c.Name, untitled), role, orPlaceholder(c.Description, "no description")))
		}
	}

	if len(sceneTags) > 0 {
		tags := append([]string(nil), sceneTags...)
		sort.Strings(tags)
		sb.WriteString("\nSCENE TAGS: " + strings.Join(tags, ", ") + "\n")
	}

	return sb.String()
}

// CharacterSheet renders one character plus the scenes they appear in.
func CharacterSheet(character *project.Character, relatedScenes []project.Scene) string {
	if character == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("CHARACTER: %s\n", orPlaceholder(character.Name, untitled)))
	sb.WriteString(fmt.Sprintf("Role: %s\n", orPlaceholder(character.Role, "unspecified")))
	sb.WriteString(fmt.Sprintf("Description: %s\n", orPlaceholder(character.Description, "no description")))
	if len(character.Traits) > 0 {
		sb.WriteString("Traits: " + strings.Join(character.Traits, ", ") + "\n")
	}
	if character.Arc != "" {
		sb.WriteString("Arc: " + character.Arc + "\n")
	}

	if len(relatedScenes) > 0 {
		sb.WriteString("\nAPPEARS IN\n")
		for _, scene := range relatedScenes {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", orPlaceholder(scene.Title, untitled), orPlaceholder(scene.Summary, "no summary")))
		}
	}

	return sb.String()
}

// WorldNotes renders world building entries grouped by category.
func WorldNotes(notes []project.WorldNote) string {
	if len(notes) == 0 {
		return ""
	}

	byCategory := make(map[string][]project.WorldNote)
	var categories []string
	for _, note := range notes {
		cat := orPlaceholder(note.Category, "general")
		if _, seen := byCategory[cat]; !seen {
			categories = append(categories, cat)
		}
		byCategory[cat] = append(byCategory[cat], note)
	}
	sort.Strings(categories)

	var sb strings.Builder
	sb.WriteString("WORLD NOTES\n")
	for _, cat := range categories {
		sb.WriteString("\n## " + cat + "\n")
		for _, note := range byCategory[cat] {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", orPlaceholder(note.Title, untitled), orPlaceholder(note.Content, "(empty note)")))
		}
	}
	return sb.String()
}

// NamingContext renders the scene being drafted plus relevant world notes so
// generated names fit the setting and avoid clashing with names in play.
func NamingContext(scene *project.Scene, notes []project.WorldNote) string {
	if scene == nil && len(notes) == 0 {
		return ""
	}

	var sb strings.Builder
	if scene != nil {
		sb.WriteString(fmt.Sprintf("CURRENT SCENE: %s\n", orPlaceholder(scene.Title, untitled)))
		if scene.Summary != "" {
			sb.WriteString("Summary: " + scene.Summary + "\n")
		}
		if excerpt := excerptOf(scene.Content); excerpt != "" {
			sb.WriteString(excerpt + "\n")
		}
	}
	if len(notes) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(WorldNotes(notes))
	}
	return sb.String()
}

func orPlaceholder(value, placeholder string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}

func excerptOf(content string) string {
	if content == "" {
		return ""
	}
	if len(content) <= consts.MaxSceneExcerptChars {
		return content
	}
	return content[:consts.MaxSceneExcerptChars] + "\n[excerpt truncated]"
}

// bound caps the context block at the shared token budget.
func bound(block string) string {
	if llm.EstimateTokenCount(block) <= consts.MaxContextTokens {
		return block
	}
	limit := consts.MaxContextTokens * 4
	return block[:limit] + "\n[context truncated]"
}
