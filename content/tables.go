package content

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// tableSet holds the resolved physical table name per content category.
// An empty name means no candidate table exists; that category loads empty.
type tableSet struct {
	commands     string
	skills       string
	skillCosts   string
	statuses     string
	elements     string
	items        string
	limitBreaks  string
	levelRewards string
}

// Older deployments carried differently named content tables. Candidates are
// probed once at startup, in order; the first existing table wins. There is
// no per-query fallback after that.
var tableCandidates = map[string][]string{
	"commands":     {"battle_commands", "commands"},
	"skills":       {"skills", "abilities"},
	"skillCosts":   {"skill_class_costs", "class_skills"},
	"statuses":     {"statuses", "status_effects"},
	"elements":     {"elements", "damage_elements"},
	"items":        {"items", "objects"},
	"limitBreaks":  {"limit_breaks", "limits"},
	"levelRewards": {"level_rewards", "level_gains"},
}

func resolveTables(db *gorm.DB, logger *zap.Logger) tableSet {
	pick := func(category string) string {
		for _, name := range tableCandidates[category] {
			if db.Migrator().HasTable(name) {
				return name
			}
		}
		logger.Warn("content table missing, category loads empty",
			zap.String("category", category),
			zap.Strings("tried", tableCandidates[category]))
		return ""
	}
	return tableSet{
		commands:     pick("commands"),
		skills:       pick("skills"),
		skillCosts:   pick("skillCosts"),
		statuses:     pick("statuses"),
		elements:     pick("elements"),
		items:        pick("items"),
		limitBreaks:  pick("limitBreaks"),
		levelRewards: pick("levelRewards"),
	}
}
