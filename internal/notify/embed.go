// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package notify

import (
	"fmt"
	"strings"

	"github.com/tomtom215/navarchus/internal/models"
)

// Discord caps embed field values at 1024 characters. Rosters that would
// exceed it are cut to the first rosterTruncateAt lines plus an overflow
// count.
const (
	fieldValueLimit  = 1024
	rosterTruncateAt = 15
)

// Embed colors by match outcome.
const (
	colorWin  = 0x00FF00
	colorLoss = 0xFF0000
	colorDraw = 0x808080
)

// Embed is a Discord-compatible rich embed.
type Embed struct {
	Title  string       `json:"title"`
	Color  int          `json:"color"`
	Fields []EmbedField `json:"fields"`
	Footer *EmbedFooter `json:"footer,omitempty"`
}

// EmbedField is one name/value pair inside an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter is the small text line under an embed.
type EmbedFooter struct {
	Text string `json:"text"`
}

// webhookPayload is the body posted to a Discord webhook.
type webhookPayload struct {
	Embeds []Embed `json:"embeds"`
}

// BuildEmbed renders a match record as the notification embed. videoURL
// and matchURL are optional; empty strings drop their fields.
func BuildEmbed(match *models.MatchRecord, dual bool, videoURL, matchURL string) Embed {
	mapName := match.MapDisplayName
	if mapName == "" {
		mapName = match.MapID
	}

	title := winLossLabel(match.WinLoss) + " - " + mapName
	if dual {
		title = "👁 Both perspectives - " + title
	}

	fields := []EmbedField{
		{Name: "Game Type", Value: gameTypeLabel(match.GameType), Inline: true},
		{Name: "Map", Value: mapName, Inline: true},
	}
	if clans := clanMatchup(match.AllyMainClanTag, match.EnemyMainClanTag); clans != "" {
		fields = append(fields, EmbedField{Name: "Clans", Value: clans})
	}
	fields = append(fields,
		EmbedField{Name: "🔵 Allies", Value: rosterField(match.Allies), Inline: true},
		EmbedField{Name: "🔴 Enemies", Value: rosterField(match.Enemies), Inline: true},
	)
	if videoURL != "" {
		fields = append(fields, EmbedField{Name: "🎬 Video", Value: "[Download](" + videoURL + ")"})
	}
	if matchURL != "" {
		fields = append(fields, EmbedField{Name: "📊 Details", Value: "[View match](" + matchURL + ")"})
	}

	var footer *EmbedFooter
	if match.DateTime != "" {
		footer = &EmbedFooter{Text: match.DateTime}
	}

	return Embed{
		Title:  title,
		Color:  winLossColor(match.WinLoss),
		Fields: fields,
		Footer: footer,
	}
}

func winLossLabel(winLoss string) string {
	switch winLoss {
	case models.WinLossWin:
		return "🎉 Victory 🎉"
	case models.WinLossLoss:
		return "💀 Defeat 💀"
	case models.WinLossDraw:
		return "🤝 Draw"
	}
	return "Unknown"
}

func winLossColor(winLoss string) int {
	switch winLoss {
	case models.WinLossWin:
		return colorWin
	case models.WinLossLoss:
		return colorLoss
	}
	return colorDraw
}

func gameTypeLabel(gameType string) string {
	switch gameType {
	case models.GameTypeClan:
		return "Clan Battle"
	case models.GameTypeRanked:
		return "Ranked Battle"
	case models.GameTypeRandom:
		return "Random Battle"
	}
	return gameType
}

// clanMatchup formats "[A] vs [B]" when at least one tag is known.
// A missing side renders as "???" so the matchup still reads as a pair.
func clanMatchup(allyTag, enemyTag string) string {
	if allyTag == "" && enemyTag == "" {
		return ""
	}
	ally := "???"
	if allyTag != "" {
		ally = "[" + allyTag + "]"
	}
	enemy := "???"
	if enemyTag != "" {
		enemy = "[" + enemyTag + "]"
	}
	return ally + " vs " + enemy
}

func rosterField(entries []models.RosterEntry) string {
	if len(entries) == 0 {
		return "None"
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = "Unknown"
		}
		ship := e.ShipName
		if ship == "" {
			ship = "Unknown Ship"
		}
		lines = append(lines, "**"+name+"** - "+ship)
	}
	text := strings.Join(lines, "\n")
	if len(text) > fieldValueLimit && len(lines) > rosterTruncateAt {
		text = strings.Join(lines[:rosterTruncateAt], "\n")
		text += fmt.Sprintf("\n... and %d more", len(lines)-rosterTruncateAt)
	}
	return text
}
