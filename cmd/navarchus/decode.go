// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/tomtom215/navarchus/internal/assemble"
	"github.com/tomtom215/navarchus/internal/gamedata"
	"github.com/tomtom215/navarchus/internal/models"
	"github.com/tomtom215/navarchus/internal/replay"
	"github.com/tomtom215/navarchus/internal/stats"
)

var (
	decodeJSON    bool
	decodeLenient bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <replay.wowsreplay>",
	Short: "Decode a replay file and print battle statistics",
	Long: "Decode a .wowsreplay file offline and print the per-player battle\n" +
		"statistics table. Nothing is uploaded or persisted.",
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().BoolVar(&decodeJSON, "json", false, "print the parsed result as JSON")
	decodeCmd.Flags().BoolVar(&decodeLenient, "lenient", false, "tolerate truncated or incomplete replays")
}

func runDecode(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read replay: %w", err)
	}

	tables, err := gamedata.NewTables()
	if err != nil {
		return fmt.Errorf("load game data: %w", err)
	}

	decoder := replay.NewDecoder(replay.Options{Strict: !decodeLenient})
	decoded, err := decoder.Decode(data)
	if err != nil {
		return fmt.Errorf("decode replay: %w", err)
	}

	parsed, err := stats.NewParser(tables).Parse(decoded)
	if err != nil {
		return fmt.Errorf("parse battle statistics: %w", err)
	}

	if decodeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(parsed)
	}

	printBattleSummary(decoded, parsed)
	printPlayerTable(parsed.Players)
	return nil
}

func printBattleSummary(decoded *replay.DecodedReplay, parsed *stats.Result) {
	fmt.Printf("\nMap: %s  |  Date: %s  |  Type: %s  |  Result: %s  |  Arena: %d\n\n",
		decoded.Metadata.MapDisplayName,
		decoded.Metadata.DateTime,
		assemble.NormalizeGameType(decoded.Metadata.GameTypeRaw()),
		parsed.WinLoss,
		parsed.ArenaUniqueID,
	)
}

func printPlayerTable(players []models.PlayerBattleStats) {
	// Allies above enemies, highest damage first within a team.
	sorted := make([]models.PlayerBattleStats, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Team != sorted[j].Team {
			return sorted[i].Team == models.TeamAlly
		}
		return sorted[i].Damage > sorted[j].Damage
	})

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))

	table.Header(
		" ", "NAME", "CLAN", "TEAM", "SHIP", "CLASS",
		"K", "DMG", "CIT", "FIRE", "FLOOD", "SPOT", "SURV%",
	)

	for _, p := range sorted {
		marker := " "
		if p.IsOwn {
			marker = ">"
		}
		table.Append(
			marker,
			p.PlayerName,
			p.ClanTag,
			p.Team,
			p.ShipName,
			p.ShipClass,
			strconv.Itoa(p.Kills),
			strconv.Itoa(p.Damage),
			strconv.Itoa(p.Citadels),
			strconv.Itoa(p.Fires),
			strconv.Itoa(p.Floods),
			strconv.Itoa(p.SpottingDamage),
			fmt.Sprintf("%.0f", p.SurvivalPercent),
		)
	}

	table.Render()
}
