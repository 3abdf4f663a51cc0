// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

// Package main provides the Navarchus CLI and server
//
// Navarchus ingests World of Warships replay files, decodes battle
// statistics, renders minimap videos, and serves the match archive
// over a JSON API.
//
// @title Navarchus API
// @version 1.0
// @description World of Warships replay ingest, match archive, and analytics platform
// @description
// @description ## Features
// @description
// @description - **Replay Upload**: Accepts .wowsreplay files, decodes battle statistics server-side
// @description - **Match Archive**: Deduplicated matches across uploader perspectives, searchable by player/ship/clan
// @description - **Minimap Videos**: Rendered MP4 battle replays, single and dual perspective
// @description - **Analytics**: DuckDB-backed win rates, ship usage, and player performance aggregates
// @description - **Real-time Updates**: WebSocket feed of pipeline lifecycle events
// @description - **Discord Notifications**: Webhook embeds when clan battle videos finish rendering
// @description
// @description ## Authentication
// @description
// @description Uploads require an API key in the `X-API-Key` header. Blob
// @description downloads use short-lived signed tokens minted into API responses.
// @description
// @description ## Rate Limiting
// @description
// @description Per-IP limits apply per route tier; `X-RateLimit-Limit`,
// @description `X-RateLimit-Remaining`, and `X-RateLimit-Reset` headers are
// @description included in responses.
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/navarchus
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /
// @schemes http https
//
// @tag.name health
// @tag.description Liveness, readiness, and pipeline health
// @tag.name upload
// @tag.description Replay upload boundary
// @tag.name matches
// @tag.description Match search and detail
// @tag.name analytics
// @tag.description DuckDB aggregate reads
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/tomtom215/navarchus/docs" // swagger doc.json template
)

var rootCmd = &cobra.Command{
	Use:   "navarchus",
	Short: "World of Warships replay archive",
	Long: "Navarchus decodes World of Warships replay files into a searchable\n" +
		"match archive with rendered minimap videos and battle analytics.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
