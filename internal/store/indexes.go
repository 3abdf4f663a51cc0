// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/navarchus/internal/models"
)

// IndexScan bounds a reverse-index walk.
type IndexScan struct {
	// GameType narrows the scan to one game type. Empty scans all
	// types and merges newest first.
	GameType string

	// BeforeUnix excludes rows at or after this timestamp; zero starts
	// from the newest row.
	BeforeUnix int64

	// MaxRows caps the result; zero applies the default of 500.
	MaxRows int
}

// defaultIndexScanRows keeps unbounded dimension scans from walking a
// whole index. A row is one match, so 500 covers any realistic page.
const defaultIndexScanRows = 500

func (sc IndexScan) maxRows() int {
	if sc.MaxRows <= 0 {
		return defaultIndexScanRows
	}
	return sc.MaxRows
}

// ScanShipIndex returns matches featuring the named ship, newest
// first. Ship names are stored uppercased, so the lookup folds case.
func (s *Store) ScanShipIndex(ctx context.Context, shipName string, scan IndexScan) ([]models.ShipIndexRow, error) {
	shipName = strings.ToUpper(shipName)

	var rows []models.ShipIndexRow
	err := s.forEachIndexType(scan, func(gameType string) ([]byte, []byte) {
		prefix := keyShipIdxPrefix(shipName, gameType)
		return prefix, indexSeek(prefix, scan.BeforeUnix)
	}, func(val []byte) error {
		var row models.ShipIndexRow
		if err := json.Unmarshal(val, &row); err != nil {
			return fmt.Errorf("unmarshal ship index row: %w", err)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].UnixTime > rows[j].UnixTime })
	if len(rows) > scan.maxRows() {
		rows = rows[:scan.maxRows()]
	}
	return rows, nil
}

// ScanPlayerIndex returns matches featuring the named player, newest
// first. Player names match exactly.
func (s *Store) ScanPlayerIndex(ctx context.Context, playerName string, scan IndexScan) ([]models.PlayerIndexRow, error) {
	var rows []models.PlayerIndexRow
	err := s.forEachIndexType(scan, func(gameType string) ([]byte, []byte) {
		prefix := keyPlayerIdxPrefix(playerName, gameType)
		return prefix, indexSeek(prefix, scan.BeforeUnix)
	}, func(val []byte) error {
		var row models.PlayerIndexRow
		if err := json.Unmarshal(val, &row); err != nil {
			return fmt.Errorf("unmarshal player index row: %w", err)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].UnixTime > rows[j].UnixTime })
	if len(rows) > scan.maxRows() {
		rows = rows[:scan.maxRows()]
	}
	return rows, nil
}

// ScanClanIndex returns matches featuring the clan tag, newest first.
// Tags match exactly, including case.
func (s *Store) ScanClanIndex(ctx context.Context, clanTag string, scan IndexScan) ([]models.ClanIndexRow, error) {
	var rows []models.ClanIndexRow
	err := s.forEachIndexType(scan, func(gameType string) ([]byte, []byte) {
		prefix := keyClanIdxPrefix(clanTag, gameType)
		return prefix, indexSeek(prefix, scan.BeforeUnix)
	}, func(val []byte) error {
		var row models.ClanIndexRow
		if err := json.Unmarshal(val, &row); err != nil {
			return fmt.Errorf("unmarshal clan index row: %w", err)
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].UnixTime > rows[j].UnixTime })
	if len(rows) > scan.maxRows() {
		rows = rows[:scan.maxRows()]
	}
	return rows, nil
}

// forEachIndexType walks one index prefix per in-scope game type in
// reverse key order, visiting row values until the per-type cap.
func (s *Store) forEachIndexType(scan IndexScan, keys func(gameType string) (prefix, seek []byte), visit func(val []byte) error) error {
	gameTypes := models.GameTypes()
	if scan.GameType != "" {
		gameTypes = []string{scan.GameType}
	}

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for _, gameType := range gameTypes {
			prefix, seek := keys(gameType)
			seen := 0
			for it.Seek(seek); it.ValidForPrefix(prefix) && seen < scan.maxRows(); it.Next() {
				if err := it.Item().Value(visit); err != nil {
					return err
				}
				seen++
			}
		}
		return nil
	})
}

// indexSeek is the reverse-iteration start position for one prefix.
// With no bound it lands past every key under the prefix; a bound
// lands just below the first row at that timestamp, making the bound
// exclusive.
func indexSeek(prefix []byte, beforeUnix int64) []byte {
	seek := append([]byte{}, prefix...)
	if beforeUnix > 0 {
		return append(seek, strconv.FormatInt(beforeUnix, 10)...)
	}
	return append(seek, 0xFF)
}
