// Package config loads the process-wide server configuration: seat
// limits, blinds, buy-in range, timers, listen address and logging.
// The config is an HCL struct with defaults and a Validate method
// rather than a process-global singleton: the loaded value is handed
// to the registry once at startup and every table holds an immutable
// copy.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/holdem-core/table"
)

// ServerConfig is the root of the HCL configuration file.
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Table  TableSettings  `hcl:"table,block"`
}

// ServerSettings controls the transport listener and logging.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// TableSettings mirrors every rule a Table is created with.
type TableSettings struct {
	MinPlayers         int     `hcl:"min_players,optional"`
	MaxPlayers         int     `hcl:"max_players,optional"`
	SmallBlind         int     `hcl:"small_blind,optional"`
	BigBlind           int     `hcl:"big_blind,optional"`
	MinBuyIn           int     `hcl:"min_buy_in,optional"`
	MaxBuyIn           int     `hcl:"max_buy_in,optional"`
	DefaultBuyIn       int     `hcl:"default_buy_in,optional"`
	TurnTimerMs        int64   `hcl:"turn_timer_ms,optional"`
	TimeBankSeconds    int64   `hcl:"time_bank_seconds,optional"`
	HandStartDelayMs   int64   `hcl:"hand_start_delay_ms,optional"`
	ShowdownDelayMs    int64   `hcl:"showdown_delay_ms,optional"`
	SitOutAutoRemoveMs int64   `hcl:"sit_out_auto_remove_ms,optional"`
	MaxHandHistory     int     `hcl:"max_hand_history,optional"`
	EloKFactor         float64 `hcl:"elo_k_factor,optional"`
	DefaultElo         float64 `hcl:"default_elo,optional"`

	// RequireHumanSeat keeps tables seated entirely by house bots
	// from dealing hands to themselves. Off by default.
	RequireHumanSeat bool `hcl:"require_human_seat,optional"`
}

// Default returns the stock configuration a server runs with when no
// file overrides it.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Table: TableSettings{
			MinPlayers:         2,
			MaxPlayers:         9,
			SmallBlind:         1,
			BigBlind:           2,
			MinBuyIn:           40,
			MaxBuyIn:           400,
			DefaultBuyIn:       200,
			TurnTimerMs:        15_000,
			TimeBankSeconds:    30,
			HandStartDelayMs:   3_000,
			ShowdownDelayMs:    2_000,
			SitOutAutoRemoveMs: 600_000,
			MaxHandHistory:     100,
			EloKFactor:         32,
			DefaultElo:         1000,
		},
	}
}

// Load reads an HCL config file, falling back to Default when the
// path doesn't exist so a fresh checkout runs without one.
func Load(path string) (*ServerConfig, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", path, diags.Error())
	}
	if diags := gohcl.DecodeBody(file.Body, nil, cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", path, diags.Error())
	}
	return cfg, nil
}

// Validate rejects a configuration that would let the table package's
// own invariants (bet-level/minRaise monotonicity, buy-in bounds) be
// violated before it ever reaches a Table.
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	t := c.Table
	if t.SmallBlind <= 0 {
		return fmt.Errorf("small_blind must be positive")
	}
	if t.BigBlind <= t.SmallBlind {
		return fmt.Errorf("big_blind must exceed small_blind")
	}
	if t.MinPlayers < 2 {
		return fmt.Errorf("min_players must be at least 2")
	}
	if t.MaxPlayers < t.MinPlayers || t.MaxPlayers > 9 {
		return fmt.Errorf("max_players must be between min_players and 9")
	}
	if t.MinBuyIn <= 0 || t.MinBuyIn >= t.MaxBuyIn {
		return fmt.Errorf("min_buy_in must be positive and less than max_buy_in")
	}
	if t.DefaultBuyIn < t.MinBuyIn || t.DefaultBuyIn > t.MaxBuyIn {
		return fmt.Errorf("default_buy_in must fall within [min_buy_in, max_buy_in]")
	}
	if t.MaxHandHistory < 1 {
		return fmt.Errorf("max_hand_history must be at least 1")
	}
	return nil
}

// Address returns the transport listen address as host:port.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// TableConfig converts the HCL settings into the table package's
// Config value a Table is constructed with.
func (c *ServerConfig) TableConfig() table.Config {
	t := c.Table
	return table.Config{
		MinPlayers:         t.MinPlayers,
		MaxPlayers:         t.MaxPlayers,
		SmallBlind:         t.SmallBlind,
		BigBlind:           t.BigBlind,
		MinBuyIn:           t.MinBuyIn,
		MaxBuyIn:           t.MaxBuyIn,
		TurnTimerMs:        t.TurnTimerMs,
		TimeBankSeconds:    t.TimeBankSeconds,
		HandStartDelayMs:   t.HandStartDelayMs,
		ShowdownDelayMs:    t.ShowdownDelayMs,
		SitOutAutoRemoveMs: t.SitOutAutoRemoveMs,
		MaxHandHistory:     t.MaxHandHistory,
		EloKFactor:         t.EloKFactor,
		DefaultElo:         t.DefaultElo,
		RequireHumanSeat:   t.RequireHumanSeat,
	}
}

// DefaultBuyIn is surfaced separately since table.Config has no slot
// for it: it's a join-time default, not a per-hand rule.
func (c *ServerConfig) DefaultBuyIn() int {
	return c.Table.DefaultBuyIn
}
