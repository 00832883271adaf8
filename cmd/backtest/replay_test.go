package main

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"

	"liquidityLab/internal/config"
)

func TestDefaultRunIDIsStable(t *testing.T) {
	cfg := config.ReplayConfig{In: "./data/typed_events.jsonl", RangeWidth: 1200, Deposit1: uint256.NewInt(5000)}
	id := defaultRunID(cfg)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, defaultRunID(cfg))

	wider := cfg
	wider.RangeWidth = 2400
	assert.NotEqual(t, id, defaultRunID(wider), "range width changes the run id")

	moved := cfg
	moved.In = "./data/other.jsonl"
	assert.NotEqual(t, id, defaultRunID(moved), "input path changes the run id")
}
