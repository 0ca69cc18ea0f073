package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const fixture = `
strip: 2
force_dates: true
branch_order: true
commit_time_window: 5s
branch_prefix: refs/heads/
authormap: authors.yaml
workers: 4
`

func TestUnmarshalAppliesDefaultsAndOverrides(t *testing.T) {
	cfg, err := Unmarshal([]byte(fixture))
	assert.NoError(t, err)
	assert.Equal(t, 2, cfg.Strip)
	assert.True(t, cfg.ForceDates)
	assert.True(t, cfg.BranchOrder)
	assert.Equal(t, 5*time.Second, cfg.CommitTimeWindow)
	assert.Equal(t, "refs/heads/", cfg.BranchPrefix)
	assert.Equal(t, 4, cfg.Workers)
}

func TestUnmarshalAppliesDefaultsWhenEmpty(t *testing.T) {
	cfg, err := Unmarshal([]byte(""))
	assert.NoError(t, err)
	assert.Equal(t, "refs/heads/", cfg.BranchPrefix)
	assert.Equal(t, 3*time.Second, cfg.CommitTimeWindow)
}

func TestUnmarshalRejectsNegativeStrip(t *testing.T) {
	_, err := Unmarshal([]byte("strip: -1\n"))
	assert.Error(t, err)
}

func TestUnmarshalRejectsBadFromTime(t *testing.T) {
	_, err := Unmarshal([]byte("from_time: not-a-time\n"))
	assert.Error(t, err)
}

func TestFromTimeValueParsesRFC3339(t *testing.T) {
	cfg, err := Unmarshal([]byte("from_time: 2020-01-02T00:00:00Z\n"))
	assert.NoError(t, err)
	tm, err := cfg.FromTimeValue()
	assert.NoError(t, err)
	assert.Equal(t, 2020, tm.Year())
}

func TestFromTimeValueEmptyReturnsZero(t *testing.T) {
	cfg, err := Unmarshal([]byte(""))
	assert.NoError(t, err)
	tm, err := cfg.FromTimeValue()
	assert.NoError(t, err)
	assert.True(t, tm.IsZero())
}
