package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lysyi3m/daily-briefing/app/briefing"
)

func TestExitStatus(t *testing.T) {
	assert.Equal(t, 0, exitStatus(&briefing.Report{RunID: "r1", Sent: true}, nil))
	assert.Equal(t, 0, exitStatus(&briefing.Report{RunID: "r2", Sent: false}, nil))
	assert.Equal(t, 1, exitStatus(nil, context.Canceled))
}
