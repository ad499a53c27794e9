package cliutil

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReporter_Start_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Start("node:20", "node", "20.11.0")

	assert.Contains(t, buf.String(), "node")
	assert.Contains(t, buf.String(), "20.11.0")
}

func TestReporter_Complete_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Complete("node:20", "node", "20.11.0")

	assert.Contains(t, buf.String(), "node")
	assert.Contains(t, buf.String(), "20.11.0")
}

func TestReporter_Fail_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Fail("node:20", "node", "20.11.0", errors.New("download failed"))

	output := buf.String()
	assert.Contains(t, output, "node")
	assert.Contains(t, output, "download failed")
}

func TestReporter_Skip_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.Skip("node", "20.11.0")

	assert.Contains(t, buf.String(), "already installed")
}
