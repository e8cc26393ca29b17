package logs

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug", "json")
	l.WithField("author_id", 7).Debug("fanout done")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "fanout done", line["msg"])
	assert.Equal(t, float64(7), line["author_id"])
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	l := New(&bytes.Buffer{}, "loud", "text")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestInitLoggerSetsService(t *testing.T) {
	InitLogger("worker", "warn", "text")
	defer InitLogger("feedd", "info", "text")

	assert.Equal(t, "worker", Log.Data["service"])
	assert.Equal(t, logrus.WarnLevel, Log.Logger.GetLevel())
}
