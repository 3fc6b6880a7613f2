package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyFormatterSortsFields(t *testing.T) {
	f := &PrettyFormatter{NoColor: true}
	entry := logrus.NewEntry(logrus.New())
	entry.Level = logrus.WarnLevel
	entry.Message = "Client disconnected"
	entry.Data = logrus.Fields{"session": "10.0.0.2:4000", "bytes": 12}

	out, err := f.Format(entry)
	require.NoError(t, err)

	line := string(out)
	assert.Contains(t, line, "WARN  Client disconnected bytes=12 session=10.0.0.2:4000")
	assert.True(t, bytes.HasSuffix(out, []byte("\n")))
}

func TestNewParsesLevel(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, "debug")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log = New(&buf, "nonsense")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log.Info("hello")
	assert.Contains(t, buf.String(), "hello")
}
