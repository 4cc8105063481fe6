package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewPicksFormatterByEnv(t *testing.T) {
	assert.IsType(t, &logrus.TextFormatter{}, New("local", "info").Formatter)
	assert.IsType(t, &logrus.JSONFormatter{}, New("production", "info").Formatter)
}

func TestNewLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("test", "debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("test", "loud").GetLevel())
}
