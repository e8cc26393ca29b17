package logs

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// глобальный логгер; init нужен для тестов, где main не вызывается
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

func init() {
	InitLogger("feedd", "info", "text")
}

// InitLogger пересоздает глобальный логгер. format: "text" или "json"
func InitLogger(service, level, format string) {
	logger = New(os.Stderr, level, format)
	Log = logger.WithField("service", service)
}

// New создает отдельный логгер (удобно для тестов с буфером)
func New(out io.Writer, level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Discard - логгер для тестов
func Discard() *logrus.Entry {
	return New(io.Discard, "panic", "text").WithField("service", "test")
}
