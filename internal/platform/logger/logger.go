package logger

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Log is an instance of the global logrus.Logger
var Log *logrus.Logger
var logLevel logrus.Level
var initializeLogger sync.Once

// StructuredFormatter renders each entry as a single JSON document
type StructuredFormatter struct {
	Hostname string
	App      string
}

func buildFormatter(format string) logrus.Formatter {
	switch strings.ToUpper(format) {
	case "TEXT":
		return &logrus.TextFormatter{}
	default:
		return NewStructuredFormatter()
	}
}

// NewStructuredFormatter creates a new log formatter
func NewStructuredFormatter() *StructuredFormatter {
	f := &StructuredFormatter{App: "integration-connector"}

	var err error
	if f.Hostname, err = os.Hostname(); err != nil {
		f.Hostname = "unknown"
	}

	return f
}

// Format is the log formatter for the entry
func (f *StructuredFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := &bytes.Buffer{}

	data := map[string]interface{}{
		"@timestamp":  entry.Time.UTC().Format("2006-01-02T15:04:05.999Z"),
		"@version":    1,
		"message":     entry.Message,
		"levelname":   entry.Level.String(),
		"source_host": f.Hostname,
		"app":         f.App,
	}

	if entry.HasCaller() {
		data["caller"] = entry.Caller.Function
	}

	for k, v := range entry.Data {
		switch v := v.(type) {
		case error:
			data[k] = v.Error()
		default:
			data[k] = v
		}
	}

	j, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	b.Write(j)
	b.WriteByte('\n')

	return b.Bytes(), nil
}

// InitLogger initializes the logger instance
func InitLogger() {

	initializeLogger.Do(func() {

		logconfig := viper.New()
		logconfig.SetDefault("LOG_LEVEL", "INFO")
		logconfig.SetDefault("LOG_FORMAT", "json")
		logconfig.SetEnvPrefix("INTEGRATION_CONNECTOR")
		logconfig.AutomaticEnv()
		format := logconfig.GetString("LOG_FORMAT")

		switch strings.ToUpper(logconfig.GetString("LOG_LEVEL")) {
		case "TRACE":
			logLevel = logrus.TraceLevel
		case "DEBUG":
			logLevel = logrus.DebugLevel
		case "WARN":
			logLevel = logrus.WarnLevel
		case "ERROR":
			logLevel = logrus.ErrorLevel
		default:
			logLevel = logrus.InfoLevel
		}
		if flag.Lookup("test.v") != nil {
			logLevel = logrus.FatalLevel
		}

		Log = &logrus.Logger{
			Out:          os.Stdout,
			Level:        logLevel,
			Formatter:    buildFormatter(format),
			Hooks:        make(logrus.LevelHooks),
			ReportCaller: true,
			ExitFunc:     os.Exit,
		}
	})
}

func LogError(msg string, err error) {
	Log.WithFields(logrus.Fields{"error": err}).Error(msg)
}

func LogErrorWithTenant(msg string, err error, tenant string) {
	Log.WithFields(logrus.Fields{"error": err, "enterprise_number": tenant}).Error(msg)
}

func LogFatalError(msg string, err error) {
	Log.WithFields(logrus.Fields{"error": err}).Fatal(msg)
}

// Elapsed formats the time since start for "elapsed" log fields
func Elapsed(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
