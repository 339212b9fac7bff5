package cli

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger builds the command logger. Logs always go to stderr so they
// never mix with text or JSON results on stdout.
//
// Verbose runs get a development config at debug level, which also
// surfaces every graph transition; otherwise a production config at warn
// level reports only swallowed lock failures and journal write errors.
func newLogger(opts *RootOptions) (*zap.Logger, error) {
	var config zap.Config
	if opts.Verbose {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return config.Build()
}
