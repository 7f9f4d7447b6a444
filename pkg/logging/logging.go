package logging

import (
	"go.uber.org/zap"
)

// Setup builds the process logger. Verbose mode uses the human-readable
// development config at debug level; otherwise production JSON at info level.
func Setup(verbose bool) (*zap.SugaredLogger, error) {
	var zlog *zap.Logger
	var err error
	if verbose {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return zlog.Sugar(), nil
}

// Nop returns a logger that discards everything. Components accept it as the
// default so callers are never forced to wire logging.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
