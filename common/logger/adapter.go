package logger

// Adapter can be used as an adapter for logging from other frameworks/libraries.
// Just keep adding the required methods to make it function.
type Adapter Logger

func (log *Adapter) Log(msg string) {
	if log == nil || log.Logger == nil {
		return
	}
	log.Info(msg)
}

// Errorf, Warnf and Debugf satisfy resty.Logger.
func (log *Adapter) Errorf(format string, v ...any) {
	if log == nil || log.Logger == nil {
		return
	}
	log.Sugar().Errorf(format, v...)
}

func (log *Adapter) Warnf(format string, v ...any) {
	if log == nil || log.Logger == nil {
		return
	}
	log.Sugar().Warnf(format, v...)
}

func (log *Adapter) Debugf(format string, v ...any) {
	if log == nil || log.Logger == nil {
		return
	}
	log.Sugar().Debugf(format, v...)
}
