package gologger

import glog "github.com/goliatone/go-logger/glog"

// Resolve uses deterministic precedence provider > logger > nop and
// always returns a usable logger.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	resolvedProvider, resolvedLogger := glog.Resolve(name, provider, logger)
	return resolvedProvider, glog.Ensure(resolvedLogger)
}

// Named returns the logger for name from provider, or fallback when the
// provider is missing.
func Named(provider glog.LoggerProvider, name string, fallback glog.Logger) glog.Logger {
	if provider != nil {
		if named := provider.GetLogger(name); named != nil {
			return named
		}
	}
	return glog.Ensure(fallback)
}
